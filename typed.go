package quarry

// typed.go implements the typed convenience layer over the byte-level
// operations. Keys and values are encoded through their codecs; the
// encoded views live exactly as long as the native call needs them.

// PutValue encodes key and value through their codecs and stores
// them. Both types must have an encodable shape; pointer-shaped
// values need the byte-level API with an explicit length.
func PutValue[K, V any](db *DB, wo *WriteOptions, key K, value V) error {
	kc, err := CodecOf[K]()
	if err != nil {
		return err
	}
	vc, err := CodecOf[V]()
	if err != nil {
		return err
	}
	kv, err := kc.Encode(&key)
	if err != nil {
		return err
	}
	defer kv.Release()
	vv, err := vc.Encode(&value)
	if err != nil {
		return err
	}
	defer vv.Release()

	kb, err := kv.Bytes()
	if err != nil {
		return err
	}
	vb, err := vv.Bytes()
	if err != nil {
		return err
	}
	return db.Put(wo, kb, vb)
}

// GetValue looks up key and decodes the stored bytes as V. An absent
// key returns the zero value of V with found=false and a nil error;
// callers that need a different default substitute it themselves.
func GetValue[K, V any](db *DB, ro *ReadOptions, key K) (value V, found bool, err error) {
	kc, err := CodecOf[K]()
	if err != nil {
		return value, false, err
	}
	vc, err := CodecOf[V]()
	if err != nil {
		return value, false, err
	}
	kv, err := kc.Encode(&key)
	if err != nil {
		return value, false, err
	}
	defer kv.Release()
	kb, err := kv.Bytes()
	if err != nil {
		return value, false, err
	}

	view, err := db.getView(ro, kb)
	if err != nil {
		return value, false, err
	}
	if view == nil {
		return value, false, nil
	}
	defer view.Release()
	span, err := view.Bytes()
	if err != nil {
		return value, false, err
	}
	value, err = vc.Decode(span)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// DeleteValue encodes key through its codec and removes it. Deleting
// an absent key is not an error.
func DeleteValue[K any](db *DB, wo *WriteOptions, key K) error {
	kc, err := CodecOf[K]()
	if err != nil {
		return err
	}
	kv, err := kc.Encode(&key)
	if err != nil {
		return err
	}
	defer kv.Release()
	kb, err := kv.Bytes()
	if err != nil {
		return err
	}
	return db.Delete(wo, kb)
}
