//go:build darwin || freebsd || linux

package quarry

import "github.com/quarrykv/quarry/internal/native/dynlib"

// UseNativeLibrary switches the process to the native engine shared
// library at path (empty means the platform default, libleveldb).
// It must be called before any quarry object is created and fails
// once a backend is in use.
func UseNativeLibrary(path string) error {
	eng, err := dynlib.Load(path)
	if err != nil {
		return err
	}
	return setEngine(eng)
}
