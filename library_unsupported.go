//go:build !(darwin || freebsd || linux)

package quarry

import "errors"

// UseNativeLibrary is unavailable on platforms without runtime
// library loading; the embedded engine remains the only backend.
func UseNativeLibrary(path string) error {
	return errors.New("quarry: native library loading is not supported on this platform")
}
