package quarry

// engine.go selects the engine backend for the process. The embedded
// pure-Go engine is the default; UseNativeLibrary switches to a real
// shared library, which must happen before any native object exists
// since handles are not portable across backends.

import (
	"fmt"
	"sync"

	"github.com/quarrykv/quarry/internal/native"
	"github.com/quarrykv/quarry/internal/native/embedded"
)

var (
	engineMu     sync.Mutex
	activeEngine native.Engine
	engineInUse  bool
)

// engine returns the process-wide engine backend, creating the
// embedded default on first use.
func engine() native.Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if activeEngine == nil {
		activeEngine = embedded.New()
	}
	engineInUse = true
	return activeEngine
}

func setEngine(e native.Engine) error {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engineInUse {
		return fmt.Errorf("quarry: engine backend already in use; select the backend before creating any object")
	}
	activeEngine = e
	return nil
}
