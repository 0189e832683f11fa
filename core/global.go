package core

import (
	"errors"
	"sync"
)

// Sentinel errors for the guarded global context.
var (
	// ErrGlobalAlreadySet is returned when a global context is installed
	// twice without an intervening ClearGlobal.
	ErrGlobalAlreadySet = errors.New("core: global context already set")

	// ErrGlobalNotSet is returned when Global is called before SetGlobal.
	ErrGlobalNotSet = errors.New("core: global context not set")
)

var (
	globalMu  sync.RWMutex
	globalCtx *ServerContext
)

// SetGlobal installs the process-wide context. A second call is an error,
// not a replacement.
func SetGlobal(c *ServerContext) error {
	if c == nil {
		return errors.New("core: cannot set nil global context")
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCtx != nil {
		return ErrGlobalAlreadySet
	}
	globalCtx = c
	return nil
}

// Global returns the installed process-wide context.
func Global() (*ServerContext, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalCtx == nil {
		return nil, ErrGlobalNotSet
	}
	return globalCtx, nil
}

// HasGlobal reports whether a global context is installed.
func HasGlobal() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalCtx != nil
}

// ClearGlobal removes the installed context so a new one can be set.
// Intended for tests and teardown.
func ClearGlobal() {
	globalMu.Lock()
	globalCtx = nil
	globalMu.Unlock()
}
