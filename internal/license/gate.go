// Package license implements the process-wide activation gate that must be
// passed before any capture is accepted.
//
// The gate forwards keys to a Validator and surfaces its status code
// verbatim: 0 is success, anything else is a validator-defined failure. The
// first success is cached for the life of the gate. Failed attempts are not,
// so a later call with another key re-attempts initialization.
package license

import (
	"errors"
	"fmt"
	"sync"

	"capturevision/internal/logging"
)

// StatusOK is the status code of a successful initialization.
const StatusOK = 0

// ErrNotInitialized is wrapped by every error returned from Gate.Check
// before a successful Initialize.
var ErrNotInitialized = errors.New("license: not initialized")

// Error reports that the gate is closed. Status is the code returned by the
// last attempt; Attempted is false when Initialize was never called.
type Error struct {
	Status    int
	Attempted bool
}

func (e *Error) Error() string {
	if !e.Attempted {
		return "license: not initialized (no key supplied)"
	}
	return fmt.Sprintf("license: not initialized (last status %d)", e.Status)
}

func (e *Error) Unwrap() error { return ErrNotInitialized }

// Validator checks a license key and returns a status code, 0 on success.
type Validator interface {
	Validate(key string) int
}

// Func adapts a plain function to a Validator.
type Func func(key string) int

func (f Func) Validate(key string) int { return f(key) }

// Gate serializes initialization attempts: exactly one is in flight at a
// time and every caller observes the status its own attempt produced, or
// the cached success.
type Gate struct {
	validator Validator

	mu        sync.Mutex
	ok        bool
	attempted bool
	status    int
	attempts  int
}

// NewGate returns a closed gate backed by v.
func NewGate(v Validator) *Gate {
	return &Gate{validator: v}
}

// Initialize validates key unless the gate is already open, in which case it
// returns StatusOK without consulting the validator.
func (g *Gate) Initialize(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	logger := logging.New("license")
	if g.ok {
		logger.Debug("license already initialized")
		return StatusOK
	}
	g.attempts++
	g.attempted = true
	g.status = g.validator.Validate(key)
	if g.status == StatusOK {
		g.ok = true
		logger.Info("license initialized", "attempt", g.attempts)
	} else {
		logger.Warn("license initialization failed", "status", g.status, "attempt", g.attempts)
	}
	return g.status
}

// Check returns nil once the gate is open, otherwise an *Error.
func (g *Gate) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ok {
		return nil
	}
	return &Error{Status: g.status, Attempted: g.attempted}
}

// Status returns the last status code and whether the gate is open.
func (g *Gate) Status() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, g.ok
}

// Attempts counts calls to Initialize that reached the validator.
func (g *Gate) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

var defaultGate = sync.OnceValue(func() *Gate { return NewGate(Offline{}) })

// Default returns the process-wide gate, backed by the offline validator.
func Default() *Gate { return defaultGate() }
