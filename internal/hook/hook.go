// Package hook is the hand-off point for a resolved function address.
// Installing the actual detour is the host's business; this package defines
// the contract and the implementations the tool ships with.
package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"siglocate/internal/config"
	"siglocate/internal/logging"
)

// ErrAlreadyInstalled is returned when an address is hooked twice.
var ErrAlreadyInstalled = errors.New("hook already installed")

// Hook receives the address of the located function.
type Hook interface {
	Install(ctx context.Context, addr uint64) error
}

// Func adapts a function to Hook.
type Func func(ctx context.Context, addr uint64) error

// Install implements Hook.
func (f Func) Install(ctx context.Context, addr uint64) error { return f(ctx, addr) }

// Logger reports the address and the packed limits instead of patching code.
type Logger struct {
	Log    *logging.LoggerCloser
	Limits config.BuildLimits

	mu        sync.Mutex
	installed map[uint64]bool
}

// NewLogger returns a Logger hook for limits.
func NewLogger(lg *logging.LoggerCloser, limits config.BuildLimits) *Logger {
	return &Logger{Log: lg, Limits: limits}
}

// Install implements Hook.
func (h *Logger) Install(ctx context.Context, addr uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.installed == nil {
		h.installed = make(map[uint64]bool)
	}
	if h.installed[addr] {
		return fmt.Errorf("install at %#x: %w", addr, ErrAlreadyInstalled)
	}
	h.installed[addr] = true

	h.Log.Info("Hook target", "addr", fmt.Sprintf("0x%X", addr),
		"limits", h.Limits.String(), "packed", fmt.Sprintf("0x%08X", uint32(h.Limits.Pack())))
	return nil
}

// Recorder remembers every address it is given.
type Recorder struct {
	mu    sync.Mutex
	addrs []uint64
}

// Install implements Hook.
func (r *Recorder) Install(_ context.Context, addr uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addrs = append(r.addrs, addr)
	return nil
}

// Addrs returns the recorded addresses in call order.
func (r *Recorder) Addrs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.addrs...)
}
