package store

import (
	"context"
	"log/slog"
	"sync"
)

// Constructor builds a Driver from its backend-specific Config, already
// decoded from the CLI/config layer.
type Constructor func(ctx context.Context, cfg any, logger *slog.Logger) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register associates a store-type tag with a Constructor. Each driver
// package calls this from its own init(), mirroring the teacher's
// switch-on-backend-string factory (internal/storage/factory.go) but
// generalized so new tags need no change to this package — "extensible" in
// spec §4.3's sense of registration, not of loading native plugins (no pack
// example demonstrates dlopen-style Go plugins; see DESIGN.md).
func Register(tag string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = ctor
}

// New builds the Driver registered for tag, or ErrUnknownDriver.
func New(ctx context.Context, tag string, cfg any, logger *slog.Logger) (Driver, error) {
	registryMu.RLock()
	ctor, ok := registry[tag]
	registryMu.RUnlock()
	if !ok {
		return nil, &ErrUnknownDriver{Tag: tag}
	}
	return ctor(ctx, cfg, logger)
}
