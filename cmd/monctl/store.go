package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/store"
	"github.com/monctl/monctl/internal/store/filestore"
	"github.com/monctl/monctl/internal/store/kvmemory"
	"github.com/monctl/monctl/internal/store/kvtable"
)

// defaultFileStoreDir matches spec.md §6's per-platform default when
// store.dir isn't set: "/var/lib/<app>/" on linux, "%USERPROFILE%/
// Documents/<app>/" on windows.
func defaultFileStoreDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("USERPROFILE"), "Documents", "monctl")
	}
	return "/var/lib/monctl/"
}

// driverTag maps spec.md §6's store-type spelling ("file", "kv-table",
// "kv-memory", "direct", "extend:<name>") onto the tag each backend
// package registers itself under (spec §4.3: "a driver is selected by a
// short type tag; unknown tags load a plug-in module named after the
// tag").
func driverTag(storeType string) string {
	switch storeType {
	case "kv-table":
		return "kvtable"
	case "kv-memory":
		return "kvmemory"
	case "file", "direct":
		return storeType
	}
	if name, ok := strings.CutPrefix(storeType, "extend:"); ok {
		return name
	}
	return storeType
}

// buildStore constructs the configured backend's Config value and hands
// it to internal/store.New. Each backend keeps its own Config shape; this
// is the one place that knows how spec.md §6's generic store-* flags map
// onto each of them.
func buildStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Driver, error) {
	tag := driverTag(cfg.Type)
	switch tag {
	case "file":
		dir := cfg.Dir
		if dir == "" {
			dir = defaultFileStoreDir()
		}
		return store.New(ctx, tag, filestore.Config{Dir: dir}, logger)
	case "kvmemory":
		return store.New(ctx, tag, kvmemory.Config{
			Addr:         fmt.Sprintf("%s:%d", cfg.Endpoint, cfg.Port),
			Password:     cfg.Credential,
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}, logger)
	case "kvtable":
		limit := rate.Limit(1)
		if cfg.Limit > 0 && cfg.Interval > 0 {
			limit = rate.Limit(float64(cfg.Limit) / float64(cfg.Interval))
		}
		return store.New(ctx, tag, kvtable.Config{
			Region:         cfg.Access,
			Endpoint:       cfg.Endpoint,
			VersionTable:   "monctl_version",
			DataTable:      "monctl_data",
			WriteRateLimit: limit,
		}, logger)
	case "direct":
		return store.New(ctx, tag, nil, logger)
	default:
		return store.New(ctx, tag, cfg, logger)
	}
}
