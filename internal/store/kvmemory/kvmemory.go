// Package kvmemory implements store.Driver against a Redis-style in-memory
// key/value server (spec §4.3 "In-memory KV"), in the connection and
// config idiom of the teacher's internal/infrastructure/cache package.
//
// Layout (spec §6): logical db 0 holds one hash named "versions" keyed by
// versionId, values are JSON-encoded VersionMetaRow; logical db 1 holds one
// hash per versionId, fields are dataIds, values are gzip-compressed
// record payloads (see DESIGN.md on the bzip2→gzip substitution).
package kvmemory

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/monctl/monctl/internal/store"
)

func init() {
	store.Register("kvmemory", func(ctx context.Context, cfg any, logger *slog.Logger) (store.Driver, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, fmt.Errorf("kvmemory: expected kvmemory.Config, got %T", cfg)
		}
		return New(ctx, c, logger)
	})
}

const versionsKey = "versions"

// Config configures the Redis connection. Mirrors the fields the teacher's
// cache.CacheConfig exposes, minus pool/backoff knobs this driver's
// workload (batch writes during a clone run, not request-path caching)
// doesn't need tuned independently.
type Config struct {
	Addr         string
	Password     string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("kvmemory: Addr must not be empty")
	}
	return nil
}

// Store is the Redis-backed driver. It keeps two clients pointed at the
// same server on different logical databases, rather than one client with
// SELECT calls interleaved, so version and data access never race over a
// shared connection's selected db.
type Store struct {
	versions *redis.Client
	data     *redis.Client
	logger   *slog.Logger
}

// New connects to Redis and verifies both logical databases are reachable.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := func(db int) *redis.Options {
		return &redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           db,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
	}

	versions := redis.NewClient(opts(0))
	data := redis.NewClient(opts(1))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := versions.Ping(pingCtx).Err(); err != nil {
		logger.Error("kvmemory: failed to connect", "addr", cfg.Addr, "error", err)
		return nil, &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	if err := data.Ping(pingCtx).Err(); err != nil {
		logger.Error("kvmemory: failed to connect", "addr", cfg.Addr, "error", err)
		return nil, &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}

	logger.Info("kvmemory: connected", "addr", cfg.Addr)
	return &Store{versions: versions, data: data, logger: logger}, nil
}

// NewFromClients wires a Store directly from pre-built clients, for tests
// against miniredis instances.
func NewFromClients(versions, data *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{versions: versions, data: data, logger: logger}
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

func (s *Store) ListVersions(ctx context.Context, filter store.VersionFilter) ([]store.VersionMetaRow, error) {
	raw, err := s.versions.HGetAll(ctx, versionsKey).Result()
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	var out []store.VersionMetaRow
	for _, v := range raw {
		var row store.VersionMetaRow
		if err := json.Unmarshal([]byte(v), &row); err != nil {
			continue
		}
		if filter.MasterRelease != "" && row.MasterRelease != filter.MasterRelease {
			continue
		}
		out = append(out, row)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) PutVersion(ctx context.Context, meta store.VersionMetaRow) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	if err := s.versions.HSet(ctx, versionsKey, meta.VersionID, encoded).Err(); err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	return nil
}

func (s *Store) PutRecords(ctx context.Context, versionID string, records []store.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	fields := make(map[string]any, len(records))
	for _, r := range records {
		blob, err := compress(r.Payload)
		if err != nil {
			return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
		}
		fields[r.DataID] = blob
	}
	if err := s.data.HSet(ctx, versionID, fields).Err(); err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	return nil
}

func (s *Store) GetRecords(ctx context.Context, versionID string) ([]store.StoredRecord, error) {
	raw, err := s.data.HGetAll(ctx, versionID).Result()
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	if len(raw) == 0 {
		if _, err := s.versions.HGet(ctx, versionsKey, versionID).Result(); err == redis.Nil {
			return nil, &store.ErrVersionNotFound{VersionID: versionID}
		}
	}
	out := make([]store.StoredRecord, 0, len(raw))
	for dataID, blob := range raw {
		payload, err := decompress([]byte(blob))
		if err != nil {
			return nil, &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
		}
		kind, name, _ := strings.Cut(dataID, ":")
		out = append(out, store.StoredRecord{DataID: dataID, Kind: kind, Name: name, Payload: payload})
	}
	return out, nil
}

// DeleteVersion removes the version entry and its whole data hash
// immediately — unlike the KV-table backend's lazy tombstone, this backend
// has no native TTL-sweep analogue to lean on, so deletion is eager
// (resolved Open Question 3, see DESIGN.md).
func (s *Store) DeleteVersion(ctx context.Context, versionID string) error {
	if err := s.versions.HDel(ctx, versionsKey, versionID).Err(); err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	if err := s.data.Del(ctx, versionID).Err(); err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, versionID, dataID string) error {
	if err := s.data.HDel(ctx, versionID, dataID).Err(); err != nil {
		return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, scope store.Scope) error {
	if scope == store.ScopeAll || scope == store.ScopeVersions {
		if err := s.versions.Del(ctx, versionsKey).Err(); err != nil {
			return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
		}
	}
	if scope == store.ScopeAll || scope == store.ScopeData {
		if err := s.data.FlushDB(ctx).Err(); err != nil {
			return &store.ErrWriteFailed{Backend: "kvmemory", Cause: err}
		}
	}
	return nil
}

func (s *Store) Close() error {
	err1 := s.versions.Close()
	err2 := s.data.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
