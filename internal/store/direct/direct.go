// Package direct implements store.Driver with no persistence: the worker
// reads straight from the master's in-memory snapshot (spec §4.3 "Direct").
package direct

import (
	"context"
	"log/slog"
	"sync"

	"github.com/monctl/monctl/internal/store"
)

func init() {
	store.Register("direct", func(ctx context.Context, cfg any, logger *slog.Logger) (store.Driver, error) {
		return New(logger), nil
	})
}

// Store holds exactly one in-flight snapshot, handed to it by the
// orchestrator's master path before the worker path runs in the same
// process. There is no cross-process direct mode.
type Store struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	meta    *store.VersionMetaRow
	records []store.StoredRecord
}

// New returns an empty direct store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Seed installs the live snapshot a master just produced, for a worker in
// the same run to read back.
func (s *Store) Seed(meta store.VersionMetaRow, records []store.StoredRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := meta
	s.meta = &m
	s.records = records
}

func (s *Store) ListVersions(ctx context.Context, filter store.VersionFilter) ([]store.VersionMetaRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil, nil
	}
	return []store.VersionMetaRow{*s.meta}, nil
}

func (s *Store) PutVersion(ctx context.Context, meta store.VersionMetaRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := meta
	s.meta = &m
	return nil
}

func (s *Store) GetRecords(ctx context.Context, versionID string) ([]store.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil || s.meta.VersionID != versionID {
		return nil, &store.ErrVersionNotFound{VersionID: versionID}
	}
	out := make([]store.StoredRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) PutRecords(ctx context.Context, versionID string, records []store.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	return nil
}

func (s *Store) DeleteVersion(ctx context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta != nil && s.meta.VersionID == versionID {
		s.meta = nil
		s.records = nil
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, versionID, dataID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.records[:0]
	for _, r := range s.records {
		if r.DataID != dataID {
			out = append(out, r)
		}
	}
	s.records = out
	return nil
}

func (s *Store) Clear(ctx context.Context, scope store.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = nil
	s.records = nil
	return nil
}

func (s *Store) Close() error { return nil }
