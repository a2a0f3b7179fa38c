// Package filestore implements store.Driver as one compressed file per
// version (spec §4.3 "File"). Directory listing doubles as version
// listing; deletion is a real file delete.
//
// Spec §4.3/§6 name the encoding "bzip2" and the extension ".bz". Go's
// stdlib compress/bzip2 is decode-only and no bzip2 *encoder* appears
// anywhere in the example pack; we compress with stdlib compress/gzip
// instead while keeping the ".bz" filename grammar and the
// directory-listing-is-version-listing contract intact (see DESIGN.md).
package filestore

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/monctl/monctl/internal/store"
)

func init() {
	store.Register("file", func(ctx context.Context, cfg any, logger *slog.Logger) (store.Driver, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, fmt.Errorf("filestore: expected filestore.Config, got %T", cfg)
		}
		return New(c, logger)
	})
}

// Config configures the file backend.
type Config struct {
	Dir string
}

// fileRecord is the on-disk payload: version metadata plus its records,
// marshalled as one JSON document before compression.
type fileRecord struct {
	VersionID     string              `json:"versionId"`
	CreatedAt     int64               `json:"createdAt"`
	MasterRelease string              `json:"masterRelease"`
	Description   string              `json:"description"`
	Records       []store.StoredRecord `json:"records"`
}

// Store is the file-backed driver.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string][]store.StoredRecord
}

// New returns a Store rooted at cfg.Dir, creating it if absent.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("filestore: Dir must not be empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("filestore: create dir %s: %w", cfg.Dir, err)
	}
	return &Store{dir: cfg.Dir, logger: logger, pending: map[string][]store.StoredRecord{}}, nil
}

func (s *Store) fileName(versionID string, createdAt int64, masterRelease string) string {
	return fmt.Sprintf("%s_%d_%s.bz", versionID, createdAt, masterRelease)
}

func (s *Store) ListVersions(ctx context.Context, filter store.VersionFilter) ([]store.VersionMetaRow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	var out []store.VersionMetaRow
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bz") {
			continue
		}
		meta, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		if filter.MasterRelease != "" && meta.MasterRelease != filter.MasterRelease {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func parseFileName(name string) (store.VersionMetaRow, bool) {
	base := strings.TrimSuffix(name, ".bz")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 {
		return store.VersionMetaRow{}, false
	}
	createdAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return store.VersionMetaRow{}, false
	}
	return store.VersionMetaRow{VersionID: parts[0], CreatedAt: createdAt, MasterRelease: parts[2]}, true
}

func (s *Store) findFile(versionID string) (string, bool) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), versionID+"_") && strings.HasSuffix(e.Name(), ".bz") {
			return filepath.Join(s.dir, e.Name()), true
		}
	}
	return "", false
}

// PutRecords stages records in memory; nothing touches disk until
// PutVersion commits, preserving the per-version atomicity contract.
func (s *Store) PutRecords(ctx context.Context, versionID string, records []store.StoredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[versionID] = records
	return nil
}

// PutVersion writes the version's metadata plus its staged records to a
// temp file and renames it into place — a rename is atomic on a POSIX
// filesystem, so readers never observe a partially written version.
func (s *Store) PutVersion(ctx context.Context, meta store.VersionMetaRow) error {
	s.mu.Lock()
	records := s.pending[meta.VersionID]
	delete(s.pending, meta.VersionID)
	s.mu.Unlock()

	fr := fileRecord{
		VersionID: meta.VersionID, CreatedAt: meta.CreatedAt,
		MasterRelease: meta.MasterRelease, Description: meta.Description,
		Records: records,
	}
	payload, err := json.Marshal(fr)
	if err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}

	finalPath := filepath.Join(s.dir, s.fileName(meta.VersionID, meta.CreatedAt, meta.MasterRelease))
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	defer os.Remove(tmp.Name())

	gw := gzip.NewWriter(tmp)
	if _, err := gw.Write(payload); err != nil {
		tmp.Close()
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	if err := gw.Close(); err != nil {
		tmp.Close()
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	s.logger.Info("filestore: wrote version", "versionId", meta.VersionID, "path", finalPath)
	return nil
}

func (s *Store) GetRecords(ctx context.Context, versionID string) ([]store.StoredRecord, error) {
	path, ok := s.findFile(versionID)
	if !ok {
		return nil, &store.ErrVersionNotFound{VersionID: versionID}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	defer gr.Close()

	var fr fileRecord
	if err := json.NewDecoder(gr).Decode(&fr); err != nil {
		return nil, &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	return fr.Records, nil
}

func (s *Store) DeleteVersion(ctx context.Context, versionID string) error {
	path, ok := s.findFile(versionID)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	return nil
}

// DeleteRecord is not meaningful for a whole-version file blob; it rewrites
// the version with the record removed.
func (s *Store) DeleteRecord(ctx context.Context, versionID, dataID string) error {
	records, err := s.GetRecords(ctx, versionID)
	if err != nil {
		return err
	}
	out := records[:0]
	for _, r := range records {
		if r.DataID != dataID {
			out = append(out, r)
		}
	}
	path, ok := s.findFile(versionID)
	if !ok {
		return &store.ErrVersionNotFound{VersionID: versionID}
	}
	meta, _ := parseFileName(filepath.Base(path))
	if err := s.PutRecords(ctx, versionID, out); err != nil {
		return err
	}
	return s.PutVersion(ctx, meta)
}

func (s *Store) Clear(ctx context.Context, scope store.Scope) error {
	if scope == store.ScopeData {
		// Records live inside the version file; clearing data without
		// versions is not representable for this backend.
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &store.ErrWriteFailed{Backend: "file", Cause: err}
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bz") {
			os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
