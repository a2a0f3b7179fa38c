// Package store defines the pluggable, content-addressed Snapshot store
// (spec §4.3): one Go interface, four backends (KV-table, in-memory KV,
// file, direct), selected at runtime from configuration the way the
// teacher's internal/storage/factory.go picks Postgres vs SQLite from a
// deployment profile.
package store

import "context"

// Scope selects what Clear wipes.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeVersions
	ScopeData
)

// VersionFilter narrows ListVersions. A zero value matches everything.
type VersionFilter struct {
	MasterRelease string
	Limit         int
}

// StoredRecord is one persisted entity, addressed by DataID within its
// version (spec §4.3's {kind, name, dataId, payload} shape).
type StoredRecord struct {
	DataID  string
	Kind    string
	Name    string
	Payload []byte // compact JSON; backends compress it for storage and return it decompressed
}

// Driver is the uniform store API every backend implements. All operations
// are suspension points (spec §5): every call takes a context and may
// block on network or disk I/O.
type Driver interface {
	ListVersions(ctx context.Context, filter VersionFilter) ([]VersionMetaRow, error)
	PutVersion(ctx context.Context, meta VersionMetaRow) error

	GetRecords(ctx context.Context, versionID string) ([]StoredRecord, error)
	// PutRecords is atomic per-version at the record-set level: on partial
	// failure the caller must not call PutVersion for this versionID
	// (spec §4.3).
	PutRecords(ctx context.Context, versionID string, records []StoredRecord) error

	DeleteVersion(ctx context.Context, versionID string) error
	DeleteRecord(ctx context.Context, versionID, dataID string) error

	Clear(ctx context.Context, scope Scope) error

	// Close releases backend connections/handles.
	Close() error
}

// VersionMetaRow is the store-facing shape of domain.VersionMeta — a
// separate type (rather than reusing domain.VersionMeta directly) keeps
// store backends decoupled from the domain package's JSON tags, matching
// the teacher's convention of row-shaped DB structs distinct from API
// domain structs.
type VersionMetaRow struct {
	VersionID     string
	CreatedAt     int64
	MasterRelease string
	Description   string
	ExpiresAt     int64 // 0 = no TTL
}

// RecordDataID derives the content-addressed key for a (kind, name) pair
// within a version. Stable and collision-free because (kind, name) is
// already unique within a snapshot (spec §3 invariant).
func RecordDataID(kind, name string) string {
	return kind + ":" + name
}
