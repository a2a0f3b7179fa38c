package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one entity captured inside a Snapshot.
type Record struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name"`
	Payload Value  `json:"payload"`
}

// VersionMeta describes a Snapshot without its records, the shape a store's
// listVersions returns.
type VersionMeta struct {
	VersionID     string `json:"versionId"`
	CreatedAt     int64  `json:"createdAt"`
	MasterRelease string `json:"masterRelease"`
	Description   string `json:"description"`
}

// Snapshot is an immutable, UUID-identified capture of the master's
// cloneable configuration (spec §3).
type Snapshot struct {
	VersionMeta
	Records []Record `json:"records"`
}

// Validate enforces the snapshot invariant: (kind, name) is unique.
func (s Snapshot) Validate() error {
	seen := make(map[string]bool, len(s.Records))
	for _, r := range s.Records {
		key := string(r.Kind) + "\x00" + r.Name
		if seen[key] {
			return fmt.Errorf("domain: duplicate (kind=%s, name=%s) in snapshot %s", r.Kind, r.Name, s.VersionID)
		}
		seen[key] = true
	}
	return nil
}

// ByKind groups a snapshot's records by kind, preserving within-kind order.
func (s Snapshot) ByKind(k Kind) []Record {
	var out []Record
	for _, r := range s.Records {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// NewVersionID generates a new snapshot identifier. Exposed as a variable
// so tests can substitute a deterministic generator.
var NewVersionID = func() string {
	return uuid.NewString()
}

// NowUnix returns the current Unix time in seconds. A variable for the same
// testability reason as NewVersionID.
var NowUnix = func() int64 {
	return time.Now().UTC().Unix()
}
