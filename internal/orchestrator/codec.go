package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/store"
)

// recordsToStored marshals a master run's normalized records into the
// store's wire shape. Each payload is plain compact JSON; the persisting
// backends compress the bytes themselves on their way to storage (spec
// §4.3, §6), so this boundary only needs to get the JSON right.
func recordsToStored(records []domain.Record) ([]store.StoredRecord, error) {
	out := make([]store.StoredRecord, 0, len(records))
	for _, r := range records {
		payload, err := json.Marshal(r.Payload.ToAny())
		if err != nil {
			return nil, fmt.Errorf("orchestrator: encoding %s %q: %w", r.Kind, r.Name, err)
		}
		out = append(out, store.StoredRecord{
			DataID:  store.RecordDataID(string(r.Kind), r.Name),
			Kind:    string(r.Kind),
			Name:    r.Name,
			Payload: payload,
		})
	}
	return out, nil
}

// storedToRecords is recordsToStored's inverse, used when a worker loads a
// snapshot back out of the store.
func storedToRecords(rows []store.StoredRecord) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		var decoded any
		if err := json.Unmarshal(row.Payload, &decoded); err != nil {
			return nil, fmt.Errorf("orchestrator: decoding %s %q: %w", row.Kind, row.Name, err)
		}
		out = append(out, domain.Record{
			Kind:    domain.Kind(row.Kind),
			Name:    row.Name,
			Payload: domain.FromAny(decoded),
		})
	}
	return out, nil
}

// LoadSnapshot reads versionID's metadata and records back out of a
// store.Driver and assembles them into a domain.Snapshot, the shape
// RunWorker consumes. versionID == "" resolves to the most recent version
// (spec.md §6 "version selection").
func LoadSnapshot(ctx context.Context, drv store.Driver, versionID string) (domain.Snapshot, error) {
	if versionID == "" {
		versions, err := drv.ListVersions(ctx, store.VersionFilter{})
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("orchestrator: listing versions: %w", err)
		}
		if len(versions) == 0 {
			return domain.Snapshot{}, fmt.Errorf("orchestrator: store has no versions")
		}
		latest := versions[0]
		for _, v := range versions[1:] {
			if v.CreatedAt > latest.CreatedAt {
				latest = v
			}
		}
		versionID = latest.VersionID
	}

	rows, err := drv.GetRecords(ctx, versionID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("orchestrator: reading records for %s: %w", versionID, err)
	}
	records, err := storedToRecords(rows)
	if err != nil {
		return domain.Snapshot{}, err
	}

	versions, err := drv.ListVersions(ctx, store.VersionFilter{})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("orchestrator: listing versions: %w", err)
	}
	var meta store.VersionMetaRow
	found := false
	for _, v := range versions {
		if v.VersionID == versionID {
			meta = v
			found = true
			break
		}
	}
	if !found {
		return domain.Snapshot{}, fmt.Errorf("orchestrator: version %s not found", versionID)
	}

	return domain.Snapshot{
		VersionMeta: domain.VersionMeta{
			VersionID:     meta.VersionID,
			CreatedAt:     meta.CreatedAt,
			MasterRelease: meta.MasterRelease,
			Description:   meta.Description,
		},
		Records: records,
	}, nil
}
