package normalize

import "github.com/monctl/monctl/internal/domain"

// SplitDeletions separates a section's accumulated EXTEND records into
// deletion sidecars (DeletionSidecar/UserDeletionSidecar's shape: a
// Payload holding a "delete" id list, not a real entity) and ordinary
// create/update records such as service.go's relation records.
func SplitDeletions(records []domain.Record) (deletions, others []domain.Record) {
	for _, r := range records {
		if _, ok := r.Payload.Get("delete"); ok {
			deletions = append(deletions, r)
			continue
		}
		others = append(others, r)
	}
	return deletions, others
}

// deletionSidecarForNames builds kind's deletion sidecar straight from a
// Worker pass's surviving records, diffing their names against every
// {id, name} pair the identity map currently holds for kind (spec.md
// §4.4: "sla, connector, proxygroup: worker computes deletion sidecars for
// names present locally but missing from the snapshot").
func deletionSidecarForNames(nctx *Context, kind domain.Kind, records []domain.Record) []domain.Record {
	present := make(map[string]bool, len(records))
	for _, r := range records {
		present[r.Name] = true
	}
	local := make(map[string]string)
	for _, p := range nctx.Identity.PairsForKind(kind) {
		local[p.Name] = p.ID
	}
	return DeletionSidecar(kind, local, present)
}

// DeletionIDs extracts the local ids a deletion sidecar carries. Unlike a
// normal record these are already resolved local ids, not stable names:
// the sidecar's producer (proxy, proxyGroup, user, sla, ...) compared its
// own already-resolved local id set against this run's name set.
func DeletionIDs(payload domain.Value) []string {
	field, ok := payload.Get("delete")
	if !ok {
		return nil
	}
	list, ok := field.List()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.String(); ok {
			out = append(out, s)
		}
	}
	return out
}
