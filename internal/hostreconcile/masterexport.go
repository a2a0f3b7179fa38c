package hostreconcile

import (
	"github.com/google/uuid"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// MissingCarryTag reports whether a master-side host payload (as returned
// by host.get with selectTags) has no UUID_TAG yet (spec §3: "the master
// assigns and preserves the tag").
func MissingCarryTag(payload domain.Value) bool {
	return carryTag(payload) == ""
}

// NewCarryTag generates a fresh carry-tag value. A master host missing
// one gets exactly one, assigned once and never reassigned.
func NewCarryTag() string {
	return uuid.NewString()
}

// FlattenHostForMaster converts a master-side host.get payload (whose
// groups/templates arrive as {groupid/templateid, name} objects) into the
// name-only reference shape NormalizeHost's worker-side translateRefs
// expects on the other end (spec §4.6, §9: the same id<->name asymmetry
// every normalize processor's Master/Worker pair handles).
func FlattenHostForMaster(ids *identity.Map, payload domain.Value) domain.Value {
	if groups, ok := payload.Get("groups"); ok {
		payload = payload.Set("groups", flattenRefs(groups))
	}
	if templates, ok := payload.Get("parentTemplates"); ok {
		payload = payload.Set("templates", flattenRefs(templates))
		payload = payload.Delete("parentTemplates")
	} else if templates, ok := payload.Get("templates"); ok {
		payload = payload.Set("templates", flattenRefs(templates))
	}
	return payload
}

func flattenRefs(refs domain.Value) domain.Value {
	list, ok := refs.List()
	if !ok {
		return domain.List()
	}
	out := make([]domain.Value, 0, len(list))
	for _, ref := range list {
		name := stringOr(ref, "name", "")
		if name == "" {
			continue
		}
		out = append(out, domain.Map().Set("name", domain.String(name)))
	}
	return domain.List(out...)
}
