package normalize

import (
	"fmt"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/profile"
)

func splitRelease(release string) (float64, float64, error) {
	var maj, min int
	n, err := fmt.Sscanf(release, "%d.%d", &maj, &min)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("normalize: malformed release %q", release)
	}
	return float64(maj), float64(min), nil
}

// StripFields removes every key in fields from v, a no-op for keys that
// aren't present. Mirrors the ubiquitous `data.pop(param, None)` idiom.
func StripFields(v domain.Value, fields []string) domain.Value {
	for _, f := range fields {
		v = v.Delete(f)
	}
	return v
}

// StripEmptyOrZero removes every top-level key whose value is empty or
// zero — the "drop what would just be the create-time default" pass every
// processing* function in the original runs over operation payloads.
func StripEmptyOrZero(v domain.Value) domain.Value {
	if v.Kind() != domain.KindMap {
		return v
	}
	for _, k := range v.Keys() {
		child, _ := v.Get(k)
		if child.IsEmptyOrZero() {
			v = v.Delete(k)
		}
	}
	return v
}

// IntField reads key as an integer, defaulting to 0 if absent or not a
// number — the Go analogue of the original's pervasive int(data[...]).
func IntField(v domain.Value, key string) int {
	child, ok := v.Get(key)
	if !ok {
		return 0
	}
	n, ok := child.Number()
	if !ok {
		return 0
	}
	return int(n)
}

func StringField(v domain.Value, key string) string {
	child, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := child.String()
	return s
}

// RenameField moves a value from one key to another, no-op if the old key
// is absent. Matches releases that renamed a field between versions
// (handled by profile.Profile.RenamedFields for the generic pass, and
// inline here for kind-specific get/create asymmetries like
// operations/operations_o).
func RenameField(v domain.Value, from, to string) domain.Value {
	child, ok := v.Get(from)
	if !ok {
		return v
	}
	return v.Set(to, child).Delete(from)
}

// ApplyProfileRenames rewrites every field profile.Profile.RenamedFields
// names for kind, old name to new, before any kind-specific processor
// runs. This is the "common-rule pass" spec §4.4 describes.
func ApplyProfileRenames(p *profile.Profile, kind domain.Kind, v domain.Value) domain.Value {
	renames, ok := p.RenamedFields[kind]
	if !ok {
		return v
	}
	for from, to := range renames {
		v = RenameField(v, from, to)
	}
	return v
}

// ApplyDiscard removes the fields profile.Profile.DiscardFields names for
// kind — read-only/server-assigned fields a create call must never see.
func ApplyDiscard(p *profile.Profile, kind domain.Kind, v domain.Value) domain.Value {
	return StripFields(v, p.DiscardFields[kind])
}

// runCommonPass is the first step of both Master and Worker for every
// kind: profile-driven rename, then discard of read-only fields.
func runCommonPass(nctx *Context, kind domain.Kind, records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		payload := ApplyProfileRenames(nctx.Profile, kind, r.Payload)
		payload = ApplyDiscard(nctx.Profile, kind, payload)
		out[i] = domain.Record{Kind: r.Kind, Name: r.Name, Payload: payload}
	}
	return out
}

// translateIDField rewrites one id-shaped field from a local id to a
// stable name (master direction) or back (worker direction), using the
// identity map's reverse field->kind lookup (spec §4.2, §9).
func translateIDField(nctx *Context, v domain.Value, field string, toName bool) domain.Value {
	child, ok := v.Get(field)
	if !ok {
		return v
	}
	raw, ok := child.String()
	if !ok {
		if n, isNum := child.Number(); isNum {
			raw = fmt.Sprintf("%d", int(n))
		} else {
			return v
		}
	}
	kind, ok := nctx.Identity.MethodForIDField(field)
	if !ok {
		return v
	}
	var resolved string
	if toName {
		resolved = nctx.Identity.ToName(kind, raw)
	} else {
		resolved = nctx.Identity.ToID(kind, raw)
	}
	return v.Set(field, domain.String(resolved))
}

// walkIDFields runs translateIDField over every key in v's tree that the
// identity map recognizes as an id field, depth first.
func walkIDFields(nctx *Context, v domain.Value, toName bool) domain.Value {
	return v.Walk(func(key string, val domain.Value) domain.Value {
		if _, ok := nctx.Identity.MethodForIDField(key); !ok {
			return val
		}
		raw, ok := val.String()
		if !ok {
			if n, isNum := val.Number(); isNum {
				raw = fmt.Sprintf("%d", int(n))
			} else {
				return val
			}
		}
		kind, _ := nctx.Identity.MethodForIDField(key)
		if toName {
			return domain.String(nctx.Identity.ToName(kind, raw))
		}
		return domain.String(nctx.Identity.ToID(kind, raw))
	})
}
