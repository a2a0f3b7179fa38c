package hostreconcile

import (
	"fmt"

	"github.com/monctl/monctl/internal/domain"
)

// InterfacePlan is what one host's interface reconciliation pass decided:
// updates to push through hostinterface.update, and ids still present
// locally with no matching target (queued for hostinterface.delete).
type InterfacePlan struct {
	Host    string
	Updates []domain.Value // each carries interfaceid, type and main, plus only the changed fields
	Delete  []string
	Skipped bool // ambiguous interface shape; no action taken at all
}

// PlanInterfaces pairs target (normalized, from the snapshot) interfaces
// against a host's current interfaces by (type, main), diffs field by
// field including the nested details block, and queues whatever's left
// unpaired for deletion (spec.md §4.6).
//
// A host with more than two interfaces and any type repeated is
// ambiguous — the pairing can't be made deterministic — and is skipped
// entirely rather than guessed at.
func PlanInterfaces(host string, current, target []domain.Value) InterfacePlan {
	if ambiguous(current) {
		return InterfacePlan{Host: host, Skipped: true}
	}

	remaining := append([]domain.Value(nil), current...)
	plan := InterfacePlan{Host: host}

	for _, t := range target {
		idx := findPair(remaining, t)
		if idx < 0 {
			continue
		}
		matched := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		changes, changed := diffInterface(matched, t)
		if !changed {
			continue
		}
		changes = changes.Set("interfaceid", domain.String(fieldString(matched, "interfaceid")))
		plan.Updates = append(plan.Updates, changes)
	}

	for _, left := range remaining {
		plan.Delete = append(plan.Delete, fieldString(left, "interfaceid"))
	}
	return plan
}

// fieldString reads key from v and renders it as a string the way
// original_source/zc.py's str(value) comparisons do, regardless of
// whether it's stored as a Monitor string or a Go-side number.
func fieldString(v domain.Value, key string) string {
	child, ok := v.Get(key)
	if !ok {
		return ""
	}
	return valueString(child)
}

func ambiguous(current []domain.Value) bool {
	if len(current) <= 2 {
		return false
	}
	counts := map[string]int{}
	for _, iface := range current {
		counts[fieldString(iface, "type")]++
	}
	for _, c := range counts {
		if c >= 2 {
			return true
		}
	}
	return false
}

func findPair(current []domain.Value, target domain.Value) int {
	wantType := fieldString(target, "type")
	wantMain := fieldString(target, "main")
	for i, c := range current {
		if fieldString(c, "type") == wantType && fieldString(c, "main") == wantMain {
			return i
		}
	}
	return -1
}

// diffInterface compares target against the Monitor-reported current
// interface, returning type and main plus only the changed top-level fields (details
// compared key-by-key, emitted whole if any nested value differs —
// hostinterface.update replaces the whole details object, not per-key).
func diffInterface(current, target domain.Value) (domain.Value, bool) {
	typeVal, _ := target.Get("type")
	mainVal, _ := target.Get("main")
	changes := domain.Map().Set("type", typeVal).Set("main", mainVal)
	changed := false

	for _, key := range []string{"ip", "dns", "port", "useip"} {
		val, ok := target.Get(key)
		if !ok {
			continue
		}
		if fieldString(current, key) != valueString(val) {
			changed = true
			changes = changes.Set(key, val)
		}
	}

	targetDetails, hasTarget := target.Get("details")
	currentDetails, _ := current.Get("details")
	if hasTarget {
		detailsChanged := false
		for _, k := range targetDetails.Keys() {
			dv, _ := targetDetails.Get(k)
			cv, _ := currentDetails.Get(k)
			if valueString(cv) != valueString(dv) {
				detailsChanged = true
				break
			}
		}
		if detailsChanged {
			changed = true
			changes = changes.Set("details", targetDetails)
		}
	}

	if !changed {
		return domain.Value{}, false
	}
	return changes, true
}

func valueString(v domain.Value) string {
	if s, ok := v.String(); ok {
		return s
	}
	if n, ok := v.Number(); ok {
		return fmt.Sprintf("%v", n)
	}
	if b, ok := v.Bool(); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return ""
}
