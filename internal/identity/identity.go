// Package identity implements IdentityMap: a per-run, per-kind bidirectional
// local-id <-> stable-name index, with sentinel handling for semantic zeros
// (spec §4.2).
package identity

import (
	"sync"

	"github.com/monctl/monctl/internal/domain"
)

// Pair is one {id, name} entry as returned by the Monitor's get methods.
type Pair struct {
	ID   string
	Name string
}

// Map is the identity map for one run. Safe for concurrent use: the host
// fan-out (spec §4.6, §5) reads it from multiple goroutines while only the
// orchestrator ever calls Load (single-threaded, between sections).
type Map struct {
	mu      sync.RWMutex
	toName  map[domain.Kind]map[string]string
	toID    map[domain.Kind]map[string]string
	idField map[string][]domain.Kind // reverse lookup for MethodForIDField
}

// New returns an empty identity map.
func New() *Map {
	return &Map{
		toName:  map[domain.Kind]map[string]string{},
		toID:    map[domain.Kind]map[string]string{},
		idField: map[string][]domain.Kind{},
	}
}

// Load seeds both directions for kind from pairs, replacing whatever was
// previously loaded for that kind (spec §4.2: "later loads ... replace").
func (m *Map) Load(kind domain.Kind, pairs []Pair) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toName := make(map[string]string, len(pairs))
	toID := make(map[string]string, len(pairs))
	for _, p := range pairs {
		toName[p.ID] = p.Name
		toID[p.Name] = p.ID
	}
	m.toName[kind] = toName
	m.toID[kind] = toID
}

// RegisterIDField associates a field name (e.g. "hostid") with the kind(s)
// it denotes, for MethodForIDField's reverse lookup. Call once per kind
// during setup from the active VersionProfile.
func (m *Map) RegisterIDField(field string, kind domain.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.idField[field] {
		if k == kind {
			return
		}
	}
	m.idField[field] = append(m.idField[field], kind)
}

// ToName resolves idOrSentinel to a stable name for kind. Sentinels
// round-trip to themselves; an unknown id resolves to
// domain.SentinelMissing.
func (m *Map) ToName(kind domain.Kind, idOrSentinel string) string {
	if s, ok := matchesSentinel(kind, idOrSentinel); ok {
		return string(s)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if byID, ok := m.toName[kind]; ok {
		if name, ok := byID[idOrSentinel]; ok {
			return name
		}
	}
	return string(domain.SentinelMissing)
}

// ToID resolves nameOrSentinel to a local id for kind, the reverse of
// ToName. A sentinel (or "0") resolves to the semantic zero id "0".
func (m *Map) ToID(kind domain.Kind, nameOrSentinel string) string {
	if _, ok := matchesSentinel(kind, nameOrSentinel); ok {
		return "0"
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if byName, ok := m.toID[kind]; ok {
		if id, ok := byName[nameOrSentinel]; ok {
			return id
		}
	}
	return string(domain.SentinelMissing)
}

// matchesSentinel reports whether value is either "0" (the semantic zero
// for kind) or already the sentinel string itself, and if so returns the
// canonical sentinel — the round-trip spec §8 requires.
func matchesSentinel(kind domain.Kind, value string) (domain.Sentinel, bool) {
	sentinel, ok := domain.ZeroSentinel(kind)
	if !ok {
		return "", false
	}
	if value == "0" || value == string(sentinel) {
		return sentinel, true
	}
	return "", false
}

// PairsForKind returns every {id, name} pair currently loaded for kind, for
// callers that need the whole local set rather than a single lookup — e.g.
// a deletion sidecar diffing this run's names against what the local
// Monitor instance still has (spec §4.4: sla/connector/proxyGroup/user
// "worker computes deletion sidecars for names present locally but missing
// from the snapshot").
func (m *Map) PairsForKind(kind domain.Kind) []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byID, ok := m.toName[kind]
	if !ok {
		return nil
	}
	pairs := make([]Pair, 0, len(byID))
	for id, name := range byID {
		pairs = append(pairs, Pair{ID: id, Name: name})
	}
	return pairs
}

// MethodForIDField reverse-looks-up which kind an id field name denotes,
// for the generic identifier-rewriting walk (spec §4.2, §9). When a field
// name is ambiguous across kinds (e.g. "groupid" could mean host group or
// template group), host group wins the tie-break.
func (m *Map) MethodForIDField(field string) (domain.Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kinds, ok := m.idField[field]
	if !ok || len(kinds) == 0 {
		return "", false
	}
	best := kinds[0]
	for _, k := range kinds[1:] {
		if k == domain.KindHostGroup {
			best = k
			break
		}
	}
	return best, true
}
