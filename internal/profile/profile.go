// Package profile implements VersionProfile: a pure, table-driven function
// from a Monitor release to the method/field/section shape that release's
// API exposes (spec §4.1).
package profile

import (
	"fmt"
	"sort"

	"github.com/monctl/monctl/internal/domain"
)

// MethodSpec is the exact field/query shape a release's API uses for one
// entity kind.
type MethodSpec struct {
	IDField    string
	NameField  string
	GetOptions map[string]any
}

// ImportRule controls one import-bundle section's create/update/delete
// behavior (spec §4.1, §4.5).
type ImportRule struct {
	CreateMissing bool
	UpdateExisting bool
	DeleteMissing bool
}

// Profile is the full per-release descriptor. Two Profiles built from the
// same release are always deep-equal: profile(release) is a pure function.
type Profile struct {
	Release string

	Methods map[domain.Kind]MethodSpec

	// Sections lists, in processing order, which kinds belong to each
	// non-EXTEND/non-GLOBAL section. GLOBAL and EXTEND are handled
	// specially: GLOBAL holds a fixed set of global-setting kinds, EXTEND
	// is populated at run time by normalizer sidecars, not by the profile.
	Sections map[domain.Section][]domain.Kind

	// ConfigExport maps a kind to the section key configuration.export
	// uses for it in the export bundle.
	ConfigExport map[domain.Kind]string

	// ConfigImport maps masterRelease -> bundle-section-name -> kind, for
	// releases where the export bundle key differs from the current
	// release's own ConfigExport key (a worker importing an older
	// master's bundle must know the master's naming).
	ConfigImport map[string]map[string]domain.Kind

	ImportRules map[domain.Section]ImportRule

	// AddedIn records, for every kind this profile carries, the release it
	// first appeared in.
	AddedIn map[domain.Kind]string

	DiscardFields map[domain.Kind][]string

	// RenamedFields maps old field name -> new field name, per kind, as of
	// this release (already-renamed; callers rewrite old->new on sight).
	RenamedFields map[domain.Kind]map[string]string

	// TimeoutTargets is the set of per-check-type timeout knobs introduced
	// at 7.0; empty below that release.
	TimeoutTargets []string

	// CloudOverrides lists, per kind, fields that do not exist on hosted
	// (cloud) Monitor variants and must be stripped when targeting one.
	CloudOverrides map[domain.Kind][]string
}

// releaseOrder is the supported sequence, oldest first. out-of-range input
// to Build is a fatal ErrUnsupportedRelease.
var releaseOrder = []string{"4.0", "4.4", "5.0", "5.2", "5.4", "6.0", "6.2", "6.4", "7.0"}

// Build returns the Profile for release, applying the base 4.0 descriptor
// and then every diff up to and including release, in releaseOrder.
// Build is a pure function of release: no shared mutable state survives
// between calls.
func Build(release string) (*Profile, error) {
	idx, err := releaseIndex(release)
	if err != nil {
		return nil, err
	}
	p := base40()
	for i := 1; i <= idx; i++ {
		diffs[releaseOrder[i]](p)
	}
	p.Release = release
	return p, nil
}

func releaseIndex(release string) (int, error) {
	maj, min, err := parseRelease(release)
	if err != nil {
		return 0, &ErrUnsupportedRelease{Release: release, Cause: err}
	}
	lowMaj, lowMin, _ := parseRelease(releaseOrder[0])
	highMaj, highMin, _ := parseRelease(releaseOrder[len(releaseOrder)-1])
	if less(maj, min, lowMaj, lowMin) || less(highMaj, highMin, maj, min) {
		return 0, &ErrUnsupportedRelease{Release: release}
	}
	// Any in-range release, exact table entry or not (e.g. a hypothetical
	// "6.1"), takes the nearest lower table entry's diffs.
	best := 0
	for i, r := range releaseOrder {
		rmaj, rmin, _ := parseRelease(r)
		if !less(maj, min, rmaj, rmin) {
			best = i
		}
	}
	return best, nil
}

func parseRelease(s string) (int, int, error) {
	var maj, min int
	n, err := fmt.Sscanf(s, "%d.%d", &maj, &min)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("profile: malformed release %q", s)
	}
	return maj, min, nil
}

func less(amaj, amin, bmaj, bmin int) bool {
	if amaj != bmaj {
		return amaj < bmaj
	}
	return amin < bmin
}

// SortedKinds returns AddedIn's keys sorted for deterministic test output.
func (p *Profile) SortedKinds() []domain.Kind {
	out := make([]domain.Kind, 0, len(p.AddedIn))
	for k := range p.AddedIn {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasKind reports whether kind is part of this release's surface at all
// (appears in Methods or is a fixed GLOBAL/singleton kind).
func (p *Profile) HasKind(k domain.Kind) bool {
	_, ok := p.AddedIn[k]
	return ok
}
