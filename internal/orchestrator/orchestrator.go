// Package orchestrator drives the worker and master state machines (spec
// §4.7): the one component that holds a run's Profile and Store as plain
// struct fields (composition, not the multiple-inheritance shape
// original_source/zc.py's ZabbixClone(ZabbixCloneParameter,
// ZabbixCloneDatastore) uses).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/hostreconcile"
	"github.com/monctl/monctl/internal/identity"
	"github.com/monctl/monctl/internal/monitorapi"
	"github.com/monctl/monctl/internal/normalize"
	"github.com/monctl/monctl/internal/presenter"
	"github.com/monctl/monctl/internal/profile"
	"github.com/monctl/monctl/internal/store"
)

// Options holds every config-driven knob the orchestrator's state machine
// reads (spec §4.7, §5); cmd/monctl translates internal/config.Config into
// this shape so the orchestrator never depends on viper or cobra.
type Options struct {
	Node     string
	Role     string // "master", "worker", "replica"
	Quiet    bool
	Yes      bool

	ForceInitialize bool
	ForceUseIP      bool
	HostUpdate      bool
	ForceHostUpdate bool
	NoDelete        bool

	TemplateSkip      bool
	TemplateChunkSize int

	CheckNowExecute  bool
	CheckNowInterval int
	CheckNowWait     time.Duration

	WorkerConcurrency int
	VersionSelect     string

	// CloningSuperAdmin allows a worker to create Super Admin users
	// (spec §4.4 user contract, §8 scenario 6). False unless the operator
	// opts in.
	CloningSuperAdmin bool
	// EnableUser maps a user's stable name to the password used when the
	// worker creates that user for the first time (spec §4.4).
	EnableUser map[string]string
	// ProxyPSK maps a proxy's stable name to its [identity, key] PSK pair
	// (spec §4.4 proxy contract); absent entries downgrade to no
	// encryption.
	ProxyPSK map[string][2]string
	// MFAClientSecret maps an MFA method's name to the Duo client secret
	// the API never returns (spec §4.4).
	MFAClientSecret map[string]string

	// MediaSettings configures the MEDIA step's per-user alert notification
	// assignments, keyed by media type name then user name (spec §4.7
	// MEDIA; no entity kind in the snapshot carries this, so it comes from
	// operator configuration the same way EnableUser/ProxyPSK do).
	MediaSettings map[string]map[string]MediaAssignment

	// Description tags a master-produced snapshot (spec §3).
	Description string

	// Sleep is the cooperative wait primitive ALERT_STOP/MID->HOSTS use
	// (spec §5); a field rather than a bare time.Sleep call so tests can
	// supply an instant no-op.
	Sleep func(context.Context, time.Duration)
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if o.Options.Sleep != nil {
		o.Options.Sleep(ctx, d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Orchestrator ties together every collaborator a run needs. Profile and
// Store are plain fields, not base classes: the caller supplies Store, and
// FIRST_PROCESS sets up Profile and Identity.
type Orchestrator struct {
	Client    monitorapi.Client
	Store     store.Driver
	Presenter presenter.Presenter
	Options   Options

	Identity *identity.Map
	Profile  *profile.Profile
}

// Result tallies what a run did, independent of any one section's own
// counters, for the final exit-code decision (spec §7).
type Result struct {
	Failures []RecordFailure
	Warnings []Warning
	Hosts    *hostreconcile.Result
}

func (o *Orchestrator) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if o.Presenter != nil {
		o.Presenter.Warn("%s", msg)
	}
}

func (o *Orchestrator) fail(result *Result, section, kind, name string, err error) {
	result.Failures = append(result.Failures, RecordFailure{Section: section, Kind: kind, Name: name, Cause: err})
	if o.Presenter != nil {
		o.Presenter.RecordFailure(kind, name, err)
	}
}

// firstProcess obtains the Monitor's release, builds the matching
// VersionProfile, and verifies this worker isn't older than its master
// (spec §4.7 FIRST_PROCESS; a worker serving a newer snapshot than it can
// speak is a precondition failure, never silently truncated).
func (o *Orchestrator) firstProcess(ctx context.Context, masterRelease string) error {
	release, err := o.Client.APIVersion(ctx)
	if err != nil {
		return &ErrPrecondition{Reason: "reading Monitor API version", Cause: err}
	}
	p, err := profile.Build(release)
	if err != nil {
		return &ErrPrecondition{Reason: "building version profile", Cause: err}
	}
	o.Profile = p
	o.Identity = identity.New()
	for kind, spec := range p.Methods {
		o.Identity.RegisterIDField(spec.IDField, kind)
	}

	if masterRelease != "" && releaseLess(release, masterRelease) {
		return &ErrPrecondition{Reason: fmt.Sprintf("worker release %s is older than master release %s", release, masterRelease)}
	}
	return nil
}

// releaseLess compares two "major.minor" strings.
func releaseLess(a, b string) bool {
	var amaj, amin, bmaj, bmin int
	fmt.Sscanf(a, "%d.%d", &amaj, &amin)
	fmt.Sscanf(b, "%d.%d", &bmaj, &bmin)
	if amaj != bmaj {
		return amaj < bmaj
	}
	return amin < bmin
}

// releaseMajor parses a "major.minor" release string's leading major.minor
// as a float for the same release comparisons configbridge.Bridge does.
func releaseMajor(release string) float64 {
	var v float64
	fmt.Sscanf(release, "%f", &v)
	return v
}

// refreshIdentity rebuilds the IdentityMap from the local Monitor's
// current state, for every kind the active profile knows about (spec §5:
// "The IdentityMap is rebuilt after each section to reflect any id
// creations").
func (o *Orchestrator) refreshIdentity(ctx context.Context) error {
	for kind, spec := range o.Profile.Methods {
		options := domain.Map()
		for k, v := range spec.GetOptions {
			options = options.Set(k, domain.FromAny(v))
		}
		items, err := o.Client.Get(ctx, string(kind), options)
		if err != nil {
			return fmt.Errorf("orchestrator: refreshing identity for %s: %w", kind, err)
		}
		pairs := make([]identity.Pair, 0, len(items))
		for _, item := range items {
			id := stringField(item, spec.IDField)
			name := stringField(item, spec.NameField)
			if id == "" || name == "" {
				continue
			}
			pairs = append(pairs, identity.Pair{ID: id, Name: name})
		}
		o.Identity.Load(kind, pairs)
	}
	return nil
}

func stringField(v domain.Value, key string) string {
	child, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := child.String()
	return s
}

// initializeOrder is the fixed deletion order INITIALIZE uses (spec §4.7):
// every deletable local entity except the system-reserved host group.
var initializeOrder = []domain.Kind{
	domain.KindService, domain.KindSLA, domain.KindConnector, domain.KindRegexp, domain.KindUserMacroGlobal,
	domain.KindCorrelation, domain.KindDiscoveryRule, domain.KindMediaType,
	domain.KindAction, domain.KindScript, domain.KindMaintenance, domain.KindHost,
	domain.KindProxy, domain.KindTemplate, domain.KindHostGroup,
}

// softResetKinds are always cleared when INITIALIZE is skipped and
// NoDelete is false (spec §4.7).
var softResetKinds = []domain.Kind{
	domain.KindCorrelation, domain.KindDiscoveryRule, domain.KindAction,
	domain.KindScript, domain.KindMaintenance,
}

// initialize deletes every kind in initializeOrder (plus templateGroup and
// proxyGroup when the active profile carries them), respecting the fixed
// order so reference constraints never block a delete.
func (o *Orchestrator) initialize(ctx context.Context, result *Result) error {
	order := append(append([]domain.Kind{}, initializeOrder...))
	if o.Profile.HasKind(domain.KindTemplateGroup) {
		order = append(order, domain.KindTemplateGroup)
	}
	if o.Profile.HasKind(domain.KindProxyGroup) {
		order = append(order, domain.KindProxyGroup)
	}
	for _, kind := range order {
		if err := o.deleteAllOf(ctx, kind, result); err != nil {
			return &ErrSection{Section: "INITIALIZE", Cause: err}
		}
	}
	return nil
}

func (o *Orchestrator) softReset(ctx context.Context, result *Result) error {
	for _, kind := range softResetKinds {
		if err := o.deleteAllOf(ctx, kind, result); err != nil {
			return &ErrSection{Section: "SOFT_RESET", Cause: err}
		}
	}
	return nil
}

func (o *Orchestrator) deleteAllOf(ctx context.Context, kind domain.Kind, result *Result) error {
	spec, ok := o.Profile.Methods[kind]
	if !ok {
		return nil
	}
	options := domain.Map().Set("output", domain.String(spec.IDField))
	if kind == domain.KindHostGroup {
		options = domain.Map().Set("output", domain.List(domain.String(spec.IDField), domain.String("internal")))
	}
	items, err := o.Client.Get(ctx, string(kind), options)
	if err != nil {
		return fmt.Errorf("listing %s: %w", kind, err)
	}
	var ids []string
	for _, item := range items {
		if kind == domain.KindHostGroup && stringField(item, "internal") == "1" {
			// system-reserved host group: never deleted
			continue
		}
		if id := stringField(item, spec.IDField); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := o.Client.Delete(ctx, string(kind), ids); err != nil {
		o.fail(result, "INITIALIZE", string(kind), "*", err)
	}
	return nil
}

// processSection runs every kind in a section through the registered
// Normalizer, applying the common-rule pass first, then creates or
// updates each resulting record depending on whether the IdentityMap
// already resolves its name (spec §4.4, §4.7; grounded on
// original_source/zc.py's per-section create/update loop — redesigned per
// spec §7 bucket 4 to continue past a single record's failure instead of
// aborting the section). Deletion sidecars any processor emits are
// returned, not applied here: EXTEND accumulates sidecars from every
// section and applies them once, last, in declared order (spec §5).
func (o *Orchestrator) processSection(ctx context.Context, nctx *normalize.Context, section domain.Section, records []domain.Record, result *Result) ([]domain.Record, error) {
	byKind := map[domain.Kind][]domain.Record{}
	for _, r := range records {
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	var extend []domain.Record
	for _, kind := range o.Profile.Sections[section] {
		kindRecords := byKind[kind]
		if len(kindRecords) == 0 {
			continue
		}
		processed, sidecars, err := normalize.For(kind).Worker(ctx, nctx, kindRecords)
		if err != nil {
			return nil, &ErrSection{Section: string(section), Cause: fmt.Errorf("%s: %w", kind, err)}
		}
		extend = append(extend, sidecars...)
		o.applyRecords(ctx, string(section), processed, result)
	}
	return extend, nil
}

// applyRecords creates or updates each record depending on whether the
// IdentityMap already resolves its name to a local id.
func (o *Orchestrator) applyRecords(ctx context.Context, section string, records []domain.Record, result *Result) {
	for _, r := range records {
		method := string(r.Kind)
		spec, ok := o.Profile.Methods[r.Kind]
		payload := r.Payload
		existingID := ""
		if ok {
			if id := o.Identity.ToID(r.Kind, r.Name); id != string(domain.SentinelMissing) {
				existingID = id
				payload = payload.Set(spec.IDField, domain.String(id))
			}
		}
		var err error
		if existingID != "" {
			_, err = o.Client.Update(ctx, method, payload)
		} else {
			_, err = o.Client.Create(ctx, method, payload)
		}
		if err != nil {
			o.fail(result, section, method, r.Name, err)
		}
	}
}

// applyExtend applies EXTEND's create/update records in declared order,
// then its deletion sidecars in the reverse order (spec §5: "parent before
// child applies and child before parent deletes"). Deletion sidecars
// (DeletionSidecar/UserDeletionSidecar) already carry resolved local ids,
// so they bypass applyRecords and the IdentityMap entirely.
func (o *Orchestrator) applyExtend(ctx context.Context, extend []domain.Record, result *Result) {
	deletions, others := normalize.SplitDeletions(extend)
	o.applyRecords(ctx, string(domain.SectionExtend), others, result)

	for i := len(deletions) - 1; i >= 0; i-- {
		d := deletions[i]
		ids := normalize.DeletionIDs(d.Payload)
		if len(ids) == 0 {
			continue
		}
		if _, err := o.Client.Delete(ctx, string(d.Kind), ids); err != nil {
			o.fail(result, string(domain.SectionExtend), string(d.Kind), d.Name, err)
		}
	}
}

// splitServiceRelations pulls service relation sidecars (serviceProcessor's
// Worker EXTEND output: name-keyed parents/children, no "delete" key) out
// of an EXTEND batch, since they need normalize.ResolveServiceRelations and
// a service.update, not the generic create/update-by-name applyRecords
// uses for every other EXTEND record (spec §4.4 service contract).
func splitServiceRelations(extend []domain.Record) (service, rest []domain.Record) {
	for _, r := range extend {
		if r.Kind == domain.KindService {
			if _, isDeletion := r.Payload.Get("delete"); !isDeletion {
				service = append(service, r)
				continue
			}
		}
		rest = append(rest, r)
	}
	return service, rest
}

// applyServiceRelations resolves each service's name-keyed parent/child
// sidecar to local service ids, now that every service this run touched
// has one, and pushes the result with service.update.
func (o *Orchestrator) applyServiceRelations(ctx context.Context, nctx *normalize.Context, extend []domain.Record, result *Result) {
	for _, r := range normalize.ResolveServiceRelations(nctx, extend) {
		id := o.Identity.ToID(domain.KindService, r.Name)
		if id == string(domain.SentinelMissing) {
			continue
		}
		payload := r.Payload.Set("serviceid", domain.String(id))
		if _, err := o.Client.Update(ctx, "service", payload); err != nil {
			o.fail(result, string(domain.SectionExtend), "service", r.Name, err)
		}
	}
}

// alertStop opens a one-off maintenance window covering every host group,
// named with a reserved marker, so alerting is suppressed while HOSTS and
// CHECK_NOW run (spec §4.7).
const alertStopMaintenanceName = "MONCTL_ALERT_STOP"

func (o *Orchestrator) alertStop(ctx context.Context) error {
	groups, err := o.Client.Get(ctx, "hostgroup", domain.Map().Set("output", domain.String("groupid")))
	if err != nil {
		return fmt.Errorf("orchestrator: listing host groups for ALERT_STOP: %w", err)
	}
	refs := make([]domain.Value, 0, len(groups))
	for _, g := range groups {
		refs = append(refs, domain.Map().Set("groupid", domain.String(stringField(g, "groupid"))))
	}
	now := nowUnix()
	params := domain.Map().
		Set("name", domain.String(alertStopMaintenanceName)).
		Set("active_since", domain.Number(float64(now))).
		Set("active_till", domain.Number(float64(now+600))).
		Set("groups", domain.List(refs...)).
		Set("timeperiods", domain.List(domain.Map().
			Set("timeperiod_type", domain.Number(0)).
			Set("start_date", domain.Number(float64(now))).
			Set("period", domain.Number(600))))
	_, err = o.Client.Create(ctx, "maintenance", params)
	return err
}

// nowUnix is a variable so tests can freeze it.
var nowUnix = func() int64 { return time.Now().UTC().Unix() }

// markVersion writes {$APPLIED_VERSION} so a crashed or cancelled run can
// be safely re-run (spec §4.7, §7: "the applied-version macro is the last
// write").
func (o *Orchestrator) markVersion(ctx context.Context, versionID string) error {
	_, err := o.Client.Call(ctx, "usermacro.updateglobal", domain.Map().
		Set("macro", domain.String(domain.AppliedVersionMacro)).
		Set("value", domain.String(versionID)))
	return err
}

// checkNow gives the just-applied hosts an immediate first poll rather than
// waiting out their normal check interval: every LLD rule on the cloned
// hosts, plus every item whose delay matches CheckNowInterval, gets a
// task.create (type 6), grounded on original_source/zc.py's execCheckNow.
// Items that are LLD prototypes report their check time under
// master_itemid rather than itemid; that id is used instead when present.
func (o *Orchestrator) checkNow(ctx context.Context, hostIDs []string) {
	if !o.Options.CheckNowExecute || len(hostIDs) == 0 {
		return
	}
	o.sleep(ctx, o.Options.CheckNowWait)

	hostFilter := domain.Map().Set("hostids", domain.List(stringList(hostIDs)...))

	lldItems, err := o.Client.Get(ctx, "discoveryrule", hostFilter.Set("output", domain.List(domain.String("itemid"), domain.String("master_itemid"))))
	if err != nil {
		o.warn("check-now: listing discovery rules: %v", err)
	} else {
		o.runCheckNow(ctx, checkNowTargets(lldItems))
	}

	interval := domain.Number(float64(o.Options.CheckNowInterval))
	items, err := o.Client.Get(ctx, "item", hostFilter.
		Set("output", domain.List(domain.String("itemid"), domain.String("master_itemid"))).
		Set("filter", domain.Map().Set("delay", interval)))
	if err != nil {
		o.warn("check-now: listing items: %v", err)
		return
	}
	o.runCheckNow(ctx, checkNowTargets(items))
}

// checkNowTargets resolves each item's effective check-now target,
// preferring master_itemid over itemid for LLD-prototyped items.
func checkNowTargets(items []domain.Value) []string {
	var out []string
	for _, item := range items {
		id := stringField(item, "itemid")
		if master := stringField(item, "master_itemid"); master != "" && master != "0" {
			id = master
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func stringList(values []string) []domain.Value {
	out := make([]domain.Value, len(values))
	for i, v := range values {
		out[i] = domain.String(v)
	}
	return out
}

// runCheckNow issues task.create for a batch of item ids, in the shape the
// active release expects: 5.2+ takes one task per item, earlier releases
// take a single task with an itemids list.
func (o *Orchestrator) runCheckNow(ctx context.Context, targets []string) {
	if len(targets) == 0 {
		return
	}
	if releaseMajor(o.Profile.Release) >= 5.2 {
		for _, id := range targets {
			if _, err := o.Client.Call(ctx, "task.create", domain.Map().
				Set("type", domain.Number(6)).
				Set("request", domain.Map().Set("itemid", domain.String(id)))); err != nil {
				o.warn("check-now task.create failed for item %s: %v", id, err)
			}
		}
		return
	}
	if _, err := o.Client.Call(ctx, "task.create", domain.Map().
		Set("type", domain.Number(6)).
		Set("itemids", domain.List(stringList(targets)...))); err != nil {
		o.warn("check-now task.create failed: %v", err)
	}
}

// sortedSections returns PRE, MID, POST and ACCOUNT in their run order.
// GLOBAL_SETTINGS and EXTEND are not in the list (EXTEND is applied
// separately after everything else, once every other section's ids exist
// to reference).
func sortedSections() []domain.Section {
	return []domain.Section{
		domain.SectionPre, domain.SectionMid,
		domain.SectionPost, domain.SectionAccount,
	}
}

// singletonUpdateMethod names the RPC that applies a singleton kind's
// merged record (spec §6: settings.update, authentication.update; and
// autoregistration has the same update-in-place shape even though it
// isn't named in spec §6's RPC list).
var singletonUpdateMethod = map[domain.Kind]string{
	domain.KindSettings:        "settings.update",
	domain.KindAuthentication:  "authentication.update",
	domain.KindAutoregistration: "autoregistration.update",
}

// mergeSingleton folds a singleton kind's per-property records (each
// Record.Name is a property sub-key, spec §3) into the single object the
// kind's update RPC expects.
func mergeSingleton(records []domain.Record) domain.Value {
	out := domain.Map()
	for _, r := range records {
		out = out.Set(r.Name, r.Payload)
	}
	return out
}

// applySingleton normalizes and writes one singleton kind's records in a
// single RPC call. A failure here is a per-record apply failure (spec §7
// bucket 4): recorded, never fatal for the run.
func (o *Orchestrator) applySingleton(ctx context.Context, nctx *normalize.Context, kind domain.Kind, records []domain.Record, result *Result) {
	if len(records) == 0 {
		return
	}
	processed, _, err := normalize.For(kind).Worker(ctx, nctx, records)
	if err != nil {
		o.fail(result, "GLOBAL", string(kind), "*", err)
		return
	}
	method, ok := singletonUpdateMethod[kind]
	if !ok {
		return
	}
	if _, err := o.Client.Call(ctx, method, mergeSingleton(processed)); err != nil {
		o.fail(result, "GLOBAL", string(kind), "*", err)
	}
}
