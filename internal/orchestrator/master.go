package orchestrator

import (
	"context"
	"fmt"

	"github.com/monctl/monctl/internal/configbridge"
	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/hostreconcile"
	"github.com/monctl/monctl/internal/normalize"
	"github.com/monctl/monctl/internal/store"
)

// masterGetOrder lists the kinds createNewData fetches with a plain
// "{kind}.get" and normalize.For(kind).Master, in the order they're
// written into the snapshot. Host, Template, and the three singleton
// kinds are handled separately (spec.md §4.5, §4.7 master run).
var masterGetOrder = []domain.Kind{
	domain.KindHostGroup, domain.KindTemplateGroup, domain.KindMediaType,
	domain.KindValueMap, domain.KindUserMacroGlobal, domain.KindRegexp,
	domain.KindUserDirectory, domain.KindRole, domain.KindUserGroup,
	domain.KindUser, domain.KindMFA, domain.KindConnector,
	domain.KindProxyGroup, domain.KindProxy, domain.KindScript,
	domain.KindDiscoveryRule, domain.KindCorrelation, domain.KindAction,
	domain.KindMaintenance, domain.KindSLA, domain.KindService,
}

// singletonGetMethod names the RPC that reads a singleton kind's current
// value (the mirror image of singletonUpdateMethod in orchestrator.go).
var singletonGetMethod = map[domain.Kind]string{
	domain.KindSettings:         "settings.get",
	domain.KindAuthentication:   "authentication.get",
	domain.KindAutoregistration: "autoregistration.get",
}

// RunMaster drives the much shorter master state machine (spec §4.7):
// INIT -> FIRST_PROCESS (every host gets a carry-tag) -> CREATE_NEW_DATA
// -> UPLOAD -> MARK_VERSION. It returns the snapshot it produced so a
// direct-mode caller can hand it straight to a worker Orchestrator without
// a store round-trip.
func (o *Orchestrator) RunMaster(ctx context.Context, drv store.Driver) (*Result, domain.Snapshot, error) {
	result := &Result{}

	if o.Presenter != nil {
		o.Presenter.Section("FIRST_PROCESS")
	}
	if err := o.firstProcess(ctx, ""); err != nil {
		return result, domain.Snapshot{}, err
	}
	if err := o.refreshIdentity(ctx); err != nil {
		return result, domain.Snapshot{}, &ErrPrecondition{Reason: "building master identity map", Cause: err}
	}
	if err := o.ensureHostCarryTags(ctx, result); err != nil {
		return result, domain.Snapshot{}, &ErrSection{Section: "FIRST_PROCESS", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("CREATE_NEW_DATA")
	}
	nctx := &normalize.Context{Profile: o.Profile, Identity: o.Identity, Node: o.Options.Node}

	var records []domain.Record
	for _, kind := range masterGetOrder {
		if !o.Profile.HasKind(kind) {
			continue
		}
		recs, err := o.fetchMasterRecords(ctx, nctx, kind)
		if err != nil {
			return result, domain.Snapshot{}, &ErrSection{Section: "CREATE_NEW_DATA", Cause: err}
		}
		records = append(records, recs...)
	}

	for kind, method := range singletonGetMethod {
		if !o.Profile.HasKind(kind) {
			continue
		}
		recs, err := o.fetchMasterSingleton(ctx, nctx, kind, method)
		if err != nil {
			return result, domain.Snapshot{}, &ErrSection{Section: "CREATE_NEW_DATA", Cause: err}
		}
		records = append(records, recs...)
	}

	hostRecords, err := o.fetchMasterHosts(ctx, nctx)
	if err != nil {
		return result, domain.Snapshot{}, &ErrSection{Section: "CREATE_NEW_DATA", Cause: err}
	}
	records = append(records, hostRecords...)

	templateRecords, err := o.fetchMasterTemplates(ctx)
	if err != nil {
		return result, domain.Snapshot{}, &ErrSection{Section: "CREATE_NEW_DATA", Cause: err}
	}
	records = append(records, templateRecords...)

	snap := domain.Snapshot{
		VersionMeta: domain.VersionMeta{
			VersionID:     domain.NewVersionID(),
			CreatedAt:     domain.NowUnix(),
			MasterRelease: o.Profile.Release,
			Description:   o.Options.Description,
		},
		Records: records,
	}
	if err := snap.Validate(); err != nil {
		return result, snap, &ErrSection{Section: "CREATE_NEW_DATA", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("UPLOAD")
	}
	stored, err := recordsToStored(records)
	if err != nil {
		return result, snap, &ErrSection{Section: "UPLOAD", Cause: err}
	}
	if err := drv.PutRecords(ctx, snap.VersionID, stored); err != nil {
		return result, snap, &ErrSection{Section: "UPLOAD", Cause: err}
	}
	if err := drv.PutVersion(ctx, store.VersionMetaRow{
		VersionID: snap.VersionID, CreatedAt: snap.CreatedAt,
		MasterRelease: snap.MasterRelease, Description: snap.Description,
	}); err != nil {
		return result, snap, &ErrSection{Section: "UPLOAD", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("MARK_VERSION")
	}
	if err := o.markVersion(ctx, snap.VersionID); err != nil {
		return result, snap, &ErrSection{Section: "MARK_VERSION", Cause: err}
	}

	return result, snap, nil
}

// ensureHostCarryTags assigns a fresh UUID_TAG to every local host that
// doesn't already have one (spec §3, §4.7: "FIRST_PROCESS: ... ensures
// every host has a carry-tag"). The tag, once assigned, is never changed.
func (o *Orchestrator) ensureHostCarryTags(ctx context.Context, result *Result) error {
	hosts, err := o.Client.Get(ctx, "host", domain.Map().
		Set("output", domain.String("hostid")).
		Set("selectTags", domain.String("extend")))
	if err != nil {
		return fmt.Errorf("listing hosts for carry-tag assignment: %w", err)
	}
	for _, h := range hosts {
		if !hostreconcile.MissingCarryTag(h) {
			continue
		}
		hostID := stringField(h, "hostid")
		tags, _ := h.Get("tags")
		list, _ := tags.List()
		list = append(list, domain.Map().
			Set("tag", domain.String(domain.UUIDTag)).
			Set("value", domain.String(hostreconcile.NewCarryTag())))
		if _, err := o.Client.Update(ctx, "host", domain.Map().
			Set("hostid", domain.String(hostID)).
			Set("tags", domain.List(list...))); err != nil {
			o.fail(result, "FIRST_PROCESS", "host", hostID, err)
		}
	}
	return nil
}

// fetchMasterRecords runs "{kind}.get" with the release's declared options
// and the Master direction of that kind's Processor.
func (o *Orchestrator) fetchMasterRecords(ctx context.Context, nctx *normalize.Context, kind domain.Kind) ([]domain.Record, error) {
	spec, ok := o.Profile.Methods[kind]
	if !ok {
		return nil, nil
	}
	options := domain.Map()
	for k, v := range spec.GetOptions {
		options = options.Set(k, domain.FromAny(v))
	}
	items, err := o.Client.Get(ctx, string(kind), options)
	if err != nil {
		return nil, fmt.Errorf("%s.get: %w", kind, err)
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		name := stringField(item, spec.NameField)
		if name == "" {
			continue
		}
		records = append(records, domain.Record{Kind: kind, Name: name, Payload: item})
	}
	out, _, err := normalize.For(kind).Master(ctx, nctx, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return out, nil
}

// fetchMasterSingleton reads a singleton kind's current value and splits
// it into per-property records (spec §3: "for the few kinds that are
// singletons ... name is the property sub-key").
func (o *Orchestrator) fetchMasterSingleton(ctx context.Context, nctx *normalize.Context, kind domain.Kind, method string) ([]domain.Record, error) {
	value, err := o.Client.Call(ctx, method, domain.Map())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if value.Kind() != domain.KindMap {
		return nil, nil
	}
	var records []domain.Record
	for _, key := range value.Keys() {
		child, _ := value.Get(key)
		records = append(records, domain.Record{Kind: kind, Name: key, Payload: child})
	}
	out, _, err := normalize.For(kind).Master(ctx, nctx, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return out, nil
}

// fetchMasterHosts fetches every host with its groups/templates/interfaces
// /tags, flattens id-shaped references to names, and runs it through the
// host kind's common normalization pass (spec §4.6, §8 scenario 1).
func (o *Orchestrator) fetchMasterHosts(ctx context.Context, nctx *normalize.Context) ([]domain.Record, error) {
	hosts, err := o.Client.Get(ctx, "host", domain.Map().
		Set("output", domain.String("extend")).
		Set("selectGroups", domain.String("extend")).
		Set("selectParentTemplates", domain.String("extend")).
		Set("selectInterfaces", domain.String("extend")).
		Set("selectTags", domain.String("extend")).
		Set("selectInventory", domain.String("extend")))
	if err != nil {
		return nil, fmt.Errorf("host.get: %w", err)
	}
	records := make([]domain.Record, 0, len(hosts))
	for _, h := range hosts {
		name := stringField(h, "host")
		if name == "" {
			continue
		}
		payload := hostreconcile.FlattenHostForMaster(o.Identity, h)
		records = append(records, domain.Record{Kind: domain.KindHost, Name: name, Payload: payload})
	}
	out, _, err := normalize.For(domain.KindHost).Master(ctx, nctx, records)
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	return out, nil
}

// fetchMasterTemplates lists every template id/name, exports the full
// bundle (items, triggers, LLD, value maps included) through ConfigBridge,
// and stores one record per template whose payload is that exported body
// (spec §4.5: "the only safe way to move templates+items+triggers+LLD
// +value-maps together").
func (o *Orchestrator) fetchMasterTemplates(ctx context.Context) ([]domain.Record, error) {
	spec, ok := o.Profile.Methods[domain.KindTemplate]
	if !ok {
		return nil, nil
	}
	items, err := o.Client.Get(ctx, "template", domain.Map().
		Set("output", domain.List(domain.String(spec.IDField), domain.String(spec.NameField))))
	if err != nil {
		return nil, fmt.Errorf("template.get: %w", err)
	}
	var templateIDs []string
	for _, item := range items {
		if id := stringField(item, spec.IDField); id != "" {
			templateIDs = append(templateIDs, id)
		}
	}
	if len(templateIDs) == 0 {
		return nil, nil
	}

	bridge := configbridge.NewBridge(o.Client, releaseMajor(o.Profile.Release), 0, o.Presenter)
	_, templates, err := bridge.Export(ctx, nil, nil, nil, templateIDs)
	if err != nil {
		return nil, fmt.Errorf("exporting templates: %w", err)
	}

	records := make([]domain.Record, 0, len(templates))
	for _, t := range templates {
		name := stringField(t, "name")
		if name == "" {
			continue
		}
		records = append(records, domain.Record{Kind: domain.KindTemplate, Name: name, Payload: t})
	}
	return records, nil
}
