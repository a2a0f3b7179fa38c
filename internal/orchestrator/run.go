package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/monctl/monctl/internal/configbridge"
	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/hostreconcile"
	"github.com/monctl/monctl/internal/normalize"
)

// RunWorker drives the full worker state machine against an already
// fetched snapshot (spec §4.7): FIRST_PROCESS, then {INITIALIZE |
// SOFT_RESET}, GLOBAL_SETTINGS, PRE, CONFIG_IMPORT, ALERT_STOP, MID,
// HOSTS, CHECK_NOW, POST, ACCOUNT, EXTEND, AUTH, MEDIA, MARK_VERSION.
func (o *Orchestrator) RunWorker(ctx context.Context, snap domain.Snapshot) (*Result, error) {
	result := &Result{}

	if err := o.firstProcess(ctx, snap.MasterRelease); err != nil {
		return result, err
	}
	if err := o.refreshIdentity(ctx); err != nil {
		return result, &ErrPrecondition{Reason: "building initial identity map", Cause: err}
	}

	// Open Question (spec §9): original_source/zc.py's worker first-process
	// has an unreachable `self.CONFIG.hostUpdate == True` comparison where
	// an assignment was clearly intended. Treating master release 4.0 as
	// the trigger that was meant to force host-update on.
	if snap.MasterRelease != "" && releaseMajor(snap.MasterRelease) == 4.0 && !o.Options.HostUpdate {
		o.warn("master release 4.0: forcing host-update on")
		o.Options.HostUpdate = true
	}

	appliedVersion, err := o.readAppliedVersion(ctx)
	if err != nil {
		return result, &ErrPrecondition{Reason: "reading applied-version macro", Cause: err}
	}
	initializeNeeded := o.Options.ForceInitialize || appliedVersionMalformed(appliedVersion)

	if initializeNeeded {
		if o.Presenter != nil {
			o.Presenter.Section("INITIALIZE")
		}
		if err := o.initialize(ctx, result); err != nil {
			return result, err
		}
		if err := o.refreshIdentity(ctx); err != nil {
			return result, &ErrPrecondition{Reason: "rebuilding identity map after INITIALIZE", Cause: err}
		}
	} else if !o.Options.NoDelete {
		if o.Presenter != nil {
			o.Presenter.Section("SOFT_RESET")
		}
		if err := o.softReset(ctx, result); err != nil {
			return result, err
		}
		if err := o.refreshIdentity(ctx); err != nil {
			return result, &ErrPrecondition{Reason: "rebuilding identity map after SOFT_RESET", Cause: err}
		}
	}

	nctx := &normalize.Context{
		Profile:           o.Profile,
		Identity:          o.Identity,
		Node:              o.Options.Node,
		ProxyPSK:          o.Options.ProxyPSK,
		CloningSuperAdmin: o.Options.CloningSuperAdmin,
		EnableUser:        o.Options.EnableUser,
		MFAClientSecret:   o.Options.MFAClientSecret,
	}

	if o.Presenter != nil {
		o.Presenter.Section("GLOBAL_SETTINGS")
	}
	o.applySingleton(ctx, nctx, domain.KindSettings, snap.ByKind(domain.KindSettings), result)
	o.applySingleton(ctx, nctx, domain.KindAutoregistration, snap.ByKind(domain.KindAutoregistration), result)

	var extend []domain.Record

	if o.Presenter != nil {
		o.Presenter.Section("PRE")
	}
	preExtend, err := o.processSection(ctx, nctx, domain.SectionPre, snap.Records, result)
	if err != nil {
		return result, err
	}
	extend = append(extend, preExtend...)

	if o.Presenter != nil {
		o.Presenter.Section("CONFIG_IMPORT")
	}
	bridge := configbridge.NewBridge(o.Client, releaseMajor(o.Profile.Release), o.Options.TemplateChunkSize, o.Presenter)
	if err := o.configImport(ctx, bridge, snap, nctx, result); err != nil {
		return result, err
	}
	if err := o.refreshIdentity(ctx); err != nil {
		return result, &ErrPrecondition{Reason: "rebuilding identity map after CONFIG_IMPORT", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("ALERT_STOP")
	}
	if err := o.alertStop(ctx); err != nil {
		o.warn("alert-stop maintenance window failed: %v", err)
	}

	if o.Presenter != nil {
		o.Presenter.Section("MID")
	}
	midExtend, err := o.processSection(ctx, nctx, domain.SectionMid, snap.Records, result)
	if err != nil {
		return result, err
	}
	extend = append(extend, midExtend...)

	// Suspension point (spec §5): let the writes above settle before the
	// first host pass.
	o.sleep(ctx, o.Options.CheckNowWait)

	if o.Presenter != nil {
		o.Presenter.Section("HOSTS")
	}
	hostResult, err := o.reconcileHosts(ctx, snap, result)
	if err != nil {
		return result, err
	}
	result.Hosts = hostResult

	if o.Presenter != nil {
		o.Presenter.Section("CHECK_NOW")
	}
	o.checkNow(ctx, hostResult.AppliedHostIDs)

	if err := o.refreshIdentity(ctx); err != nil {
		return result, &ErrPrecondition{Reason: "rebuilding identity map after HOSTS", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("POST")
	}
	postExtend, err := o.processSection(ctx, nctx, domain.SectionPost, snap.Records, result)
	if err != nil {
		return result, err
	}
	extend = append(extend, postExtend...)

	if o.Presenter != nil {
		o.Presenter.Section("ACCOUNT")
	}
	acctExtend, err := o.processSection(ctx, nctx, domain.SectionAccount, snap.Records, result)
	if err != nil {
		return result, err
	}
	extend = append(extend, acctExtend...)

	if err := o.refreshIdentity(ctx); err != nil {
		return result, &ErrPrecondition{Reason: "rebuilding identity map before EXTEND", Cause: err}
	}

	if o.Presenter != nil {
		o.Presenter.Section("EXTEND")
	}
	serviceRelations, extend := splitServiceRelations(extend)
	o.applyExtend(ctx, extend, result)
	if len(serviceRelations) > 0 {
		o.applyServiceRelations(ctx, nctx, serviceRelations, result)
	}

	// AUTH runs after POST/ACCOUNT so authentication's disabled_usrgrpid and
	// mfaid references resolve against userGroup/mfa entities that section
	// may just have created, rather than against a stale identity map
	// (spec §4.4's authentication contract names the fields; §4.7's state
	// diagram puts AUTH after EXTEND for this reason).
	if o.Presenter != nil {
		o.Presenter.Section("AUTH")
	}
	o.applySingleton(ctx, nctx, domain.KindAuthentication, snap.ByKind(domain.KindAuthentication), result)

	if o.Presenter != nil {
		o.Presenter.Section("MEDIA")
	}
	o.reconcileMedia(ctx, result)

	versionID := snap.VersionID
	if versionID == "" {
		versionID = domain.AppliedVersionDirect
	}
	if o.Presenter != nil {
		o.Presenter.Section("MARK_VERSION")
	}
	if err := o.markVersion(ctx, versionID); err != nil {
		return result, &ErrSection{Section: "MARK_VERSION", Cause: err}
	}

	return result, nil
}

// readAppliedVersion reads the worker's {$APPLIED_VERSION} global macro,
// returning "" if it has never been set.
func (o *Orchestrator) readAppliedVersion(ctx context.Context) (string, error) {
	items, err := o.Client.Get(ctx, "usermacro", domain.Map().
		Set("output", domain.String("extend")).
		Set("globalmacro", domain.Bool(true)).
		Set("filter", domain.Map().Set("macro", domain.String(domain.AppliedVersionMacro))))
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	return stringField(items[0], "value"), nil
}

// appliedVersionMalformed reports whether value isn't one of: absent, a
// recognized sentinel, or a well-formed UUID (spec §4.7: "macro absent, or
// macro value malformed" both force INITIALIZE).
func appliedVersionMalformed(value string) bool {
	if value == "" || value == domain.AppliedVersionNone || value == domain.AppliedVersionDirect {
		return false
	}
	_, err := uuid.Parse(value)
	return err != nil
}

// groupsSectionName and templateGroupsSectionName mirror
// configbridge.Bridge's unexported section-name methods: host/template
// groups forked into two distinct bundle sections at release 6.2.
func groupsSectionName(release string) string {
	if releaseMajor(release) >= 6.2 {
		return "host_groups"
	}
	return "groups"
}

func templateGroupsSectionName(release string) string {
	if releaseMajor(release) >= 6.2 {
		return "template_groups"
	}
	return ""
}

// configImport reconstructs a zabbix_export-shaped bundle from the
// snapshot's hostGroup/templateGroup/mediaType/valueMap records, normalized
// for the worker's release, and hands it to the ConfigBridge alongside
// templates (spec §4.5, §4.7 CONFIG_IMPORT).
func (o *Orchestrator) configImport(ctx context.Context, bridge *configbridge.Bridge, snap domain.Snapshot, nctx *normalize.Context, result *Result) error {
	sections := domain.Map()
	haveSections := false

	addSection := func(sectionName string, kind domain.Kind) error {
		records := snap.ByKind(kind)
		if len(records) == 0 {
			return nil
		}
		processed, _, err := normalize.For(kind).Worker(ctx, nctx, records)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		items := make([]domain.Value, len(processed))
		for i, r := range processed {
			items[i] = r.Payload
		}
		sections = sections.Set(sectionName, domain.List(items...))
		haveSections = true
		return nil
	}

	if err := addSection(groupsSectionName(o.Profile.Release), domain.KindHostGroup); err != nil {
		return &ErrSection{Section: "CONFIG_IMPORT", Cause: err}
	}
	if tg := templateGroupsSectionName(o.Profile.Release); tg != "" {
		if err := addSection(tg, domain.KindTemplateGroup); err != nil {
			return &ErrSection{Section: "CONFIG_IMPORT", Cause: err}
		}
	}
	if err := addSection("mediaTypes", domain.KindMediaType); err != nil {
		return &ErrSection{Section: "CONFIG_IMPORT", Cause: err}
	}
	if releaseMajor(o.Profile.Release) < 6.0 {
		if err := addSection("valueMaps", domain.KindValueMap); err != nil {
			return &ErrSection{Section: "CONFIG_IMPORT", Cause: err}
		}
	}

	if haveSections {
		if err := bridge.ImportNonTemplateBundle(ctx, sections, o.Profile.Release); err != nil {
			return &ErrSection{Section: "CONFIG_IMPORT", Cause: err}
		}
	}

	if o.Options.TemplateSkip {
		return nil
	}
	templateRecords := snap.ByKind(domain.KindTemplate)
	if len(templateRecords) == 0 {
		return nil
	}
	processed, _, err := normalize.For(domain.KindTemplate).Worker(ctx, nctx, templateRecords)
	if err != nil {
		return &ErrSection{Section: "CONFIG_IMPORT", Cause: fmt.Errorf("template: %w", err)}
	}
	templates := make([]domain.Value, len(processed))
	for i, r := range processed {
		templates[i] = r.Payload
	}
	for _, failed := range bridge.ImportTemplates(ctx, templates, o.Profile.Release) {
		o.fail(result, "CONFIG_IMPORT", "template", failed.Template, failed.Cause)
	}
	return nil
}

// reconcileHosts runs the host fan-out and folds its per-host failures into
// the run result (spec §4.6, §4.7 HOSTS).
func (o *Orchestrator) reconcileHosts(ctx context.Context, snap domain.Snapshot, result *Result) (*hostreconcile.Result, error) {
	reconciler := &hostreconcile.Reconciler{
		Client:    o.Client,
		Identity:  o.Identity,
		Presenter: o.Presenter,
		Config: hostreconcile.Config{
			Node:              o.Options.Node,
			Replica:           o.Options.Role == "replica",
			HostUpdate:        o.Options.HostUpdate,
			ForceHostUpdate:   o.Options.ForceHostUpdate,
			ForceUseIP:        o.Options.ForceUseIP,
			NoDelete:          o.Options.NoDelete,
			WorkerConcurrency: o.Options.WorkerConcurrency,
		},
	}
	hr, err := reconciler.Reconcile(ctx, snap.ByKind(domain.KindHost))
	if err != nil {
		return nil, &ErrSection{Section: "HOSTS", Cause: err}
	}
	for _, f := range hr.Failed {
		o.fail(result, "HOSTS", "host", f.Host, f.Cause)
	}
	for _, f := range hr.DeleteFailed {
		o.fail(result, "HOSTS", "host", f.Host, f.Cause)
	}
	for _, f := range hr.InterfaceFailed {
		o.fail(result, "HOSTS", "hostinterface", f.Host, f.Cause)
	}
	return hr, nil
}
