package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/logging"
	"github.com/monctl/monctl/internal/orchestrator"
	"github.com/monctl/monctl/internal/presenter"
	"github.com/monctl/monctl/internal/store"
	"github.com/monctl/monctl/internal/store/direct"
)

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Apply the master's configuration to this node",
	Long: `clone drives this node's full run: for monitor.role=master it
produces a new snapshot and (unless store.type is direct) persists it;
for monitor.role=worker or replica it loads a snapshot and applies it,
section by section, to this node's Monitor instance (spec.md §4.7).`,
	RunE: runClone,
}

func init() {
	f := cloneCmd.Flags()
	f.BoolP("quiet", "q", false, "suppress per-record progress output")
	f.BoolP("yes", "y", false, "run non-interactively without confirmation prompts")
	f.Bool("self-cert", false, "accept a self-signed Monitor TLS certificate")
	f.Bool("force-initialize", false, "force the worker INITIALIZE path even if a valid applied-version macro exists")
	f.Bool("force-useip", false, "rewrite host interfaces to their resolved IP when DNS resolves")
	f.Bool("host-update", false, "update a host matched by display name even when its carry-tag differs")
	f.Bool("force-host-update", false, "update a host matched by carry-tag even when its display name differs")
	f.Bool("no-delete", false, "never delete local entities absent from the snapshot")
	f.Bool("template-skip", false, "skip CONFIG_IMPORT's template bundle entirely")
	f.Bool("template-separate", false, "import each template bundle as its own configuration.import call (default behavior; reserved for parity with spec.md §6)")
	f.Bool("checknow-execute", false, "issue task.create against freshly applied hosts")
	f.Int("checknow-interval", 5, "item delay (seconds) eligible for an immediate check-now")
	f.Int("checknow-wait", 30, "seconds to let prior writes settle before HOSTS and before the first check-now pass")
	f.Int("worker-concurrency", 4, "parallel host create/update operations")
	f.Bool("update-password", false, "rotate the onboarding platform password after first login")
	f.String("version", "", "versionId to clone; empty means the latest stored version")
	f.Int("template-chunk-size", 100, "templates per configuration.export/import bundle")
	f.String("description", "", "free-text description recorded on a master-produced snapshot")

	f.String("store-type", "", "store backend: file | kv-table | kv-memory | direct | extend:<name>")
	f.String("store-endpoint", "", "store backend endpoint/host")
	f.Int("store-port", 0, "store backend port")
	f.String("store-access", "", "store backend access key / region")
	f.String("store-credential", "", "store backend credential / secret")
	f.Int("store-limit", 0, "store backend write batch size")
	f.Int("store-interval", 0, "store backend cooperative wait (seconds) between write batches")
}

// bindCloneFlags wires every clone flag to the mapstructure key config.Load
// unmarshals into, so a flag the operator actually passed outranks
// whatever the config file or MONCTL_* environment says (spec.md §6:
// "precedence is CLI > env > config file").
func bindCloneFlags(v *viper.Viper, f *pflag.FlagSet) {
	bind := func(key, flag string) { _ = v.BindPFlag(key, f.Lookup(flag)) }
	bind("clone.quiet", "quiet")
	bind("clone.yes", "yes")
	bind("monitor.self_cert", "self-cert")
	bind("clone.force_initialize", "force-initialize")
	bind("clone.force_useip", "force-useip")
	bind("clone.host_update", "host-update")
	bind("clone.force_host_update", "force-host-update")
	bind("clone.no_delete", "no-delete")
	bind("clone.template_skip", "template-skip")
	bind("clone.template_separate", "template-separate")
	bind("clone.checknow_execute", "checknow-execute")
	bind("clone.checknow_interval", "checknow-interval")
	bind("clone.checknow_wait", "checknow-wait")
	bind("clone.worker_concurrency", "worker-concurrency")
	bind("monitor.update_password", "update-password")
	bind("clone.version_select", "version")
	bind("clone.template_chunk_size", "template-chunk-size")
	bind("clone.description", "description")

	bind("store.type", "store-type")
	bind("store.endpoint", "store-endpoint")
	bind("store.port", "store-port")
	bind("store.access", "store-access")
	bind("store.credential", "store-credential")
	bind("store.limit", "store-limit")
	bind("store.interval", "store-interval")
}

func runClone(cmd *cobra.Command, args []string) error {
	v := newViper(cmd)
	bindCloneFlags(v, cmd.Flags())

	cfg, err := config.Load(v, flagConfig, flagConfigOverlay)
	if err != nil {
		return fail(exitPreconditionFailure, err)
	}

	logger := logging.New(cfg.Log.ToLogging())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pres := presenter.NewConsole(cmd.OutOrStdout(), cfg.Clone.Quiet, logger)

	client, err := connectMonitor(ctx, cfg.Monitor)
	if err != nil {
		return fail(exitPreconditionFailure, err)
	}

	drv, err := buildStore(ctx, cfg.Store, logger)
	if err != nil {
		return fail(exitStoreFailure, err)
	}
	defer drv.Close()

	opts := orchestrator.Options{
		Node:              cfg.Monitor.Node,
		Role:              string(cfg.Monitor.Role),
		Quiet:             cfg.Clone.Quiet,
		Yes:               cfg.Clone.Yes,
		ForceInitialize:   cfg.Clone.ForceInitialize,
		ForceUseIP:        cfg.Clone.ForceUseIP,
		HostUpdate:        cfg.Clone.HostUpdate,
		ForceHostUpdate:   cfg.Clone.ForceHostUpdate,
		NoDelete:          cfg.Clone.NoDelete,
		TemplateSkip:      cfg.Clone.TemplateSkip,
		TemplateChunkSize: cfg.Clone.TemplateChunkSize,
		CheckNowExecute:   cfg.Clone.CheckNowExecute,
		CheckNowInterval:  cfg.Clone.CheckNowInterval,
		CheckNowWait:      time.Duration(cfg.Clone.CheckNowWait) * time.Second,
		WorkerConcurrency: cfg.Clone.WorkerConcurrency,
		VersionSelect:     cfg.Clone.VersionSelect,
		Description:       cfg.Clone.Description,
		CloningSuperAdmin: cfg.Clone.CloningSuperAdmin,
		EnableUser:        cfg.Clone.EnableUser,
		ProxyPSK:          cfg.Clone.ProxyPSK,
		MFAClientSecret:   cfg.Clone.MFAClientSecret,
		MediaSettings:     mediaSettingsFromConfig(cfg.Clone.Media),
	}

	o := &orchestrator.Orchestrator{Client: client, Store: drv, Presenter: pres, Options: opts}

	var result *orchestrator.Result
	switch cfg.Monitor.Role {
	case config.RoleMaster:
		result, _, err = o.RunMaster(ctx, drv)
	default:
		result, err = runWorkerRole(ctx, o, cfg, drv, logger)
	}

	fmt.Fprintln(cmd.OutOrStdout(), pres.Summary())
	if err != nil {
		return mapOrchestratorError(err)
	}
	if result != nil && len(result.Failures) > 0 {
		return fail(exitSectionFailure, fmt.Errorf("clone: %d record(s) failed", len(result.Failures)))
	}
	return nil
}

// runWorkerRole loads the snapshot a worker or replica applies: from the
// configured store, or (store.type=direct) by running the master side of
// this same invocation live against cfg.Peer, with no persistence at all
// (spec.md §4.3 "Direct").
func runWorkerRole(ctx context.Context, o *orchestrator.Orchestrator, cfg *config.Config, drv store.Driver, logger *slog.Logger) (*orchestrator.Result, error) {
	if cfg.Store.Type == "direct" {
		directStore, ok := drv.(*direct.Store)
		if !ok {
			return nil, &orchestrator.ErrPrecondition{Reason: fmt.Sprintf("store.type=direct but driver is %T", drv)}
		}
		if cfg.Peer == nil {
			return nil, &orchestrator.ErrPrecondition{Reason: "store.type=direct requires peer.* to name the master connection"}
		}
		peerClient, err := connectMonitor(ctx, *cfg.Peer)
		if err != nil {
			return nil, &orchestrator.ErrPrecondition{Reason: "connecting to peer master", Cause: err}
		}
		master := &orchestrator.Orchestrator{
			Client:    peerClient,
			Store:     directStore,
			Presenter: o.Presenter,
			Options:   orchestrator.Options{Node: cfg.Peer.Node, Role: "master", Description: o.Options.Description},
		}
		if _, _, err := master.RunMaster(ctx, directStore); err != nil {
			return nil, err
		}
	}

	snap, err := orchestrator.LoadSnapshot(ctx, drv, o.Options.VersionSelect)
	if err != nil {
		return nil, &orchestrator.ErrSection{Section: "LOAD_SNAPSHOT", Cause: err}
	}
	if err := snap.Validate(); err != nil {
		return nil, &orchestrator.ErrSection{Section: "LOAD_SNAPSHOT", Cause: err}
	}
	return o.RunWorker(ctx, snap)
}

// mediaSettingsFromConfig converts config.Media's config-file shape into
// orchestrator.MediaAssignment, keeping internal/config free of a
// dependency on internal/orchestrator.
func mediaSettingsFromConfig(cfg map[string]map[string]config.Media) map[string]map[string]orchestrator.MediaAssignment {
	if cfg == nil {
		return nil
	}
	out := make(map[string]map[string]orchestrator.MediaAssignment, len(cfg))
	for mediaType, byUser := range cfg {
		row := make(map[string]orchestrator.MediaAssignment, len(byUser))
		for user, m := range byUser {
			row[user] = orchestrator.MediaAssignment{To: m.To, Severity: m.Severity, WorkTime: m.WorkTime}
		}
		out[mediaType] = row
	}
	return out
}

// mapOrchestratorError translates an orchestrator error into spec.md §7's
// exit-code taxonomy. A section failure during UPLOAD (the master's store
// write) or LOAD_SNAPSHOT (runWorkerRole's read of the stored snapshot) is
// a store precondition failure (exit 3); any other section failure is a
// generic section failure (exit 255).
func mapOrchestratorError(err error) error {
	switch e := err.(type) {
	case *orchestrator.ErrPrecondition:
		return fail(exitPreconditionFailure, err)
	case *orchestrator.ErrSection:
		if e.Section == "UPLOAD" || e.Section == "LOAD_SNAPSHOT" {
			return fail(exitStoreFailure, err)
		}
		return fail(exitSectionFailure, err)
	default:
		return fail(exitUnhandledError, err)
	}
}
