package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/monctl/monctl/internal/config"
	"github.com/monctl/monctl/internal/logging"
	"github.com/monctl/monctl/internal/store"
)

var showVersionsCmd = &cobra.Command{
	Use:   "showversions",
	Short: "List snapshots recorded in the configured store",
	RunE:  runShowVersions,
}

var showDataCmd = &cobra.Command{
	Use:   "showdata",
	Short: "Print one snapshot's records, grouped by kind",
	RunE:  runShowData,
}

func init() {
	showVersionsCmd.Flags().String("store-type", "", "store backend: file | kv-table | kv-memory | extend:<name>")
	showVersionsCmd.Flags().String("store-endpoint", "", "store backend endpoint/host")
	showVersionsCmd.Flags().Int("store-port", 0, "store backend port")
	showVersionsCmd.Flags().String("store-access", "", "store backend access key / region")
	showVersionsCmd.Flags().String("store-credential", "", "store backend credential / secret")

	showDataCmd.Flags().AddFlagSet(showVersionsCmd.Flags())
	showDataCmd.Flags().String("version", "", "versionId to show; empty means the latest stored version")
}

func bindStoreFlags(v *viper.Viper, f *pflag.FlagSet) {
	bind := func(key, flag string) { _ = v.BindPFlag(key, f.Lookup(flag)) }
	bind("store.type", "store-type")
	bind("store.endpoint", "store-endpoint")
	bind("store.port", "store-port")
	bind("store.access", "store-access")
	bind("store.credential", "store-credential")
}

func openStoreFromConfig(cmd *cobra.Command) (store.Driver, *config.Config, error) {
	v := newViper(cmd)
	bindStoreFlags(v, cmd.Flags())

	cfg, err := config.Load(v, flagConfig, flagConfigOverlay)
	if err != nil {
		return nil, nil, fail(exitPreconditionFailure, err)
	}
	logger := logging.New(cfg.Log.ToLogging())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	drv, err := buildStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, fail(exitStoreFailure, err)
	}
	return drv, cfg, nil
}

func runShowVersions(cmd *cobra.Command, args []string) error {
	drv, _, err := openStoreFromConfig(cmd)
	if err != nil {
		return err
	}
	defer drv.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := drv.ListVersions(ctx, store.VersionFilter{})
	if err != nil {
		return fail(exitStoreFailure, err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt > rows[j].CreatedAt })

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "no versions recorded")
		return nil
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s  %s  release=%s  %s\n",
			row.VersionID, time.Unix(row.CreatedAt, 0).UTC().Format(time.RFC3339),
			row.MasterRelease, row.Description)
	}
	return nil
}

func runShowData(cmd *cobra.Command, args []string) error {
	drv, _, err := openStoreFromConfig(cmd)
	if err != nil {
		return err
	}
	defer drv.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	versionID, _ := cmd.Flags().GetString("version")

	rows, err := drv.ListVersions(ctx, store.VersionFilter{Limit: 0})
	if err != nil {
		return fail(exitStoreFailure, err)
	}
	if versionID == "" {
		var best store.VersionMetaRow
		for _, row := range rows {
			if row.CreatedAt > best.CreatedAt {
				best = row
			}
		}
		versionID = best.VersionID
	}
	if versionID == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no versions recorded")
		return nil
	}

	records, err := drv.GetRecords(ctx, versionID)
	if err != nil {
		return fail(exitStoreFailure, err)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Kind != records[j].Kind {
			return records[i].Kind < records[j].Kind
		}
		return records[i].Name < records[j].Name
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version %s: %d record(s)\n", versionID, len(records))
	for _, r := range records {
		fmt.Fprintf(out, "  %-24s %-40s %d bytes\n", r.Kind, r.Name, len(r.Payload))
	}
	return nil
}
