package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagConfig        string
	flagConfigOverlay string
)

var rootCmd = &cobra.Command{
	Use:   "monctl",
	Short: "Clone a monitoring server's configuration between master and worker instances",
	Long: `monctl clones hosts, templates, host groups, actions, maintenance
windows, users, roles, media types, proxies, global settings, and
authentication from one master Monitor instance to one or more worker
instances, with optional persistence of named snapshots in a pluggable
store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the base JSON config file")
	rootCmd.PersistentFlags().StringVar(&flagConfigOverlay, "config-overlay", "", "path to a node-local JSON overlay, merged over --config")

	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(showVersionsCmd)
	rootCmd.AddCommand(showDataCmd)
}

// Execute runs the command tree and returns the process exit code (spec
// §6), rather than calling os.Exit itself, so main stays a one-liner.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ec, ok := err.(exitCoder); ok {
			return ec.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUnhandledError
	}
	return exitSuccess
}

// exitCoder lets a subcommand's RunE return an error carrying a specific
// exit code instead of always falling through to exitUnhandledError.
type exitCoder interface {
	error
	ExitCode() int
}

type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) ExitCode() int { return e.code }
func (e *codedError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// newViper builds a fresh *viper.Viper for one command invocation and
// binds its local+inherited flags so config.Load sees CLI > env > file
// precedence (config.Load itself layers env over file; flags bound here
// take precedence over both since viper.Get prefers an explicitly-set
// flag over an env/file value).
func newViper(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.PersistentFlags())
	return v
}
