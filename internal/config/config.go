// Package config loads monctl's configuration the way the teacher's
// internal/config/config.go does: viper-backed, nested mapstructure
// sub-structs, defaults set before any file/env is read, validated after
// unmarshal (spec.md §6).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/monctl/monctl/internal/logging"
)

// EnvPrefix is the fixed prefix every CLI flag may also be supplied as
// (spec.md §6: "any of the above CLI flags may be supplied as an
// environment variable with a fixed prefix").
const EnvPrefix = "MONCTL"

// Role is this node's position in the clone topology (spec.md GLOSSARY).
type Role string

const (
	RoleMaster  Role = "master"
	RoleWorker  Role = "worker"
	RoleReplica Role = "replica"
)

// Config is the top-level document one JSON config file (plus an optional
// node-local overlay) decodes into.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	// Peer is the master's connection, required only when store.type is
	// "direct" (spec.md §4.3 "Direct": "the master is connected live and
	// the worker reads from its in-memory snapshot" — this node's own
	// clone run plays both roles in a single process, one Monitor
	// connection each).
	Peer  *MonitorConfig `mapstructure:"peer"`
	Store StoreConfig    `mapstructure:"store"`
	Clone CloneConfig    `mapstructure:"clone"`
	Log   LogConfig      `mapstructure:"log"`
}

// MonitorConfig describes how to reach and authenticate against this
// node's Monitor instance.
type MonitorConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	Node             string `mapstructure:"node"`
	Role             Role   `mapstructure:"role"`
	Token            string `mapstructure:"token"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	SelfCert         bool   `mapstructure:"self_cert"`
	UpdatePassword   bool   `mapstructure:"update_password"`
	PlatformPassword string `mapstructure:"platform_password"`
}

// StoreConfig selects and configures the pluggable snapshot store
// (spec.md §6 "store selection").
type StoreConfig struct {
	// Type is the driver tag: file | kv-table | kv-memory | direct |
	// extend:<name>.
	Type       string `mapstructure:"type"`
	Endpoint   string `mapstructure:"endpoint"`
	Port       int    `mapstructure:"port"`
	Access     string `mapstructure:"access"`
	Credential string `mapstructure:"credential"`
	// Limit is the batch size a throttled backend writes per burst
	// (kv-table's batchLimit, default 10).
	Limit int `mapstructure:"limit"`
	// Interval is the cooperative sleep, in seconds, between bursts
	// (kv-table's batchWait, default 2).
	Interval int `mapstructure:"interval"`
	// Dir is the filestore backend's directory.
	Dir string `mapstructure:"dir"`
}

// CloneConfig holds the run's behavior flags (spec.md §6 "selected
// flags").
type CloneConfig struct {
	// Quiet suppresses per-record progress output on the presenter,
	// leaving only the final summary (spec.md §6 -q/--quiet).
	Quiet             bool `mapstructure:"quiet"`
	Yes               bool `mapstructure:"yes"`
	ForceInitialize   bool `mapstructure:"force_initialize"`
	ForceUseIP        bool `mapstructure:"force_useip"`
	HostUpdate        bool `mapstructure:"host_update"`
	ForceHostUpdate   bool `mapstructure:"force_host_update"`
	NoDelete          bool `mapstructure:"no_delete"`
	TemplateSkip      bool `mapstructure:"template_skip"`
	TemplateSeparate  bool `mapstructure:"template_separate"`
	CheckNowExecute   bool `mapstructure:"checknow_execute"`
	CheckNowInterval  int  `mapstructure:"checknow_interval"`
	CheckNowWait      int  `mapstructure:"checknow_wait"`
	WorkerConcurrency int  `mapstructure:"worker_concurrency"`
	// VersionSelect names a specific versionId to clone; empty means
	// "latest".
	VersionSelect string `mapstructure:"version_select"`
	// TemplateChunkSize bounds ConfigBridge's per-bundle template count
	// (spec.md §4.5, default 100).
	TemplateChunkSize int `mapstructure:"template_chunk_size"`
	// Description tags a master-produced snapshot (spec.md §3). Set from
	// the config file or clone's --description flag.
	Description string `mapstructure:"description"`

	// CloningSuperAdmin, EnableUser, ProxyPSK, MFAClientSecret, and Media
	// carry operator-supplied secrets/policy the snapshot itself never
	// contains (spec.md §4.4, §4.7 MEDIA). None has a CLI flag in spec.md
	// §6's flag list, so these only ever come from the JSON config file.
	CloningSuperAdmin bool                         `mapstructure:"cloning_super_admin"`
	EnableUser        map[string]string            `mapstructure:"enable_user"`
	ProxyPSK          map[string][2]string         `mapstructure:"proxy_psk"`
	MFAClientSecret   map[string]string            `mapstructure:"mfa_client_secret"`
	Media             map[string]map[string]Media  `mapstructure:"media"`
}

// Media is the config-file shape of one user's assignment to one media
// type (spec.md §4.7 MEDIA), decoded into orchestrator.MediaAssignment by
// the CLI layer so internal/config has no dependency on internal/orchestrator.
type Media struct {
	To       []string          `mapstructure:"to"`
	Severity [6]bool           `mapstructure:"severity"`
	WorkTime map[string]string `mapstructure:"work_time"`
}

// LogConfig mirrors logging.Config with mapstructure tags for viper.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLogging converts LogConfig to the shape logging.New expects.
func (l LogConfig) ToLogging() logging.Config {
	return logging.Config{
		Level: l.Level, Format: l.Format, Output: l.Output, Filename: l.Filename,
		MaxSize: l.MaxSize, MaxBackups: l.MaxBackups, MaxAge: l.MaxAge, Compress: l.Compress,
	}
}

// Load reads basePath, merges overlayPath over it key-by-key for keys the
// overlay sets (spec.md §6: "both are merged with overlay winning"),
// applies environment overrides (MONCTL_* per EnvPrefix), then CLI flags
// already bound into v by the caller. Precedence is CLI > env > file,
// matching viper's own precedence order once flags are bound with
// v.BindPFlags before Load runs.
func Load(v *viper.Viper, basePath, overlayPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if basePath != "" {
		v.SetConfigFile(basePath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: reading %s: %w", basePath, err)
			}
		}
	}

	if overlayPath != "" {
		overlay := viper.New()
		overlay.SetConfigFile(overlayPath)
		overlay.SetConfigType("json")
		if err := overlay.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: reading overlay %s: %w", overlayPath, err)
			}
		} else {
			for _, key := range overlay.AllKeys() {
				v.Set(key, overlay.Get(key))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.role", string(RoleWorker))
	v.SetDefault("monitor.self_cert", false)
	v.SetDefault("monitor.update_password", false)

	v.SetDefault("store.type", "file")
	v.SetDefault("store.limit", 10)
	v.SetDefault("store.interval", 2)

	v.SetDefault("clone.worker_concurrency", 4)
	v.SetDefault("clone.checknow_wait", 30)
	v.SetDefault("clone.checknow_interval", 5)
	v.SetDefault("clone.template_chunk_size", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// Validate enforces the preconditions FIRST_PROCESS needs before issuing
// any Monitor call (spec.md §7 bucket 1).
func (c *Config) Validate() error {
	if c.Monitor.Endpoint == "" {
		return fmt.Errorf("monitor.endpoint must not be empty")
	}
	if c.Monitor.Node == "" {
		return fmt.Errorf("monitor.node must not be empty")
	}
	switch c.Monitor.Role {
	case RoleMaster, RoleWorker, RoleReplica:
	default:
		return fmt.Errorf("monitor.role must be master, worker, or replica (got %q)", c.Monitor.Role)
	}
	if c.Monitor.Token == "" && c.Monitor.Password == "" {
		return fmt.Errorf("monitor.token or monitor.password must be set")
	}
	if c.Store.Type == "" {
		return fmt.Errorf("store.type must not be empty")
	}
	if c.Store.Type == "direct" && c.Monitor.Role != RoleMaster && c.Peer == nil {
		return fmt.Errorf("store.type=direct requires monitor.role=master or a peer.* master connection")
	}
	if c.Clone.WorkerConcurrency <= 0 {
		return fmt.Errorf("clone.worker_concurrency must be positive")
	}
	return nil
}
