package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("monitor.endpoint", "https://master.example.com")
	v.Set("monitor.node", "worker-1")
	v.Set("monitor.role", "worker")
	v.Set("monitor.token", "tok")

	cfg, err := Load(v, "", "")
	require.NoError(t, err)
	require.Equal(t, "file", cfg.Store.Type)
	require.Equal(t, 4, cfg.Clone.WorkerConcurrency)
	require.Equal(t, 100, cfg.Clone.TemplateChunkSize)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestValidate_RejectsMissingCredential(t *testing.T) {
	cfg := &Config{
		Monitor: MonitorConfig{Endpoint: "e", Node: "n", Role: RoleWorker},
		Store:   StoreConfig{Type: "file"},
		Clone:   CloneConfig{WorkerConcurrency: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "token or monitor.password")
}

func TestValidate_RejectsDirectStoreWithoutMasterOrPeer(t *testing.T) {
	cfg := &Config{
		Monitor: MonitorConfig{Endpoint: "e", Node: "n", Role: RoleWorker, Token: "t"},
		Store:   StoreConfig{Type: "direct"},
		Clone:   CloneConfig{WorkerConcurrency: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "store.type=direct")
}

func TestValidate_RejectsUnknownRole(t *testing.T) {
	cfg := &Config{
		Monitor: MonitorConfig{Endpoint: "e", Node: "n", Role: "bogus", Token: "t"},
		Store:   StoreConfig{Type: "file"},
		Clone:   CloneConfig{WorkerConcurrency: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "monitor.role")
}

func TestLoad_OverlayWinsOverBase(t *testing.T) {
	base := t.TempDir() + "/base.json"
	overlay := t.TempDir() + "/overlay.json"
	require.NoError(t, os.WriteFile(base, []byte(`{"monitor":{"endpoint":"https://base","node":"n","role":"worker","token":"t"},"clone":{"worker_concurrency":2}}`), 0o644))
	require.NoError(t, os.WriteFile(overlay, []byte(`{"clone":{"worker_concurrency":9}}`), 0o644))

	v := viper.New()
	cfg, err := Load(v, base, overlay)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Clone.WorkerConcurrency, "overlay must win for keys it sets")
	require.Equal(t, "https://base", cfg.Monitor.Endpoint, "base values survive when overlay doesn't set them")
}
