package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/monitorapi"
)

func TestReleaseLess(t *testing.T) {
	require.True(t, releaseLess("4.0", "4.4"))
	require.True(t, releaseLess("6.0", "6.2"))
	require.False(t, releaseLess("7.0", "6.4"))
	require.False(t, releaseLess("6.4", "6.4"))
}

func TestAppliedVersionMalformed(t *testing.T) {
	require.False(t, appliedVersionMalformed(""))
	require.False(t, appliedVersionMalformed(domain.AppliedVersionNone))
	require.False(t, appliedVersionMalformed(domain.AppliedVersionDirect))
	require.False(t, appliedVersionMalformed("550e8400-e29b-41d4-a716-446655440000"))
	require.True(t, appliedVersionMalformed("not-a-uuid"))
}

// emptyClient is a fake monitorapi.Client whose every Get returns no
// records, suitable for exercising a full RunWorker pass against an empty
// snapshot: every section has nothing to apply, but the state machine
// must still run FIRST_PROCESS through MARK_VERSION without error.
type emptyClient struct {
	appliedVersion string
	markedVersion  string
	calls          []string
}

var _ monitorapi.Client = (*emptyClient)(nil)

func (c *emptyClient) APIVersion(ctx context.Context) (string, error) { return "6.4", nil }
func (c *emptyClient) LoginToken(ctx context.Context, token string) error { return nil }
func (c *emptyClient) LoginPassword(ctx context.Context, u, p string) error { return nil }
func (c *emptyClient) ChangePassword(ctx context.Context, u, n, cur string) error { return nil }

func (c *emptyClient) Get(ctx context.Context, kind string, options domain.Value) ([]domain.Value, error) {
	c.calls = append(c.calls, "get:"+kind)
	if kind == "usermacro" && c.appliedVersion != "" {
		return []domain.Value{domain.Map().Set("value", domain.String(c.appliedVersion))}, nil
	}
	return nil, nil
}

func (c *emptyClient) Create(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	c.calls = append(c.calls, "create:"+kind)
	return domain.Map().Set(kind+"ids", domain.List(domain.String("1"))), nil
}

func (c *emptyClient) Update(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	c.calls = append(c.calls, "update:"+kind)
	return domain.Map(), nil
}

func (c *emptyClient) Delete(ctx context.Context, kind string, ids []string) (domain.Value, error) {
	c.calls = append(c.calls, "delete:"+kind)
	return domain.Map(), nil
}

func (c *emptyClient) ConfigurationExport(ctx context.Context, options domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}
func (c *emptyClient) ConfigurationImport(ctx context.Context, options domain.Value) error { return nil }

func (c *emptyClient) Call(ctx context.Context, method string, params domain.Value) (domain.Value, error) {
	c.calls = append(c.calls, "call:"+method)
	if method == "usermacro.updateglobal" {
		v, _ := params.Get("value")
		c.markedVersion, _ = v.String()
	}
	return domain.Map(), nil
}

func noopSleep(ctx context.Context, d time.Duration) {}

func newTestOrchestrator(client *emptyClient) *Orchestrator {
	return &Orchestrator{
		Client: client,
		Options: Options{
			Node:              "node1",
			Role:              "worker",
			WorkerConcurrency: 2,
			CheckNowWait:      time.Millisecond,
			Sleep:             noopSleep,
		},
	}
}

// An empty snapshot on a worker that has never applied one before must
// still complete every section and mark the version (spec §4.7).
func TestRunWorker_EmptySnapshot_CompletesAndMarksVersion(t *testing.T) {
	client := &emptyClient{}
	o := newTestOrchestrator(client)

	snap := domain.Snapshot{VersionMeta: domain.VersionMeta{VersionID: "550e8400-e29b-41d4-a716-446655440000", MasterRelease: "6.4"}}

	result, err := o.RunWorker(context.Background(), snap)
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	require.Equal(t, "550e8400-e29b-41d4-a716-446655440000", client.markedVersion)
}

// Scenario 3 from spec.md §8: re-running the same snapshot against a
// worker that already applied it must not error and must mark the same
// version again (idempotent re-run).
func TestRunWorker_ReRunSameSnapshot_Idempotent(t *testing.T) {
	versionID := "550e8400-e29b-41d4-a716-446655440000"
	client := &emptyClient{appliedVersion: versionID}
	o := newTestOrchestrator(client)

	snap := domain.Snapshot{VersionMeta: domain.VersionMeta{VersionID: versionID, MasterRelease: "6.4"}}

	first, err := o.RunWorker(context.Background(), snap)
	require.NoError(t, err)

	client.calls = nil
	second, err := o.RunWorker(context.Background(), snap)
	require.NoError(t, err)

	require.Equal(t, len(first.Failures), len(second.Failures))
	require.Equal(t, versionID, client.markedVersion)
}

// A worker older than the snapshot's master release must fail fast,
// before any mutating call (spec §7 bucket 1).
func TestRunWorker_WorkerOlderThanMaster_FailsPrecondition(t *testing.T) {
	client := &emptyClient{} // APIVersion reports 6.4
	o := newTestOrchestrator(client)

	snap := domain.Snapshot{VersionMeta: domain.VersionMeta{VersionID: "v1", MasterRelease: "7.0"}}

	_, err := o.RunWorker(context.Background(), snap)
	require.Error(t, err)
	var precondition *ErrPrecondition
	require.ErrorAs(t, err, &precondition)
	require.Empty(t, client.calls, "a precondition failure must happen before any call reaches the client")
}
