package hostreconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
	"github.com/monctl/monctl/internal/monitorapi"
)

// fakeClient is a minimal monitorapi.Client stub: just enough of Get/
// Create/Update/Delete for hostreconcile's fan-out, recording every call
// for assertions.
type fakeClient struct {
	localHosts []domain.Value

	created []domain.Value
	updated []domain.Value
	deleted [][]string
}

var _ monitorapi.Client = (*fakeClient)(nil)

func (f *fakeClient) APIVersion(ctx context.Context) (string, error) { return "6.4", nil }
func (f *fakeClient) LoginToken(ctx context.Context, token string) error { return nil }
func (f *fakeClient) LoginPassword(ctx context.Context, user, password string) error { return nil }
func (f *fakeClient) ChangePassword(ctx context.Context, user, newPassword, currentPassword string) error {
	return nil
}

func (f *fakeClient) Get(ctx context.Context, kind string, options domain.Value) ([]domain.Value, error) {
	if kind == "host" {
		return f.localHosts, nil
	}
	return nil, nil
}

func (f *fakeClient) Create(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	f.created = append(f.created, params)
	return domain.Map().Set("hostids", domain.List(domain.String("new-1"))), nil
}

func (f *fakeClient) Update(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	f.updated = append(f.updated, params)
	return domain.Map(), nil
}

func (f *fakeClient) Delete(ctx context.Context, kind string, ids []string) (domain.Value, error) {
	f.deleted = append(f.deleted, ids)
	return domain.Map(), nil
}

func (f *fakeClient) ConfigurationExport(ctx context.Context, options domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}
func (f *fakeClient) ConfigurationImport(ctx context.Context, options domain.Value) error { return nil }
func (f *fakeClient) Call(ctx context.Context, method string, params domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}

func tagList(pairs ...[2]string) domain.Value {
	items := make([]domain.Value, len(pairs))
	for i, p := range pairs {
		items[i] = domain.Map().Set("tag", domain.String(p[0])).Set("value", domain.String(p[1]))
	}
	return domain.List(items...)
}

func hostRecord(name, carryTag string) domain.Record {
	return domain.Record{
		Kind: domain.KindHost,
		Name: name,
		Payload: domain.Map().
			Set("host", domain.String(name)).
			Set("tags", tagList([2]string{domain.UUIDTag, carryTag}, [2]string{domain.WorkerTag, "node1"})),
	}
}

// Scenario 4 from spec.md §8: snapshot host "db" with carry-tag T; local
// host "database" carries the same tag T; ForceHostUpdate=true. Expected:
// the local host keeps its id and is updated in place, with the display
// name fields dropped from the update payload.
func TestReconcile_RenamedHost_ForceHostUpdate_UpdatesInPlaceDroppingDisplayName(t *testing.T) {
	client := &fakeClient{
		localHosts: []domain.Value{
			domain.Map().
				Set("hostid", domain.String("100")).
				Set("name", domain.String("database")).
				Set("tags", tagList([2]string{domain.UUIDTag, "tag-T"})),
		},
	}
	r := &Reconciler{
		Client:   client,
		Identity: identity.New(),
		Config:   Config{Node: "node1", ForceHostUpdate: true, NoDelete: true, WorkerConcurrency: 2},
	}

	result, err := r.Reconcile(context.Background(), []domain.Record{hostRecord("db", "tag-T")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Empty(t, result.Failed)
	require.Len(t, client.updated, 1)

	payload := client.updated[0]
	hostid, _ := payload.Get("hostid")
	id, _ := hostid.String()
	require.Equal(t, "100", id)

	_, hasHost := payload.Get("host")
	_, hasName := payload.Get("name")
	require.False(t, hasHost, "display name field must be dropped on a forced rename-update")
	require.False(t, hasName)
}

// Same scenario but ForceHostUpdate=false: the matrix says skip.
func TestReconcile_RenamedHost_WithoutForceHostUpdate_Skips(t *testing.T) {
	client := &fakeClient{
		localHosts: []domain.Value{
			domain.Map().
				Set("hostid", domain.String("100")).
				Set("name", domain.String("database")).
				Set("tags", tagList([2]string{domain.UUIDTag, "tag-T"})),
		},
	}
	r := &Reconciler{
		Client:   client,
		Identity: identity.New(),
		Config:   Config{Node: "node1", ForceHostUpdate: false, NoDelete: true, WorkerConcurrency: 2},
	}

	result, err := r.Reconcile(context.Background(), []domain.Record{hostRecord("db", "tag-T")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Empty(t, client.updated)
	require.Empty(t, client.created)
}

// Same display name, same carry-tag: update by local id regardless of
// HostUpdate/ForceHostUpdate.
func TestReconcile_SameNameSameTag_UpdatesByLocalID(t *testing.T) {
	client := &fakeClient{
		localHosts: []domain.Value{
			domain.Map().
				Set("hostid", domain.String("200")).
				Set("name", domain.String("web1")).
				Set("tags", tagList([2]string{domain.UUIDTag, "tag-W"})),
		},
	}
	r := &Reconciler{
		Client:   client,
		Identity: identity.New(),
		Config:   Config{Node: "node1", NoDelete: true, WorkerConcurrency: 1},
	}

	result, err := r.Reconcile(context.Background(), []domain.Record{hostRecord("web1", "tag-W")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)
	require.Len(t, client.updated, 1)
}

// Same display name, different carry-tag ("recreated" host locally):
// HostUpdate gates whether it updates or skips.
func TestReconcile_SameNameDifferentTag_GatedByHostUpdate(t *testing.T) {
	local := []domain.Value{
		domain.Map().
			Set("hostid", domain.String("300")).
			Set("name", domain.String("web2")).
			Set("tags", tagList([2]string{domain.UUIDTag, "tag-OLD"})),
	}

	skipClient := &fakeClient{localHosts: local}
	r := &Reconciler{Client: skipClient, Identity: identity.New(), Config: Config{Node: "node1", NoDelete: true, HostUpdate: false}}
	result, err := r.Reconcile(context.Background(), []domain.Record{hostRecord("web2", "tag-NEW")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)

	updateClient := &fakeClient{localHosts: local}
	r2 := &Reconciler{Client: updateClient, Identity: identity.New(), Config: Config{Node: "node1", NoDelete: true, HostUpdate: true}}
	result2, err := r2.Reconcile(context.Background(), []domain.Record{hostRecord("web2", "tag-NEW")})
	require.NoError(t, err)
	require.Equal(t, 1, result2.Updated)
}

// No local match at all: create.
func TestReconcile_NoLocalMatch_Creates(t *testing.T) {
	client := &fakeClient{}
	r := &Reconciler{Client: client, Identity: identity.New(), Config: Config{Node: "node1", NoDelete: true}}

	result, err := r.Reconcile(context.Background(), []domain.Record{hostRecord("new-host", "tag-X")})
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Len(t, client.created, 1)
	require.Contains(t, result.AppliedHostIDs, "new-1")
}

// A snapshot host not scoped to this worker's node tag is never touched.
func TestSelect_FiltersByWorkerTag(t *testing.T) {
	inScope := hostRecord("in-scope", "tag-A")
	outOfScope := domain.Record{
		Kind:    domain.KindHost,
		Name:    "out-of-scope",
		Payload: domain.Map().Set("tags", tagList([2]string{domain.WorkerTag, "other-node"})),
	}

	got := Select([]domain.Record{inScope, outOfScope}, "node1", false)
	require.Len(t, got, 1)
	require.Equal(t, "in-scope", got[0].Name)
}

// Replica role ignores WORKER_TAG scoping entirely.
func TestSelect_ReplicaTakesEveryHost(t *testing.T) {
	outOfScope := domain.Record{
		Kind:    domain.KindHost,
		Name:    "out-of-scope",
		Payload: domain.Map().Set("tags", tagList([2]string{domain.WorkerTag, "other-node"})),
	}

	got := Select([]domain.Record{outOfScope}, "node1", true)
	require.Len(t, got, 1)
}

// Deletion pass: a local host absent from the processed set is deleted
// unless NoDelete.
func TestReconcile_DeletesAbsentHosts_UnlessNoDelete(t *testing.T) {
	local := []domain.Value{
		domain.Map().Set("hostid", domain.String("900")).Set("name", domain.String("stale")),
	}

	client := &fakeClient{localHosts: local}
	r := &Reconciler{Client: client, Identity: identity.New(), Config: Config{Node: "node1", NoDelete: false}}
	result, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
	require.Len(t, client.deleted, 1)
	require.Equal(t, []string{"900"}, client.deleted[0])

	client2 := &fakeClient{localHosts: local}
	r2 := &Reconciler{Client: client2, Identity: identity.New(), Config: Config{Node: "node1", NoDelete: true}}
	result2, err := r2.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, result2.Deleted)
	require.Empty(t, client2.deleted)
}
