package kvmemory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	versions := redis.NewClient(&redis.Options{Addr: mr.Addr(), DB: 0})
	data := redis.NewClient(&redis.Options{Addr: mr.Addr(), DB: 1})
	return NewFromClients(versions, data, nil)
}

func TestKVMemory_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	meta := store.VersionMetaRow{VersionID: "v1", CreatedAt: 100, MasterRelease: "6.4"}
	records := []store.StoredRecord{
		{DataID: "hostGroup:a", Kind: "hostGroup", Name: "a", Payload: []byte(`{"name":"a"}`)},
	}

	require.NoError(t, s.PutVersion(ctx, meta))
	require.NoError(t, s.PutRecords(ctx, meta.VersionID, records))

	got, err := s.GetRecords(ctx, meta.VersionID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, records[0].Payload, got[0].Payload)

	versions, err := s.ListVersions(ctx, store.VersionFilter{})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "v1", versions[0].VersionID)
}

func TestKVMemory_GetRecordsUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	_, err := s.GetRecords(context.Background(), "missing")
	require.Error(t, err)
	var notFound *store.ErrVersionNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestKVMemory_DeleteVersionIsEager(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	meta := store.VersionMetaRow{VersionID: "v1", CreatedAt: 1, MasterRelease: "6.0"}
	require.NoError(t, s.PutVersion(ctx, meta))
	require.NoError(t, s.PutRecords(ctx, meta.VersionID, []store.StoredRecord{{DataID: "x", Payload: []byte("y")}}))

	require.NoError(t, s.DeleteVersion(ctx, meta.VersionID))

	versions, err := s.ListVersions(ctx, store.VersionFilter{})
	require.NoError(t, err)
	require.Empty(t, versions)

	_, err = s.GetRecords(ctx, meta.VersionID)
	require.Error(t, err)
}

func TestKVMemory_ListVersionsFiltersByRelease(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.PutVersion(ctx, store.VersionMetaRow{VersionID: "v1", MasterRelease: "6.0"}))
	require.NoError(t, s.PutVersion(ctx, store.VersionMetaRow{VersionID: "v2", MasterRelease: "6.4"}))

	got, err := s.ListVersions(ctx, store.VersionFilter{MasterRelease: "6.4"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "v2", got[0].VersionID)
}
