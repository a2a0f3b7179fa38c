package normalize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// An expired one-off timeperiod is dropped; if that empties the
// timeperiods list entirely the whole maintenance window is dropped.
func TestMaintenanceWorker_DropsExpiredOneOffWindow(t *testing.T) {
	nctx := newContext(t, "6.4")
	past := time.Now().Add(-48 * time.Hour).Unix()

	maint := domain.Map().
		Set("active_till", domain.Number(float64(time.Now().Add(24*time.Hour).Unix()))).
		Set("timeperiods", domain.List(
			domain.Map().Set("timeperiod_type", domain.Number(0)).Set("start_date", domain.Number(float64(past))).Set("period", domain.Number(60)),
		)).
		Set("hostgroups", domain.List(domain.String("Linux servers")))

	out, _, err := maintenanceProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMaintenance, Name: "expired", Payload: maint}})
	require.NoError(t, err)
	require.Empty(t, out)
}

// A maintenance window past its active_till is dropped outright.
func TestMaintenanceWorker_DropsExpiredActiveTill(t *testing.T) {
	nctx := newContext(t, "6.4")
	maint := domain.Map().
		Set("active_till", domain.Number(float64(time.Now().Add(-time.Hour).Unix()))).
		Set("timeperiods", domain.List(domain.Map().Set("timeperiod_type", domain.Number(2)))).
		Set("hostgroups", domain.List(domain.String("Linux servers")))

	out, _, err := maintenanceProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMaintenance, Name: "expired-till", Payload: maint}})
	require.NoError(t, err)
	require.Empty(t, out)
}

// On a worker, hostgroups/hosts names translate to local {id:x} objects;
// a window resolving to zero groups and zero hosts is dropped since it
// would otherwise apply to nothing.
func TestMaintenanceWorker_TranslatesNamesToIDs_DropsWhenBothEmpty(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindHostGroup, []identity.Pair{{ID: "9", Name: "Linux servers"}})

	future := time.Now().Add(24 * time.Hour).Unix()
	maint := domain.Map().
		Set("active_till", domain.Number(float64(future))).
		Set("timeperiods", domain.List(domain.Map().Set("timeperiod_type", domain.Number(2)))).
		Set("hostgroups", domain.List(domain.String("Linux servers"))).
		Set("hosts", domain.List())

	out, _, err := maintenanceProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMaintenance, Name: "known-group", Payload: maint}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	groups, _ := out[0].Payload.Get("hostgroups")
	items, _ := groups.List()
	require.Len(t, items, 1)
	id, _ := items[0].Get("id")
	idStr, _ := id.String()
	require.Equal(t, "9", idStr)

	unknown := maint.Set("hostgroups", domain.List(domain.String("Unmapped group")))
	out2, _, err := maintenanceProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMaintenance, Name: "unknown-group", Payload: unknown}})
	require.NoError(t, err)
	require.Empty(t, out2, "a window resolving to no known groups and no hosts is dropped")
}
