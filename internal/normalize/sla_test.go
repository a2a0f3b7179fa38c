package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// Worker drops service_tags/schedule/excluded_downtimes only when they are
// empty, per the 6.4 profile's discard list; a populated schedule survives.
func TestSLAWorker_DropsEmptyDiscardFieldsOnly(t *testing.T) {
	nctx := newContext(t, "6.4")

	sla := domain.Map().
		Set("slaid", domain.String("1")).
		Set("service_tags", domain.List()).
		Set("excluded_downtimes", domain.List()).
		Set("schedule", domain.List(domain.Map().Set("period_from", domain.Number(0))))

	out, _, err := slaProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindSLA, Name: "sla1", Payload: sla}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	_, hasTags := out[0].Payload.Get("service_tags")
	_, hasDowntimes := out[0].Payload.Get("excluded_downtimes")
	_, hasSchedule := out[0].Payload.Get("schedule")
	require.False(t, hasTags, "empty service_tags must be dropped")
	require.False(t, hasDowntimes, "empty excluded_downtimes must be dropped")
	require.True(t, hasSchedule, "a populated schedule must survive")
}

// Master performs no field stripping at all.
func TestSLAMaster_PassesFieldsThroughUnstripped(t *testing.T) {
	nctx := newContext(t, "6.4")
	sla := domain.Map().Set("slaid", domain.String("1")).Set("service_tags", domain.List())

	out, _, err := slaProcessor{}.Master(context.Background(), nctx, []domain.Record{{Kind: domain.KindSLA, Name: "sla1", Payload: sla}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, has := out[0].Payload.Get("service_tags")
	require.True(t, has)
}

// Worker computes its own deletion sidecar for an SLA no longer present in
// the snapshot, diffing against the full local set (spec.md §4.4).
func TestSLAWorker_BuildsDeletionSidecarForAbsentSLAs(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindSLA, []identity.Pair{
		{ID: "1", Name: "gold-tier"},
		{ID: "2", Name: "retired-tier"},
	})

	sla := domain.Map().Set("slaid", domain.String("1")).Set("name", domain.String("gold-tier"))
	_, extend, err := slaProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindSLA, Name: "gold-tier", Payload: sla}})
	require.NoError(t, err)
	require.Len(t, extend, 1)

	ids := DeletionIDs(extend[0].Payload)
	require.ElementsMatch(t, []string{"2"}, ids)
}
