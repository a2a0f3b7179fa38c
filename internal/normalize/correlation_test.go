package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

func correlationFixture(evaltype int, groupCondValue string) domain.Value {
	return domain.Map().Set("filter", domain.Map().
		Set("evaltype", domain.Number(float64(evaltype))).
		Set("conditions", domain.List(
			domain.Map().Set("type", domain.Number(2)).Set("groupid", domain.String(groupCondValue)),
		)))
}

// On the worker side a host-group condition's value arrives as the stable
// name the snapshot stores and must resolve to this node's local id; an
// unmapped group drops the condition (and the whole record, once its
// conditions list empties).
func TestCorrelationWorker_TranslatesGroupNameToLocalID(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindHostGroup, []identity.Pair{{ID: "5", Name: "Linux servers"}})

	out, _, err := correlationProcessor{}.Worker(context.Background(), nctx, []domain.Record{
		{Kind: domain.KindCorrelation, Name: "c1", Payload: correlationFixture(0, "Linux servers")},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	filter, _ := out[0].Payload.Get("filter")
	conditions, _ := filter.Get("conditions")
	items, _ := conditions.List()
	require.Len(t, items, 1)
	id, _ := items[0].Get("groupid")
	idStr, _ := id.String()
	require.Equal(t, "5", idStr)
}

func TestCorrelationWorker_DropsRecordWhenGroupUnmapped(t *testing.T) {
	nctx := newContext(t, "6.4")

	out, _, err := correlationProcessor{}.Worker(context.Background(), nctx, []domain.Record{
		{Kind: domain.KindCorrelation, Name: "c1", Payload: correlationFixture(0, "Unmapped group")},
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

// On the master side, the same condition translates the opposite way: a
// local id resolves to the stable name the snapshot stores.
func TestCorrelationMaster_TranslatesGroupIDToName(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindHostGroup, []identity.Pair{{ID: "5", Name: "Linux servers"}})

	out, _, err := correlationProcessor{}.Master(context.Background(), nctx, []domain.Record{
		{Kind: domain.KindCorrelation, Name: "c1", Payload: correlationFixture(0, "5")},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	filter, _ := out[0].Payload.Get("filter")
	conditions, _ := filter.Get("conditions")
	items, _ := conditions.List()
	require.Len(t, items, 1)
	name, _ := items[0].Get("groupid")
	nameStr, _ := name.String()
	require.Equal(t, "Linux servers", nameStr)
}
