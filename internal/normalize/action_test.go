package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
	"github.com/monctl/monctl/internal/profile"
)

func newContext(t *testing.T, release string) *Context {
	t.Helper()
	p, err := profile.Build(release)
	require.NoError(t, err)
	idmap := identity.New()
	for kind, spec := range p.Methods {
		idmap.RegisterIDField(spec.IDField, kind)
	}
	return &Context{Profile: p, Identity: idmap}
}

// Trigger-direct conditions (conditiontype 2) have no cross-node identity
// and must be dropped entirely, while hostGroup/host/template conditions
// (0/1/13) are translated via the identity map (spec.md §4.4 action
// contract). On the worker side a condition's value arrives as the stable
// name stored in the snapshot and must resolve to this node's local id.
func TestActionWorker_DropsTriggerConditionsTranslatesOthers(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindHostGroup, []identity.Pair{{ID: "5", Name: "Linux servers"}})

	action := domain.Map().
		Set("status", domain.Number(0)).
		Set("eventsource", domain.Number(0)).
		Set("filter", domain.Map().
			Set("evaltype", domain.Number(0)).
			Set("conditions", domain.List(
				domain.Map().Set("conditiontype", domain.Number(0)).Set("value", domain.String("Linux servers")),
				domain.Map().Set("conditiontype", domain.Number(2)).Set("value", domain.String("100")),
			)))

	out, extend, err := actionProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindAction, Name: "my action", Payload: action}})
	require.NoError(t, err)
	require.Empty(t, extend)
	require.Len(t, out, 1)

	filter, _ := out[0].Payload.Get("filter")
	conditions, _ := filter.Get("conditions")
	items, _ := conditions.List()
	require.Len(t, items, 1, "the conditiontype=2 condition must be dropped")

	value, _ := items[0].Get("value")
	id, _ := value.String()
	require.Equal(t, "5", id)
}

// On the master side, the same condition translates the opposite way:
// a local id resolves to the stable name the snapshot stores.
func TestActionMaster_TranslatesConditionIDsToNames(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindHostGroup, []identity.Pair{{ID: "5", Name: "Linux servers"}})

	action := domain.Map().
		Set("status", domain.Number(0)).
		Set("eventsource", domain.Number(0)).
		Set("filter", domain.Map().
			Set("evaltype", domain.Number(0)).
			Set("conditions", domain.List(
				domain.Map().Set("conditiontype", domain.Number(0)).Set("value", domain.String("5")),
			)))

	out, _, err := actionProcessor{}.Master(context.Background(), nctx, []domain.Record{{Kind: domain.KindAction, Name: "my action", Payload: action}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	filter, _ := out[0].Payload.Get("filter")
	conditions, _ := filter.Get("conditions")
	items, _ := conditions.List()
	require.Len(t, items, 1)
	value, _ := items[0].Get("value")
	name, _ := value.String()
	require.Equal(t, "Linux servers", name)
}

// A disabled action (status=1) is not worth carrying across.
func TestActionWorker_DropsDisabledActions(t *testing.T) {
	nctx := newContext(t, "6.4")
	action := domain.Map().Set("status", domain.Number(1))

	out, _, err := actionProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindAction, Name: "disabled", Payload: action}})
	require.NoError(t, err)
	require.Empty(t, out)
}

// Releases at or after 6.0 rename the acknowledge-operations bucket to
// update-operations (spec.md §4.4 action contract).
func TestActionWorker_RenamesAcknowledgeOperationsAt6_0(t *testing.T) {
	nctx := newContext(t, "6.0")
	action := domain.Map().
		Set("status", domain.Number(0)).
		Set("eventsource", domain.Number(0)).
		Set("acknowledgeOperations", domain.List(domain.Map().Set("operationtype", domain.Number(0))))

	out, _, err := actionProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindAction, Name: "a", Payload: action}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	_, hasOld := out[0].Payload.Get("acknowledgeOperations")
	_, hasNew := out[0].Payload.Get("updateOperations")
	require.False(t, hasOld)
	require.True(t, hasNew)
}

func TestActionWorker_PreservesAcknowledgeOperationsBefore6_0(t *testing.T) {
	nctx := newContext(t, "5.4")
	action := domain.Map().
		Set("status", domain.Number(0)).
		Set("eventsource", domain.Number(0)).
		Set("acknowledgeOperations", domain.List(domain.Map().Set("operationtype", domain.Number(0))))

	out, _, err := actionProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindAction, Name: "a", Payload: action}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, hasOld := out[0].Payload.Get("acknowledgeOperations")
	require.True(t, hasOld)
}
