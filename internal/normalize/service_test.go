package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// Worker strips parent/child relations from the main record and returns
// them as a separate serviceExtend sidecar (spec.md §4.5 EXTEND ordering).
func TestServiceWorker_SplitsRelationsIntoSidecar(t *testing.T) {
	nctx := newContext(t, "6.4")
	svc := domain.Map().
		Set("name", domain.String("checkout")).
		Set("parents", domain.List(domain.String("platform"))).
		Set("children", domain.List(domain.String("api")))

	out, extend, err := serviceProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindService, Name: "checkout", Payload: svc}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, hasParents := out[0].Payload.Get("parents")
	require.False(t, hasParents)

	require.Len(t, extend, 1)
	parents, _ := extend[0].Payload.Get("parents")
	items, _ := parents.List()
	require.Len(t, items, 1)
}

// ResolveServiceRelations translates the sidecar's name-keyed relations
// into local ids, dropping any name with no local service.
func TestResolveServiceRelations_TranslatesNamesDropsUnmapped(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindService, []identity.Pair{{ID: "9", Name: "platform"}})

	extend := []domain.Record{{
		Kind: domain.KindService, Name: "checkout",
		Payload: domain.Map().
			Set("parents", domain.List(domain.String("platform"))).
			Set("children", domain.List(domain.String("unmapped-child"))),
	}}

	resolved := ResolveServiceRelations(nctx, extend)
	require.Len(t, resolved, 1)

	parents, _ := resolved[0].Payload.Get("parents")
	pItems, _ := parents.List()
	require.Len(t, pItems, 1)
	id, _ := pItems[0].Get("serviceid")
	idStr, _ := id.String()
	require.Equal(t, "9", idStr)

	children, _ := resolved[0].Payload.Get("children")
	cItems, _ := children.List()
	require.Empty(t, cItems)
}
