package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// Worker passes connectors through unchanged, since nothing about them is
// cross-node identity, and computes its own deletion sidecar for a
// connector no longer present in the snapshot.
func TestConnectorWorker_BuildsDeletionSidecarForAbsentConnectors(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindConnector, []identity.Pair{
		{ID: "1", Name: "siem-forwarder"},
		{ID: "2", Name: "stale-webhook"},
	})

	connector := domain.Map().Set("connectorid", domain.String("1")).Set("name", domain.String("siem-forwarder"))
	out, extend, err := connectorProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindConnector, Name: "siem-forwarder", Payload: connector}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, extend, 1)

	ids := DeletionIDs(extend[0].Payload)
	require.ElementsMatch(t, []string{"2"}, ids, "the connector absent from the snapshot must be queued for deletion")
}

func TestConnectorWorker_NoSidecarWhenEverythingStillPresent(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindConnector, []identity.Pair{{ID: "1", Name: "siem-forwarder"}})

	connector := domain.Map().Set("connectorid", domain.String("1")).Set("name", domain.String("siem-forwarder"))
	_, extend, err := connectorProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindConnector, Name: "siem-forwarder", Payload: connector}})
	require.NoError(t, err)
	require.Empty(t, extend)
}
