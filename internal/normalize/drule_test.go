package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// A discovery rule with no proxy assigned (proxy_hostid/proxyid == "0",
// the server-direct sentinel) passes through untouched; one naming a
// proxy this node has no mapping for is dropped entirely.
func TestDruleWorker_DropsRuleWithUnmappedProxy(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.Identity.Load(domain.KindProxy, []identity.Pair{{ID: "local-1", Name: "proxy1"}})

	direct := domain.Map().Set("proxy_hostid", domain.String("0")).Set("dchecks", domain.List())
	unmapped := domain.Map().Set("proxy_hostid", domain.String("unknown-proxy")).Set("dchecks", domain.List())

	out, _, err := druleProcessor{}.Worker(context.Background(), nctx, []domain.Record{
		{Kind: domain.KindDiscoveryRule, Name: "direct", Payload: direct},
		{Kind: domain.KindDiscoveryRule, Name: "unmapped", Payload: unmapped},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "direct", out[0].Name)
}

// At 7.0 the proxy id field renames from proxy_hostid to proxyid, and
// SNMPv3-only fields are stripped from non-SNMPv3 checks.
func TestDruleWorker_UsesProxyIdFieldAt7_0_StripsSNMPv3Fields(t *testing.T) {
	nctx := newContext(t, "7.0")
	nctx.Identity.Load(domain.KindProxy, []identity.Pair{{ID: "local-1", Name: "proxy1"}})

	rule := domain.Map().
		Set("proxyid", domain.String("proxy1")).
		Set("dchecks", domain.List(
			domain.Map().Set("type", domain.Number(1)).Set("snmpv3_securityname", domain.String("leftover")),
		))

	out, _, err := druleProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindDiscoveryRule, Name: "r1", Payload: rule}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	proxyID, _ := out[0].Payload.Get("proxyid")
	idStr, _ := proxyID.String()
	require.Equal(t, "local-1", idStr)

	checks, _ := out[0].Payload.Get("dchecks")
	items, _ := checks.List()
	require.Len(t, items, 1)
	_, hasSecurityName := items[0].Get("snmpv3_securityname")
	require.False(t, hasSecurityName)
}
