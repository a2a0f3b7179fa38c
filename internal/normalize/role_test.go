package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

// At 6.4+, a role's single "configuration.actions" UI rule expands into
// the five per-event-source action rules the API split it into.
func TestRoleWorker_ExpandsActionsRuleAt6_4(t *testing.T) {
	nctx := newContext(t, "6.4")
	role := domain.Map().Set("rules", domain.Map().Set("ui", domain.List(
		domain.Map().Set("name", domain.String("configuration.actions")).Set("status", domain.Number(1)),
		domain.Map().Set("name", domain.String("configuration.hosts")).Set("status", domain.Number(1)),
	)))

	out, _, err := roleProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindRole, Name: "r1", Payload: role}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	rules, _ := out[0].Payload.Get("rules")
	ui, _ := rules.Get("ui")
	items, _ := ui.List()

	names := map[string]bool{}
	for _, item := range items {
		names[StringField(item, "name")] = true
	}
	require.False(t, names["configuration.actions"], "the old combined rule must not survive")
	require.True(t, names["configuration.trigger_actions"])
	require.True(t, names["configuration.service_actions"])
	require.True(t, names["configuration.hosts"], "unrelated rules pass through untouched")
}

// Before 6.4 the combined actions rule is left exactly as-is.
func TestRoleWorker_LeavesActionsRuleBefore6_4(t *testing.T) {
	nctx := newContext(t, "6.2")
	role := domain.Map().Set("rules", domain.Map().Set("ui", domain.List(
		domain.Map().Set("name", domain.String("configuration.actions")).Set("status", domain.Number(1)),
	)))

	out, _, err := roleProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindRole, Name: "r1", Payload: role}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	rules, _ := out[0].Payload.Get("rules")
	ui, _ := rules.Get("ui")
	items, _ := ui.List()
	require.Len(t, items, 1)
	require.Equal(t, "configuration.actions", StringField(items[0], "name"))
}
