package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

func TestSplitDeletions_SeparatesSidecarsFromOrdinaryRecords(t *testing.T) {
	sidecar := domain.Record{Kind: domain.KindProxy, Name: "proxyExtend", Payload: domain.Map().Set("delete", domain.List(domain.String("5")))}
	ordinary := domain.Record{Kind: domain.KindService, Name: "checkout", Payload: domain.Map().Set("parents", domain.List())}

	deletions, others := SplitDeletions([]domain.Record{sidecar, ordinary})
	require.Len(t, deletions, 1)
	require.Len(t, others, 1)
	require.Equal(t, "proxyExtend", deletions[0].Name)
	require.Equal(t, "checkout", others[0].Name)
}

func TestDeletionIDs_ExtractsStringIDs(t *testing.T) {
	payload := domain.Map().Set("delete", domain.List(domain.String("5"), domain.String("9")))
	require.Equal(t, []string{"5", "9"}, DeletionIDs(payload))

	require.Empty(t, DeletionIDs(domain.Map()))
}
