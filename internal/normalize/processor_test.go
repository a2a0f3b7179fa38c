package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

func TestFor_ReturnsRegisteredProcessorForKnownKind(t *testing.T) {
	require.IsType(t, actionProcessor{}, For(domain.KindAction))
	require.IsType(t, proxyProcessor{}, For(domain.KindProxy))
	require.IsType(t, userProcessor{}, For(domain.KindUser))
}

func TestFor_FallsBackToGenericForUnregisteredKind(t *testing.T) {
	require.IsType(t, genericProcessor{}, For(domain.Kind("no-such-kind")))
}

func TestContext_MajorParsesProfileRelease(t *testing.T) {
	nctx := newContext(t, "6.4")
	require.Equal(t, 6.4, nctx.major())
}
