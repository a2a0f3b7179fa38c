package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

// A Duo method with no configured client secret is skipped, since the API
// never returns one and creating it without one would be broken.
func TestMFAWorker_SkipsDuoWithoutConfiguredSecret(t *testing.T) {
	nctx := newContext(t, "6.4")
	duo := domain.Map().Set("type", domain.Number(mfaTypeDuo))

	out, _, err := mfaProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMFA, Name: "duo-prod", Payload: duo}})
	require.NoError(t, err)
	require.Empty(t, out)
}

// With a configured secret, the Duo method passes through with its
// client_secret filled in.
func TestMFAWorker_AppliesConfiguredDuoSecret(t *testing.T) {
	nctx := newContext(t, "6.4")
	nctx.MFAClientSecret = map[string]string{"duo-prod": "super-secret"}
	duo := domain.Map().Set("type", domain.Number(mfaTypeDuo))

	out, _, err := mfaProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMFA, Name: "duo-prod", Payload: duo}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	secret, _ := out[0].Payload.Get("client_secret")
	s, _ := secret.String()
	require.Equal(t, "super-secret", s)
}

// A TOTP method strips its Duo-only fields and passes through unconditionally.
func TestMFAWorker_TOTPPassesThroughStrippingDuoFields(t *testing.T) {
	nctx := newContext(t, "6.4")
	totp := domain.Map().Set("type", domain.Number(mfaTypeTOTP)).Set("clientid", domain.String("x"))

	out, _, err := mfaProcessor{}.Worker(context.Background(), nctx, []domain.Record{{Kind: domain.KindMFA, Name: "totp", Payload: totp}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, has := out[0].Payload.Get("clientid")
	require.False(t, has)
}
