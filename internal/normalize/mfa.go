package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindMFA, mfaProcessor{})
}

// MFA method types, as the API encodes them.
const (
	mfaTypeTOTP = 1
	mfaTypeDuo  = 2
)

type mfaProcessor struct{}

func (mfaProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, domain.KindMFA, records), nil, nil
}

func (mfaProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindMFA, records)
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload
		switch IntField(data, "type") {
		case mfaTypeTOTP:
			data = StripFields(data, []string{"api_hostname", "clientid", "client_secret"})
		case mfaTypeDuo:
			data = StripFields(data, []string{"hash_function", "code_length"})
			secret, ok := nctx.MFAClientSecret[r.Name]
			if !ok {
				continue
			}
			data = data.Set("client_secret", domain.String(secret))
		default:
			continue
		}
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}
