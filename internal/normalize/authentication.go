package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindAuthentication, authenticationProcessor{})
}

// authentication is a singleton kind (domain.IsSingleton): each Record's
// Name denotes a property key within the single settings object rather
// than an entity, so only two properties ever need id translation.
type authenticationProcessor struct{}

func (authenticationProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformAuthentication(nctx, records, true), nil, nil
}

func (authenticationProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformAuthentication(nctx, records, false), nil, nil
}

func transformAuthentication(nctx *Context, records []domain.Record, isMaster bool) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		data := r.Payload
		switch r.Name {
		case "disabled_usrgrpid":
			id := StringField(data, "disabled_usrgrpid")
			if isMaster {
				data = data.Set("disabled_usrgrpid", domain.String(nctx.Identity.ToName(domain.KindUserGroup, id)))
			} else {
				data = data.Set("disabled_usrgrpid", domain.String(nctx.Identity.ToID(domain.KindUserGroup, id)))
			}
		case "mfaid":
			id := StringField(data, "mfaid")
			if isMaster {
				data = data.Set("mfaid", domain.String(nctx.Identity.ToName(domain.KindMFA, id)))
			} else {
				data = data.Set("mfaid", domain.String(nctx.Identity.ToID(domain.KindMFA, id)))
			}
		}
		out[i] = domain.Record{Kind: r.Kind, Name: r.Name, Payload: data}
	}
	return out
}
