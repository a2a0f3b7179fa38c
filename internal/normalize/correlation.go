package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindCorrelation, correlationProcessor{})
}

type correlationProcessor struct{}

func (correlationProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformCorrelations(nctx, records, true), nil, nil
}

func (correlationProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformCorrelations(nctx, records, false), nil, nil
}

func transformCorrelations(nctx *Context, records []domain.Record, isMaster bool) []domain.Record {
	kind := domain.KindCorrelation
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		filter, ok := r.Payload.Get("filter")
		if !ok {
			out = append(out, r)
			continue
		}
		filter = filter.Delete("eval_formula")
		custom := IntField(filter, "evaltype") == 3
		if !custom {
			filter = filter.Delete("formula")
		}

		conditions, _ := filter.Get("conditions")
		items, _ := conditions.List()
		kept := make([]domain.Value, 0, len(items))
		for _, cond := range items {
			if !custom {
				cond = cond.Delete("formulaid")
			}
			if IntField(cond, "type") == 2 {
				groupID := StringField(cond, "groupid")
				resolved := nctx.Identity.ToID(domain.KindHostGroup, groupID)
				if isMaster {
					resolved = nctx.Identity.ToName(domain.KindHostGroup, groupID)
				}
				if resolved == string(domain.SentinelMissing) {
					continue
				}
				cond = cond.Set("groupid", domain.String(resolved))
			}
			kept = append(kept, cond)
		}
		if len(kept) == 0 {
			continue
		}
		filter = filter.Set("conditions", domain.List(kept...))
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: r.Payload.Set("filter", filter)})
	}
	return out
}
