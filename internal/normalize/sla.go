package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindSLA, slaProcessor{})
}

// slaProcessor strips empty discard-list fields on the worker side and
// computes its own deletion sidecar for SLAs no longer present in the
// snapshot (spec.md §4.4: "sla, connector, proxygroup: worker computes
// deletion sidecars").
type slaProcessor struct{}

func (slaProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, domain.KindSLA, records), nil, nil
}

func (slaProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindSLA, records)
	out := make([]domain.Record, len(records))
	for i, r := range records {
		data := r.Payload
		for _, f := range nctx.Profile.DiscardFields[domain.KindSLA] {
			if fieldEmpty(data, f) {
				data = data.Delete(f)
			}
		}
		out[i] = domain.Record{Kind: r.Kind, Name: r.Name, Payload: data}
	}
	return out, deletionSidecarForNames(nctx, domain.KindSLA, out), nil
}
