package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindProxyGroup, proxyGroupProcessor{})
}

// proxyGroupProcessor carries proxy groups unchanged; its only other job is
// producing a deletion sidecar for groups a worker no longer owns, diffing
// this run's names against the identity map's full local set (spec §4.4
// proxyGroup contract: "deletion only").
type proxyGroupProcessor struct{}

func (proxyGroupProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, domain.KindProxyGroup, records), nil, nil
}

func (proxyGroupProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindProxyGroup, records)
	return records, deletionSidecarForNames(nctx, domain.KindProxyGroup, records), nil
}

// DeletionSidecar builds the "<kind>Extend" record (e.g. proxyGroupExtend)
// for local entries of kind no longer named in currentNames, mirroring
// proxy.go's pattern.
func DeletionSidecar(kind domain.Kind, localIDsByName map[string]string, currentNames map[string]bool) []domain.Record {
	var deleted []domain.Value
	for name, id := range localIDsByName {
		if !currentNames[name] {
			deleted = append(deleted, domain.String(id))
		}
	}
	if len(deleted) == 0 {
		return nil
	}
	return []domain.Record{{
		Kind: kind, Name: string(kind) + "Extend",
		Payload: domain.Map().Set("delete", domain.List(deleted...)),
	}}
}
