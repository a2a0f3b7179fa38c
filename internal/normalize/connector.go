package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindConnector, connectorProcessor{})
}

// connectorProcessor carries connectors (outbound webhook-style data
// forwarding, added alongside sla/service) through the common pass
// unchanged; a connector's operations filter on item tags, not cross-node
// ids, so there is nothing else to translate. Its only other job is
// producing a deletion sidecar for connectors a worker no longer owns,
// the same contract sla and proxyGroup share (spec.md §4.4: "sla,
// connector, proxygroup: worker computes deletion sidecars").
type connectorProcessor struct{}

func (connectorProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, domain.KindConnector, records), nil, nil
}

func (connectorProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindConnector, records)
	return records, deletionSidecarForNames(nctx, domain.KindConnector, records), nil
}
