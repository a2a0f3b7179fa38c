package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

// genericProcessor is used for kinds with no kind-specific transform
// (hostGroup, templateGroup, template, valueMap, userMacroGlobal,
// mediaType once past 4.4, trigger): the common rename/discard pass is
// the whole story.
type genericProcessor struct{}

func (genericProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, kindOf(records), records), nil, nil
}

func (genericProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, kindOf(records), records), nil, nil
}

func kindOf(records []domain.Record) domain.Kind {
	if len(records) == 0 {
		return ""
	}
	return records[0].Kind
}
