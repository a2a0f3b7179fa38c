package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindRole, roleProcessor{})
}

type roleProcessor struct{}

func (roleProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return runCommonPass(nctx, domain.KindRole, records), nil, nil
}

func (roleProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindRole, records)
	cloudStrip := nctx.Profile.CloudOverrides[domain.KindRole]

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload
		data = StripFields(data, cloudStrip)

		rules, ok := data.Get("rules")
		if ok && nctx.major() >= 6.4 {
			if ui, ok := rules.Get("ui"); ok {
				items, _ := ui.List()
				var value int
				kept := make([]domain.Value, 0, len(items))
				for _, item := range items {
					if StringField(item, "name") == "configuration.actions" {
						value = IntField(item, "status")
						continue
					}
					kept = append(kept, item)
				}
				if value != 0 {
					for _, name := range []string{
						"configuration.trigger_actions", "configuration.service_actions",
						"configuration.discovery_actions", "configuration.autoregistration_actions",
						"configuration.internal_actions",
					} {
						kept = append(kept, domain.Map().Set("name", domain.String(name)).Set("status", domain.Number(float64(value))))
					}
				}
				rules = rules.Set("ui", domain.List(kept...))
				data = data.Set("rules", rules)
			}
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}
