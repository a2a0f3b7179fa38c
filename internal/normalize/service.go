package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindService, serviceProcessor{})
}

type serviceProcessor struct{}

func (serviceProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindService, records)
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := flattenRelation(r.Payload, "parents")
		data = flattenRelation(data, "children")
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}

func flattenRelation(data domain.Value, key string) domain.Value {
	rel, ok := data.Get(key)
	if !ok {
		return data
	}
	items, _ := rel.List()
	names := make([]domain.Value, 0, len(items))
	for _, item := range items {
		names = append(names, domain.String(StringField(item, "name")))
	}
	return data.Set(key, domain.List(names...))
}

// Worker splits each service record into its own import payload plus a
// serviceExtend sidecar recording the parent/child relationship — relations
// reference other services by name and can only be resolved to ids after
// every service in this run has been imported, so they apply in a second
// pass (spec §4.5 EXTEND ordering).
func (serviceProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindService, records)
	out := make([]domain.Record, 0, len(records))
	var extend []domain.Record
	for _, r := range records {
		relations := domain.Map().
			Set("parents", firstOr(r.Payload, "parents")).
			Set("children", firstOr(r.Payload, "children"))
		extend = append(extend, domain.Record{Kind: domain.KindService, Name: r.Name, Payload: relations})
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: r.Payload.Delete("parents").Delete("children")})
	}
	return out, extend, nil
}

func firstOr(v domain.Value, key string) domain.Value {
	child, ok := v.Get(key)
	if !ok {
		return domain.List()
	}
	return child
}

// ResolveServiceRelations is the second Worker pass (processingServiceExtend):
// it runs once every service in this run has a local id, translating the
// name-keyed parent/child lists from the first pass into id-keyed ones.
func ResolveServiceRelations(nctx *Context, extend []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(extend))
	for _, r := range extend {
		parents := translateServiceNames(nctx, r.Payload, "parents")
		children := translateServiceNames(nctx, r.Payload, "children")
		out = append(out, domain.Record{
			Kind: r.Kind, Name: r.Name,
			Payload: domain.Map().Set("parents", parents).Set("children", children),
		})
	}
	return out
}

func translateServiceNames(nctx *Context, data domain.Value, key string) domain.Value {
	rel, ok := data.Get(key)
	if !ok {
		return domain.List()
	}
	items, _ := rel.List()
	out := make([]domain.Value, 0, len(items))
	for _, item := range items {
		name, ok := item.String()
		if !ok {
			continue
		}
		id := nctx.Identity.ToID(domain.KindService, name)
		if id == string(domain.SentinelMissing) {
			continue
		}
		out = append(out, domain.Map().Set("serviceid", domain.String(id)))
	}
	return domain.List(out...)
}
