package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindUserGroup, userGroupProcessor{})
}

type userGroupProcessor struct{}

func (userGroupProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformUserGroups(nctx, records, true), nil, nil
}

func (userGroupProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformUserGroups(nctx, records, false), nil, nil
}

func transformUserGroups(nctx *Context, records []domain.Record, isMaster bool) []domain.Record {
	kind := domain.KindUserGroup
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload

		if filters, ok := data.Get("tag_filters"); ok {
			items, _ := filters.List()
			kept := make([]domain.Value, 0, len(items))
			for _, tag := range items {
				groupID := StringField(tag, "groupid")
				translated := groupID
				if isMaster {
					translated = nctx.Identity.ToName(domain.KindHostGroup, groupID)
				} else {
					translated = nctx.Identity.ToID(domain.KindHostGroup, groupID)
				}
				kept = append(kept, tag.Set("groupid", domain.String(translated)))
			}
			data = data.Set("tag_filters", domain.List(kept...))
		}

		rightsKeys := []string{"rights"}
		if nctx.major() >= 6.2 {
			rightsKeys = []string{"hostgroup_rights", "templategroup_rights"}
		}
		for _, rKey := range rightsKeys {
			rights, ok := data.Get(rKey)
			if !ok {
				continue
			}
			targetKind := domain.KindHostGroup
			if rKey == "templategroup_rights" {
				targetKind = domain.KindTemplateGroup
			}
			items, _ := rights.List()
			kept := make([]domain.Value, 0, len(items))
			for _, right := range items {
				id := StringField(right, "id")
				var translated string
				if isMaster {
					translated = nctx.Identity.ToName(targetKind, id)
				} else {
					translated = nctx.Identity.ToID(targetKind, id)
				}
				if translated == string(domain.SentinelMissing) {
					continue
				}
				kept = append(kept, domain.Map().Set("id", domain.String(translated)).Set("permission", mustGet(right, "permission")))
			}
			data = data.Set(rKey, domain.List(kept...))
		}

		if !isMaster {
			if nctx.major() >= 6.2 {
				if IntField(data, "userdirectoryid") == 0 {
					data = data.Delete("userdirectoryid")
				}
				if guiAccess := IntField(data, "gui_access"); guiAccess == 1 || guiAccess == 3 {
					data = data.Delete("userdirectoryid")
				}
			}
			if nctx.major() >= 7.0 {
				if mfa, ok := data.Get("mfa_status"); !ok || mfa.IsEmptyOrZero() {
					data = StripFields(data, []string{"mfa_status", "mfaid"})
				}
			}
			data = StripFields(data, []string{"users", "userids"})
			if tf, ok := data.Get("tag_filters"); ok && tf.IsEmptyOrZero() {
				data = data.Delete("tag_filters")
			}
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out
}

func mustGet(v domain.Value, key string) domain.Value {
	child, _ := v.Get(key)
	return child
}
