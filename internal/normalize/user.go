package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindUser, userProcessor{})
}

// zabbixSuperRole/zabbixSuperUser identify the built-in Super Admin role
// and Admin account, which workers never touch (spec §4.4 user contract).
const (
	zabbixSuperRole = "3"
	zabbixSuperUser = "Admin"
)

type userProcessor struct{}

func (userProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindUser, records)
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload
		data = translateMediaTypes(nctx, data)
		if nctx.major() >= 5.2 {
			roleID := StringField(data, "roleid")
			data = data.Set("roleid", domain.String(nctx.Identity.ToName(domain.KindRole, roleID)))
		}
		if groups, ok := data.Get("usrgrps"); ok {
			items, _ := groups.List()
			names := make([]domain.Value, 0, len(items))
			for _, g := range items {
				if name := StringField(g, "name"); name != "" {
					names = append(names, domain.String(name))
				}
			}
			data = data.Set("usrgrps", domain.List(names...))
		}
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}

func (userProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindUser, records)
	out := make([]domain.Record, 0, len(records))
	present := map[string]bool{}

	for _, r := range records {
		data := r.Payload

		if r.Name == zabbixSuperUser {
			continue
		}

		if IntField(data, "userdirectoryid") != 0 {
			// provisioned by an external authentication service
			continue
		}

		roleID := StringField(data, "roleid")
		if roleID == "" {
			roleID = "0"
		}
		localRoleID := nctx.Identity.ToID(domain.KindRole, roleID)
		if !nctx.CloningSuperAdmin && roleID == zabbixSuperRole {
			continue
		}
		data = data.Set("roleid", domain.String(localRoleID))

		password, allowed := nctx.EnableUser[r.Name]
		if !allowed {
			continue
		}
		if _, exists := data.Get("userid"); !exists {
			data = data.Set("passwd", domain.String(password))
		}

		if groups, ok := data.Get("usrgrps"); ok {
			items, _ := groups.List()
			ids := make([]domain.Value, 0, len(items))
			for _, g := range items {
				name, ok := g.String()
				if !ok {
					continue
				}
				id := nctx.Identity.ToID(domain.KindUserGroup, name)
				ids = append(ids, domain.Map().Set("usrgrpid", domain.String(id)))
			}
			data = data.Set("usrgrps", domain.List(ids...))
		}

		data = StripFields(data, []string{"userdirectoryid", "users_status", "gui_access", "debug_mode"})

		if medias, ok := data.Get("medias"); ok {
			items, _ := medias.List()
			kept := make([]domain.Value, 0, len(items))
			for _, m := range items {
				if IntField(m, "userdirectory_mediaid") != 0 {
					continue
				}
				name := StringField(m, "mediatypeid")
				localID := nctx.Identity.ToID(domain.KindMediaType, name)
				if localID == string(domain.SentinelMissing) {
					continue
				}
				m = m.Set("mediatypeid", domain.String(localID))
				m = StripFields(m, []string{"mediaid", "userid", "userdirectory_mediaid"})
				kept = append(kept, m)
			}
			data = data.Delete("medias")
			if len(kept) > 0 {
				data = data.Set("medias", domain.List(kept...))
			}
		}

		present[r.Name] = true
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}

	return out, userDeletionSidecar(nctx, present), nil
}

// userDeletionSidecar adapts the identity map's local user set to
// UserDeletionSidecar's shape and diffs it against presentNames (spec.md
// §4.4: "user ... worker computes deletion sidecars").
func userDeletionSidecar(nctx *Context, presentNames map[string]bool) []domain.Record {
	local := make(map[string]struct{ ID, Name string })
	for _, p := range nctx.Identity.PairsForKind(domain.KindUser) {
		local[p.Name] = struct{ ID, Name string }{ID: p.ID, Name: p.Name}
	}
	return UserDeletionSidecar(local, presentNames)
}

func translateMediaTypes(nctx *Context, data domain.Value) domain.Value {
	medias, ok := data.Get("medias")
	if !ok {
		return data
	}
	items, _ := medias.List()
	kept := make([]domain.Value, 0, len(items))
	for _, m := range items {
		id := StringField(m, "mediatypeid")
		name := nctx.Identity.ToName(domain.KindMediaType, id)
		if name == string(domain.SentinelMissing) {
			continue
		}
		kept = append(kept, m.Set("mediatypeid", domain.String(name)))
	}
	return data.Set("medias", domain.List(kept...))
}

// UserDeletionSidecar builds the userExtend record for local users the
// current run no longer names, skipping the built-in Admin account.
func UserDeletionSidecar(localUsers map[string]struct{ ID, Name string }, presentNames map[string]bool) []domain.Record {
	var deleted []domain.Value
	for key, u := range localUsers {
		if u.Name == zabbixSuperUser {
			continue
		}
		if !presentNames[key] {
			deleted = append(deleted, domain.String(u.ID))
		}
	}
	if len(deleted) == 0 {
		return nil
	}
	return []domain.Record{{
		Kind: domain.KindUser, Name: "userExtend",
		Payload: domain.Map().Set("delete", domain.List(deleted...)),
	}}
}
