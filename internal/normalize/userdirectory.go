package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindUserDirectory, userDirectoryProcessor{})
}

type userDirectoryProcessor struct{}

func (userDirectoryProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformUserDirectories(nctx, records, true), nil, nil
}

func (userDirectoryProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformUserDirectories(nctx, records, false), nil, nil
}

func transformUserDirectories(nctx *Context, records []domain.Record, isMaster bool) []domain.Record {
	kind := domain.KindUserDirectory
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload

		if media, ok := data.Get("provision_media"); ok {
			items, _ := media.List()
			kept := make([]domain.Value, 0, len(items))
			for _, m := range items {
				m = m.Delete("userdirectory_mediaid")
				id := StringField(m, "mediatypeid")
				var translated string
				if isMaster {
					translated = nctx.Identity.ToName(domain.KindMediaType, id)
				} else {
					translated = nctx.Identity.ToID(domain.KindMediaType, id)
				}
				if translated == string(domain.SentinelMissing) {
					continue
				}
				kept = append(kept, m.Set("mediatypeid", domain.String(translated)))
			}
			if len(kept) > 0 {
				data = data.Set("provision_media", domain.List(kept...))
			} else {
				data = data.Delete("provision_media")
			}
		}

		if groups, ok := data.Get("provision_groups"); ok {
			items, _ := groups.List()
			kept := make([]domain.Value, 0, len(items))
			for _, pg := range items {
				roleID := StringField(pg, "roleid")
				if isMaster {
					pg = pg.Set("roleid", domain.String(nctx.Identity.ToName(domain.KindRole, roleID)))
				} else {
					pg = pg.Set("roleid", domain.String(nctx.Identity.ToID(domain.KindRole, roleID)))
				}

				ugs, _ := pg.Get("user_group")
				ugItems, _ := ugs.List()
				keptGroups := make([]domain.Value, 0, len(ugItems))
				for _, ug := range ugItems {
					id := StringField(ug, "usrgrpid")
					var translated string
					if isMaster {
						translated = nctx.Identity.ToName(domain.KindUserGroup, id)
					} else {
						translated = nctx.Identity.ToID(domain.KindUserGroup, id)
					}
					if translated == string(domain.SentinelMissing) {
						continue
					}
					keptGroups = append(keptGroups, ug.Set("usrgrpid", domain.String(translated)))
				}
				if len(keptGroups) == 0 {
					continue
				}
				pg = pg.Set("user_group", domain.List(keptGroups...))
				kept = append(kept, pg)
			}
			if len(kept) > 0 {
				data = data.Set("provision_groups", domain.List(kept...))
			} else {
				data = data.Delete("provision_groups")
			}
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out
}
