package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindScript, scriptProcessor{})
}

type scriptProcessor struct{}

func (scriptProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformScripts(nctx, records, true), nil, nil
}

func (scriptProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformScripts(nctx, records, false), nil, nil
}

func transformScripts(nctx *Context, records []domain.Record, isMaster bool) []domain.Record {
	kind := domain.KindScript
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload
		data = translateIDField(nctx, data, "usrgrpid", isMaster)
		data = translateIDField(nctx, data, "groupid", isMaster)

		if !isMaster {
			scriptType := IntField(data, "type")
			scope := IntField(data, "scope")

			if nctx.major() >= 5.4 {
				if scriptType != 0 {
					data = data.Delete("execute_on")
				}
				if scriptType != 2 {
					data = StripFields(data, []string{"authtype", "publickey", "privatekey"})
					if scriptType != 3 {
						data = StripFields(data, []string{"username", "password", "port"})
					}
				} else if IntField(data, "authtype") == 0 {
					data = StripFields(data, []string{"publickey", "privatekey"})
				} else {
					data = data.Delete("password")
				}
				if scriptType != 5 {
					data = StripFields(data, []string{"timeout", "parameters"})
				}
				if scope != 2 && scope != 4 {
					data = StripFields(data, []string{"menu_path", "usrgrpid", "host_access", "confirmation"})
				}
			}
			if nctx.major() >= 6.4 && scriptType != 6 {
				data = StripFields(data, []string{"url", "new_window"})
			}
			if nctx.major() >= 7.0 {
				manual := scope == 2 || scope == 4
				if !manual || IntField(data, "manualinput") == 0 {
					data = StripFields(data, []string{
						"manualinput", "manualinput_prompt", "manualinput_validator",
						"manualinput_validator_type", "manualinput_default_value",
					})
				} else if IntField(data, "manualinput_validator_type") == 1 {
					data = data.Delete("manualinput_default_value")
				}
			}
		}
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out
}
