package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindDiscoveryRule, druleProcessor{})
}

// dcheck type buckets the per-check field stripping keys off.
var (
	dcheckAgentTypes  = map[int]bool{9: true, 10: true, 11: true, 13: true}
	dcheckSNMPv12     = map[int]bool{10: true, 11: true}
	dcheckSNMPv3      = map[int]bool{13: true}
	dcheckICMP        = map[int]bool{12: true}
	dcheckSNMPv3Field = []string{
		"snmpv3_authpassphrase", "snmpv3_authprotocol", "snmpv3_contextname",
		"snmpv3_privpassphrase", "snmpv3_privprotocol", "snmpv3_securitylevel",
		"snmpv3_securityname",
	}
)

type druleProcessor struct{}

func (druleProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformDrules(nctx, records, true)
}

func (druleProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformDrules(nctx, records, false)
}

func transformDrules(nctx *Context, records []domain.Record, isMaster bool) ([]domain.Record, []domain.Record, error) {
	kind := domain.KindDiscoveryRule
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload

		idField := "proxy_hostid"
		if nctx.major() >= 7.0 {
			idField = "proxyid"
		}
		raw := StringField(data, idField)
		resolved := nctx.Identity.ToID(domain.KindProxy, raw)
		if isMaster {
			resolved = nctx.Identity.ToName(domain.KindProxy, raw)
		}
		if resolved == string(domain.SentinelMissing) {
			// no corresponding proxy on this node: skip the rule entirely
			continue
		}
		data = data.Set(idField, domain.String(resolved))

		if !isMaster {
			data = data.Delete("error")
			checks, _ := data.Get("dchecks")
			items, _ := checks.List()
			newChecks := make([]domain.Value, 0, len(items))
			for _, check := range items {
				dType := IntField(check, "type")
				check = StripFields(check, []string{"dcheckid", "druleid"})
				for _, f := range []string{"port", "host_source", "name_source"} {
					if IntField(check, f) == 0 {
						check = check.Delete(f)
					}
				}
				if !dcheckAgentTypes[dType] {
					check = check.Delete("key_")
				}
				if !dcheckSNMPv12[dType] {
					check = check.Delete("snmp_community")
				}
				if !dcheckSNMPv3[dType] {
					check = StripFields(check, dcheckSNMPv3Field)
				}
				if !dcheckICMP[dType] {
					check = check.Delete("allow_redirect")
				}
				newChecks = append(newChecks, check)
			}
			data = data.Set("dchecks", domain.List(newChecks...))
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}
