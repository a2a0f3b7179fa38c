package normalize

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindProxy, proxyProcessor{})
}

// monitorTag is the description-field marker that assigns a proxy to a
// specific worker node: "ZC_WORKER:<node>;" somewhere in its description
// (spec §3, domain.WorkerMarkerPrefix).
const monitorTag = domain.WorkerMarkerPrefix

var tagPattern = regexp.MustCompile(monitorTag + `:[0-9a-zA-Z\-_.]*;?`)

type proxyProcessor struct{}

func (proxyProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindProxy, records)
	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload
		if nctx.major() >= 7.0 {
			data = translateIDField(nctx, data, "proxy_groupid", true)
		}
		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}

func (proxyProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	records = runCommonPass(nctx, domain.KindProxy, records)

	out := make([]domain.Record, 0, len(records))
	var deleted []string
	for _, r := range records {
		data := r.Payload

		if nctx.major() >= 7.0 {
			data = translateIDField(nctx, data, "proxy_groupid", false)
			for _, f := range []string{"timeout_zabbix_agent", "timeout_simple_check", "timeout_snmp_agent",
				"timeout_external_check", "timeout_db_monitor", "timeout_http_agent", "timeout_ssh_agent",
				"timeout_telnet_agent", "timeout_script", "timeout_browser"} {
				if IntField(data, "custom_timeouts") == 0 || fieldEmpty(data, f) {
					data = data.Delete(f)
				}
			}
		}

		desc := StringField(data, "description")
		matches := tagPattern.FindAllString(desc, -1)
		if len(matches) != 1 {
			continue
		}
		if matches[0] != fmt.Sprintf("%s:%s;", monitorTag, nctx.Node) {
			deleted = append(deleted, r.Name)
			continue
		}

		mode := IntField(data, "status") - 5
		usePSK := proxyUsesPSK(data, mode)
		if usePSK {
			data = applyProxyPSK(nctx, r.Name, data, mode)
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}

	var extend []domain.Record
	if len(deleted) > 0 {
		names := make([]domain.Value, len(deleted))
		for i, n := range deleted {
			names[i] = domain.String(n)
		}
		extend = []domain.Record{{
			Kind: domain.KindProxy, Name: "proxyExtend",
			Payload: domain.Map().Set("delete", domain.List(names...)),
		}}
	}
	return out, extend, nil
}

func proxyUsesPSK(data domain.Value, mode int) bool {
	if mode == 1 {
		return IntField(data, "tls_connect") == 2
	}
	accept := IntField(data, "tls_accept")
	return accept != 1 && accept != 4 && accept != 5
}

func applyProxyPSK(nctx *Context, name string, data domain.Value, mode int) domain.Value {
	psk, ok := nctx.ProxyPSK[name]
	validKey := ok && isValidPSK(psk[1])
	if !validKey {
		if mode != 0 {
			data = data.Set("tls_connect", domain.Number(1))
		} else {
			accept := IntField(data, "tls_accept")
			if accept > 2 {
				accept -= 2
			} else {
				accept = 1
			}
			data = data.Set("tls_accept", domain.Number(float64(accept)))
		}
		msg := fmt.Sprintf("[%s PSK DISABLED]", time.Now().Format(time.RFC3339))
		if desc := StringField(data, "description"); desc != "" {
			msg = msg + "\r\n\r\n" + desc
		}
		return data.Set("description", domain.String(msg))
	}
	return data.Set("tls_psk_identity", domain.String(psk[0])).Set("tls_psk", domain.String(psk[1]))
}

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

func isValidPSK(key string) bool {
	if len(key) < 64 || len(key) > 1024 {
		return false
	}
	return hexPattern.MatchString(key)
}
