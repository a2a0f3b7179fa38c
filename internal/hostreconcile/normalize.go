package hostreconcile

import (
	"net"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
)

// inventoryMode maps the stable symbolic names a snapshot stores to the
// integer Monitor expects, grounded on original_source/zc.py's
// ZABBIX_INVENTORY_MODE literal. Missing or unrecognized modes default to
// Manual, the same default zc.py's dict.get(..., MANUAL) falls back to.
var inventoryMode = map[string]int{
	"DISABLED":  -1,
	"MANUAL":    0,
	"AUTOMATIC": 1,
}

const inventoryModeManual = 0

func translateInventoryMode(v domain.Value) domain.Value {
	mode, ok := v.Get("inventory_mode")
	if !ok {
		return v.Set("inventory_mode", domain.Number(inventoryModeManual))
	}
	name, isStr := mode.String()
	if !isStr {
		return v
	}
	if n, ok := inventoryMode[name]; ok {
		return v.Set("inventory_mode", domain.Number(float64(n)))
	}
	return v.Set("inventory_mode", domain.Number(inventoryModeManual))
}

// ifType maps interface type names to Monitor's integer codes
// (ZABBIX_IFTYPE).
var ifType = map[string]int{"AGENT": 1, "SNMP": 2, "IPMI": 3, "JMX": 4}

// snmpVersion maps symbolic SNMP versions to Monitor's integer codes
// (ZABBIX_SNMP_VERSION).
var snmpVersion = map[string]int{"SNMPV1": 1, "SNMPV2": 2, "SNMPV3": 3}

const defaultSNMPCommunity = "{$SNMP_COMMUNITY}"

// normalizeInterfaces rewrites the interfaces list: resolves the single
// default interface when there's exactly one, coerces the default/useip
// Yes-No flags to Monitor's 1/0, translates the type name, optionally
// forces a DNS->IP rewrite, and reshapes the SNMP connection detail block
// (spec.md §4.6; original_source/zc.py's host-import interface loop).
func normalizeInterfaces(list []domain.Value, forceUseIP bool) []domain.Value {
	if len(list) == 1 {
		list[0] = list[0].Set("default", domain.String("YES"))
	}
	out := make([]domain.Value, len(list))
	for i, iface := range list {
		iface = iface.Delete("interface_ref")

		typeName := stringOr(iface, "type", "AGENT")
		main := 0
		if stringOr(iface, "default", "NO") == "YES" {
			main = 1
		}
		useip := 1
		if stringOr(iface, "useip", "YES") == "NO" {
			useip = 0
		}

		iface = iface.Delete("default")
		iface = iface.Set("main", domain.Number(float64(main)))
		iface = iface.Set("type", domain.Number(float64(ifType[typeName])))
		iface = iface.Set("useip", domain.Number(float64(useip)))
		if _, ok := iface.Get("ip"); !ok {
			iface = iface.Set("ip", domain.String("127.0.0.1"))
		}
		if _, ok := iface.Get("port"); !ok {
			iface = iface.Set("port", domain.String("10050"))
		}
		if _, ok := iface.Get("dns"); !ok {
			iface = iface.Set("dns", domain.String(""))
		}

		if useip == 0 && forceUseIP {
			if dns := stringOr(iface, "dns", ""); dns != "" {
				if ips, err := net.LookupHost(dns); err == nil && len(ips) > 0 {
					iface = iface.Set("ip", domain.String(ips[0]))
					iface = iface.Set("useip", domain.Number(1))
					iface = iface.Delete("dns")
				}
			}
		}

		iface = iface.Delete("bulk")
		if typeName == "SNMP" {
			details, _ := iface.Get("details")
			version := stringOr(details, "version", "SNMPV2")
			community := stringOr(details, "community", defaultSNMPCommunity)
			versionCode, ok := snmpVersion[version]
			if !ok {
				versionCode = snmpVersion["SNMPV2"]
			}
			iface = iface.Set("details", domain.Map().
				Set("version", domain.Number(float64(versionCode))).
				Set("community", domain.String(community)))
		} else {
			iface = iface.Delete("details")
		}
		out[i] = iface
	}
	return out
}

func stringOr(v domain.Value, key, fallback string) string {
	child, ok := v.Get(key)
	if !ok {
		return fallback
	}
	s, isStr := child.String()
	if !isStr || s == "" {
		return fallback
	}
	return s
}

// translateRefs rewrites a groups/templates reference list from stable
// names to local ids, dropping any reference the local instance doesn't
// have rather than failing the whole host (spec.md §4.6: "drop references
// to templates/groups absent locally (never fail)").
func translateRefs(ids *identity.Map, kind domain.Kind, idField string, refs domain.Value) domain.Value {
	list, ok := refs.List()
	if !ok {
		return domain.List()
	}
	out := make([]domain.Value, 0, len(list))
	for _, ref := range list {
		name := stringOr(ref, "name", "")
		if name == "" {
			continue
		}
		id := ids.ToID(kind, name)
		if id == string(domain.SentinelMissing) {
			continue
		}
		out = append(out, domain.Map().Set(idField, domain.String(id)))
	}
	return domain.List(out...)
}

// NormalizeHost applies every field-level transform a host payload needs
// before it's sent to host.create/host.update (spec.md §4.6). It never
// fails: unresolvable references are dropped, not reported.
func NormalizeHost(ids *identity.Map, forceUseIP bool, payload domain.Value) domain.Value {
	payload = translateInventoryMode(payload)

	if ifaces, ok := payload.Get("interfaces"); ok {
		list, _ := ifaces.List()
		payload = payload.Set("interfaces", domain.List(normalizeInterfaces(list, forceUseIP)...))
	}

	if groups, ok := payload.Get("groups"); ok {
		payload = payload.Set("groups", translateRefs(ids, domain.KindHostGroup, "groupid", groups))
	}
	if templates, ok := payload.Get("templates"); ok {
		payload = payload.Set("templates", translateRefs(ids, domain.KindTemplate, "templateid", templates))
	}

	return payload
}
