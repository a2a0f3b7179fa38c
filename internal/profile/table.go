package profile

import "github.com/monctl/monctl/internal/domain"

// base40 returns the literal 4.0 descriptor. Every later release is this
// plus a sequence of diffs (table-driven per spec §4.1), grounded directly
// on original_source/zc.py's ZabbixCloneParameter.__init__ base block.
func base40() *Profile {
	p := &Profile{
		Methods: map[domain.Kind]MethodSpec{
			domain.KindHostGroup:       {IDField: "groupid", NameField: "name", GetOptions: map[string]any{"output": "extend"}},
			domain.KindHost:            {IDField: "hostid", NameField: "host", GetOptions: map[string]any{"output": []string{"hostid", "host"}, "selectTags": []string{"tag", "value"}}},
			domain.KindTemplate:        {IDField: "templateid", NameField: "name", GetOptions: map[string]any{"output": []string{"templateid", "name"}}},
			domain.KindUser:            {IDField: "userid", NameField: "alias", GetOptions: map[string]any{"output": []string{"alias", "type"}, "selectUsrgrps": []string{"name"}, "selectMedias": "extend"}},
			domain.KindUserGroup:       {IDField: "usrgrpid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectTagFilters": "extend", "selectRights": "extend"}},
			domain.KindUserMacroGlobal: {IDField: "globalmacroid", NameField: "macro", GetOptions: map[string]any{"output": []string{"macro", "value"}, "globalmacro": true}},
			domain.KindMediaType:       {IDField: "mediatypeid", NameField: "description", GetOptions: map[string]any{"output": "extend"}},
			domain.KindAction:          {IDField: "actionid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectOperations": "extend", "selectRecoveryOperations": "extend", "selectAcknowledgeOperations": "extend", "selectFilter": "extend"}},
			domain.KindMaintenance:     {IDField: "maintenanceid", NameField: "name", GetOptions: map[string]any{"selectGroups": "extend", "selectHosts": "extend", "selectTimeperiods": "extend", "selectTags": "extend"}},
			domain.KindScript:          {IDField: "scriptid", NameField: "name", GetOptions: map[string]any{}},
			domain.KindValueMap:        {IDField: "valuemapid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectMappings": "extend"}},
			domain.KindProxy:           {IDField: "proxyid", NameField: "host", GetOptions: map[string]any{"output": []string{"host", "status", "proxy_address", "tls_connect", "tls_accept", "tls_issuer", "tls_subject", "description"}, "selectInterface": []string{"useip", "ip", "dns", "port"}}},
			domain.KindDiscoveryRule:   {IDField: "druleid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectDChecks": "extend"}},
			domain.KindCorrelation:     {IDField: "correlationid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectOperations": "extend", "selectFilter": "extend"}},
		},
		Sections: map[domain.Section][]domain.Kind{
			domain.SectionGlobal:  {},
			domain.SectionPre:     {domain.KindUserMacroGlobal, domain.KindMediaType, domain.KindProxy},
			domain.SectionMid:     {domain.KindScript},
			domain.SectionPost:    {domain.KindAction, domain.KindMaintenance, domain.KindDiscoveryRule, domain.KindCorrelation},
			domain.SectionAccount: {domain.KindUserGroup, domain.KindUser},
			domain.SectionExtend:  {},
		},
		ConfigExport: map[domain.Kind]string{
			domain.KindHostGroup: "groups",
			domain.KindTemplate:  "templates",
			domain.KindHost:      "hosts",
			domain.KindValueMap:  "valueMaps",
			domain.KindTrigger:   "triggers",
		},
		ConfigImport: map[string]map[string]domain.Kind{
			"4.0": {
				"groups":    domain.KindHostGroup,
				"templates": domain.KindTemplate,
				"hosts":     domain.KindHost,
				"valueMaps": domain.KindValueMap,
				"triggers":  domain.KindTrigger,
			},
		},
		ImportRules: map[domain.Section]ImportRule{
			// Keyed loosely by bundle section via the kind they carry;
			// orchestrator/configbridge look these up per-kind through
			// ConfigExport's inverse, not per-Section, but the table is
			// indexed by Section here for the coarse sections (hosts vs
			// templates) spec §4.5 describes import-rule granularity at.
		},
		AddedIn: map[domain.Kind]string{
			domain.KindHostGroup:       "4.0",
			domain.KindTemplate:        "4.0",
			domain.KindHost:            "4.0",
			domain.KindUser:            "4.0",
			domain.KindUserGroup:       "4.0",
			domain.KindUserMacroGlobal: "4.0",
			domain.KindMediaType:       "4.0",
			domain.KindAction:          "4.0",
			domain.KindMaintenance:     "4.0",
			domain.KindScript:          "4.0",
			domain.KindValueMap:        "4.0",
			domain.KindProxy:           "4.0",
			domain.KindDiscoveryRule:   "4.0",
			domain.KindCorrelation:     "4.0",
			domain.KindTrigger:         "4.0",
		},
		DiscardFields: map[domain.Kind][]string{
			domain.KindHost:          {"items", "triggers", "discoveryRules"},
			domain.KindAction:        {"actionid", "operationid", "opcommand_hstid", "opcommand_grpid"},
			domain.KindProxy:         {"interface", "lastaccess", "version", "compatibility", "state", "auto_compress"},
			domain.KindDiscoveryRule: {"nextcheck"},
		},
		RenamedFields:  map[domain.Kind]map[string]string{},
		TimeoutTargets: nil,
		CloudOverrides: map[domain.Kind][]string{},
	}
	return p
}

// diffs holds one function per non-base release, applied in releaseOrder.
// Each closure mutates p in place — grounded line-for-line on the
// corresponding "X対応" block of original_source/zc.py.
var diffs = map[string]func(p *Profile){
	"4.4": diff44,
	"5.0": diff50,
	"5.2": diff52,
	"5.4": diff54,
	"6.0": diff60,
	"6.2": diff62,
	"6.4": diff64,
	"7.0": diff70,
}

func diff44(p *Profile) {
	p.AddedIn[domain.KindAutoregistration] = "4.4"
	p.Sections[domain.SectionGlobal] = append(p.Sections[domain.SectionGlobal], domain.KindAutoregistration)

	// mediatype moves from PRE (plain API CRUD) to the CONFIG_EXPORT bundle.
	mt := p.Methods[domain.KindMediaType]
	mt.NameField = "name"
	mt.GetOptions = map[string]any{"output": []string{"name"}}
	p.Methods[domain.KindMediaType] = mt
	p.Sections[domain.SectionPre] = removeKind(p.Sections[domain.SectionPre], domain.KindMediaType)
	p.ConfigExport[domain.KindMediaType] = "mediaTypes"
	p.ConfigImport["4.4"] = map[string]domain.Kind{"mediaTypes": domain.KindMediaType}
	p.ImportRules[sectionFor("mediaTypes")] = ImportRule{CreateMissing: true, UpdateExisting: true}
}

func diff50(p *Profile) {
	um := p.Methods[domain.KindUserMacroGlobal]
	um.GetOptions["filter"] = map[string]any{"type": 0}
	p.Methods[domain.KindUserMacroGlobal] = um
}

func diff52(p *Profile) {
	p.AddedIn[domain.KindRole] = "5.2"
	um := p.Methods[domain.KindUserMacroGlobal]
	um.GetOptions["filter"] = map[string]any{"type": []int{0, 2}}
	p.Methods[domain.KindUserMacroGlobal] = um

	p.Methods[domain.KindRole] = MethodSpec{IDField: "roleid", NameField: "name", GetOptions: map[string]any{"output": "extend", "selectRules": "extend"}}
	user := p.Methods[domain.KindUser]
	if out, ok := user.GetOptions["output"].([]string); ok {
		user.GetOptions["output"] = append(out, "roleid")
	}
	p.Methods[domain.KindUser] = user
	p.Sections[domain.SectionPost] = append(p.Sections[domain.SectionPost], domain.KindRole)
	p.DiscardFields[domain.KindRole] = append(p.DiscardFields[domain.KindRole], "readonly")
}

func diff54(p *Profile) {
	user := p.Methods[domain.KindUser]
	user.NameField = "username"
	user.GetOptions["output"] = []string{"username", "roleid"}
	p.Methods[domain.KindUser] = user
	if p.RenamedFields[domain.KindUser] == nil {
		p.RenamedFields[domain.KindUser] = map[string]string{}
	}
	p.RenamedFields[domain.KindUser]["alias"] = "username"

	delete(p.ConfigExport, domain.KindValueMap)
}

func diff60(p *Profile) {
	p.AddedIn[domain.KindAuthentication] = "6.0"
	p.AddedIn[domain.KindRegexp] = "6.0"
	p.AddedIn[domain.KindSettings] = "6.0"
	p.AddedIn[domain.KindSLA] = "6.0"
	p.AddedIn[domain.KindService] = "6.0"

	p.Methods[domain.KindAuthentication] = MethodSpec{GetOptions: map[string]any{}}
	p.Methods[domain.KindSettings] = MethodSpec{GetOptions: map[string]any{}}
	p.Methods[domain.KindRegexp] = MethodSpec{IDField: "regexpid", NameField: "name", GetOptions: map[string]any{
		"output":           []string{"regexpid", "name"},
		"selectExpressions": []string{"expression", "expression_type", "exp_delimiter", "case_sensitive"},
	}}
	p.Methods[domain.KindSLA] = MethodSpec{IDField: "slaid", NameField: "name", GetOptions: map[string]any{
		"output": "extend", "selectSchedule": "extend", "selectExcludedDowntimes": "extend", "selectServiceTags": "extend",
	}}
	p.Methods[domain.KindService] = MethodSpec{IDField: "serviceid", NameField: "name", GetOptions: map[string]any{
		"output": "extend", "selectParents": []string{"name"}, "selectChildren": []string{"name"},
		"selectStatusRules": "extend", "selectProblemTags": "extend", "selectTags": "extend",
	}}

	action := p.Methods[domain.KindAction]
	delete(action.GetOptions, "selectAcknowledgeOperations")
	action.GetOptions["selectUpdateOperations"] = "extend"
	p.Methods[domain.KindAction] = action
	if p.RenamedFields[domain.KindAction] == nil {
		p.RenamedFields[domain.KindAction] = map[string]string{}
	}
	p.RenamedFields[domain.KindAction]["acknowledge_operations"] = "update_operations"

	p.Sections[domain.SectionGlobal] = append(p.Sections[domain.SectionGlobal], domain.KindSettings, domain.KindAuthentication)
	p.Sections[domain.SectionPre] = append(p.Sections[domain.SectionPre], domain.KindRegexp)
	p.Sections[domain.SectionPost] = append(p.Sections[domain.SectionPost], domain.KindService, domain.KindSLA)

	p.DiscardFields[domain.KindService] = []string{"status", "uuid", "created_at", "readonly"}
	p.DiscardFields[domain.KindSettings] = []string{"ha_failover_delay"}
	p.DiscardFields[domain.KindSLA] = []string{"service_tags", "schedule", "excluded_downtimes"}
}

func diff62(p *Profile) {
	p.AddedIn[domain.KindTemplateGroup] = "6.2"
	p.Methods[domain.KindTemplateGroup] = MethodSpec{IDField: "groupid", NameField: "name", GetOptions: map[string]any{"output": "extend"}}

	maint := p.Methods[domain.KindMaintenance]
	delete(maint.GetOptions, "selectGroups")
	maint.GetOptions["selectHostGroups"] = "extend"
	p.Methods[domain.KindMaintenance] = maint
	if p.RenamedFields[domain.KindMaintenance] == nil {
		p.RenamedFields[domain.KindMaintenance] = map[string]string{}
	}
	p.RenamedFields[domain.KindMaintenance]["groups"] = "hostgroups"

	ug := p.Methods[domain.KindUserGroup]
	delete(ug.GetOptions, "selectRights")
	ug.GetOptions["selectHostGroupRights"] = "extend"
	ug.GetOptions["selectTemplateGroupRights"] = "extend"
	p.Methods[domain.KindUserGroup] = ug

	p.ConfigExport[domain.KindHostGroup] = "host_groups"
	p.ConfigExport[domain.KindTemplateGroup] = "template_groups"
	p.ConfigImport["6.2"] = map[string]domain.Kind{
		"host_groups":     domain.KindHostGroup,
		"template_groups": domain.KindTemplateGroup,
	}
	delete(p.ConfigImport["4.0"], "value_maps")

	if p.RenamedFields[domain.KindAuthentication] == nil {
		p.RenamedFields[domain.KindAuthentication] = map[string]string{}
	}
	p.DiscardFields[domain.KindAuthentication] = append(p.DiscardFields[domain.KindAuthentication], "ldap_userdirectoryid")
}

func diff64(p *Profile) {
	p.AddedIn[domain.KindUserDirectory] = "6.4"
	p.Methods[domain.KindUserDirectory] = MethodSpec{IDField: "userdirectoryid", NameField: "name", GetOptions: map[string]any{
		"output": "extend", "selectProvisionMedia": "extend", "selectProvisionGroups": "extend",
	}}
	user := p.Methods[domain.KindUser]
	if out, ok := user.GetOptions["output"].([]string); ok {
		user.GetOptions["output"] = append(out, "userdirectoryid")
	}
	p.Methods[domain.KindUser] = user
	p.Sections[domain.SectionPost] = append(p.Sections[domain.SectionPost], domain.KindUserDirectory)

	// connector: outbound webhook-style data forwarding, introduced
	// alongside sla/service at the same 6.x wave. Shares their "worker
	// computes its own deletion sidecar" contract (spec.md §4.4, §4.7).
	p.AddedIn[domain.KindConnector] = "6.4"
	p.Methods[domain.KindConnector] = MethodSpec{IDField: "connectorid", NameField: "name", GetOptions: map[string]any{
		"output": "extend", "selectOperations": "extend",
	}}
	p.Sections[domain.SectionPost] = append(p.Sections[domain.SectionPost], domain.KindConnector)

	p.DiscardFields[domain.KindAuthentication] = append(p.DiscardFields[domain.KindAuthentication],
		"ldap_jit_status", "jit_provision_interval", "saml_jit_status")
	p.DiscardFields[domain.KindRole] = append(p.DiscardFields[domain.KindRole], "services.actions")
}

func diff70(p *Profile) {
	p.AddedIn[domain.KindProxyGroup] = "7.0"
	p.AddedIn[domain.KindMFA] = "7.0"

	p.Methods[domain.KindProxyGroup] = MethodSpec{IDField: "proxy_groupid", NameField: "name", GetOptions: map[string]any{
		"output": []string{"proxy_groupid", "name", "failover_delay", "min_online", "description"},
	}}
	p.Methods[domain.KindProxy] = MethodSpec{IDField: "proxyid", NameField: "name", GetOptions: map[string]any{"output": "extend"}}
	p.Methods[domain.KindMFA] = MethodSpec{IDField: "mfaid", NameField: "name", GetOptions: map[string]any{"output": "extend"}}

	p.Sections[domain.SectionPre] = removeKind(p.Sections[domain.SectionPre], domain.KindProxy)
	p.Sections[domain.SectionPre] = append(p.Sections[domain.SectionPre], domain.KindProxyGroup)
	p.Sections[domain.SectionMid] = append(p.Sections[domain.SectionMid], domain.KindProxy)
	p.Sections[domain.SectionPost] = append(p.Sections[domain.SectionPost], domain.KindMFA)

	p.TimeoutTargets = []string{
		"timeout_zabbix_agent", "timeout_simple_check", "timeout_snmp_agent",
		"timeout_external_check", "timeout_db_monitor", "timeout_http_agent",
		"timeout_ssh_agent", "timeout_telnet_agent", "timeout_script", "timeout_browser",
	}
	p.CloudOverrides[domain.KindRole] = []string{"modules", "modules.default_access"}
	p.CloudOverrides[domain.KindAuthentication] = []string{
		"http_auth_enabled", "http_login_form", "http_strip_domains", "http_case_sensitive",
	}
}

func removeKind(list []domain.Kind, k domain.Kind) []domain.Kind {
	out := make([]domain.Kind, 0, len(list))
	for _, item := range list {
		if item != k {
			out = append(out, item)
		}
	}
	return out
}

// sectionFor is a tiny shim: ImportRules in this table is indexed by
// Section for the small number of coarse rules spec §4.1 names (hosts vs
// templates vs media types); every bundle-section key not covered by the
// coarse table uses ConfigBridge's own per-section defaults.
func sectionFor(bundleSection string) domain.Section {
	switch bundleSection {
	case "mediaTypes":
		return domain.SectionPre
	default:
		return domain.SectionPost
	}
}
