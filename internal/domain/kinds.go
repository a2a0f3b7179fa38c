package domain

// Kind is one of the closed set of entity kinds the clone engine knows how
// to carry (spec §3). Declared as a string type (not an int enum) because
// it is also the VersionProfile table key and appears verbatim in store
// records and logs.
type Kind string

const (
	KindHostGroup        Kind = "hostGroup"
	KindTemplateGroup    Kind = "templateGroup"
	KindTemplate         Kind = "template"
	KindHost             Kind = "host"
	KindUser             Kind = "user"
	KindUserGroup        Kind = "userGroup"
	KindRole             Kind = "role"
	KindUserDirectory    Kind = "userDirectory"
	KindMediaType        Kind = "mediaType"
	KindAction           Kind = "action"
	KindMaintenance      Kind = "maintenance"
	KindScript           Kind = "script"
	KindValueMap         Kind = "valueMap"
	KindProxy            Kind = "proxy"
	KindProxyGroup       Kind = "proxyGroup"
	KindDiscoveryRule    Kind = "discoveryRule"
	KindCorrelation      Kind = "correlation"
	KindMFA              Kind = "mfa"
	KindConnector        Kind = "connector"
	KindSLA              Kind = "sla"
	KindService          Kind = "service"
	KindUserMacroGlobal  Kind = "userMacroGlobal"
	KindRegexp           Kind = "regexp"
	KindSettings         Kind = "settings"
	KindAuthentication   Kind = "authentication"
	KindAutoregistration Kind = "autoregistration"
	KindTrigger          Kind = "trigger"
)

// AllKinds lists the closed set in no particular order; callers needing a
// processing order use a VersionProfile's Sections instead.
var AllKinds = []Kind{
	KindHostGroup, KindTemplateGroup, KindTemplate, KindHost, KindUser,
	KindUserGroup, KindRole, KindUserDirectory, KindMediaType, KindAction,
	KindMaintenance, KindScript, KindValueMap, KindProxy, KindProxyGroup,
	KindDiscoveryRule, KindCorrelation, KindMFA, KindConnector, KindSLA,
	KindService, KindUserMacroGlobal, KindRegexp, KindSettings,
	KindAuthentication, KindAutoregistration, KindTrigger,
}

// singletonKinds hold exactly one record per snapshot, with Record.Name
// denoting a property sub-key rather than an entity name (spec §3).
var singletonKinds = map[Kind]bool{
	KindSettings:       true,
	KindAuthentication: true,
	KindAutoregistration: true,
}

// IsSingleton reports whether k is one of the snapshot-wide singleton kinds.
func IsSingleton(k Kind) bool { return singletonKinds[k] }

// Section is one of the orchestrator's topological processing groups.
type Section string

const (
	SectionGlobal  Section = "GLOBAL"
	SectionPre     Section = "PRE"
	SectionMid     Section = "MID"
	SectionPost    Section = "POST"
	SectionAccount Section = "ACCOUNT"
	SectionExtend  Section = "EXTEND"
)
