package domain

// Sentinel is a reserved string encoding a semantic zero in the identity
// map (spec §3, §4.2) — zero must not collide with a real local id.
type Sentinel string

const (
	SentinelAllMedia    Sentinel = "ALL_MEDIA"
	SentinelCurrentHost Sentinel = "CURRENT_HOST"
	SentinelServerDirect Sentinel = "SERVER_DIRECT"
	SentinelNoGroup     Sentinel = "NO_GROUP"
	SentinelAllGroup    Sentinel = "ALL_GROUP"
	// SentinelMissing is returned by IdentityMap lookups that miss.
	SentinelMissing Sentinel = "MISSING"
)

// sentinelZero maps each kind that has a semantic-zero id to its sentinel.
var sentinelZero = map[Kind]Sentinel{
	KindMediaType:     SentinelAllMedia,
	KindHost:          SentinelCurrentHost,
	KindProxy:         SentinelServerDirect,
	KindProxyGroup:    SentinelNoGroup,
	KindUserGroup:     SentinelAllGroup,
	KindHostGroup:     SentinelAllGroup,
	KindTemplateGroup: SentinelAllGroup,
}

// ZeroSentinel returns the sentinel for kind's id-zero, if any.
func ZeroSentinel(k Kind) (Sentinel, bool) {
	s, ok := sentinelZero[k]
	return s, ok
}

// AppliedVersionMacro is the reserved global macro name workers use to
// record the last-applied versionId (spec §3).
const AppliedVersionMacro = "{$APPLIED_VERSION}"

// Reserved AppliedVersion values meaning "never cloned" / "direct mode".
const (
	AppliedVersionNone   = "NOT_CLONED"
	AppliedVersionDirect = "DIRECT_MODE"
)

// UUIDTag is the host tag name carrying the stable per-host correlation
// UUID (spec §3).
const UUIDTag = "UUID_TAG"

// WorkerTag is the host tag HostReconciler checks for node-name scoping
// (spec §4.6).
const WorkerTag = "WORKER_TAG"

// WorkerMarkerPrefix is the proxy-description marker prefix identifying
// which worker node a proxy belongs to (spec §3), grounded on
// original_source/zc.py's "ZC_WORKER:node;" description convention.
const WorkerMarkerPrefix = "ZC_WORKER"
