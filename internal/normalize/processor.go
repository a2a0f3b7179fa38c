// Package normalize implements the per-entity-kind record processors that
// turn a master's local fetch, or a worker's stored snapshot, into the
// shape the opposite side can safely apply (spec §4.4).
package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
	"github.com/monctl/monctl/internal/profile"
)

// Context carries the run state every per-kind processor needs: which
// release it's normalizing for, and the identity map for id<->name
// translation. It is read-only from a processor's point of view.
type Context struct {
	Profile  *profile.Profile
	Identity *identity.Map

	// Node is this worker's node name, matched against a proxy's
	// description tag to decide ownership (spec §4.4 proxy contract).
	Node string
	// ProxyPSK maps a proxy's stable name to its [identity, key] pre-shared
	// key pair, supplied via configuration since releases since 5.4 no
	// longer return PSK material from the API.
	ProxyPSK map[string][2]string

	// CloningSuperAdmin allows a worker to create users holding the
	// Super Admin role; false by default (spec §4.4 user contract).
	CloningSuperAdmin bool
	// EnableUser maps a user's stable name to the password to set when
	// creating it for the first time on a worker.
	EnableUser map[string]string
	// MFAClientSecret maps an MFA method's name to the client secret a
	// Duo Universal Prompt method needs, since the API never returns it.
	MFAClientSecret map[string]string
}

func (c *Context) major() float64 {
	maj, min, _ := splitRelease(c.Profile.Release)
	return maj + min/10
}

// Processor normalizes one entity kind's records in each direction.
// Master takes the node's local fetch and produces what should be written
// to the store. Worker takes records read back from the store and
// produces what should be imported into the local Monitor instance.
// Either may also return extend records: deletion sidecars appended to
// the EXTEND section (spec §4.4, §4.5).
type Processor interface {
	Master(ctx context.Context, nctx *Context, records []domain.Record) (out, extend []domain.Record, err error)
	Worker(ctx context.Context, nctx *Context, records []domain.Record) (out, extend []domain.Record, err error)
}

var registry = map[domain.Kind]Processor{}

// Register associates a Processor with the kind it handles. Called from
// each kind file's init().
func Register(kind domain.Kind, p Processor) {
	registry[kind] = p
}

// For returns the Processor registered for kind, or the generic fallback
// if none was registered (kinds with no special-case transform still go
// through the common pass).
func For(kind domain.Kind) Processor {
	if p, ok := registry[kind]; ok {
		return p
	}
	return genericProcessor{}
}
