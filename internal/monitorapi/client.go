// Package monitorapi is the HTTP+JSON-RPC client for the Monitor itself —
// an external collaborator per spec.md §1 ("Out of scope ... the Monitor
// itself"). Every other component talks to the Monitor only through the
// Client interface declared here, never by building requests directly.
package monitorapi

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

// Client is the small surface spec.md §6 says the core actually needs:
// generic get/create/update/delete/import/export plus a handful of named
// RPCs. Kind-specific convenience isn't part of the interface — callers
// pass the Monitor's own method string ("host.get", "proxy.create", ...).
type Client interface {
	// APIVersion returns the connected Monitor's "major.minor" release,
	// parsed from apiinfo.version.
	APIVersion(ctx context.Context) (string, error)

	// LoginToken authenticates with a pre-issued API token.
	LoginToken(ctx context.Context, token string) error
	// LoginPassword authenticates with a username/password pair, the
	// fallback spec.md §6 requires when no token is configured.
	LoginPassword(ctx context.Context, user, password string) error
	// ChangePassword updates user's password post-auth, required at
	// cloud-platform onboarding where the default Admin password must be
	// rotated before anything else will succeed.
	ChangePassword(ctx context.Context, user, newPassword, currentPassword string) error

	// Get runs a "{kind}.get" call and returns the decoded result list.
	Get(ctx context.Context, kind string, options domain.Value) ([]domain.Value, error)
	// Create runs "{kind}.create" and returns the raw result (typically a
	// map of id-field -> []id).
	Create(ctx context.Context, kind string, params domain.Value) (domain.Value, error)
	Update(ctx context.Context, kind string, params domain.Value) (domain.Value, error)
	Delete(ctx context.Context, kind string, ids []string) (domain.Value, error)

	// ConfigurationExport wraps configuration.export (spec.md §4.5).
	ConfigurationExport(ctx context.Context, options domain.Value) (domain.Value, error)
	// ConfigurationImport wraps configuration.import.
	ConfigurationImport(ctx context.Context, options domain.Value) error

	// Call is the generic escape hatch for the named RPCs spec.md §6
	// lists that aren't {kind}.verb shaped: task.create,
	// authentication.update, settings.update,
	// usermacro.createglobal/updateglobal, hostinterface.get/update/delete.
	Call(ctx context.Context, method string, params domain.Value) (domain.Value, error)
}

// Config configures one Client connection.
type Config struct {
	Endpoint   string
	Node       string // expected server-name, verified by CheckServerName
	Token      string
	User       string
	Password   string
	SelfSigned bool // accept self-signed TLS certificates
	Timeout    int  // seconds, 0 = 30 seconds
}
