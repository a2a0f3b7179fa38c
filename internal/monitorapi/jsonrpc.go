package monitorapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monctl/monctl/internal/domain"
)

// HTTPClient is the subset of *http.Client this package calls, narrowed so
// tests can supply a fake transport without a real server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// JSONRPCClient implements Client over the Monitor's HTTP+JSON-RPC 2.0
// surface (spec §6). Stdlib net/http+encoding/json: this is the documented
// external-collaborator boundary (spec.md §1), not core replication logic,
// so it carries no third-party HTTP framework.
type JSONRPCClient struct {
	http     HTTPClient
	endpoint string
	logger   *slog.Logger

	mu    sync.RWMutex
	token string

	nextID atomic.Int64
}

// NewJSONRPCClient builds a client for cfg. It does not authenticate or
// verify the server name; call CheckServerName and one of the Login
// methods before issuing any other call.
func NewJSONRPCClient(cfg Config, logger *slog.Logger) *JSONRPCClient {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{}
	if cfg.SelfSigned {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config.selfCert
	}
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &JSONRPCClient{
		http:     &http.Client{Transport: transport, Timeout: timeout},
		endpoint: cfg.Endpoint,
		logger:   logger,
		token:    cfg.Token,
	}
}

var serverNamePattern = regexp.MustCompile(`<div class="server-name">([a-zA-Z0-9\-]*)</div>`)

// CheckServerName fetches the Monitor's frontend root page and verifies
// its reported server-name matches expected, grounded directly on
// original_source/zc.py's CHECK_ZABBIX_SERVER_NAME.
func CheckServerName(httpc HTTPClient, endpoint, expected string) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("monitorapi: building server-name request: %w", err)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("monitorapi: fetching server-name page: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("monitorapi: reading server-name page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &ErrServerNameMismatch{Endpoint: endpoint, Expected: expected, Got: fmt.Sprintf("http %d", resp.StatusCode)}
	}
	m := serverNamePattern.FindSubmatch(body)
	if m == nil {
		return &ErrServerNameMismatch{Endpoint: endpoint, Expected: expected, Got: "<not found>"}
	}
	got := string(m[1])
	if got != expected {
		return &ErrServerNameMismatch{Endpoint: endpoint, Expected: expected, Got: got}
	}
	return nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
	Auth    string `json:"auth,omitempty"`
}

type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcFault       `json:"error"`
	ID      int64           `json:"id"`
}

// rawCall issues one JSON-RPC request and returns the decoded result, or
// an *ErrRPCFault if the Monitor returned an error object.
func (c *JSONRPCClient) rawCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
		Auth:    authParam(method, token),
	})
	if err != nil {
		return nil, fmt.Errorf("monitorapi: encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("monitorapi: building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitorapi: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("monitorapi: %s: reading response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("monitorapi: %s: decoding response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, &ErrRPCFault{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message, Data: rpcResp.Error.Data}
	}
	return rpcResp.Result, nil
}

// authParam omits the auth param for the two pre-login calls the Monitor
// accepts unauthenticated. Every other call carries the token twice: in
// the auth param (legacy pre-token releases) and in the Authorization
// header that rawCall sets (token-auth releases, spec §6).
func authParam(method, token string) string {
	if method == "apiinfo.version" || method == "user.login" {
		return ""
	}
	return token
}

func (c *JSONRPCClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// APIVersion returns "major.minor", trimming the patch component Monitor
// releases append.
func (c *JSONRPCClient) APIVersion(ctx context.Context) (string, error) {
	raw, err := c.rawCall(ctx, "apiinfo.version", map[string]any{})
	if err != nil {
		return "", err
	}
	var full string
	if err := json.Unmarshal(raw, &full); err != nil {
		return "", fmt.Errorf("monitorapi: decoding apiinfo.version: %w", err)
	}
	var maj, min, patch int
	if n, _ := fmt.Sscanf(full, "%d.%d.%d", &maj, &min, &patch); n < 2 {
		return "", fmt.Errorf("monitorapi: malformed api version %q", full)
	}
	return fmt.Sprintf("%d.%d", maj, min), nil
}

func (c *JSONRPCClient) LoginToken(ctx context.Context, token string) error {
	if token == "" {
		return &ErrAuthentication{Reason: "no token configured"}
	}
	c.setToken(token)
	// user.checkAuthentication is the cheapest call every release accepts
	// purely to validate the token before the run proceeds.
	if _, err := c.rawCall(ctx, "user.checkAuthentication", map[string]any{"token": token}); err != nil {
		c.setToken("")
		return &ErrAuthentication{Reason: err.Error()}
	}
	return nil
}

func (c *JSONRPCClient) LoginPassword(ctx context.Context, user, password string) error {
	if password == "" {
		return &ErrAuthentication{Reason: "no password configured"}
	}
	raw, err := c.rawCall(ctx, "user.login", map[string]any{"username": user, "password": password})
	if err != nil {
		return &ErrAuthentication{Reason: err.Error()}
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return &ErrAuthentication{Reason: "malformed user.login result"}
	}
	c.setToken(token)
	return nil
}

func (c *JSONRPCClient) ChangePassword(ctx context.Context, user, newPassword, currentPassword string) error {
	users, err := c.Get(ctx, "user", domain.Map().
		Set("output", domain.List(domain.String("userid"), domain.String("username"))).
		Set("filter", domain.Map().Set("username", domain.String(user))))
	if err != nil {
		return fmt.Errorf("monitorapi: ChangePassword: looking up %s: %w", user, err)
	}
	if len(users) == 0 {
		return fmt.Errorf("monitorapi: ChangePassword: no such user %q", user)
	}
	userID := firstNonEmpty(usersField(users[0], "userid"), usersField(users[0], "id"))
	params := domain.Map().
		Set("userid", domain.String(userID)).
		Set("passwd", domain.String(newPassword)).
		Set("current_passwd", domain.String(currentPassword))
	if _, err := c.Update(ctx, "user", params); err != nil {
		return fmt.Errorf("monitorapi: ChangePassword: %w", err)
	}
	return c.LoginPassword(ctx, user, newPassword)
}

func usersField(v domain.Value, key string) string {
	child, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := child.String()
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *JSONRPCClient) Get(ctx context.Context, kind string, options domain.Value) ([]domain.Value, error) {
	raw, err := c.rawCall(ctx, kind+".get", options.ToAny())
	if err != nil {
		return nil, err
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("monitorapi: decoding %s.get result: %w", kind, err)
	}
	out := make([]domain.Value, len(items))
	for i, item := range items {
		out[i] = domain.FromAny(item)
	}
	return out, nil
}

func (c *JSONRPCClient) Create(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	return c.callValue(ctx, kind+".create", params)
}

func (c *JSONRPCClient) Update(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	return c.callValue(ctx, kind+".update", params)
}

func (c *JSONRPCClient) Delete(ctx context.Context, kind string, ids []string) (domain.Value, error) {
	raw, err := c.rawCall(ctx, kind+".delete", ids)
	if err != nil {
		return domain.Null(), err
	}
	return decodeValue(kind+".delete", raw)
}

func (c *JSONRPCClient) ConfigurationExport(ctx context.Context, options domain.Value) (domain.Value, error) {
	return c.callValue(ctx, "configuration.export", options)
}

func (c *JSONRPCClient) ConfigurationImport(ctx context.Context, options domain.Value) error {
	_, err := c.callValue(ctx, "configuration.import", options)
	return err
}

func (c *JSONRPCClient) Call(ctx context.Context, method string, params domain.Value) (domain.Value, error) {
	return c.callValue(ctx, method, params)
}

func (c *JSONRPCClient) callValue(ctx context.Context, method string, params domain.Value) (domain.Value, error) {
	raw, err := c.rawCall(ctx, method, params.ToAny())
	if err != nil {
		return domain.Null(), err
	}
	return decodeValue(method, raw)
}

func decodeValue(method string, raw json.RawMessage) (domain.Value, error) {
	if len(raw) == 0 {
		return domain.Null(), nil
	}
	var any any
	if err := json.Unmarshal(raw, &any); err != nil {
		return domain.Null(), fmt.Errorf("monitorapi: decoding %s result: %w", method, err)
	}
	return domain.FromAny(any), nil
}
