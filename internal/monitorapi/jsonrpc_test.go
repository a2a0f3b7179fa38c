package monitorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

// fakeTransport answers every request with a canned JSON-RPC body,
// recording the request it was given for assertions.
type fakeTransport struct {
	body     string
	status   int
	requests []rpcRequest
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	raw, _ := io.ReadAll(req.Body)
	var decoded rpcRequest
	_ = json.Unmarshal(raw, &decoded)
	f.requests = append(f.requests, decoded)

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
	}, nil
}

func newTestClient(t *fakeTransport) *JSONRPCClient {
	c := NewJSONRPCClient(Config{Endpoint: "http://monitor.test/api_jsonrpc.php"}, nil)
	c.http = t
	return c
}

func TestAPIVersion_ParsesMajorMinorTrimmingPatch(t *testing.T) {
	transport := &fakeTransport{body: `{"jsonrpc":"2.0","result":"6.4.5","id":1}`}
	client := newTestClient(transport)

	release, err := client.APIVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "6.4", release)
	require.Equal(t, "apiinfo.version", transport.requests[0].Method)
	require.Empty(t, transport.requests[0].Auth, "apiinfo.version must not carry an auth token")
}

func TestGet_DecodesResultList(t *testing.T) {
	transport := &fakeTransport{body: `{"jsonrpc":"2.0","result":[{"hostid":"1","host":"web1"}],"id":1}`}
	client := newTestClient(transport)

	items, err := client.Get(context.Background(), "host", domain.Map())
	require.NoError(t, err)
	require.Len(t, items, 1)
	host, _ := items[0].Get("host")
	name, _ := host.String()
	require.Equal(t, "web1", name)
	require.Equal(t, "host.get", transport.requests[0].Method)
}

func TestCall_RPCFaultReturnsErrRPCFault(t *testing.T) {
	transport := &fakeTransport{body: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid params.","data":"bad field"},"id":1}`}
	client := newTestClient(transport)

	_, err := client.Call(context.Background(), "host.create", domain.Map())
	require.Error(t, err)
	var fault *ErrRPCFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, -32602, fault.Code)
}

func TestLoginToken_SetsTokenOnSuccess(t *testing.T) {
	transport := &fakeTransport{body: `{"jsonrpc":"2.0","result":true,"id":1}`}
	client := newTestClient(transport)

	err := client.LoginToken(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "user.checkAuthentication", transport.requests[0].Method)

	// A subsequent call carries the token (Authorization header plus the
	// JSON-RPC auth param); this only checks that the call succeeds.
	transport.body = `{"jsonrpc":"2.0","result":[],"id":1}`
	_, err = client.Get(context.Background(), "host", domain.Map())
	require.NoError(t, err)
}

func TestLoginToken_EmptyTokenFailsWithoutCalling(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)

	err := client.LoginToken(context.Background(), "")
	require.Error(t, err)
	require.Empty(t, transport.requests)
}
