package configbridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/monitorapi"
)

// fakeClient is a minimal monitorapi.Client stub for configbridge's
// import path; it never needs Get/Create/Update/Delete for these tests.
type fakeClient struct {
	importCalls []domain.Value
	failOn      map[string]bool // template name -> reject its import
}

var _ monitorapi.Client = (*fakeClient)(nil)

func (f *fakeClient) APIVersion(ctx context.Context) (string, error)        { return "6.4", nil }
func (f *fakeClient) LoginToken(ctx context.Context, token string) error    { return nil }
func (f *fakeClient) LoginPassword(ctx context.Context, u, p string) error  { return nil }
func (f *fakeClient) ChangePassword(ctx context.Context, u, n, c string) error {
	return nil
}
func (f *fakeClient) Get(ctx context.Context, kind string, options domain.Value) ([]domain.Value, error) {
	return nil, nil
}
func (f *fakeClient) Create(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}
func (f *fakeClient) Update(ctx context.Context, kind string, params domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}
func (f *fakeClient) Delete(ctx context.Context, kind string, ids []string) (domain.Value, error) {
	return domain.Map(), nil
}
func (f *fakeClient) ConfigurationExport(ctx context.Context, options domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}
func (f *fakeClient) ConfigurationImport(ctx context.Context, options domain.Value) error {
	f.importCalls = append(f.importCalls, options)
	source, _ := options.Get("source")
	text, _ := source.String()
	for name := range f.failOn {
		if containsName(text, name) {
			return errors.New("monitor rejected template")
		}
	}
	return nil
}
func (f *fakeClient) Call(ctx context.Context, method string, params domain.Value) (domain.Value, error) {
	return domain.Map(), nil
}

func containsName(haystack, name string) bool {
	return len(haystack) > 0 && len(name) > 0 && indexOf(haystack, name) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func templateValue(name string, linked []string, hostPrototypeParent string) domain.Value {
	v := domain.Map().Set("name", domain.String(name))
	if len(linked) > 0 {
		refs := make([]domain.Value, len(linked))
		for i, l := range linked {
			refs[i] = domain.Map().Set("name", domain.String(l))
		}
		v = v.Set("templates", domain.List(refs...))
	}
	if hostPrototypeParent != "" {
		proto := domain.Map().Set("templates", domain.List(domain.Map().Set("name", domain.String(hostPrototypeParent))))
		rule := domain.Map().Set("host_prototypes", domain.List(proto))
		v = v.Set("discovery_rules", domain.List(rule))
	}
	return v
}

// Scenario 5 from spec.md §8: A -> B -> C (C's host prototype references
// A); a failure importing C must not re-import A or B, and the failure
// counter must be exactly 1.
func TestImportTemplates_OneBadTemplateDoesNotAbortOthers(t *testing.T) {
	templates := []domain.Value{
		templateValue("C", []string{"B"}, "A"),
		templateValue("B", []string{"A"}, ""),
		templateValue("A", nil, ""),
	}
	client := &fakeClient{failOn: map[string]bool{"C": true}}
	bridge := NewBridge(client, 6.4, 100, nil)

	failed := bridge.ImportTemplates(context.Background(), templates, "6.4")

	require.Len(t, failed, 1)
	require.Equal(t, "C", failed[0].Template)
	require.Len(t, client.importCalls, 3, "A and B must still be attempted even though C fails")
}

func TestImportTemplates_AllSucceedNoFailures(t *testing.T) {
	templates := []domain.Value{templateValue("A", nil, ""), templateValue("B", []string{"A"}, "")}
	client := &fakeClient{}
	bridge := NewBridge(client, 6.4, 100, nil)

	failed := bridge.ImportTemplates(context.Background(), templates, "6.4")

	require.Empty(t, failed)
	require.Len(t, client.importCalls, 2)
}
