package profile

import (
	"testing"

	"github.com/monctl/monctl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_UnsupportedReleaseIsFatal(t *testing.T) {
	_, err := Build("3.0")
	require.Error(t, err)
	var target *ErrUnsupportedRelease
	assert.ErrorAs(t, err, &target)

	_, err = Build("8.0")
	require.Error(t, err)
}

func TestBuild_IsPureFunction(t *testing.T) {
	a, err := Build("6.0")
	require.NoError(t, err)
	b, err := Build("6.0")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuild_AddedInMonotonic(t *testing.T) {
	// every kind in addedIn at release r has index <= r, and no kind
	// appears whose addedIn release is later than r (spec §8).
	order := map[string]int{"4.0": 0, "4.4": 1, "5.0": 2, "5.2": 3, "5.4": 4, "6.0": 5, "6.2": 6, "6.4": 7, "7.0": 8}
	for _, release := range releaseOrder {
		p, err := Build(release)
		require.NoError(t, err)
		for kind, addedAt := range p.AddedIn {
			assert.LessOrEqual(t, order[addedAt], order[release],
				"kind %s added at %s must not appear in profile(%s)", kind, addedAt, release)
		}
	}
}

func TestBuild_KindsAppearOnlyAfterAddedIn(t *testing.T) {
	p40, err := Build("4.0")
	require.NoError(t, err)
	assert.False(t, p40.HasKind(domain.KindRole))
	assert.False(t, p40.HasKind(domain.KindProxyGroup))

	p70, err := Build("7.0")
	require.NoError(t, err)
	assert.True(t, p70.HasKind(domain.KindRole))
	assert.True(t, p70.HasKind(domain.KindProxyGroup))
	assert.True(t, p70.HasKind(domain.KindMFA))
}

func TestBuild_ProxyMovesFromPreToMidAt70(t *testing.T) {
	p64, err := Build("6.4")
	require.NoError(t, err)
	assert.Contains(t, p64.Sections[domain.SectionPre], domain.KindProxy)
	assert.NotContains(t, p64.Sections[domain.SectionMid], domain.KindProxy)

	p70, err := Build("7.0")
	require.NoError(t, err)
	assert.NotContains(t, p70.Sections[domain.SectionPre], domain.KindProxy)
	assert.Contains(t, p70.Sections[domain.SectionMid], domain.KindProxy)
	assert.Contains(t, p70.Sections[domain.SectionPre], domain.KindProxyGroup)
}

func TestBuild_UserNameFieldRenamedAt54(t *testing.T) {
	p50, err := Build("5.0")
	require.NoError(t, err)
	assert.Equal(t, "alias", p50.Methods[domain.KindUser].NameField)

	p54, err := Build("5.4")
	require.NoError(t, err)
	assert.Equal(t, "username", p54.Methods[domain.KindUser].NameField)
	assert.Equal(t, "username", p54.RenamedFields[domain.KindUser]["alias"])
}

func TestBuild_HostGroupExportKeyChangesAt62(t *testing.T) {
	p60, err := Build("6.0")
	require.NoError(t, err)
	assert.Equal(t, "groups", p60.ConfigExport[domain.KindHostGroup])

	p62, err := Build("6.2")
	require.NoError(t, err)
	assert.Equal(t, "host_groups", p62.ConfigExport[domain.KindHostGroup])
	assert.Equal(t, domain.KindTemplateGroup, p62.ConfigImport["6.2"]["template_groups"])
}
