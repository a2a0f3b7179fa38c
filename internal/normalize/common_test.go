package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monctl/monctl/internal/domain"
)

func TestStripEmptyOrZero_RemovesDefaults(t *testing.T) {
	v := domain.Map().
		Set("name", domain.String("x")).
		Set("count", domain.Number(0)).
		Set("enabled", domain.Bool(false)).
		Set("tags", domain.List())

	got := StripEmptyOrZero(v)

	_, hasCount := got.Get("count")
	_, hasEnabled := got.Get("enabled")
	_, hasTags := got.Get("tags")
	name, _ := got.Get("name")
	nameStr, _ := name.String()

	require.False(t, hasCount)
	require.False(t, hasEnabled)
	require.False(t, hasTags)
	require.Equal(t, "x", nameStr)
}

func TestRenameField_MovesValuePreservingAbsence(t *testing.T) {
	v := domain.Map().Set("alias", domain.String("bob"))
	got := RenameField(v, "alias", "username")

	_, hasOld := got.Get("alias")
	username, _ := got.Get("username")
	usernameStr, _ := username.String()

	require.False(t, hasOld)
	require.Equal(t, "bob", usernameStr)

	unchanged := RenameField(domain.Map(), "missing", "target")
	_, has := unchanged.Get("target")
	require.False(t, has)
}

func TestIntField_DefaultsToZero(t *testing.T) {
	v := domain.Map().Set("status", domain.Number(5))
	require.Equal(t, 5, IntField(v, "status"))
	require.Equal(t, 0, IntField(v, "missing"))
}
