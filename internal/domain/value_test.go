package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_SetGetDelete(t *testing.T) {
	v := Map().Set("name", String("web1")).Set("status", Number(1))

	name, ok := v.Get("name")
	require.True(t, ok)
	s, _ := name.String()
	assert.Equal(t, "web1", s)

	v2 := v.Delete("status")
	_, ok = v2.Get("status")
	assert.False(t, ok)

	// original untouched (copy-on-write)
	_, ok = v.Get("status")
	assert.True(t, ok)
}

func TestValue_IsEmptyOrZero(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"zero number", Number(0), true},
		{"nonzero number", Number(1), false},
		{"empty string", String(""), true},
		{"nonempty string", String("x"), false},
		{"false bool", Bool(false), true},
		{"true bool", Bool(true), false},
		{"empty list", List(), true},
		{"empty map", Map(), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.IsEmptyOrZero())
		})
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	raw := `{"hostid":"10105","name":"web1","groups":[{"groupid":"2"}],"flag":true,"empty":null}`
	var v Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	out, err := json.Marshal(v)
	require.NoError(t, err)

	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Equal(t, "web1", roundTripped["name"])
	assert.Equal(t, "10105", roundTripped["hostid"])
	assert.Equal(t, true, roundTripped["flag"])
	assert.Nil(t, roundTripped["empty"])
}

func TestValue_WalkRewritesFields(t *testing.T) {
	v := Map().Set("hostid", String("5")).Set("nested", Map().Set("hostid", String("6")))

	rewritten := v.Walk(func(key string, val Value) Value {
		if key == "hostid" {
			s, _ := val.String()
			return String("name-" + s)
		}
		return val
	})

	top, _ := rewritten.Get("hostid")
	s, _ := top.String()
	assert.Equal(t, "name-5", s)

	nested, _ := rewritten.Get("nested")
	inner, _ := nested.Get("hostid")
	s, _ = inner.String()
	assert.Equal(t, "name-6", s)
}

func TestValue_KeysPreservesOrder(t *testing.T) {
	v := Map().Set("b", Number(1)).Set("a", Number(2)).Set("c", Number(3))
	assert.Equal(t, []string{"b", "a", "c"}, v.Keys())
}
