package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_ValidateRejectsDuplicateKindName(t *testing.T) {
	s := Snapshot{
		VersionMeta: VersionMeta{VersionID: "v1"},
		Records: []Record{
			{Kind: KindHost, Name: "web1", Payload: Map()},
			{Kind: KindHost, Name: "web1", Payload: Map()},
		},
	}
	assert.Error(t, s.Validate())
}

func TestSnapshot_ValidateAcceptsUniquePairs(t *testing.T) {
	s := Snapshot{
		VersionMeta: VersionMeta{VersionID: "v1"},
		Records: []Record{
			{Kind: KindHost, Name: "web1", Payload: Map()},
			{Kind: KindHostGroup, Name: "web1", Payload: Map()},
		},
	}
	assert.NoError(t, s.Validate())
}

func TestSnapshot_ByKindPreservesOrder(t *testing.T) {
	s := Snapshot{Records: []Record{
		{Kind: KindHost, Name: "b"},
		{Kind: KindHostGroup, Name: "g"},
		{Kind: KindHost, Name: "a"},
	}}
	hosts := s.ByKind(KindHost)
	assert.Equal(t, []string{"b", "a"}, []string{hosts[0].Name, hosts[1].Name})
}
