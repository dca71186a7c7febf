package jsonbprop

import (
	"testing"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &model.PropertySet{Items: []model.Property{
		{Key: "env", Value: "prod"},
		{Key: "region", Value: "eu-west-1"},
	}}
	enc := Encode(p)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, p.Items, dec)
}

func TestEncodeNil(t *testing.T) {
	enc := Encode(nil)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestGet_S5Scenario(t *testing.T) {
	p := &model.PropertySet{Items: []model.Property{
		{Key: "env", Value: "prod"},
		{Key: "region", Value: "eu-west-1"},
	}}
	enc := Encode(p)

	v, ok := Get(enc, "env")
	require.True(t, ok)
	require.Equal(t, "prod", v)

	_, ok = Get(enc, "missing")
	require.False(t, ok)
}

func TestEventCache_DedupesByPointerIdentity(t *testing.T) {
	shared := &model.PropertySet{Items: []model.Property{{Key: "k", Value: "v"}}}
	other := &model.PropertySet{Items: []model.Property{{Key: "k", Value: "v"}}} // equal content, distinct identity

	c := NewEventCache()
	b1 := c.Encode(shared)
	b2 := c.Encode(shared)
	b3 := c.Encode(other)

	require.Equal(t, 2, c.Len(), "shared and other are distinct identities")
	require.Equal(t, b1, b2)
	require.Equal(t, b1, b3, "equal contents still encode identically")
}

func TestProcessCache_CachesPerProcess(t *testing.T) {
	proc := &model.Process{ProcessID: "p1", Properties: &model.PropertySet{Items: []model.Property{{Key: "a", Value: "1"}}}}
	c := NewProcessCache()
	b1 := c.Encode(proc)
	b2 := c.Encode(proc)
	require.Equal(t, b1, b2)
}
