package sqlengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPropertyGet_FindsExistingKey(t *testing.T) {
	data := PropertiesToJSONB([]PropertyPair{{Key: "host", Value: "web-1"}, {Key: "region", Value: "us-east"}})
	v, ok := PropertyGet(data, "region")
	require.True(t, ok)
	require.Equal(t, "us-east", v)
}

func TestPropertyGet_MissingKeyReturnsFalse(t *testing.T) {
	data := PropertiesToJSONB([]PropertyPair{{Key: "host", Value: "web-1"}})
	_, ok := PropertyGet(data, "missing")
	require.False(t, ok)
}

func TestPropertiesToDict_RendersJSONObject(t *testing.T) {
	data := PropertiesToJSONB([]PropertyPair{{Key: "a", Value: "1"}})
	out, err := PropertiesToDict(data)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"1"}`, out)
}

func TestJSONBFormatJSON_RoundTripsThroughPropertiesToJSONB(t *testing.T) {
	data := PropertiesToJSONB([]PropertyPair{{Key: "k1", Value: "v1"}, {Key: "k2", Value: "v2"}})
	out, err := JSONBFormatJSON(data)
	require.NoError(t, err)
	require.JSONEq(t, `{"k1":"v1","k2":"v2"}`, out)
}

func TestJSONBFormatJSONGroup_RendersOneObjectPerGroup(t *testing.T) {
	groups := map[int][]byte{
		0: PropertiesToJSONB([]PropertyPair{{Key: "a", Value: "1"}}),
		1: PropertiesToJSONB([]PropertyPair{{Key: "b", Value: "2"}}),
	}
	out, err := JSONBFormatJSONGroup(groups)
	require.NoError(t, err)
	require.JSONEq(t, `{"0":{"a":"1"},"1":{"b":"2"}}`, out)
}

func TestTimeBin_TruncatesToBucket(t *testing.T) {
	ts := time.Date(2026, 1, 1, 13, 47, 12, 0, time.UTC)
	require.Equal(t, time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC), TimeBin(ts, time.Hour))
	require.Equal(t, ts, TimeBin(ts, 0))
}

func TestNanosExtract_MatchesUnixNano(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	require.Equal(t, ts.UnixNano(), NanosExtract(ts))
}

func TestFormatDuration_RendersGoDurationSyntax(t *testing.T) {
	require.Equal(t, "1.5s", FormatDuration(int64(1500*time.Millisecond)))
}
