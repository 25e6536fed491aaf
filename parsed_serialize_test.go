package simdjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	// Serialization flattens every string (whether it originally pointed
	// into the raw message or the decoded-string heap) into one new
	// deduplicated stream, so offsets legitimately differ from the
	// original tape - compare decoded JSON content instead of raw tapes.
	src := []byte(`{"a":[1,2,3],"b":"hello world","c":{"d":true,"e":null},"f":1.5,"g":"hello world"}`)
	pj, err := Parse(src, nil)
	require.NoError(t, err)
	pjIter := pj.Iter()
	want, err := pjIter.MarshalJSON()
	require.NoError(t, err)

	modes := []CompressMode{CompressNone, CompressFast, CompressDefault, CompressBest}
	for _, mode := range modes {
		s := NewSerializer()
		s.CompressMode(mode)
		data := s.Serialize(nil, *pj)
		require.NotEmpty(t, data)

		var out ParsedJson
		got, err := s.Deserialize(data, &out)
		require.NoError(t, err)
		gotIter := got.Iter()
		gotJSON, err := gotIter.MarshalJSON()
		require.NoError(t, err)
		require.JSONEq(t, string(want), string(gotJSON))
	}
}

func TestSerializeDeduplicatesRepeatedStrings(t *testing.T) {
	src := []byte(`["hello world","hello world","hello world"]`)
	pj, err := Parse(src, nil)
	require.NoError(t, err)

	s := NewSerializer()
	s.CompressMode(CompressDefault)
	data := s.Serialize(nil, *pj)

	var out ParsedJson
	got, err := s.Deserialize(data, &out)
	require.NoError(t, err)

	iter := got.Iter()
	iter.Advance()
	var root Iter
	_, _, err = iter.Root(&root)
	require.NoError(t, err)
	arr, err := root.Array(nil)
	require.NoError(t, err)
	strs, err := arr.AsString()
	require.NoError(t, err)
	require.Equal(t, []string{"hello world", "hello world", "hello world"}, strs)
}
