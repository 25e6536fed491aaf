package simdjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rootValue(t *testing.T, pj *ParsedJson) Iter {
	t.Helper()
	it := pj.Iter()
	typ := it.Advance()
	require.Equal(t, TypeRoot, typ)
	var dst Iter
	typ, _, err := it.Root(&dst)
	require.NoError(t, err)
	require.NotEqual(t, TypeNone, typ)
	return dst
}

func TestParseEmptyContainers(t *testing.T) {
	pj, err := Parse([]byte(`[]`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	require.Equal(t, TypeArray, v.t.Type())
	arr, err := v.Array(nil)
	require.NoError(t, err)
	elems, err := arr.Interface()
	require.NoError(t, err)
	require.Empty(t, elems)

	pj, err = Parse([]byte(`{}`), nil)
	require.NoError(t, err)
	v = rootValue(t, pj)
	require.Equal(t, TypeObject, v.t.Type())
	obj, err := v.Object(nil)
	require.NoError(t, err)
	m, err := obj.Map(nil)
	require.NoError(t, err)
	require.Empty(t, m)
}

func TestParseNestedObject(t *testing.T) {
	pj, err := Parse([]byte(`{"a":{"b":1}}`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	obj, err := v.Object(nil)
	require.NoError(t, err)
	var el Element
	got := obj.FindKey("a", &el)
	require.NotNil(t, got)
	require.Equal(t, TypeObject, got.Type)
	inner, err := got.Iter.Object(nil)
	require.NoError(t, err)
	var innerEl Element
	gotB := inner.FindKey("b", &innerEl)
	require.NotNil(t, gotB)
	require.Equal(t, TypeInt, gotB.Type)
	n, err := gotB.Iter.Int()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestParseArrayOfScalars(t *testing.T) {
	pj, err := Parse([]byte(`[1, 2, 3, 4]`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	arr, err := v.Array(nil)
	require.NoError(t, err)
	ints, err := arr.AsInteger()
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4}, ints)
}

func TestParseStrings(t *testing.T) {
	pj, err := Parse([]byte(`"hi"`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	s, err := v.String()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	_, err := Parse([]byte(`1 2`), nil)
	require.Error(t, err)

	_, err = Parse([]byte(`{} {}`), nil)
	require.Error(t, err)
}

func TestParseDepthError(t *testing.T) {
	p, err := NewParser(WithMaxDepth(3))
	require.NoError(t, err)
	_, err = p.Parse([]byte(`[[[[1]]]]`), nil)
	require.ErrorIs(t, err, ErrDepthError)

	_, err = p.Parse([]byte(`[[[1]]]`), nil)
	require.NoError(t, err)
}

func TestParseCapacityError(t *testing.T) {
	p, err := NewParser(WithCapacity(4, 4))
	require.NoError(t, err)
	_, err = p.Parse([]byte(`[1,2,3,4,5,6,7,8]`), nil)
	require.ErrorIs(t, err, ErrCapacity)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse([]byte(``), nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestParseIdempotentReuse(t *testing.T) {
	doc := []byte(`{"a":[1,2,3],"b":"x"}`)
	p, err := NewParser()
	require.NoError(t, err)

	pj1, err := p.Parse(doc, nil)
	require.NoError(t, err)
	tape1 := append([]uint64(nil), pj1.Tape...)
	strs1 := append([]byte(nil), pj1.Strings...)

	pj2, err := p.Parse(doc, pj1)
	require.NoError(t, err)
	require.Equal(t, tape1, pj2.Tape)
	require.Equal(t, strs1, pj2.Strings)
}

func TestParseUnclosedString(t *testing.T) {
	_, err := Parse([]byte(`"abc`), nil)
	require.ErrorIs(t, err, ErrUnclosedString)
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := Parse([]byte{'"', 0xff, '"'}, nil)
	require.ErrorIs(t, err, ErrUTF8Error)
}

func TestParseNumberEdgeCases(t *testing.T) {
	pj, err := Parse([]byte(`9223372036854775807`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	require.Equal(t, TagInteger, v.t)

	pj, err = Parse([]byte(`9223372036854775808`), nil)
	require.NoError(t, err)
	v = rootValue(t, pj)
	require.Equal(t, TagUint, v.t)

	_, err = Parse([]byte(`18446744073709551616`), nil)
	require.ErrorIs(t, err, ErrNumberOutOfRange)

	_, err = Parse([]byte(`1e400`), nil)
	require.ErrorIs(t, err, ErrNumberOutOfRange)
}

func TestParseBareRootScalar(t *testing.T) {
	pj, err := Parse([]byte(`42`), nil)
	require.NoError(t, err)
	v := rootValue(t, pj)
	n, err := v.Int()
	require.NoError(t, err)
	require.EqualValues(t, 42, n)
}
