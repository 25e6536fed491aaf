package simdjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLazyNestedObjectAccess(t *testing.T) {
	doc, err := ParseLazy([]byte(`{"a":{"b":1}}`))
	require.NoError(t, err)

	obj, err := doc.Object()
	require.NoError(t, err)

	val, err := obj.FindKey("a")
	require.NoError(t, err)

	innerObj, err := val.Object()
	require.NoError(t, err)

	innerVal, err := innerObj.FindKey("b")
	require.NoError(t, err)

	n, err := innerVal.Int64()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestLazyFindKeyOrdering(t *testing.T) {
	doc, err := ParseLazy([]byte(`{"a":1,"b":2,"c":3}`))
	require.NoError(t, err)
	obj, err := doc.Object()
	require.NoError(t, err)

	v, err := obj.FindKey("b")
	require.NoError(t, err)
	n, err := v.Int64()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	// "a" already passed over - an ordered find does not wrap around.
	_, err = obj.FindKey("a")
	require.ErrorIs(t, err, ErrNoSuchField)
}

func TestLazyFindKeyMissing(t *testing.T) {
	doc, err := ParseLazy([]byte(`{"a":1}`))
	require.NoError(t, err)
	obj, err := doc.Object()
	require.NoError(t, err)
	_, err = obj.FindKey("z")
	require.ErrorIs(t, err, ErrNoSuchField)
}

func TestLazyAbandonmentStillReachesEnd(t *testing.T) {
	// Scenario 6 from the spec: iterating an array of objects and
	// discarding each object without reading any of its fields must still
	// terminate cleanly at the closing bracket.
	doc, err := ParseLazy([]byte(`[{"a":1},{"b":2}]`))
	require.NoError(t, err)

	arr, err := doc.Array()
	require.NoError(t, err)

	count := 0
	for {
		v, ok, err := arr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
		// Discard without reading any field - forces a skip.
		require.NoError(t, v.Skip())
	}
	require.Equal(t, 2, count)
}

func TestLazyAbandonmentViaDescendedObject(t *testing.T) {
	doc, err := ParseLazy([]byte(`[{"a":1,"b":2,"c":3},4]`))
	require.NoError(t, err)
	arr, err := doc.Array()
	require.NoError(t, err)

	v1, ok, err := arr.Next()
	require.NoError(t, err)
	require.True(t, ok)
	obj, err := v1.Object()
	require.NoError(t, err)
	// Read only the first field, then abandon the rest of the object.
	key, field, ok, err := obj.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", string(key))
	n, err := field.Int64()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	v2, ok, err := arr.Next()
	require.NoError(t, err)
	require.True(t, ok)
	n2, err := v2.Int64()
	require.NoError(t, err)
	require.EqualValues(t, 4, n2)

	_, ok, err = arr.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLazyArrayOfScalars(t *testing.T) {
	doc, err := ParseLazy([]byte(`[1,2,3]`))
	require.NoError(t, err)
	arr, err := doc.Array()
	require.NoError(t, err)
	var got []int64
	for {
		v, ok, err := arr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n, err := v.Int64()
		require.NoError(t, err)
		got = append(got, n)
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestLazyTypeAndIsNull(t *testing.T) {
	doc, err := ParseLazy([]byte(`null`))
	require.NoError(t, err)
	typ, err := doc.Type()
	require.NoError(t, err)
	require.Equal(t, TypeNull, typ)
	isNull, err := doc.IsNull()
	require.NoError(t, err)
	require.True(t, isNull)
}

func TestLazyIncorrectType(t *testing.T) {
	doc, err := ParseLazy([]byte(`"hi"`))
	require.NoError(t, err)
	_, err = doc.Int64()
	require.ErrorIs(t, err, ErrIncorrectType)
}

func TestLazyErrorPoisoning(t *testing.T) {
	doc, err := ParseLazy([]byte(`{"a":1}`))
	require.NoError(t, err)
	obj, err := doc.Object()
	require.NoError(t, err)
	v, err := obj.FindKey("a")
	require.NoError(t, err)
	// A type mismatch deep in the chain is reported as ErrIncorrectType and
	// is not latched.
	_, err = v.Object()
	require.ErrorIs(t, err, ErrIncorrectType)

	// A malformed value is latched: every later navigation on the same
	// document returns that same error.
	doc, err = ParseLazy([]byte(`{"a":01,"b":2}`))
	require.NoError(t, err)
	obj, err = doc.Object()
	require.NoError(t, err)
	v, err = obj.FindKey("a")
	require.NoError(t, err)
	_, err = v.Int64()
	require.ErrorIs(t, err, ErrNumberError)
	_, err2 := obj.FindKey("b")
	require.Equal(t, err, err2)
}

func TestLazyDepthError(t *testing.T) {
	doc, err := Parse([]byte(`[1]`), nil)
	_ = doc
	_ = err

	p, err := NewParser(WithMaxDepth(2))
	require.NoError(t, err)
	lazy, err := p.ParseLazy([]byte(`[[[1]]]`))
	require.NoError(t, err)
	arr, err := lazy.Array()
	require.NoError(t, err)
	v, ok, err := arr.Next()
	require.NoError(t, err)
	require.True(t, ok)
	arr2, err := v.Array()
	require.NoError(t, err)
	v2, ok, err := arr2.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = v2.Array()
	require.ErrorIs(t, err, ErrDepthError)
}

func TestLazyCursorEquivalenceToEagerTape(t *testing.T) {
	src := []byte(`{"a":{"b":[1,2,3],"c":"x"},"d":true}`)

	eager, err := Parse(src, nil)
	require.NoError(t, err)
	eagerRoot := rootValue(t, eager)
	eagerObj, err := eagerRoot.Object(nil)
	require.NoError(t, err)
	var el Element
	got := eagerObj.FindKey("a", &el)
	require.NotNil(t, got)
	innerObj, err := got.Iter.Object(nil)
	require.NoError(t, err)
	var bEl Element
	gotB := innerObj.FindKey("b", &bEl)
	require.NotNil(t, gotB)
	eagerInts, err := gotB.Iter.Array(nil)
	require.NoError(t, err)
	eagerVals, err := eagerInts.AsInteger()
	require.NoError(t, err)

	lazyDoc, err := ParseLazy(src)
	require.NoError(t, err)
	lazyObj, err := lazyDoc.Object()
	require.NoError(t, err)
	aVal, err := lazyObj.FindKey("a")
	require.NoError(t, err)
	aObj, err := aVal.Object()
	require.NoError(t, err)
	bVal, err := aObj.FindKey("b")
	require.NoError(t, err)
	bArr, err := bVal.Array()
	require.NoError(t, err)
	var lazyVals []int64
	for {
		v, ok, err := bArr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		n, err := v.Int64()
		require.NoError(t, err)
		lazyVals = append(lazyVals, n)
	}

	require.Equal(t, eagerVals, lazyVals)
}
