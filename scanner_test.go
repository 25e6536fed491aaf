package simdjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, in string) []uint32 {
	t.Helper()
	var sc scanner
	idx, err := sc.scan([]byte(in), nil)
	require.NoError(t, err)
	return idx
}

func TestScannerEmptyContainers(t *testing.T) {
	idx := scanAll(t, `[]`)
	require.Equal(t, []uint32{0, 1}, idx)

	idx = scanAll(t, `{}`)
	require.Equal(t, []uint32{0, 1}, idx)
}

func TestScannerStructuralsNeverInsideString(t *testing.T) {
	in := `{"a": "b{}[],:c", "d": 1}`
	idx := scanAll(t, in)
	// None of the structural-looking bytes typed inside the quoted string
	// value ("b{}[],:c") may appear in the index stream - every byte from
	// just after its opening quote to just before its closing quote is
	// string interior, never structural.
	open := strings.Index(in, `"b{}[],:c"`)
	innerStart, innerEnd := open+1, open+1+len("b{}[],:c")
	for _, off := range idx {
		assert.False(t, int(off) >= innerStart && int(off) < innerEnd,
			"offset %d (%q) inside string interior was treated as structural", off, in[off])
	}
}

func TestScannerPrimitiveStarts(t *testing.T) {
	idx := scanAll(t, `[1,true,null,"x"]`)
	// Expect the positions of: [ 1 , true , null , "x" ]
	want := []uint32{0, 1, 2, 3, 7, 8, 12, 13, 16}
	require.Equal(t, want, idx)
}

func TestScannerUnclosedString(t *testing.T) {
	var sc scanner
	_, err := sc.scan([]byte(`"abc`), nil)
	require.ErrorIs(t, err, ErrUnclosedString)
}

func TestScannerControlCharInString(t *testing.T) {
	var sc scanner
	_, err := sc.scan([]byte("\"a\nb\""), nil)
	require.ErrorIs(t, err, ErrUnescapedChars)
}

func TestScannerInvalidUTF8(t *testing.T) {
	var sc scanner
	_, err := sc.scan([]byte{'"', 0xff, 0xfe, '"'}, nil)
	require.ErrorIs(t, err, ErrUTF8Error)
}

func TestScannerAcrossBlockBoundary(t *testing.T) {
	// Build a document whose string spans a 64-byte scan block boundary, to
	// exercise the prevInString/prevEscaped carry state.
	pad := strings.Repeat("a", 70)
	in := `{"key":"` + pad + `"}`
	idx := scanAll(t, in)
	require.NotEmpty(t, idx)
	// The scan must not have treated any byte of the long string as a
	// structural position.
	openQuote := strings.LastIndex(in, `"`+pad)
	for _, off := range idx {
		if int(off) > openQuote && int(off) < openQuote+1+len(pad) {
			t.Fatalf("offset %d inside string interior was treated as structural", off)
		}
	}
}
