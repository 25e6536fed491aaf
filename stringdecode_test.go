package simdjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, in string) string {
	t.Helper()
	dec, err := decodeString([]byte(in), 0, true, nil)
	require.NoError(t, err)
	return string(dec.value)
}

func TestDecodeStringPlain(t *testing.T) {
	require.Equal(t, "hello", decode(t, `"hello"`))
	require.Equal(t, "", decode(t, `""`))
}

func TestDecodeStringNoCopyAliasesInput(t *testing.T) {
	buf := []byte(`"abc"`)
	dec, err := decodeString(buf, 0, false, nil)
	require.NoError(t, err)
	require.False(t, dec.fromHeap)
	require.Equal(t, "abc", string(dec.value))
}

func TestDecodeStringEscapes(t *testing.T) {
	cases := map[string]string{
		`"\""`:             `"`,
		`"\\"`:             `\`,
		`"\/"`:              `/`,
		`"\b"`:              "\b",
		`"\f"`:              "\f",
		`"\n"`:              "\n",
		`"\r"`:              "\r",
		`"\t"`:              "\t",
		`"a\nb"`:            "a\nb",
		`"\u0041"`:          "A",
		`"\u00e9"`:          "é",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, decode(t, in))
		})
	}
}

func TestDecodeStringSurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE, encoded as the surrogate pair D83D DE00.
	got := decode(t, `"\uD83D\uDE00"`)
	require.Equal(t, "😀", got)
}

func TestDecodeStringLoneHighSurrogate(t *testing.T) {
	_, err := decodeString([]byte(`"\uD83D"`), 0, true, nil)
	require.ErrorIs(t, err, ErrStringError)
}

func TestDecodeStringLoneLowSurrogate(t *testing.T) {
	_, err := decodeString([]byte(`"\uDE00"`), 0, true, nil)
	require.ErrorIs(t, err, ErrStringError)
}

func TestDecodeStringHighSurrogateFollowedByNonLow(t *testing.T) {
	_, err := decodeString([]byte(`"\uD83DA"`), 0, true, nil)
	require.ErrorIs(t, err, ErrStringError)
}

func TestDecodeStringBadEscape(t *testing.T) {
	_, err := decodeString([]byte(`"\x"`), 0, true, nil)
	require.ErrorIs(t, err, ErrStringError)
}

func TestDecodeStringRawControlChar(t *testing.T) {
	_, err := decodeString([]byte("\"a\nb\""), 0, true, nil)
	require.ErrorIs(t, err, ErrUnescapedChars)
}

func TestDecodeStringUnclosed(t *testing.T) {
	_, err := decodeString([]byte(`"abc`), 0, true, nil)
	require.ErrorIs(t, err, ErrUnclosedString)

	_, err = decodeString([]byte(`"abc\`), 0, true, nil)
	require.ErrorIs(t, err, ErrUnclosedString)
}

func TestDecodeStringHeapReuseAppends(t *testing.T) {
	heap := make([]byte, 0, 16)
	dec1, err := decodeString([]byte(`"ab"`), 0, true, heap)
	require.NoError(t, err)
	heap = dec1.heap
	dec2, err := decodeString([]byte(`"cde"`), 0, true, heap)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(dec1.value))
	assert.Equal(t, "cde", string(dec2.value))
}
