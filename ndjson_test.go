package simdjson

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const ndjsonFixture = `{"a":1,"b":"x"}
{"a":2,"b":"y"}
{"a":3,"b":"z"}
`

func TestParseND(t *testing.T) {
	pj, err := ParseND([]byte(ndjsonFixture), nil)
	require.NoError(t, err)

	i := pj.Iter()
	var got []int64
	for i.Advance() == TypeRoot {
		_, obj, err := i.Root(nil)
		require.NoError(t, err)
		o, err := obj.Object(nil)
		require.NoError(t, err)
		var el Element
		require.NotNil(t, o.FindKey("a", &el))
		n, err := el.Iter.Int()
		require.NoError(t, err)
		got = append(got, n)
	}
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestParseNDStream(t *testing.T) {
	res := make(chan Stream)
	ParseNDStream(strings.NewReader(ndjsonFixture), res, nil)

	var count int
	var lastErr error
	for s := range res {
		if s.Error != nil {
			lastErr = s.Error
			break
		}
		i := s.Value.Iter()
		for i.Advance() == TypeRoot {
			count++
		}
	}
	require.ErrorIs(t, lastErr, io.EOF)
	require.Equal(t, 3, count)
}

// TestParseNDStreamConcurrentOrdering verifies that records are emitted in
// their original order even though worker goroutines parse chunks out of
// order - the reassembly ParseNDStream's own sequential version never had
// to do.
func TestParseNDStreamConcurrentOrdering(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res := make(chan Stream)
	ParseNDStreamConcurrent(ctx, strings.NewReader(ndjsonFixture), res, 4)

	var got []int64
	var sawEOF bool
	for s := range res {
		if s.Error != nil {
			require.ErrorIs(t, s.Error, io.EOF)
			sawEOF = true
			break
		}
		i := s.Value.Iter()
		for i.Advance() == TypeRoot {
			_, obj, err := i.Root(nil)
			require.NoError(t, err)
			o, err := obj.Object(nil)
			require.NoError(t, err)
			var el Element
			require.NotNil(t, o.FindKey("a", &el))
			n, err := el.Iter.Int()
			require.NoError(t, err)
			got = append(got, n)
		}
	}
	require.True(t, sawEOF)
	require.Equal(t, []int64{1, 2, 3}, got)
}

func TestParseNDStreamConcurrentParseError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bad := "{\"a\":1}\n{not valid json}\n{\"a\":3}\n"
	res := make(chan Stream)
	ParseNDStreamConcurrent(ctx, strings.NewReader(bad), res, 2)

	var sawErr error
	for s := range res {
		if s.Error != nil {
			sawErr = s.Error
			break
		}
	}
	require.Error(t, sawErr)
	require.NotErrorIs(t, sawErr, io.EOF)
}
