package simdjson

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberIntegers(t *testing.T) {
	cases := []struct {
		name string
		in   string
		tag  Tag
		i64  int64
		u64  uint64
	}{
		{"zero", "0", TagInteger, 0, 0},
		{"negative zero", "-0", TagInteger, 0, 0},
		{"small positive", "42", TagInteger, 42, 0},
		{"small negative", "-42", TagInteger, -42, 0},
		{"int64 max", "9223372036854775807", TagInteger, math.MaxInt64, 0},
		{"int64 min", "-9223372036854775808", TagInteger, math.MinInt64, 0},
		{"uint64 boundary", "9223372036854775808", TagUint, 0, 9223372036854775808},
		{"uint64 max", "18446744073709551615", TagUint, 0, math.MaxUint64},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := parseNumber([]byte(c.in))
			require.NoError(t, err)
			require.Equal(t, c.tag, res.tag)
			require.Equal(t, len(c.in), res.consumed)
			switch c.tag {
			case TagInteger:
				assert.Equal(t, c.i64, int64(res.u64))
			case TagUint:
				assert.Equal(t, c.u64, res.u64)
			}
		})
	}
}

func TestParseNumberOutOfRange(t *testing.T) {
	cases := []string{
		"18446744073709551616", // one past uint64 max
		"-9223372036854775809", // one past int64 min
		"123456789012345678901234567890",
		"1e400",
		"-1e400",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := parseNumber([]byte(in))
			require.ErrorIs(t, err, ErrNumberOutOfRange)
		})
	}
}

func TestParseNumberFloats(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"fraction", "0.1", 0.1},
		{"negative fraction", "-0.1", -0.1},
		{"exponent", "1e2", 100},
		{"negative zero float", "-0.0", math.Copysign(0, -1)},
		{"negative zero exponent", "-0e1", math.Copysign(0, -1)},
		{"big with exponent", "1.5e10", 1.5e10},
		{"small exponent", "2.2250738585072014e-308", 2.2250738585072014e-308},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := parseNumber([]byte(c.in))
			require.NoError(t, err)
			require.Equal(t, TagFloat, res.tag)
			got := math.Float64frombits(res.u64)
			if math.Signbit(c.want) {
				assert.True(t, math.Signbit(got), "expected negative sign for %s", c.in)
			}
			if c.want == 0 {
				// InEpsilon needs a non-zero expected value; zero is compared exactly.
				assert.Equal(t, c.want, got, "value mismatch for %s", c.in)
			} else {
				assert.InEpsilon(t, c.want, got, 1e-12, "value mismatch for %s", c.in)
			}
		})
	}
}

func TestParseNumberMalformed(t *testing.T) {
	cases := []string{
		"123.",
		"01",
		"1.",
		"-",
		".5",
		"-.5",
		"1e",
		"1e+",
		"+1",
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := parseNumber([]byte(in))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNumberOutOfRange)
		})
	}
}

func TestParseNumberTerminatorViaWalk(t *testing.T) {
	// "123." is malformed on its own (no fraction digits); verify through
	// the full parse path too, since stage 2 adds a terminator check on
	// top of parseNumber itself.
	_, err := Parse([]byte(`123.`), nil)
	require.Error(t, err)
}
