package simdjson

import (
	"errors"
	"math"
)

// Bounds for the float64->int64/uint64 conversions Int64/Uint64 perform
// when the tape-level number turned out to be tagged as a float (e.g.
// "1e2"). Mirrors the range checks Iter.Int/Iter.Uint already apply to the
// eager tape in parsed_json.go.
const (
	minInt64AsFloat         = -9223372036854775808.0
	maxInt64AsFloatExclusive = 9223372036854775808.0
	maxUint64AsFloat        = 18446744073709551615.0
)

func float64frombits(b uint64) float64 { return math.Float64frombits(b) }

// Package doc for the lazy on-demand API (spec §4.6): instead of a pass
// that materialises a full tape, a LazyDocument hands out LazyValue/LazyObject/LazyArray
// cursors that share one position in the stage-1 structural index stream
// and decode a value only when a caller's typed accessor (Int64, String,
// Object, ...) is actually invoked.
//
// Skipping an abandoned container (LazyValue.Skip, or implicitly advancing past
// an unread field/element) only balances brackets; it does not validate the
// numbers, strings, and atoms inside the skipped region. This is spec
// §4.6's documented trade-off, not a bug - see skipRestOfContainer.
//
// At most one cursor descended from a given container may be "live"
// (unread and unskipped) at a time. The original C++ implementation makes
// this a compile-time borrow check via move-only iterator types; Go has no
// such mechanism, so this module enforces the forward-only part of the
// contract by auto-skipping an abandoned child the moment its parent moves
// on (LazyObject.Next, LazyArray.Next, FindKey), and leaves true concurrent misuse
// (reading two siblings' Values out of order from two goroutines) as the
// documented programmer error spec §4.6 calls it.

var errValueConsumed = errors.New("simdjson: ondemand: value already read or skipped")

// iter is the single navigation engine every cursor descended from one
// LazyDocument borrows: one position in the structural index stream, a depth
// counter for DEPTH_ERROR enforcement, and a latched error exactly like
// stage 2's eager walker (spec §7: "Stage 2 errors short-circuit
// immediately").
type iter struct {
	buf      []byte
	idx      []uint32
	pos      int
	maxDepth int
	depth    int
	err      error
	staging  []byte // reused string-decode heap, spec §4.4's lazy staging area
	trace    *tracer
}

// fail latches the first error seen by this iter; subsequent calls return
// the same error, matching the eager walker's short-circuit and the lazy
// API's "poisoned" downstream propagation (spec §4.6 Failure semantics).
func (it *iter) fail(err error) error {
	if it.err == nil {
		it.err = withOffset(err, it.curOffset())
		it.trace.error(it.depth, it.err)
	}
	return it.err
}

func (it *iter) curOffset() int {
	if it.pos < len(it.idx) {
		return int(it.idx[it.pos])
	}
	return len(it.buf)
}

// peek returns the byte at the current structural position without
// consuming it, and false once the stream (or a latched error) ends it.
func (it *iter) peek() (byte, bool) {
	if it.err != nil || it.pos >= len(it.idx) {
		return 0, false
	}
	return it.buf[it.idx[it.pos]], true
}

func (it *iter) advance() {
	it.pos++
}

// enterContainer consumes the current '{'/'[' token and bumps the depth
// counter, enforcing spec §4.5's DEPTH_ERROR the same way the eager
// walker's frame stack does.
func (it *iter) enterContainer() error {
	it.depth++
	if it.depth > it.maxDepth {
		it.depth--
		return it.fail(ErrDepthError)
	}
	it.trace.event("enter_container", it.depth, "")
	it.advance()
	return nil
}

func (it *iter) exitContainer() {
	it.trace.event("exit_container", it.depth, "")
	it.depth--
}

// skipValue advances past the value whose first token sits at it.pos -
// a single index for a scalar (string/number/true/false/null, since the
// scanner only ever emits one structural index per scalar), or a
// brace-balanced scan to the matching close for a container.
func (it *iter) skipValue() error {
	if it.pos >= len(it.idx) {
		return it.fail(ErrTapeError)
	}
	c0 := it.buf[it.idx[it.pos]]
	it.advance()
	if c0 != '{' && c0 != '[' {
		return nil
	}
	// The open bracket was consumed without enterContainer; count it so the
	// exitContainer at the matching close keeps depth balanced.
	it.depth++
	return it.skipRestOfContainer()
}

// skipRestOfContainer brace-balances from the current position (which must
// be exactly one level inside some already-opened container) forward to
// just past that container's matching close. It does not look at anything
// except the four bracket bytes - numbers, strings and atoms pass through
// unexamined, which is the explicit non-goal spec §4.6/§9 documents for
// skip-mode.
func (it *iter) skipRestOfContainer() error {
	it.trace.event("skip", it.depth, "")
	depth := 1
	for it.pos < len(it.idx) {
		c := it.buf[it.idx[it.pos]]
		it.advance()
		switch c {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				it.exitContainer()
				return nil
			}
		}
	}
	return it.fail(ErrTapeError)
}

// skippable is implemented by LazyObject and LazyArray so a LazyValue that has already
// handed off ownership to a container cursor can still honour Skip().
type skippable interface {
	skipRemaining() error
}

// LazyValue is an undecoded JSON value positioned at its first structural
// token. Exactly one typed accessor (Int64, String, Object, Array, Bool,
// IsNull, Skip, ...) may be called on a LazyValue; calling a second one
// returns errValueConsumed, matching the "move-only" read-once cursor of
// spec §4.6.
type LazyValue struct {
	it    *iter
	done  bool
	child skippable
}

func newLazyValue(it *iter) *LazyValue {
	return &LazyValue{it: it}
}

func (v *LazyValue) checkLive() error {
	if v.it.err != nil {
		return v.it.err
	}
	if v.done || v.child != nil {
		return errValueConsumed
	}
	return nil
}

func (v *LazyValue) finish() {
	v.done = true
}

// Type reports the value's JSON type without consuming it; safe to call
// any number of times before a typed accessor or Skip.
func (v *LazyValue) Type() (Type, error) {
	if err := v.checkLive(); err != nil {
		return TypeNone, err
	}
	b, ok := v.it.peek()
	if !ok {
		return TypeNone, v.it.fail(ErrTapeError)
	}
	switch b {
	case '{':
		return TypeObject, nil
	case '[':
		return TypeArray, nil
	case '"':
		return TypeString, nil
	case 't', 'f':
		return TypeBool, nil
	case 'n':
		return TypeNull, nil
	default:
		res, err := parseNumber(v.it.buf[v.it.idx[v.it.pos]:])
		if err != nil {
			return TypeNone, withOffset(err, v.it.curOffset())
		}
		return TagToType[res.tag], nil
	}
}

// Object descends into an object value. The returned LazyObject shares this
// LazyValue's position in the cursor; v itself must not be used again.
func (v *LazyValue) Object() (*LazyObject, error) {
	if err := v.checkLive(); err != nil {
		return nil, err
	}
	b, ok := v.it.peek()
	if !ok {
		return nil, v.it.fail(ErrTapeError)
	}
	if b != '{' {
		return nil, ErrIncorrectType
	}
	if err := v.it.enterContainer(); err != nil {
		return nil, err
	}
	o := &LazyObject{it: v.it, owner: v}
	v.child = o
	return o, nil
}

// Array descends into an array value. The returned LazyArray shares this
// LazyValue's position in the cursor; v itself must not be used again.
func (v *LazyValue) Array() (*LazyArray, error) {
	if err := v.checkLive(); err != nil {
		return nil, err
	}
	b, ok := v.it.peek()
	if !ok {
		return nil, v.it.fail(ErrTapeError)
	}
	if b != '[' {
		return nil, ErrIncorrectType
	}
	if err := v.it.enterContainer(); err != nil {
		return nil, err
	}
	a := &LazyArray{it: v.it, owner: v}
	v.child = a
	return a, nil
}

// Bool returns the value's boolean, or ErrIncorrectType if it is not
// "true"/"false".
func (v *LazyValue) Bool() (bool, error) {
	if err := v.checkLive(); err != nil {
		return false, err
	}
	b, ok := v.it.peek()
	if !ok {
		return false, v.it.fail(ErrTapeError)
	}
	off := v.it.curOffset()
	switch b {
	case 't':
		if !matchLiteral(v.it.buf, off, "true") {
			return false, v.it.fail(ErrTapeError)
		}
		if err := checkTokenBoundary(v.it.buf, off+4); err != nil {
			return false, v.it.fail(err)
		}
		v.it.advance()
		v.finish()
		return true, nil
	case 'f':
		if !matchLiteral(v.it.buf, off, "false") {
			return false, v.it.fail(ErrTapeError)
		}
		if err := checkTokenBoundary(v.it.buf, off+5); err != nil {
			return false, v.it.fail(err)
		}
		v.it.advance()
		v.finish()
		return false, nil
	default:
		return false, ErrIncorrectType
	}
}

// IsNull reports whether the value is the JSON literal null, consuming it
// if so. If the value is some other type, it returns false and leaves the
// value unconsumed so a different typed accessor can still be tried.
func (v *LazyValue) IsNull() (bool, error) {
	if err := v.checkLive(); err != nil {
		return false, err
	}
	b, ok := v.it.peek()
	if !ok {
		return false, v.it.fail(ErrTapeError)
	}
	if b != 'n' {
		return false, nil
	}
	off := v.it.curOffset()
	if !matchLiteral(v.it.buf, off, "null") {
		return false, v.it.fail(withOffset(ErrTapeError, off))
	}
	if err := checkTokenBoundary(v.it.buf, off+4); err != nil {
		return false, v.it.fail(err)
	}
	v.it.advance()
	v.finish()
	return true, nil
}

// numberValue parses (without consuming) the number at the value's
// position, so Int64/Uint64/Float64 can all inspect its classification
// before deciding whether to commit to consuming it.
func (v *LazyValue) numberValue() (numberResult, error) {
	b, ok := v.it.peek()
	if !ok {
		return numberResult{}, v.it.fail(ErrTapeError)
	}
	if b != '-' && (b < '0' || b > '9') {
		return numberResult{}, ErrIncorrectType
	}
	off := v.it.curOffset()
	res, err := parseNumber(v.it.buf[off:])
	if err != nil {
		return numberResult{}, v.it.fail(withOffset(err, off))
	}
	if err := checkTokenBoundary(v.it.buf, off+res.consumed); err != nil {
		return numberResult{}, v.it.fail(err)
	}
	return res, nil
}

// Int64 returns the value's integer, automatically converting from a
// uint64 or float64 tape representation in range, mirroring Iter.Int.
func (v *LazyValue) Int64() (int64, error) {
	if err := v.checkLive(); err != nil {
		return 0, err
	}
	res, err := v.numberValue()
	if err != nil {
		return 0, err
	}
	switch res.tag {
	case TagInteger:
		v.it.advance()
		v.finish()
		return int64(res.u64), nil
	case TagUint:
		if res.u64 > 1<<63-1 {
			return 0, v.it.fail(ErrNumberOutOfRange)
		}
		v.it.advance()
		v.finish()
		return int64(res.u64), nil
	case TagFloat:
		f := float64frombits(res.u64)
		if f < minInt64AsFloat || f >= maxInt64AsFloatExclusive {
			return 0, v.it.fail(ErrNumberOutOfRange)
		}
		v.it.advance()
		v.finish()
		return int64(f), nil
	default:
		return 0, ErrIncorrectType
	}
}

// Uint64 returns the value's unsigned integer, per the same cross-tag
// conversions as Int64.
func (v *LazyValue) Uint64() (uint64, error) {
	if err := v.checkLive(); err != nil {
		return 0, err
	}
	res, err := v.numberValue()
	if err != nil {
		return 0, err
	}
	switch res.tag {
	case TagUint:
		v.it.advance()
		v.finish()
		return res.u64, nil
	case TagInteger:
		if int64(res.u64) < 0 {
			return 0, v.it.fail(ErrNumberOutOfRange)
		}
		v.it.advance()
		v.finish()
		return res.u64, nil
	case TagFloat:
		f := float64frombits(res.u64)
		if f < 0 || f > maxUint64AsFloat {
			return 0, v.it.fail(ErrNumberOutOfRange)
		}
		v.it.advance()
		v.finish()
		return uint64(f), nil
	default:
		return 0, ErrIncorrectType
	}
}

// Float64 returns the value's float, converting integers exactly.
func (v *LazyValue) Float64() (float64, error) {
	if err := v.checkLive(); err != nil {
		return 0, err
	}
	res, err := v.numberValue()
	if err != nil {
		return 0, err
	}
	v.it.advance()
	v.finish()
	switch res.tag {
	case TagFloat:
		return float64frombits(res.u64), nil
	case TagInteger:
		return float64(int64(res.u64)), nil
	case TagUint:
		return float64(res.u64), nil
	default:
		return 0, ErrIncorrectType
	}
}

// StringBytes returns the string's decoded bytes, aliasing the LazyDocument's
// reused staging buffer (spec §4.4): valid until the LazyDocument's next parse,
// but may be overwritten in place by nothing else since the staging buffer
// only ever grows within one parse. Copy it if it must outlive the next
// string read and a long-lived alias is undesirable.
func (v *LazyValue) StringBytes() ([]byte, error) {
	if err := v.checkLive(); err != nil {
		return nil, err
	}
	b, ok := v.it.peek()
	if !ok {
		return nil, v.it.fail(ErrTapeError)
	}
	if b != '"' {
		return nil, ErrIncorrectType
	}
	off := v.it.curOffset()
	dec, err := decodeString(v.it.buf, off, true, v.it.staging)
	if err != nil {
		return nil, v.it.fail(withOffset(err, off))
	}
	v.it.staging = dec.heap
	v.it.advance()
	v.finish()
	return dec.value, nil
}

// String returns the string's decoded value as a Go string (always a copy).
func (v *LazyValue) String() (string, error) {
	b, err := v.StringBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Skip abandons this value without necessarily fully decoding it, moving
// the shared cursor to just past it. Safe on scalars and containers alike;
// for a container already descended into via Object()/Array(), Skip
// delegates to that cursor's skipRemaining so brace-balancing resumes from
// wherever iteration had gotten to (spec §4.6 "Lazy abandonment").
func (v *LazyValue) Skip() error {
	if v.done {
		return nil
	}
	if v.it.err != nil {
		return v.it.err
	}
	if v.child != nil {
		err := v.child.skipRemaining()
		v.finish()
		return err
	}
	if err := v.it.skipValue(); err != nil {
		return err
	}
	v.finish()
	return nil
}

// LazyDocument is the root cursor returned by ParseLazy/Parser.ParseLazy: the
// top-level JSON value, navigated the same way as any nested LazyValue.
type LazyDocument struct {
	it   iter
	root *LazyValue
}

func newLazyDocument(buf []byte, idx []uint32, maxDepth int) *LazyDocument {
	d := &LazyDocument{it: iter{buf: buf, idx: idx, maxDepth: maxDepth}}
	d.root = newLazyValue(&d.it)
	return d
}

func (d *LazyDocument) Type() (Type, error)          { return d.root.Type() }
func (d *LazyDocument) Object() (*LazyObject, error)     { return d.root.Object() }
func (d *LazyDocument) Array() (*LazyArray, error)       { return d.root.Array() }
func (d *LazyDocument) Bool() (bool, error)          { return d.root.Bool() }
func (d *LazyDocument) IsNull() (bool, error)        { return d.root.IsNull() }
func (d *LazyDocument) Int64() (int64, error)        { return d.root.Int64() }
func (d *LazyDocument) Uint64() (uint64, error)       { return d.root.Uint64() }
func (d *LazyDocument) Float64() (float64, error)    { return d.root.Float64() }
func (d *LazyDocument) String() (string, error)      { return d.root.String() }
func (d *LazyDocument) StringBytes() ([]byte, error) { return d.root.StringBytes() }
