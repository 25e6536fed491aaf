package simdjson

// LazyObject is a lazy cursor over an object's key/value pairs, positioned
// just inside its opening '{'. Fields are visited in document order via
// Next, or looked up by name via FindKey (spec §4.6's "ordered find",
// which never wraps around to fields already passed).
type LazyObject struct {
	it      *iter
	owner   *LazyValue
	started bool
	atEnd   bool
	last    *LazyValue // most recent Value handed out by Next/FindKey, if any
}

// ensurePending skips whatever field value the last Next/FindKey handed out
// if the caller never consumed or explicitly skipped it, enforcing the
// forward-only, one-live-child contract spec §4.6 describes without
// requiring Go to have move-only types. Delegating to last.Skip rather than
// unconditionally re-skipping means a value the caller already fully read
// via a typed accessor (Int64, String, ...) - whose done flag is already
// set and whose cursor position has already moved past it - is correctly
// left alone instead of having the following token skipped by mistake.
func (o *LazyObject) ensurePending() error {
	if o.last == nil {
		return nil
	}
	last := o.last
	o.last = nil
	return last.Skip()
}

// Next advances to the next field, decoding its key and yielding its value
// as an undecoded Value. It returns ok=false (with err==nil) once the
// object's closing '}' is reached.
func (o *LazyObject) Next() (key []byte, val *LazyValue, ok bool, err error) {
	if o.atEnd {
		return nil, nil, false, nil
	}
	if err = o.ensurePending(); err != nil {
		return nil, nil, false, err
	}
	return o.advanceField()
}

// advanceField consumes the comma (if any field has already been read),
// then either the closing brace or the next "key": token, leaving the
// cursor positioned at the value.
func (o *LazyObject) advanceField() ([]byte, *LazyValue, bool, error) {
	b, okPeek := o.it.peek()
	if !okPeek {
		return nil, nil, false, o.it.fail(ErrTapeError)
	}
	if b == '}' {
		o.it.advance()
		o.it.exitContainer()
		o.atEnd = true
		return nil, nil, false, nil
	}
	if o.started {
		if b != ',' {
			return nil, nil, false, o.it.fail(ErrTapeError)
		}
		o.it.advance()
		var okPeek2 bool
		b, okPeek2 = o.it.peek()
		if !okPeek2 {
			return nil, nil, false, o.it.fail(ErrTapeError)
		}
	}
	if b != '"' {
		return nil, nil, false, o.it.fail(ErrTapeError)
	}
	keyOff := o.it.curOffset()
	dec, err := decodeString(o.it.buf, keyOff, true, nil)
	if err != nil {
		return nil, nil, false, o.it.fail(withOffset(err, keyOff))
	}
	o.it.advance()
	colon, okPeek3 := o.it.peek()
	if !okPeek3 || colon != ':' {
		return nil, nil, false, o.it.fail(ErrTapeError)
	}
	o.it.advance()
	o.started = true
	val := newLazyValue(o.it)
	o.last = val
	return dec.value, val, true, nil
}

// rawKeyBytes returns the raw (still-escaped, still-quoted-body) bytes of
// the key literal at off, for FindKey's fast unescaped comparison - per
// spec §4.6, FindKey compares the wanted name against the raw key bytes
// and only pays for unescaping once a byte-for-byte candidate match is
// found to contain a backslash.
func rawKeyBytes(buf []byte, off int) []byte {
	i := off + 1
	for i < len(buf) {
		if buf[i] == '\\' {
			i += 2
			continue
		}
		if buf[i] == '"' {
			return buf[off+1 : i]
		}
		i++
	}
	return buf[off+1:]
}

// FindKey scans forward from the cursor's current position for a field
// named name, skipping every field it passes over along the way. It never
// looks at fields already consumed (spec §4.6: "ordered, not random
// access") - call it with keys in ascending expected order for best
// results, same as the original on-demand API's find_field.
//
// The common case (no escapes in the key) is a raw byte compare against
// the still-quoted key bytes, so a non-matching field's value never has to
// be unescaped at all - only skipped.
func (o *LazyObject) FindKey(name string) (*LazyValue, error) {
	for {
		if o.atEnd {
			return nil, ErrNoSuchField
		}
		if err := o.ensurePending(); err != nil {
			return nil, err
		}
		b, okPeek := o.it.peek()
		if !okPeek {
			return nil, o.it.fail(ErrTapeError)
		}
		if b == '}' {
			o.it.advance()
			o.it.exitContainer()
			o.atEnd = true
			return nil, ErrNoSuchField
		}
		var raw []byte
		var keyOff int
		if !o.started {
			keyOff = o.it.curOffset()
		} else {
			if b != ',' {
				return nil, o.it.fail(ErrTapeError)
			}
			o.it.advance()
			b2, ok2 := o.it.peek()
			if !ok2 {
				return nil, o.it.fail(ErrTapeError)
			}
			if b2 != '"' {
				return nil, o.it.fail(ErrTapeError)
			}
			keyOff = o.it.curOffset()
		}
		if o.it.buf[keyOff] != '"' {
			return nil, o.it.fail(ErrTapeError)
		}
		raw = rawKeyBytes(o.it.buf, keyOff)

		o.it.advance()
		colon, okPeek3 := o.it.peek()
		if !okPeek3 || colon != ':' {
			return nil, o.it.fail(ErrTapeError)
		}
		o.it.advance()
		o.started = true

		if string(raw) == name || keyMatchesEscaped(raw, name) {
			val := newLazyValue(o.it)
			o.last = val
			return val, nil
		}
		if err := o.it.skipValue(); err != nil {
			return nil, err
		}
	}
}

// keyMatchesEscaped falls back to a full unescape only when the raw bytes
// contain a backslash and the cheap byte compare in FindKey missed, so a
// key written as "\u0061" still matches a lookup for "a".
func keyMatchesEscaped(raw []byte, name string) bool {
	hasEscape := false
	for _, c := range raw {
		if c == '\\' {
			hasEscape = true
			break
		}
	}
	if !hasEscape {
		return false
	}
	padded := make([]byte, 0, len(raw)+2)
	padded = append(padded, '"')
	padded = append(padded, raw...)
	padded = append(padded, '"')
	dec, err := decodeString(padded, 0, true, nil)
	if err != nil {
		return false
	}
	return string(dec.value) == name
}

// skipRemaining implements skippable for a Value that descended into this
// LazyObject: brace-balances from wherever iteration currently sits to the
// object's matching close, abandoning any fields not yet visited.
func (o *LazyObject) skipRemaining() error {
	if o.atEnd {
		return nil
	}
	if err := o.ensurePending(); err != nil {
		return err
	}
	if err := o.it.skipRestOfContainer(); err != nil {
		return err
	}
	o.atEnd = true
	return nil
}
