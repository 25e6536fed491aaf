/*
 * MinIO Cloud Storage, (C) 2020 MinIO, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package simdjson

import (
	"errors"
	"fmt"
)

// Object is a cursor into one object's worth of tape entries: a run of
// TagString (key) / value-tag pairs terminated by TagObjectEnd. An Object
// never owns its own copy of the tape - tape and off point back into
// whichever ParsedJson produced it, same as Iter.
type Object struct {
	// Complete tape
	tape ParsedJson

	// offset of the next entry to be decoded
	off int
}

// Map decodes every remaining field into dst, recursively expanding nested
// objects/arrays via Iter.Interface. A nil dst allocates a fresh map.
func (o *Object) Map(dst map[string]interface{}) (map[string]interface{}, error) {
	if dst == nil {
		dst = make(map[string]interface{})
	}
	var val Iter
	for {
		name, t, err := o.NextElement(&val)
		if err != nil {
			return nil, err
		}
		if t == TypeNone {
			break
		}
		dst[name], err = val.Interface()
		if err != nil {
			return nil, fmt.Errorf("parsing element %q: %w", name, err)
		}
	}
	return dst, nil
}

// Parse decodes every remaining field into dst without recursing into
// nested containers - each Element's Iter is left positioned at its value,
// ready for the caller to descend into on demand. Consumes the Object.
func (o *Object) Parse(dst *Elements) (*Elements, error) {
	if dst == nil {
		dst = &Elements{
			Elements: make([]Element, 0, 5),
			Index:    make(map[string]int, 5),
		}
	} else {
		dst.Elements = dst.Elements[:0]
		for k := range dst.Index {
			delete(dst.Index, k)
		}
	}
	var val Iter
	for {
		name, t, err := o.NextElement(&val)
		if err != nil {
			return dst, err
		}
		if t == TypeNone {
			break
		}
		dst.Index[name] = len(dst.Elements)
		dst.Elements = append(dst.Elements, Element{
			Name: name,
			Type: t,
			Iter: val,
		})
	}
	return dst, nil
}

// FindKey scans forward from the object's current position for a field
// named key, returning nil if the tape runs out before a match. Scanning
// compares the field's tape-recorded string length before reading its
// bytes, so mismatched-length keys are rejected without ever touching
// stringByteAt. Intended for a single lookup on an Object the caller is
// done with afterward - it walks a throwaway cursor copy rather than
// advancing o itself.
func (o *Object) FindKey(key string, dst *Element) *Element {
	cursor := o.tape.Iter()
	cursor.off = o.off
	for {
		typ := cursor.Advance()
		// A field needs both a name and at least one value entry left on the tape.
		if typ != TypeString || cursor.off+1 >= len(cursor.tape.Tape) {
			return nil
		}
		offset := cursor.cur
		length := cursor.tape.Tape[cursor.off]
		if int(length) != len(key) {
			if t := cursor.Advance(); t == TypeNone {
				return nil
			}
			continue
		}
		name, err := cursor.tape.stringByteAt(offset, length)
		if err != nil {
			return nil
		}
		if string(name) != key {
			cursor.Advance()
			continue
		}
		if dst == nil {
			dst = &Element{}
		}
		dst.Name = key
		dst.Type, err = cursor.AdvanceIter(&dst.Iter)
		if err != nil {
			return nil
		}
		return dst
	}
}

// ForEach calls fn once per field in tape order, optionally restricted to
// the names in onlyKeys. Fields outside onlyKeys are skipped without their
// values ever being decoded into an Iter.
func (o *Object) ForEach(fn func(key []byte, i Iter), onlyKeys map[string]struct{}) error {
	cursor := o.tape.Iter()
	cursor.off = o.off
	matched := 0
	for {
		typ := cursor.Advance()
		if typ != TypeString || cursor.off+1 >= len(cursor.tape.Tape) {
			if typ == TypeNone {
				return nil
			}
			return fmt.Errorf("object: unexpected name tag %v", cursor.t)
		}
		offset := cursor.cur
		length := cursor.tape.Tape[cursor.off]
		name, err := cursor.tape.stringByteAt(offset, length)
		if err != nil {
			return fmt.Errorf("getting object name: %w", err)
		}

		if len(onlyKeys) > 0 {
			if _, ok := onlyKeys[string(name)]; !ok {
				if t := cursor.Advance(); t == TypeNone {
					return nil
				}
				continue
			}
		}

		t := cursor.Advance()
		if t == TypeNone {
			return nil
		}
		fn(name, cursor)
		matched++
		if matched == len(onlyKeys) {
			return nil
		}
	}
}

// DeleteElems calls fn once per field (optionally restricted to onlyKeys)
// and, wherever fn returns true, overwrites that field's name and value
// tape entries with TagNop tombstones carrying a descending skip count -
// NextElementBytes follows that count to hop over the deleted run in one
// step rather than decoding it. A nil fn deletes every field in onlyKeys
// outright; nil fn and nil onlyKeys together deletes the whole object.
func (o *Object) DeleteElems(fn func(key []byte, i Iter) bool, onlyKeys map[string]struct{}) error {
	cursor := o.tape.Iter()
	cursor.off = o.off
	matched := 0
	for {
		typ := cursor.Advance()
		if typ != TypeString || cursor.off+1 >= len(cursor.tape.Tape) {
			if typ == TypeNone {
				return nil
			}
			return fmt.Errorf("object: unexpected name tag %v", cursor.t)
		}
		fieldStart := cursor.off - 1
		offset := cursor.cur
		length := cursor.tape.Tape[cursor.off]
		name, err := cursor.tape.stringByteAt(offset, length)
		if err != nil {
			return fmt.Errorf("getting object name: %w", err)
		}

		if len(onlyKeys) > 0 {
			if _, ok := onlyKeys[string(name)]; !ok {
				if t := cursor.Advance(); t == TypeNone {
					return nil
				}
				continue
			}
		}

		t := cursor.Advance()
		if t == TypeNone {
			return nil
		}
		if fn == nil || fn(name, cursor) {
			fieldEnd := cursor.off + cursor.addNext
			skip := uint64(fieldEnd - fieldStart)
			for i := fieldStart; i < fieldEnd; i++ {
				cursor.tape.Tape[i] = (uint64(TagNop) << JSONTAGOFFSET) | skip
				skip--
			}
		}
		matched++
		if matched == len(onlyKeys) {
			return nil
		}
	}
}

// ErrPathNotFound is returned by FindPath when a path segment names a field
// that doesn't exist, or a non-final segment names a field that isn't an
// object.
var ErrPathNotFound = errors.New("path not found")

// FindPath walks a chain of field names, one per path argument, descending into a
// nested object at every segment but the last, e.g. FindPath(dst, "Image",
// "Url") looks up "Image" in the current object, requires its value to be
// an object, then looks up "Url" within that. The object is not advanced;
// ErrPathNotFound covers both a missing field and an intermediate field
// whose value isn't an object.
func (o *Object) FindPath(dst *Element, path ...string) (*Element, error) {
	if len(path) == 0 {
		return dst, ErrPathNotFound
	}
	cursor := o.tape.Iter()
	cursor.off = o.off
	key := path[0]
	path = path[1:]
	for {
		typ := cursor.Advance()
		if typ != TypeString || cursor.off+1 >= len(cursor.tape.Tape) {
			return dst, ErrPathNotFound
		}
		offset := cursor.cur
		length := cursor.tape.Tape[cursor.off]
		if int(length) != len(key) {
			if t := cursor.Advance(); t == TypeNone {
				return dst, ErrPathNotFound
			}
			continue
		}
		name, err := cursor.tape.stringByteAt(offset, length)
		if err != nil {
			return dst, err
		}

		if string(name) != key {
			cursor.Advance()
			continue
		}
		if len(path) == 0 {
			if dst == nil {
				dst = &Element{}
			}
			dst.Name = key
			dst.Type, err = cursor.AdvanceIter(&dst.Iter)
			if err != nil {
				return dst, err
			}
			return dst, nil
		}

		t, err := cursor.AdvanceIter(&cursor)
		if err != nil {
			return dst, err
		}
		if t != TypeObject {
			return dst, fmt.Errorf("value of key %v is not an object: %w", key, ErrPathNotFound)
		}
		key = path[0]
		path = path[1:]
	}
}

// NextElement decodes the next field's value into dst and returns its name
// as a freshly allocated string. TypeNone with a nil error means the
// object's closing brace was reached.
func (o *Object) NextElement(dst *Iter) (name string, t Type, err error) {
	n, t, err := o.NextElementBytes(dst)
	return string(n), t, err
}

// NextElementBytes is NextElement without the string allocation: name
// aliases the underlying message/string-heap bytes directly. It also
// transparently steps over any TagNop tombstones DeleteElems left behind,
// so callers never see a deleted field.
func (o *Object) NextElementBytes(dst *Iter) (name []byte, t Type, err error) {
	if o.off >= len(o.tape.Tape) {
		return nil, TypeNone, nil
	}
	entry := o.tape.Tape[o.off]
	switch Tag(entry >> 56) {
	case TagString:
		// A field needs both a name and at least one value entry left on the tape.
		if o.off+2 >= len(o.tape.Tape) {
			return nil, TypeNone, fmt.Errorf("parsing object element name: unexpected end of tape")
		}
		length := o.tape.Tape[o.off+1]
		offset := entry & JSONVALUEMASK
		name, err = o.tape.stringByteAt(offset, length)
		if err != nil {
			return nil, TypeNone, fmt.Errorf("parsing object element name: %w", err)
		}
		o.off += 2
	case TagObjectEnd:
		return nil, TypeNone, nil
	case TagNop:
		o.off += int(entry & JSONVALUEMASK)
		return o.NextElementBytes(dst)
	default:
		return nil, TypeNone, fmt.Errorf("object: unexpected tag %c", byte(entry>>56))
	}

	// Decode the value entry itself.
	entry = o.tape.Tape[o.off]
	o.off++

	dst.cur = entry & JSONVALUEMASK
	dst.t = Tag(entry >> 56)
	dst.off = o.off
	dst.tape = o.tape
	dst.calcNext(false)
	elemSize := dst.addNext
	dst.calcNext(true)
	if dst.off+elemSize > len(dst.tape.Tape) {
		return nil, TypeNone, errors.New("element extends beyond tape")
	}
	dst.tape.Tape = dst.tape.Tape[:dst.off+elemSize]

	o.off += elemSize
	return name, TagToType[dst.t], nil
}

// Element is one decoded object field: its name plus an Iter positioned at
// its value.
type Element struct {
	// Name of the element
	Name string
	// Type of the element
	Type Type
	// Iter containing the element
	Iter Iter
}

// Elements is the result of Object.Parse: every field of one object in
// tape order, with Index giving O(1) lookup by name into Elements.
type Elements struct {
	Elements []Element
	Index    map[string]int
}

// Lookup returns the element named key, or nil if no such field was
// captured. Keys are matched exactly (case sensitive, no unescaping).
func (e Elements) Lookup(key string) *Element {
	idx, ok := e.Index[key]
	if !ok {
		return nil
	}
	return &e.Elements[idx]
}

// MarshalJSON re-encodes all captured elements as a single JSON object.
func (e Elements) MarshalJSON() ([]byte, error) {
	return e.MarshalJSONBuffer(nil)
}

// MarshalJSONBuffer is MarshalJSON appending to an optional reusable buffer.
func (e Elements) MarshalJSONBuffer(dst []byte) ([]byte, error) {
	dst = append(dst, '{')
	for i, elem := range e.Elements {
		dst = append(dst, '"')
		dst = escapeBytes(dst, []byte(elem.Name))
		dst = append(dst, '"', ':')
		var err error
		dst, err = elem.Iter.MarshalJSONBuffer(dst)
		if err != nil {
			return nil, err
		}
		if i < len(e.Elements)-1 {
			dst = append(dst, ',')
		}
	}
	dst = append(dst, '}')
	return dst, nil
}
