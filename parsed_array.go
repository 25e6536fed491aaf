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
	"math"
)

// Array is a cursor into one array's worth of tape entries, terminated by
// TagArrayEnd. Like Object it borrows tape rather than copying it. The
// AsXxx helpers below give a fast homogeneous-array path that reads tape
// payload words directly instead of materializing an Iter per element;
// Iter/Interface cover the general, possibly-mixed-type case.
type Array struct {
	tape ParsedJson
	off  int
}

// Iter returns a fresh cursor positioned just before the array's first
// element. The first call to Advance yields that element; advancing past
// the closing bracket yields TypeNone.
func (a *Array) Iter() Iter {
	i := Iter{
		tape: a.tape,
		off:  a.off,
	}
	return i
}

// FirstType reports the type of the array's first element, or TypeNone for
// an empty array.
func (a *Array) FirstType() Type {
	iter := a.Iter()
	return iter.PeekNext()
}

// MarshalJSON re-encodes the remaining elements as a JSON array.
func (a *Array) MarshalJSON() ([]byte, error) {
	return a.MarshalJSONBuffer(nil)
}

// MarshalJSONBuffer is MarshalJSON appending to an optional reusable buffer.
func (a *Array) MarshalJSONBuffer(dst []byte) ([]byte, error) {
	dst = append(dst, '[')
	it := a.Iter()
	var elem Iter
	for {
		t, err := it.AdvanceIter(&elem)
		if err != nil {
			return nil, err
		}
		if t == TypeNone {
			break
		}
		dst, err = elem.MarshalJSONBuffer(dst)
		if err != nil {
			return nil, err
		}
		if it.PeekNextTag() == TagArrayEnd {
			break
		}
		dst = append(dst, ',')
	}
	if it.PeekNextTag() != TagArrayEnd {
		return nil, errors.New("expected TagArrayEnd as final tag in array")
	}
	dst = append(dst, ']')
	return dst, nil
}

// Interface decodes every element via Iter.Interface, recursing into nested
// containers, and returns them in order.
func (a *Array) Interface() ([]interface{}, error) {
	// Assume roughly one tape entry per scalar element.
	capHint := (len(a.tape.Tape) - a.off - 1) / 2
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]interface{}, 0, capHint)
	it := a.Iter()
	for it.Advance() != TypeNone {
		elem, err := it.Interface()
		if err != nil {
			return nil, err
		}
		dst = append(dst, elem)
	}
	return dst, nil
}

// AsFloat returns every element as float64, promoting TagInteger/TagUint
// payloads. Fails if any element isn't numeric.
func (a *Array) AsFloat() ([]float64, error) {
	capHint := (len(a.tape.Tape) - a.off - 1) / 2
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]float64, 0, capHint)

readArray:
	for {
		tag := Tag(a.tape.Tape[a.off] >> 56)
		a.off++
		switch tag {
		case TagFloat:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected float, but no more values")
			}
			dst = append(dst, math.Float64frombits(a.tape.Tape[a.off]))
		case TagInteger:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}
			dst = append(dst, float64(int64(a.tape.Tape[a.off])))
		case TagUint:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}
			dst = append(dst, float64(a.tape.Tape[a.off]))
		case TagArrayEnd:
			break readArray
		default:
			return nil, fmt.Errorf("unable to convert type %v to float", tag)
		}
		a.off++
	}
	return dst, nil
}

// AsInteger returns every element as int64, accepting TagUint/TagFloat
// payloads that fit in the signed range and erroring otherwise.
func (a *Array) AsInteger() ([]int64, error) {
	capHint := (len(a.tape.Tape) - a.off - 1) / 2
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]int64, 0, capHint)
readArray:
	for {
		tag := Tag(a.tape.Tape[a.off] >> 56)
		a.off++
		switch tag {
		case TagFloat:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected float, but no more values")
			}
			val := math.Float64frombits(a.tape.Tape[a.off])
			if val > math.MaxInt64 {
				return nil, errors.New("float value overflows int64")
			}
			if val < math.MinInt64 {
				return nil, errors.New("float value underflows int64")
			}
			dst = append(dst, int64(val))
		case TagInteger:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}
			dst = append(dst, int64(a.tape.Tape[a.off]))
		case TagUint:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}

			val := a.tape.Tape[a.off]
			if val > math.MaxInt64 {
				return nil, errors.New("unsigned integer value overflows int64")
			}

			dst = append(dst, int64(val))
		case TagArrayEnd:
			break readArray
		default:
			return nil, fmt.Errorf("unable to convert type %v to integer", tag)
		}
		a.off++
	}
	return dst, nil
}

// AsUint64 returns every element as uint64, rejecting negative int64/float64
// payloads and floats beyond the representable range.
func (a *Array) AsUint64() ([]uint64, error) {
	capHint := (len(a.tape.Tape) - a.off - 1) / 2
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]uint64, 0, capHint)
readArray:
	for {
		tag := Tag(a.tape.Tape[a.off] >> 56)
		a.off++
		switch tag {
		case TagFloat:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected float, but no more values")
			}
			val := math.Float64frombits(a.tape.Tape[a.off])
			if val > math.MaxUint64 {
				return nil, errors.New("float value overflows uint64")
			}
			if val < 0 {
				return nil, errors.New("float value is negative")
			}
			dst = append(dst, uint64(val))
		case TagInteger:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}
			val := int64(a.tape.Tape[a.off])
			if val < 0 {
				return nil, errors.New("int64 value is negative")
			}
			dst = append(dst, uint64(val))
		case TagUint:
			if len(a.tape.Tape) <= a.off {
				return nil, errors.New("corrupt input: expected integer, but no more values")
			}

			dst = append(dst, a.tape.Tape[a.off])
		case TagArrayEnd:
			break readArray
		default:
			return nil, fmt.Errorf("unable to convert type %v to integer", tag)
		}
		a.off++
	}
	return dst, nil
}

// AsString returns every element's raw string value. An element that isn't
// TypeString is an error - use AsStringCvt to stringify scalars instead.
func (a *Array) AsString() ([]string, error) {
	capHint := len(a.tape.Tape) - a.off - 1
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]string, 0, capHint)
	it := a.Iter()
	var elem Iter
	for {
		t, err := it.AdvanceIter(&elem)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeNone:
			return dst, nil
		case TypeString:
			s, err := elem.String()
			if err != nil {
				return nil, err
			}
			dst = append(dst, s)
		default:
			return nil, fmt.Errorf("element in array is not string, but %v", t)
		}
	}
}

// AsStringCvt stringifies every scalar element (numbers, bools, null) in
// addition to strings. Root, object and array elements are errors.
func (a *Array) AsStringCvt() ([]string, error) {
	capHint := len(a.tape.Tape) - a.off - 1
	if capHint < 0 {
		capHint = 0
	}
	dst := make([]string, 0, capHint)
	it := a.Iter()
	var elem Iter
	for {
		t, err := it.AdvanceIter(&elem)
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeNone:
			return dst, nil
		default:
			s, err := elem.StringCvt()
			if err != nil {
				return nil, err
			}
			dst = append(dst, s)
		}
	}
}
