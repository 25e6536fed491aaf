package simdjson

import "unicode/utf8"

// decodedString is the result of decoding one JSON string literal.
type decodedString struct {
	value    []byte // the decoded bytes - either a window into buf, or a window into heap
	heap     []byte // heap, possibly grown
	fromHeap bool    // true if value aliases heap rather than buf
	consumed int     // bytes consumed from buf, including both quotes
}

// decodeString decodes the JSON string literal starting at buf[start] (which
// must be the opening quote). If the string contains no escape sequences and
// copy is false, the returned value aliases buf directly with no allocation;
// otherwise the unescaped bytes are appended to heap and the returned value
// aliases heap.
//
// Escapes supported: \" \\ \/ \b \f \n \r \t and \uXXXX, including surrogate
// pairs (\uD800-\uDBFF followed by \uDC00-\uDFFF combine into one rune;
// an unpaired surrogate is an error).
func decodeString(buf []byte, start int, copy bool, heap []byte) (decodedString, error) {
	if buf[start] != '"' {
		return decodedString{}, ErrStringError
	}
	i := start + 1
	// Fast path: scan for the closing quote, bailing to the slow path the
	// moment an escape is seen.
	for j := i; j < len(buf); j++ {
		switch buf[j] {
		case '"':
			if copy {
				heap = append(heap, buf[i:j]...)
				return decodedString{value: heap[len(heap)-(j-i):], heap: heap, fromHeap: true, consumed: j - start + 1}, nil
			}
			return decodedString{value: buf[i:j], heap: heap, consumed: j - start + 1}, nil
		case '\\':
			return decodeStringSlow(buf, start, heap)
		default:
			if buf[j] < 0x20 {
				return decodedString{}, withOffset(ErrUnescapedChars, j)
			}
		}
	}
	return decodedString{}, ErrUnclosedString
}

// decodeStringSlow handles a string containing at least one escape. It
// always copies into heap since escapes change the string's length.
func decodeStringSlow(buf []byte, start int, heap []byte) (decodedString, error) {
	heapStart := len(heap)
	i := start + 1
	for i < len(buf) {
		b := buf[i]
		switch {
		case b == '"':
			return decodedString{value: heap[heapStart:], heap: heap, fromHeap: true, consumed: i - start + 1}, nil
		case b == '\\':
			i++
			if i >= len(buf) {
				return decodedString{}, ErrUnclosedString
			}
			switch buf[i] {
			case '"':
				heap = append(heap, '"')
			case '\\':
				heap = append(heap, '\\')
			case '/':
				heap = append(heap, '/')
			case 'b':
				heap = append(heap, '\b')
			case 'f':
				heap = append(heap, '\f')
			case 'n':
				heap = append(heap, '\n')
			case 'r':
				heap = append(heap, '\r')
			case 't':
				heap = append(heap, '\t')
			case 'u':
				r, n, err := decodeUnicodeEscape(buf, i+1)
				if err != nil {
					return decodedString{}, err
				}
				i += n
				var tmp [utf8.UTFMax]byte
				w := utf8.EncodeRune(tmp[:], r)
				heap = append(heap, tmp[:w]...)
			default:
				return decodedString{}, withOffset(ErrStringError, i)
			}
			i++
		case b < 0x20:
			return decodedString{}, withOffset(ErrUnescapedChars, i)
		default:
			heap = append(heap, b)
			i++
		}
	}
	return decodedString{}, ErrUnclosedString
}

// decodeUnicodeEscape decodes a \uXXXX escape (and a following \uXXXX low
// surrogate, if the first was a high surrogate) starting at buf[at], the
// byte right after the 'u'. It returns the decoded rune and the number of
// input bytes consumed counting from (and including) that first hex digit.
func decodeUnicodeEscape(buf []byte, at int) (rune, int, error) {
	r1, err := hex4(buf, at)
	if err != nil {
		return 0, 0, err
	}
	if r1 < 0xD800 || r1 > 0xDFFF {
		return r1, 4, nil
	}
	if r1 > 0xDBFF {
		// Low surrogate with no preceding high surrogate.
		return 0, 0, withOffset(ErrStringError, at)
	}
	if at+4 >= len(buf) || buf[at+4] != '\\' || at+5 >= len(buf) || buf[at+5] != 'u' {
		return 0, 0, withOffset(ErrStringError, at)
	}
	r2, err := hex4(buf, at+6)
	if err != nil {
		return 0, 0, err
	}
	if r2 < 0xDC00 || r2 > 0xDFFF {
		return 0, 0, withOffset(ErrStringError, at+6)
	}
	combined := 0x10000 + (r1-0xD800)<<10 + (r2 - 0xDC00)
	return combined, 10, nil
}

func hex4(buf []byte, at int) (rune, error) {
	if at+4 > len(buf) {
		return 0, withOffset(ErrStringError, at)
	}
	var v rune
	for _, c := range buf[at : at+4] {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			v |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= rune(c-'A') + 10
		default:
			return 0, withOffset(ErrStringError, at)
		}
	}
	return v, nil
}
