package simdjson

// scanBlockSize is the width stage 1 classifies at a time. The teacher's
// assembly processes 64 bytes per iteration using AVX2/AVX-512 lanes; this
// portable scanner keeps the same block size and the same bit-parallel
// backslash-run/in-string masks, built with plain uint64 arithmetic instead
// of SIMD compares.
const scanBlockSize = 64

func isStructuralByte(b byte) bool {
	switch b {
	case '{', '}', '[', ']', ':', ',':
		return true
	}
	return false
}

func isJSONWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// scanner implements the stage 1 structural scan: a single left-to-right
// pass producing the structural index stream (the byte offset of every
// structural character, every string-opening quote, and the first byte of
// every number/true/false/null literal) together with incremental UTF-8
// validation. Backslash-run and in-string tracking is carried across block
// boundaries using bit-parallel uint64 masks and the 6-step XOR-doubling
// prefix-xor, the scalar substitute for a hardware carry-less multiply.
type scanner struct {
	prevInString  uint64 // all-1s if the byte before this block was inside a string
	prevEscaped   uint64 // 1 if the block before this one ended mid backslash-escape
	prevSeparator bool   // true if the byte before this block ended a token (ws/structural/string/start-of-input)
	utf8          utf8Validator
}

// scan runs the structural scan over buf, appending the offset of every
// structural position to dst in ascending order.
func (s *scanner) scan(buf []byte, dst []uint32) ([]uint32, error) {
	s.prevSeparator = true // start of input counts as a token boundary
	for base := 0; base < len(buf); base += scanBlockSize {
		end := base + scanBlockSize
		if end > len(buf) {
			end = len(buf)
		}
		block := buf[base:end]
		if err := s.utf8.validate(block); err != nil {
			return dst, withOffset(ErrUTF8Error, base)
		}

		var backslash, quote uint64
		for i, b := range block {
			switch b {
			case '\\':
				backslash |= 1 << uint(i)
			case '"':
				quote |= 1 << uint(i)
			}
		}
		escaped := nextEscaped(backslash, &s.prevEscaped)
		realQuote := quote &^ escaped
		stringTail := prefixXor(realQuote) ^ s.prevInString

		var err error
		dst, err = s.classifyBlock(base, block, realQuote, stringTail, dst)
		if err != nil {
			return dst, err
		}

		if stringTail&(1<<63) != 0 {
			s.prevInString = ^uint64(0)
		} else {
			s.prevInString = 0
		}
	}
	if s.prevInString != 0 {
		return dst, withOffset(ErrUnclosedString, len(buf))
	}
	if err := s.utf8.finish(); err != nil {
		return dst, err
	}
	return dst, nil
}

// classifyBlock decides, byte by byte, which positions of block enter the
// structural index stream.
func (s *scanner) classifyBlock(base int, block []byte, realQuote, stringTail uint64, dst []uint32) ([]uint32, error) {
	wasInString := func(i int) bool {
		if i < 0 {
			return s.prevInString != 0
		}
		return stringTail&(1<<uint(i)) != 0
	}
	for i, b := range block {
		isQuote := realQuote&(1<<uint(i)) != 0
		before := wasInString(i - 1)
		after := wasInString(i)
		switch {
		case isQuote && !before:
			// opening quote: start of a string value
			dst = append(dst, uint32(base+i))
			s.prevSeparator = false
		case isQuote && before:
			// closing quote: the string value just ended, behaves like a separator
			s.prevSeparator = true
		case after:
			// string content
			if b < 0x20 {
				return dst, withOffset(ErrUnescapedChars, base+i)
			}
		case isStructuralByte(b):
			dst = append(dst, uint32(base+i))
			s.prevSeparator = true
		case isJSONWhitespace(b):
			s.prevSeparator = true
		default:
			// candidate first byte of a number/true/false/null literal
			if s.prevSeparator {
				dst = append(dst, uint32(base+i))
			}
			s.prevSeparator = false
		}
	}
	return dst, nil
}

// nextEscaped reports, as a bitmask, which positions are escaped by a
// preceding odd-length run of backslashes, carrying run state in
// *prevEscaped across block boundaries. Ported from the classic
// find_odd_backslash_sequences trick: a run of N backslashes starting on an
// even bit is itself even-length iff N is even, which can be tested with a
// single add-with-carry rather than a loop.
func nextEscaped(backslash uint64, prevEscaped *uint64) uint64 {
	if backslash == 0 {
		escaped := *prevEscaped
		*prevEscaped = 0
		return escaped
	}
	followsEscape := backslash<<1 | *prevEscaped
	const evenBits = uint64(0x5555555555555555)
	oddSequenceStarts := backslash &^ evenBits &^ followsEscape
	invertMask := oddSequenceStarts + backslash
	if invertMask < oddSequenceStarts {
		*prevEscaped = 1
	} else {
		*prevEscaped = 0
	}
	invertMask <<= 1
	return (evenBits ^ invertMask) & followsEscape
}

// prefixXor computes, for each bit i, the XOR of bits 0..i of bitmask - the
// portable substitute for a carry-less multiply by all-ones.
func prefixXor(bitmask uint64) uint64 {
	bitmask ^= bitmask << 1
	bitmask ^= bitmask << 2
	bitmask ^= bitmask << 4
	bitmask ^= bitmask << 8
	bitmask ^= bitmask << 16
	bitmask ^= bitmask << 32
	return bitmask
}
