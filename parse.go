package simdjson

// Padding is the number of trailing bytes a caller-supplied buffer should
// keep readable (and zero-initialised) past its logical end, per spec §3/§6
// (SIMDJSON_PADDING in the original). The scanner in this module walks
// buf[base:end] with end clamped to len(buf) and never reads further, so
// correctness never depends on it - it exists so callers written against
// the padded-SIMD contract (and ReallocIfNeeded below) have a stable
// constant to build against.
const Padding = 32

// withPadding returns buf unchanged if it already carries at least Padding
// bytes of spare, zeroed capacity past its length, or a freshly allocated
// padded copy otherwise. This is the "realloc_if_needed" mode spec §6
// describes for callers that cannot guarantee padding themselves.
func withPadding(buf []byte) []byte {
	if cap(buf)-len(buf) >= Padding {
		tail := buf[len(buf):cap(buf)][:Padding]
		for _, b := range tail {
			if b != 0 {
				return reallocPadded(buf)
			}
		}
		return buf
	}
	return reallocPadded(buf)
}

func reallocPadded(buf []byte) []byte {
	padded := make([]byte, len(buf), len(buf)+Padding)
	copy(padded, buf)
	return padded
}

// initialize resets pj's scratch buffers for a parse of an input of the
// given length, preallocating the structural index stream at a size that
// comfortably covers documents with one structural character every couple
// of bytes without needing to grow on the common case.
func (pj *internalParsedJson) initialize(length int) {
	if cap(pj.structIndexes) == 0 {
		pj.structIndexes = make([]uint32, 0, length/2+64)
	}
	pj.structIndexes = pj.structIndexes[:0]
	pj.Tape = pj.Tape[:0]
	pj.Strings = pj.Strings[:0]
	pj.Message = nil
	pj.isvalid = false
	if pj.maxDepth <= 0 {
		pj.maxDepth = defaultMaxDepth
	}
}

// parseMessage runs stage 1 (scanner) then stage 2 (walker) over buf,
// expecting exactly one JSON value followed by nothing but the scan's own
// EOF - trailing bytes after the value are a TAPE_ERROR, per spec §4.5
// "Termination". On success pj.Tape/pj.Strings hold the eager result.
func (pj *internalParsedJson) parseMessage(buf []byte) error {
	pj.Message = buf
	var sc scanner
	idx, err := sc.scan(buf, pj.structIndexes[:0])
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		return ErrEmpty
	}
	pj.structIndexes = idx

	w := &walker{buf: buf, idx: idx, copyStrings: pj.copyStrings, maxDepth: pj.maxDepth}
	pos, err := w.walk(0)
	if err != nil {
		return err
	}
	if pos != len(idx) {
		return withOffset(ErrTapeError, int(idx[pos]))
	}
	pj.Tape = w.tape
	pj.Strings = w.strings
	pj.isvalid = true
	return nil
}

// parseMessageNdjson repeatedly walks buf, once per newline-delimited
// record, appending every record's tape onto one shared tape/string heap -
// each record keeps its own TagRoot wrapper, so Iter.Root can step through
// them one at a time (mirrors the teacher's "<root>Element 1</root>..."
// framing documented on ParseNDStream).
func (pj *internalParsedJson) parseMessageNdjson(buf []byte) error {
	pj.Message = buf
	var sc scanner
	idx, err := sc.scan(buf, pj.structIndexes[:0])
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		return ErrEmpty
	}
	pj.structIndexes = idx

	w := &walker{buf: buf, idx: idx, copyStrings: pj.copyStrings, maxDepth: pj.maxDepth}
	pos := 0
	count := uint64(0)
	for pos < len(idx) {
		pos, err = w.walk(pos)
		if err != nil {
			return err
		}
		count++
	}
	pj.Tape = w.tape
	pj.Strings = w.strings
	pj.ndjson = count
	pj.isvalid = true
	return nil
}
