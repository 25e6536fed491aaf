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
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

const (
	stringBits        = 14
	stringSize        = 1 << stringBits
	stringmask        = stringSize - 1
	serializedVersion = 2
)

// Serializer persists a ParsedJson's tape and the strings it references (as
// one deduplicated string buffer) as a single self-contained byte stream, and
// rebuilds a tape from one. Neither the original message nor the string heap
// is copied as such. Tags,
// values and strings are split into three independently compressed streams
// rather than compressed as one blob, since tags (one byte each, low
// cardinality) and values (8-byte words) compress very differently than
// UTF-8 string data - see Serialize's header comment for the exact layout.
// A Serializer holds reusable scratch buffers and a string dedup table, so
// it may be reused across calls but not shared across goroutines.
type Serializer struct {
	// Compressed strings
	sMsg []byte

	// Uncompressed tags
	tagsBuf []byte
	// Values
	valuesBuf     []byte
	valuesCompBuf []byte
	tagsCompBuf   []byte

	compValues, compTags uint8
	compStrings          uint8
	fasterComp           bool

	// Deduplicated strings
	stringWr     io.Writer
	stringsTable [stringSize]uint32
	stringBuf    []byte

	maxBlockSize uint64
}

// NewSerializer returns a Serializer configured for CompressDefault.
func NewSerializer() *Serializer {
	initSerializerOnce.Do(initSerializer)
	var s Serializer
	s.CompressMode(CompressDefault)
	s.maxBlockSize = 1 << 31
	return &s
}

// CompressMode selects the space/speed tradeoff for Serialize's three
// output streams (tags, values, strings).
type CompressMode uint8

const (
	// CompressNone stores all three streams uncompressed.
	CompressNone CompressMode = iota

	// CompressFast applies S2 compression with the default S2 writer, which
	// is faster than CompressDefault's but compresses less.
	CompressFast

	// CompressDefault applies S2 compression with S2's better-compression
	// writer. Strings are deduplicated in every mode.
	CompressDefault

	// CompressBest applies zstd, which compresses tighter than S2 at
	// noticeably higher CPU cost on both ends.
	CompressBest
)

// CompressMode sets the compression scheme used by subsequent Serialize calls.
func (s *Serializer) CompressMode(c CompressMode) {
	switch c {
	case CompressNone:
		s.compValues = blockTypeUncompressed
		s.compTags = blockTypeUncompressed
		s.compStrings = blockTypeUncompressed
	case CompressFast:
		s.compValues = blockTypeS2
		s.compTags = blockTypeS2
		s.compStrings = blockTypeS2
		s.fasterComp = true
	case CompressDefault:
		s.compValues = blockTypeS2
		s.compTags = blockTypeS2
		s.compStrings = blockTypeS2
	case CompressBest:
		s.compValues = blockTypeZstd
		s.compTags = blockTypeZstd
		s.compStrings = blockTypeZstd
	default:
		panic("unknown compression mode")
	}
}

// serializeNDStream fans a channel of parsed records out to concurrency
// Serializer instances and writes their output to dst in the original
// record order, returning parsed ParsedJson values to reuse via reuse.
func serializeNDStream(dst io.Writer, in <-chan Stream, reuse chan<- *ParsedJson, concurrency int, comp CompressMode) error {
	if concurrency <= 0 {
		concurrency = (runtime.GOMAXPROCS(0) + 1) / 2
	}
	var workers sync.WaitGroup
	workers.Add(concurrency)
	type workload struct {
		pj  *ParsedJson
		dst chan []byte
	}
	readCh := make(chan workload, concurrency)
	writeCh := make(chan chan []byte, concurrency)
	dstPool := sync.Pool{
		New: func() interface{} {
			return make([]byte, 0, 64<<10)
		},
	}
	for i := 0; i < concurrency; i++ {
		go func() {
			s := NewSerializer()
			s.CompressMode(comp)
			defer workers.Done()
			for input := range readCh {
				res := s.Serialize(dstPool.Get().([]byte)[:0], *input.pj)
				input.dst <- res
				select {
				case reuse <- input.pj:
				default:
				}
			}
		}()
	}
	var writeErr error
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for block := range writeCh {
			b := <-block
			n, err := dst.Write(b)
			writeErr = err
			if n != len(b) {
				writeErr = io.ErrShortWrite
			}
		}
	}()
	var readErr error
	var reader sync.WaitGroup
	reader.Add(1)
	go func() {
		defer reader.Done()
		defer close(readCh)
		for block := range in {
			if block.Error != nil {
				readErr = block.Error
				continue
			}
			w := workload{
				pj:  block.Value,
				dst: make(chan []byte, 0),
			}
			readCh <- w
			writeCh <- w.dst
		}
	}()
	reader.Wait()
	if readErr != nil {
		workers.Wait()
		close(writeCh)
		writer.Wait()
		return readErr
	}
	workers.Wait()
	close(writeCh)
	writer.Wait()
	return writeErr
}

const (
	// tagFloatWithFlag marks a serialized float entry that carries the
	// original tape word verbatim (including its non-zero payload flag
	// bits) instead of the usual zero-payload TagFloat + separate value word.
	tagFloatWithFlag = Tag('e')
)

// Serialize encodes pj's tape and a deduplicated buffer of the strings it
// references into a single byte stream appended to dst.
//
// Container framing:
//   - Compressed size of the entire block that follows (varuint). May be
//     zero for an empty block.
//   - Block type byte: 0 uncompressed, 1 S2 stream, 2 zstd block.
//   - The compressed (or raw) bytes themselves.
//
// Overall stream layout:
//   - Version byte
//   - Compressed size of everything after this field (varuint)
//   - Tape length, in entries, uncompressed (varuint)
//   - String-heap size, uncompressed (varuint) - always 0/absent in the
//     current version; retained for wire compatibility with v1 readers
//   - Deduplicated string buffer size, uncompressed (varuint), then its block
//   - Tag-stream size, uncompressed (varuint), then its block
//   - Value-stream size, uncompressed (varuint), then its block
//
// Reconstruction walks the tag stream one byte at a time; the number of
// value words consumed per tag is fixed by the tag itself: none for
// TagNull/TagBoolTrue/TagBoolFalse/TagObjectEnd/TagArrayEnd (container ends
// are derived from their matching start tags), one 64-bit word for
// TagInteger/TagUint/TagFloat/TagObjectStart/TagArrayStart/TagRoot, two for
// TagString (offset + length) and for tagFloatWithFlag (full tape word +
// value). Any tag or value bytes left unconsumed at the end means the
// stream was truncated or corrupt.
func (s *Serializer) Serialize(dst []byte, pj ParsedJson) []byte {
	var wg sync.WaitGroup

	// Offsets recorded in stringsTable are 1-based so a zero entry means unfilled.
	for i := range s.stringsTable[:] {
		s.stringsTable[i] = 0
	}
	if len(s.stringBuf) > 0 {
		s.stringBuf = s.stringBuf[:0]
	}
	if len(s.sMsg) > 0 {
		s.sMsg = s.sMsg[:0]
	}

	msgWr, msgDone := encBlock(s.compStrings, s.sMsg, s.fasterComp)
	s.stringWr = msgWr

	const tagBufSize = 64 << 10
	const valBufSize = 64 << 10

	valWr, valDone := encBlock(s.compValues, s.valuesCompBuf, s.fasterComp)
	tagWr, tagDone := encBlock(s.compTags, s.tagsCompBuf, s.fasterComp)
	// Pessimistically size for the largest possible chunk.
	if cap(s.tagsBuf) <= tagBufSize {
		s.tagsBuf = make([]byte, tagBufSize)
	}
	s.tagsBuf = s.tagsBuf[:tagBufSize]

	// At most one value word per tape entry on average.
	if cap(s.valuesBuf) < valBufSize+4 {
		s.valuesBuf = make([]byte, valBufSize+4)
	}

	s.valuesBuf = s.valuesBuf[:0]
	off := 0
	tagsOff := 0
	var word [8]byte
	rawTagBytes := 0
	rawValueBytes := 0
	for off < len(pj.Tape) {
		if tagsOff >= tagBufSize {
			rawTagBytes += tagsOff
			tagWr.Write(s.tagsBuf[:tagsOff])
			tagsOff = 0
		}
		if len(s.valuesBuf) >= valBufSize {
			rawValueBytes += len(s.valuesBuf)
			valWr.Write(s.valuesBuf)
			s.valuesBuf = s.valuesBuf[:0]
		}
		entry := pj.Tape[off]
		tag := Tag(entry >> 56)
		payload := entry & JSONVALUEMASK

		switch tag {
		case TagString:
			sb, err := pj.stringByteAt(payload, pj.Tape[off+1])
			if err != nil {
				panic(err)
			}
			strOffset := s.indexString(sb)

			binary.LittleEndian.PutUint64(word[:], strOffset)
			s.valuesBuf = append(s.valuesBuf, word[:]...)
			binary.LittleEndian.PutUint64(word[:], uint64(len(sb)))
			s.valuesBuf = append(s.valuesBuf, word[:]...)
			off++
		case TagUint:
			binary.LittleEndian.PutUint64(word[:], pj.Tape[off+1])
			s.valuesBuf = append(s.valuesBuf, word[:]...)
			off++
		case TagInteger:
			binary.LittleEndian.PutUint64(word[:], pj.Tape[off+1])
			s.valuesBuf = append(s.valuesBuf, word[:]...)
			off++
		case TagFloat:
			if payload == 0 {
				binary.LittleEndian.PutUint64(word[:], pj.Tape[off+1])
				s.valuesBuf = append(s.valuesBuf, word[:]...)
				off++
			} else {
				tag = tagFloatWithFlag
				binary.LittleEndian.PutUint64(word[:], entry)
				s.valuesBuf = append(s.valuesBuf, word[:]...)
				binary.LittleEndian.PutUint64(word[:], pj.Tape[off+1])
				s.valuesBuf = append(s.valuesBuf, word[:]...)
				off++
			}
		case TagNull, TagBoolTrue, TagBoolFalse:
			// No value word.
		case TagObjectStart, TagArrayStart, TagRoot:
			// Object/array starts always point forward; root can point
			// either way, so the stored delta relies on wraparound.
			binary.LittleEndian.PutUint64(word[:], payload-uint64(off))
			s.valuesBuf = append(s.valuesBuf, word[:]...)
		case TagObjectEnd, TagArrayEnd, TagEnd:
			// Derivable from the matching start tag; no value word.
		default:
			wg.Wait()
			panic(fmt.Errorf("unknown tag: %d", int(tag)))
		}
		s.tagsBuf[tagsOff] = uint8(tag)
		tagsOff++
		off++
	}
	if tagsOff > 0 {
		rawTagBytes += tagsOff
		tagWr.Write(s.tagsBuf[:tagsOff])
	}
	if len(s.valuesBuf) > 0 {
		rawValueBytes += len(s.valuesBuf)
		valWr.Write(s.valuesBuf)
	}
	wg.Add(3)
	go func() {
		var err error
		s.tagsCompBuf, err = tagDone()
		if err != nil {
			panic(err)
		}
		wg.Done()
	}()
	go func() {
		var err error
		s.valuesCompBuf, err = valDone()
		if err != nil {
			panic(err)
		}
		wg.Done()
	}()
	go func() {
		var err error
		s.sMsg, err = msgDone()
		if err != nil {
			panic(err)
		}
		wg.Done()
	}()

	wg.Wait()

	dst = append(dst, serializedVersion)

	var word2 [8]byte
	varInts := binary.PutUvarint(word2[:], uint64(0)) +
		binary.PutUvarint(word2[:], uint64(len(s.sMsg))) +
		binary.PutUvarint(word2[:], uint64(rawTagBytes)) +
		binary.PutUvarint(word2[:], uint64(len(s.tagsCompBuf))) +
		binary.PutUvarint(word2[:], uint64(rawValueBytes)) +
		binary.PutUvarint(word2[:], uint64(len(s.valuesCompBuf))) +
		binary.PutUvarint(word2[:], uint64(len(s.stringBuf))) +
		binary.PutUvarint(word2[:], uint64(len(pj.Tape)))

	n := binary.PutUvarint(word2[:], uint64(1+len(s.sMsg)+len(s.tagsCompBuf)+len(s.valuesCompBuf)+varInts))
	dst = append(dst, word2[:n]...)

	// Tape length, in entries.
	n = binary.PutUvarint(word2[:], uint64(len(pj.Tape)))
	dst = append(dst, word2[:n]...)

	// String-heap size and block: unused in this version, kept for wire shape.
	dst = append(dst, 0)
	dst = append(dst, 0)

	// Deduplicated string buffer.
	n = binary.PutUvarint(word2[:], uint64(len(s.stringBuf)))
	dst = append(dst, word2[:n]...)
	n = binary.PutUvarint(word2[:], uint64(len(s.sMsg)))
	dst = append(dst, word2[:n]...)
	dst = append(dst, s.sMsg...)

	// Tags.
	n = binary.PutUvarint(word2[:], uint64(rawTagBytes))
	dst = append(dst, word2[:n]...)
	n = binary.PutUvarint(word2[:], uint64(len(s.tagsCompBuf)))
	dst = append(dst, word2[:n]...)
	dst = append(dst, s.tagsCompBuf...)

	// Values.
	n = binary.PutUvarint(word2[:], uint64(rawValueBytes))
	dst = append(dst, word2[:n]...)
	n = binary.PutUvarint(word2[:], uint64(len(s.valuesCompBuf)))
	dst = append(dst, word2[:n]...)
	dst = append(dst, s.valuesCompBuf...)

	return dst
}

// splitBlocks reads successive length-prefixed framed blocks from r and
// forwards their raw bytes on out until r is exhausted or framing is
// invalid. Nothing in this package calls it; Deserialize reads a single
// framed record from an in-memory buffer.
func (s *Serializer) splitBlocks(r io.Reader, out chan []byte) error {
	br := bufio.NewReader(r)
	defer close(out)
	for {
		v, err := br.ReadByte()
		if err != nil {
			return err
		}
		if v > serializedVersion {
			return errors.New("unknown version")
		}

		size, err := binary.ReadUvarint(br)
		if err != nil {
			return err
		}
		if size > s.maxBlockSize {
			return errors.New("compressed block too big")
		}
		block := make([]byte, size)
		n, err := io.ReadFull(br, block)
		if err != nil {
			return err
		}
		if n > 0 {
			out <- block
		}
	}
}

// Deserialize rebuilds a ParsedJson from a stream Serialize produced into
// dst, reusing dst's existing buffers where they are large enough. Only
// structural sanity checks are performed (tape length bounds, container
// tag matching); corrupting the value stream without also upsetting framing
// can go undetected.
func (s *Serializer) Deserialize(src []byte, dst *ParsedJson) (*ParsedJson, error) {
	br := bytes.NewBuffer(src)

	if v, err := br.ReadByte(); err != nil {
		return dst, err
	} else if v > serializedVersion {
		// v2 readers also accept v1 streams.
		return dst, errors.New("unknown version")
	}

	if dst == nil {
		dst = &ParsedJson{}
	}

	if c, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else if int(c) > br.Len() {
		return dst, fmt.Errorf("stream too short, want %d, only have %d left", c, br.Len())
	}

	if ts, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else {
		if uint64(cap(dst.Tape)) < ts {
			dst.Tape = make([]uint64, ts)
		}
		dst.Tape = dst.Tape[:ts]
	}

	if ss, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else {
		if uint64(cap(dst.Strings)) < ss || dst.Strings == nil {
			dst.Strings = make([]byte, ss)
		}
		dst.Strings = dst.Strings[:ss]
	}

	var waitDecode sync.WaitGroup
	var stringsErr, msgErr error
	if err := s.decBlock(br, dst.Strings, &waitDecode, &stringsErr); err != nil {
		return dst, err
	}

	if ss, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else {
		if uint64(cap(dst.Message)) < ss || dst.Message == nil {
			dst.Message = make([]byte, ss)
		}
		dst.Message = dst.Message[:ss]
	}

	if err := s.decBlock(br, dst.Message, &waitDecode, &msgErr); err != nil {
		return dst, err
	}
	defer waitDecode.Wait()

	if tags, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else {
		if uint64(cap(s.tagsBuf)) < tags {
			s.tagsBuf = make([]byte, tags)
		}
		s.tagsBuf = s.tagsBuf[:tags]
	}

	var waitTape sync.WaitGroup
	var tagsErr error
	if err := s.decBlock(br, s.tagsBuf, &waitTape, &tagsErr); err != nil {
		return dst, fmt.Errorf("decompressing tags: %w", err)
	}
	defer waitTape.Wait()

	if vals, err := binary.ReadUvarint(br); err != nil {
		return dst, err
	} else {
		if uint64(cap(s.valuesBuf)) < vals {
			s.valuesBuf = make([]byte, vals)
		}
		s.valuesBuf = s.valuesBuf[:vals]
	}

	var valsErr error
	if err := s.decBlock(br, s.valuesBuf, &waitTape, &valsErr); err != nil {
		return dst, fmt.Errorf("decompressing values: %w", err)
	}

	// Tags and values must both be fully decompressed before the tape walk below.
	waitTape.Wait()
	switch {
	case tagsErr != nil:
		return dst, fmt.Errorf("decompressing tags: %w", tagsErr)
	case valsErr != nil:
		return dst, fmt.Errorf("decompressing values: %w", valsErr)
	}

	var off int
	values := s.valuesBuf
	for _, t := range s.tagsBuf {
		if off == len(dst.Tape) {
			return dst, errors.New("tags extended beyond tape")
		}
		tag := Tag(t)

		tagWord := uint64(t) << 56
		switch tag {
		case TagString:
			if len(values) < 16 {
				return dst, fmt.Errorf("reading %v: no values left", tag)
			}
			strOffset := binary.LittleEndian.Uint64(values[:8])
			strLen := binary.LittleEndian.Uint64(values[8:16])
			values = values[16:]

			dst.Tape[off] = tagWord | strOffset
			dst.Tape[off+1] = strLen
			off += 2
		case TagFloat, TagInteger, TagUint:
			if len(values) < 8 {
				return dst, fmt.Errorf("reading %v: no values left", tag)
			}
			dst.Tape[off] = tagWord
			dst.Tape[off+1] = binary.LittleEndian.Uint64(values[:8])
			values = values[8:]
			off += 2
		case tagFloatWithFlag:
			// The full tape word (tag + payload flag) was stored verbatim.
			if len(values) < 16 {
				return dst, fmt.Errorf("reading %v: no values left", tag)
			}
			dst.Tape[off] = binary.LittleEndian.Uint64(values[:8])
			dst.Tape[off+1] = binary.LittleEndian.Uint64(values[8:16])
			values = values[16:]
			off += 2
		case TagNull, TagBoolTrue, TagBoolFalse, TagEnd:
			dst.Tape[off] = tagWord
			off++
		case TagObjectStart, TagArrayStart:
			if len(values) < 8 {
				return dst, fmt.Errorf("reading %v: no values left", tag)
			}
			val := binary.LittleEndian.Uint64(values[:8])
			values = values[8:]
			val += uint64(off)
			if val > uint64(len(dst.Tape)) {
				return dst, fmt.Errorf("%v extends beyond tape (%d). offset:%d", tag, len(dst.Tape), val)
			}

			dst.Tape[off] = tagWord | val
			// Back-patch the matching close tag now that its offset is known.
			dst.Tape[val-1] = uint64(tagOpenToClose[tag])<<56 | uint64(off)

			off++
		case TagRoot:
			if len(values) < 8 {
				return dst, fmt.Errorf("reading %v: no values left", tag)
			}
			val := binary.LittleEndian.Uint64(values[:8])
			values = values[8:]
			val += uint64(off)
			if val > uint64(len(dst.Tape)) {
				return dst, fmt.Errorf("%v extends beyond tape (%d). offset:%d", tag, len(dst.Tape), val)
			}

			dst.Tape[off] = tagWord | val

			off++
		case TagObjectEnd, TagArrayEnd:
			// Already written by the matching start tag above; just verify it.
			if dst.Tape[off]&JSONTAGMASK != tagWord {
				return dst, fmt.Errorf("reading %v, offset:%d, start tag did not match %x != %x", tag, off, dst.Tape[off]>>56, uint8(tag))
			}
			off++
		default:
			return nil, fmt.Errorf("unknown tag: %v", tag)
		}
	}
	waitDecode.Wait()
	if off != len(dst.Tape) {
		return dst, fmt.Errorf("tags did not fill tape, want %d, got %d", len(dst.Tape), off)
	}
	if len(values) > 0 {
		return dst, fmt.Errorf("values did not fill tape, want %d, got %d", len(dst.Tape), off)
	}
	if stringsErr != nil {
		return dst, fmt.Errorf("reading strings: %w", stringsErr)
	}
	return dst, nil
}

// decBlock reads one framed block from br into dst, launching the actual
// decompression (S2/zstd) on its own goroutine tracked by wg; *dstErr
// carries that goroutine's result back to the caller once wg is waited on.
func (s *Serializer) decBlock(br *bytes.Buffer, dst []byte, wg *sync.WaitGroup, dstErr *error) error {
	size, err := binary.ReadUvarint(br)
	if err != nil {
		return err
	}
	if size > uint64(br.Len()) {
		return fmt.Errorf("block size (%d) extends beyond input %d", size, br.Len())
	}
	if size == 0 && len(dst) == 0 {
		return nil
	}
	if size < 1 {
		return fmt.Errorf("block size (%d) too small %d", size, br.Len())
	}

	typ, err := br.ReadByte()
	if err != nil {
		return err
	}
	size--
	compressed := br.Next(int(size))
	if len(compressed) != int(size) {
		return errors.New("short block section")
	}
	switch typ {
	case blockTypeUncompressed:
		if len(compressed) != len(dst) {
			return fmt.Errorf("short uncompressed block: in (%d) != out (%d)", len(compressed), len(dst))
		}
		copy(dst, compressed)
	case blockTypeS2:
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := bytes.NewBuffer(compressed)
			dec := s2Readers.Get().(*s2.Reader)
			dec.Reset(buf)
			_, err := io.ReadFull(dec, dst)
			dec.Reset(nil)
			s2Readers.Put(dec)
			*dstErr = err
		}()
	case blockTypeZstd:
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := len(dst)
			out, err := zDec.DecodeAll(compressed, dst[:0])
			if err == nil && want != len(out) {
				err = errors.New("zstd decompressed size mismatch")
			}
			*dstErr = err
		}()
	default:
		return fmt.Errorf("unknown compression type: %d", typ)
	}
	return nil
}

const (
	blockTypeUncompressed byte = 0
	blockTypeS2           byte = 1
	blockTypeZstd         byte = 2
)

var zDec *zstd.Decoder

var zEncFast = sync.Pool{New: func() interface{} {
	e, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderCRC(false))
	return e
}}

var s2FastWriters = sync.Pool{New: func() interface{} {
	return s2.NewWriter(nil)
}}

var s2Writers = sync.Pool{New: func() interface{} {
	return s2.NewWriter(nil, s2.WriterBetterCompression())
}}
var s2Readers = sync.Pool{New: func() interface{} {
	return s2.NewReader(nil)
}}

var initSerializerOnce sync.Once

func initSerializer() {
	zDec, _ = zstd.NewReader(nil)
}

type encodedResult func() ([]byte, error)

// encBlock opens a writer for one framed block in the given compression
// mode and returns a closure that finalizes it (flushing/closing the
// underlying compressor and returning the completed framed bytes).
func encBlock(mode byte, buf []byte, fast bool) (io.Writer, encodedResult) {
	dst := bytes.NewBuffer(buf[:0])
	dst.WriteByte(mode)
	switch mode {
	case blockTypeUncompressed:
		return dst, func() ([]byte, error) {
			return dst.Bytes(), nil
		}
	case blockTypeS2:
		var enc *s2.Writer
		var pool *sync.Pool
		if fast {
			enc = s2FastWriters.Get().(*s2.Writer)
			pool = &s2FastWriters
		} else {
			enc = s2Writers.Get().(*s2.Writer)
			pool = &s2Writers
		}
		enc.Reset(dst)
		return enc, func() ([]byte, error) {
			if err := enc.Close(); err != nil {
				return nil, err
			}
			enc.Reset(nil)
			pool.Put(enc)
			return dst.Bytes(), nil
		}
	case blockTypeZstd:
		enc := zEncFast.Get().(*zstd.Encoder)
		enc.Reset(dst)
		return enc, func() ([]byte, error) {
			if err := enc.Close(); err != nil {
				return nil, err
			}
			enc.Reset(nil)
			zEncFast.Put(enc)
			return dst.Bytes(), nil
		}
	}
	panic("unknown compression mode")
}

// indexString returns sb's offset in the deduplicated string buffer,
// appending it only if an identical string isn't already present at the
// position its hash bucket points to (a single-slot hash table, so a
// bucket collision with a different string just means no dedup that time,
// not a correctness problem).
func (s *Serializer) indexString(sb []byte) (offset uint64) {
	// 32-bit length overflow is unreachable on 64-bit platforms, where this
	// runs; kept as a guard. Serialize is the only caller.
	if uint32(len(sb)) >= math.MaxUint32 {
		panic("string too long")
	}

	h := memHash(sb) & stringmask
	off := int(s.stringsTable[h]) - 1
	end := off + len(sb)
	if off >= 0 && end <= len(s.stringBuf) {
		if bytes.Equal(s.stringBuf[off:end], sb) {
			return uint64(off)
		}
	}
	off = len(s.stringBuf)
	s.stringBuf = append(s.stringBuf, sb...)
	s.stringsTable[h] = uint32(off + 1)
	s.stringWr.Write(sb)
	return uint64(off)
}

//go:noescape
//go:linkname memhash runtime.memhash
func memhash(p unsafe.Pointer, h, s uintptr) uintptr

// memHash hashes data using the runtime's map hash (AES-accelerated when
// available). The seed is randomized per process, so values are only
// comparable within a single run - never persist a memHash result.
func memHash(data []byte) uint64 {
	ss := (*stringStruct)(unsafe.Pointer(&data))
	return uint64(memhash(ss.str, 0, uintptr(ss.len)))
}

type stringStruct struct {
	str unsafe.Pointer
	len int
}
