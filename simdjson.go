package simdjson

import (
	"bufio"
	"fmt"
	"io"
)

// Parse parses b as a single JSON document using default options, per spec
// §4.5. An optional previously-parsed result can be supplied in reuse to
// avoid reallocating its scratch buffers. Equivalent to
// defaultParser.Parse(b, reuse).
func Parse(b []byte, reuse *ParsedJson) (*ParsedJson, error) {
	return defaultParser.Parse(b, reuse)
}

// ParseND parses b as newline-delimited JSON using default options.
// Equivalent to defaultParser.ParseND(b, reuse).
func ParseND(b []byte, reuse *ParsedJson) (*ParsedJson, error) {
	return defaultParser.ParseND(b, reuse)
}

// A Stream is used to stream back results from ParseNDStream /
// ParseNDStreamConcurrent. Value is nil exactly when Error is non-nil.
type Stream struct {
	Value *ParsedJson
	Error error
}

// ParseNDStream will parse a stream and return parsed JSON to the supplied result channel.
// Each element is contained within a root tag.
//   <root>Element 1</root><root>Element 2</root>...
// Each result will contain an unspecified number of full elements,
// so it can be assumed that each result starts and ends with a root tag.
// The parser will keep parsing until writes to the result stream blocks.
// A stream is finished when a non-nil Error is returned.
// If the stream was parsed until the end the Error value will be io.EOF
// The channel will be closed after an error has been returned.
// An optional channel for returning consumed results can be provided.
// There is no guarantee that elements will be consumed, so always use
// non-blocking writes to the reuse channel.
func ParseNDStream(r io.Reader, res chan<- Stream, reuse <-chan *ParsedJson) {
	const tmpSize = 10 << 20
	buf := bufio.NewReaderSize(r, tmpSize)
	tmp := make([]byte, tmpSize+1024)
	go func() {
		defer close(res)
		var pj internalParsedJson
		for {
			tmp = tmp[:tmpSize]
			n, err := buf.Read(tmp)
			if err != nil && err != io.EOF {
				res <- Stream{Error: fmt.Errorf("reading input: %w", err)}
				return
			}
			tmp = tmp[:n]
			// Read until Newline
			if err != io.EOF {
				b, rerr := buf.ReadBytes('\n')
				if rerr != nil && rerr != io.EOF {
					res <- Stream{Error: fmt.Errorf("reading input: %w", rerr)}
					return
				}
				tmp = append(tmp, b...)
			}
			if len(tmp) > 0 {
				if recycled := recv(reuse); recycled != nil && recycled.internal != nil {
					pj = *recycled.internal
				} else {
					pj.ParsedJson = ParsedJson{}
				}
				if uint64(len(tmp)) > defaultHardCapacity {
					res <- Stream{Error: ErrCapacity}
					return
				}
				pj.copyStrings = alwaysCopyStrings
				pj.maxDepth = defaultMaxDepth
				pj.initialize(len(tmp))
				parseErr := pj.parseMessageNdjson(tmp)
				if parseErr != nil {
					res <- Stream{Error: fmt.Errorf("parsing input: %w", parseErr)}
					return
				}
				out := pj.ParsedJson
				res <- Stream{Value: &out}
			}
			if err != nil {
				// Should only really be io.EOF
				res <- Stream{Error: err}
				return
			}
		}
	}()
}

// recv drains one already-available value from a reuse channel without
// blocking, matching ParseNDStream's "no guarantee of consumption, always
// non-blocking" contract.
func recv(reuse <-chan *ParsedJson) *ParsedJson {
	if reuse == nil {
		return nil
	}
	select {
	case pj := <-reuse:
		return pj
	default:
		return nil
	}
}
