package simdjson

import "github.com/sirupsen/logrus"

// Parser is a reusable, single-goroutine entry point into both the eager
// tape builder and the lazy on-demand API. Unlike the package-level
// Parse/ParseND/ParseLazy helpers - which always run with default options -
// a Parser lets a caller configure string-copy behaviour, max nesting
// depth, capacity, and verbose tracing once and apply them to many parses.
// A Parser holds no buffers itself; Parse reuses the structural index buffer
// of a previous result that the caller passes back as reuse. A Parser is not
// safe for concurrent use; run one per goroutine.
type Parser struct {
	copyStrings  bool
	maxDepth     int
	softCapacity uint64
	hardCapacity uint64

	log              logrus.FieldLogger
	verbose          bool
	newCorrelationID func() string
}

// NewParser creates a Parser with the package defaults (string copying on,
// 128-deep nesting limit, soft/hard capacity per defaultSoftCapacity and
// defaultHardCapacity), then applies opts in order.
func NewParser(opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		copyStrings:  true,
		maxDepth:     defaultMaxDepth,
		softCapacity: defaultSoftCapacity,
		hardCapacity: defaultHardCapacity,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// defaultParser backs the package-level Parse/ParseND/ParseLazy helpers so
// their behaviour (aside from not reusing scratch buffers across calls) is
// identical to a freshly constructed Parser.
var defaultParser = &Parser{
	copyStrings:  true,
	maxDepth:     defaultMaxDepth,
	softCapacity: defaultSoftCapacity,
	hardCapacity: defaultHardCapacity,
}

// Parse parses b as a single JSON document, per spec §4.5. An optional
// previously-parsed result can be supplied in reuse to avoid reallocating
// its scratch buffers.
func (p *Parser) Parse(b []byte, reuse *ParsedJson) (*ParsedJson, error) {
	if uint64(len(b)) > p.hardCapacity {
		return nil, ErrCapacity
	}
	var pj *internalParsedJson
	if reuse != nil && reuse.internal != nil {
		pj = reuse.internal
		pj.ParsedJson = *reuse
		pj.ParsedJson.internal = nil
	}
	if pj == nil {
		pj = &internalParsedJson{}
	}
	pj.copyStrings = p.copyStrings
	pj.maxDepth = p.maxDepth
	pj.initialize(len(b))

	t := p.newTracer("parse")
	t.event("start", 0, "")
	err := pj.parseMessage(b)
	if err != nil {
		t.error(0, err)
		return nil, err
	}
	t.event("done", 0, "")
	parsed := &pj.ParsedJson
	pj.ParsedJson = ParsedJson{}
	parsed.internal = pj
	return parsed, nil
}

// ParseND parses b as newline-delimited JSON (one root value per record).
func (p *Parser) ParseND(b []byte, reuse *ParsedJson) (*ParsedJson, error) {
	if uint64(len(b)) > p.hardCapacity {
		return nil, ErrCapacity
	}
	var pj internalParsedJson
	if reuse != nil {
		pj.ParsedJson = *reuse
	}
	pj.copyStrings = p.copyStrings
	pj.maxDepth = p.maxDepth
	pj.initialize(len(b))

	if err := pj.parseMessageNdjson(b); err != nil {
		return nil, err
	}
	return &pj.ParsedJson, nil
}

// ParseLazy parses b and returns a lazy LazyDocument (spec §4.6) instead of an
// eager tape. The returned LazyDocument and everything descended from it borrow
// b and p's internal state; they are invalidated by the next call to any
// Parse*/ParseLazy method on p.
func (p *Parser) ParseLazy(b []byte) (*LazyDocument, error) {
	if uint64(len(b)) > p.hardCapacity {
		return nil, ErrCapacity
	}
	var sc scanner
	idx, err := sc.scan(b, make([]uint32, 0, len(b)/2+64))
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, ErrEmpty
	}
	d := newLazyDocument(b, idx, p.maxDepth)
	d.it.trace = p.newTracer("ondemand")
	d.it.trace.event("start", 0, "")
	return d, nil
}

// ReallocIfNeeded returns a copy of b padded with Padding trailing zero
// bytes if b does not already carry that much spare capacity, so that the
// result can be safely reused as the input to repeated parses even if the
// original buffer is tight. Spec §6: "If the caller cannot guarantee
// padding, a realloc_if_needed mode copies into an internal padded buffer."
func ReallocIfNeeded(b []byte) []byte {
	return withPadding(b)
}

// ParseLazy is the package-level convenience form of Parser.ParseLazy,
// using default options.
func ParseLazy(b []byte) (*LazyDocument, error) {
	return defaultParser.ParseLazy(b)
}
