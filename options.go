package simdjson

import "github.com/sirupsen/logrus"

const (
	// defaultMaxDepth bounds container nesting (spec §4.5 DEPTH_ERROR).
	defaultMaxDepth = 128
	// defaultSoftCapacity is recorded on a Parser but not consulted by any
	// parse; scratch buffers are sized from each input's length.
	defaultSoftCapacity = 1 << 20
	// defaultHardCapacity is the input size beyond which a parse returns
	// ErrCapacity rather than growing buffers further (spec §5).
	defaultHardCapacity = 1 << 32
)

// ParserOption configures a Parser at construction time.
type ParserOption func(p *Parser) error

// WithCopyStrings will copy strings so they no longer reference the input.
// For enhanced performance, simdjson-go can point back into the original JSON
// buffer for strings, however this can lead to issues in streaming use cases,
// or scenarios in which the underlying JSON buffer is reused. So the default
// behaviour is to create copies of all strings (not just those transformed
// anyway for unicode escape characters) into the separate string heap, at the
// expense of using more memory and less performance.
// Default: true - strings are copied.
func WithCopyStrings(b bool) ParserOption {
	return func(p *Parser) error {
		p.copyStrings = b
		return nil
	}
}

// WithMaxDepth sets the maximum container nesting depth a parse will accept
// before returning ErrDepthError. Must be at least 1.
func WithMaxDepth(depth int) ParserOption {
	return func(p *Parser) error {
		if depth < 1 {
			return ErrDepthError
		}
		p.maxDepth = depth
		return nil
	}
}

// WithCapacity sets the soft and hard capacity for a Parser. Inputs beyond
// hard fail fast with ErrCapacity without being consumed. soft is recorded
// but no parse reads it: scratch buffers are sized from each input's length
// regardless of soft.
func WithCapacity(soft, hard uint64) ParserOption {
	return func(p *Parser) error {
		if hard < soft {
			hard = soft
		}
		p.softCapacity = soft
		p.hardCapacity = hard
		return nil
	}
}

// WithVerboseLogging attaches a structured logger that traces ondemand (lazy)
// cursor activity — container enter/exit, skip, errors — at Debug level.
// Parser.Parse also logs the start, completion or error of each eager parse.
// Off by default; the stage 1 scanner and stage 2 tape walker never log
// regardless of this setting, since they sit on the CPU-bound hot path
// (spec §5).
func WithVerboseLogging(log logrus.FieldLogger) ParserOption {
	return func(p *Parser) error {
		p.log = log
		p.verbose = log != nil
		return nil
	}
}

// WithCorrelationID overrides how a Parser mints the correlation ID attached
// to verbose log lines for a given parse. Defaults to a fresh UUIDv4 per
// call. Mainly useful in tests, to get deterministic log output.
func WithCorrelationID(gen func() string) ParserOption {
	return func(p *Parser) error {
		p.newCorrelationID = gen
		return nil
	}
}
