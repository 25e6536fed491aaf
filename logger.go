package simdjson

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// tracer emits structured trace lines for one parse's on-demand cursor
// activity: container enter/exit, skip, and error. Ported from the
// original C++ implementation's ondemand::logger vocabulary
// (log_event/log_start_value/log_end_value/log_error in
// src/generic/ondemand/logger-inl.h) onto logrus fields instead of aligned
// console columns. A nil *tracer is valid and every method on it is a
// no-op, so the hot eager/scanner path never has to check "is logging on"
// itself - only Parser.newTracer does. The lazy API traces through it, and
// Parser.Parse uses it only for start/done/error lines around a parse (spec
// §5: the scan/walk hot path never logs).
type tracer struct {
	log logrus.FieldLogger
}

// newTracer returns nil unless verbose logging was enabled with
// WithVerboseLogging, in which case it returns a tracer carrying a fresh
// (or caller-supplied, via WithCorrelationID) correlation ID so concurrent
// Parsers can be told apart in one shared log stream.
func (p *Parser) newTracer(op string) *tracer {
	if !p.verbose || p.log == nil {
		return nil
	}
	id := ""
	if p.newCorrelationID != nil {
		id = p.newCorrelationID()
	} else {
		id = uuid.New().String()
	}
	return &tracer{log: p.log.WithFields(logrus.Fields{
		"correlation_id": id,
		"op":             op,
	})}
}

func (t *tracer) event(action string, depth int, detail string) {
	if t == nil {
		return
	}
	t.log.WithFields(logrus.Fields{"depth": depth, "detail": detail}).Debug(action)
}

func (t *tracer) error(depth int, err error) {
	if t == nil {
		return
	}
	t.log.WithField("depth", depth).WithError(err).Debug("error")
}
