package tracing

import (
	"context"
	"time"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Span struct {
	span    trace.Span
	logger  *zap.Logger
	name    string
	started time.Time
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:    span,
		logger:  logger,
		name:    name,
		started: time.Now(),
	}
}

// End closes the span. A non-nil err marks the span failed and is logged at
// debug level with its code so callers keep their own log level decisions.
func (s *Span) End(err error) {
	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
		s.span.SetAttributes(attribute.String("error.code", apperr.CodeOf(err)))

		if s.logger != nil {
			s.logger.Debug("span failed",
				zap.String("span", s.name),
				zap.String(logg.Code, apperr.CodeOf(err)),
				zap.Duration("elapsed", time.Since(s.started)),
				zap.Error(err))
		}
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
