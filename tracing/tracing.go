// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tracing

import (
	"fmt"
	"net/http"

	"github.com/gogama/reqi"
	"github.com/gogama/reqi/errs"
	"github.com/gogama/reqi/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of the default tracer.
const ScopeName = "github.com/gogama/reqi/tracing"

// RequestIDHeader carries the identifier of the logical request chain
// on every attempt.
const RequestIDHeader = "X-Request-Id"

type spanKey struct{}

type tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// An Option customizes the handlers installed by Install.
type Option func(*tracer)

// WithPropagator sets the propagator that injects the span context into
// each attempt's request header. The default is the global propagator
// at the time of each attempt.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(t *tracer) {
		t.propagator = p
	}
}

// Install adds handlers to g which wrap every dispatch attempt in a
// client span started from tr. If tr is nil, a tracer from the global
// tracer provider is used.
func Install(g *reqi.HandlerGroup, tr trace.Tracer, opts ...Option) {
	if tr == nil {
		tr = otel.Tracer(ScopeName)
	}
	t := &tracer{tracer: tr}
	for _, opt := range opts {
		opt(t)
	}

	g.PushBack(reqi.BeforeAttempt, reqi.HandlerFunc(t.start))
	g.PushBack(reqi.AfterAttempt, reqi.HandlerFunc(t.end))
}

func (t *tracer) start(_ reqi.Event, e *request.Execution) {
	req := e.Request
	ctx, span := t.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", e.Config.URL.Redacted()),
			attribute.String("server.address", e.Config.Hostname),
			attribute.Int("server.port", e.Config.Port),
			attribute.String("reqi.request_id", e.Config.ID),
			attribute.Int("reqi.attempt", e.Attempt),
			attribute.Int("reqi.redirects", e.Redirects()),
			attribute.Int("reqi.retries", e.Retries()),
		),
	)
	e.SetValue(spanKey{}, span)

	p := t.propagator
	if p == nil {
		p = otel.GetTextMapPropagator()
	}
	p.Inject(ctx, propagation.HeaderCarrier(req.Header))
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, e.Config.ID)
	}
}

func (t *tracer) end(_ reqi.Event, e *request.Execution) {
	span, ok := e.Value(spanKey{}).(trace.Span)
	if !ok || span == nil {
		return
	}
	e.SetValue(spanKey{}, nil)
	defer span.End()

	if status := e.StatusCode(); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
	}
	if e.Err != nil {
		span.SetAttributes(attribute.String("error.type", errs.KindOf(e.Err).String()))
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
}
