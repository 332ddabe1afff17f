// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package tracing wraps the dispatch attempts of a reqi client in
OpenTelemetry client spans.

Each attempt, including every redirect hop and retry, gets its own
span. The span context is injected into the attempt's request header,
and the X-Request-Id header is set to the identifier of the logical
request chain so that all attempts of one call can be correlated on the
server.

	handlers := &reqi.HandlerGroup{}
	tracing.Install(handlers, otel.Tracer("my-service"))
	client.Handlers = handlers
*/
package tracing
