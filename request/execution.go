// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/reqi/policy"
	"github.com/gogama/reqi/transient"
)

// An Execution represents the state of a single logical request chain.
//
// When a request is made, an Execution is created for it. The
// Execution is updated as the chain progresses (for example when the
// HTTP response becomes available, or when a redirect or retry is
// needed) and is handed to timeout policies, retry policies and event
// handlers.
//
// Policies and event handlers may set values on an Execution using its
// SetValue method and read them back using the Value method. However,
// they should treat the structure's exported field values as immutable
// and leave them unmodified, as the execution state is vital to the
// correct functioning of the request lifecycle. Limited exceptions to
// this rule include making reasonable changes to the http.Request
// before it is sent (for example, to add tracing or signing headers).
type Execution struct {
	// Description is the caller's request description. It is nil
	// only if the caller passed a nil description, in which case the
	// execution ends with an InvalidInput error before any attempt.
	Description *Description

	// Config is the resolved configuration of the request chain. It
	// is nil until the description has been resolved, and remains nil
	// if resolution failed.
	Config *Config

	// Policy is the client policy snapshot read for the current
	// attempt. It is refreshed before every attempt.
	Policy policy.Policy

	// Start is the start time of the request chain. It is assigned a
	// non-zero value when the chain starts, and this value remains
	// constant thereafter.
	Start time.Time

	// End is the end time of the request chain. It contains the zero
	// value until the chain ends, when it is set to the current time.
	End time.Time

	// Attempt is the zero-based number of the current dispatch attempt
	// within the chain, counting both redirect hops and retries.
	Attempt int

	// AttemptTimeouts is the count of the number of times an attempt
	// timed out during the execution.
	AttemptTimeouts int

	// Request specifies the HTTP request to be made in the current
	// attempt, or already made in the last attempt.
	Request *http.Request

	// Response specifies the HTTP response received in the most recent
	// attempt. It will be nil if the most recent attempt ended in an
	// error, or if a current attempt is underway, or before the
	// execution starts.
	Response *http.Response

	// Err indicates the error that ended the execution, or the most
	// recent attempt. Whenever Err is non-nil, it has the type
	// *errs.Error.
	Err error

	// Body is the complete response body read from the response after
	// the most recent attempt.
	//
	// Note that it is possible that both Body and Err are non-nil, if
	// a read of the body was partially successful. The Body field
	// of a completed execution should be treated as invalid unless Err
	// is nil.
	Body []byte

	// JSON is the decoded response body, when decoding was enabled by
	// the policy and the response declared a JSON content type.
	JSON any

	// Wait is the delay before the pending retry. It is set before the
	// BeforeRetryWait event and zero otherwise.
	Wait time.Duration

	// data contains arbitrary user data. Event handlers may interact
	// with it via the Value and SetValue methods.
	data context.Context
}

// StatusCode returns the status code of the HTTP response from the
// most recent attempt in the execution. If there is no HTTP response,
// 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the most recent attempt
// in the execution. If there is no HTTP response, the nil header is
// returned.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
//
// If the return value is true, End is a non-zero time and there will
// be no further changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Redirects returns the number of redirect hops followed so far.
func (e *Execution) Redirects() int {
	if e.Config == nil {
		return 0
	}
	return e.Config.RetryState.RedirectAttempts
}

// Retries returns the number of retries made so far.
func (e *Execution) Retries() int {
	if e.Config == nil {
		return 0
	}
	return e.Config.RetryState.RetryAttempts
}

// Result returns the Response for the most recent attempt, or nil if
// there is no HTTP response.
func (e *Execution) Result() *Response {
	if e.Response == nil {
		return nil
	}
	return &Response{
		StatusCode: e.Response.StatusCode,
		Header:     e.Response.Header,
		Body:       e.Body,
		JSON:       e.JSON,
		Config:     e.Config,
	}
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue: it may not be nil, it must be comparable, and it
// should not be of a built-in type.
func (e *Execution) SetValue(key, value any) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key any) any {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
