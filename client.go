// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogama/reqi/errs"
	"github.com/gogama/reqi/policy"
	"github.com/gogama/reqi/request"
	"github.com/gogama/reqi/retry"
	"github.com/gogama/reqi/throttle"
	"github.com/gogama/reqi/timeout"
	"github.com/gogama/reqi/transient"
	"github.com/rs/zerolog"
)

var (
	emptyHandlers = HandlerGroup{}
	nopLogger     = zerolog.Nop()
)

// Reasons an in-flight attempt was aborted.
const (
	notAborted int32 = iota
	abortedByTimer
	abortedByCaller
)

// A Client executes logical HTTP requests, transparently following
// redirects and retrying responses as its policy directs. Its zero
// value is a valid configuration, using policy.Default (no redirects,
// no retries).
//
// Client is safe for concurrent use by multiple goroutines. Each call
// owns its own request configuration, and no lock is held while a call
// is in flight.
//
// The client policy is read afresh before every dispatch attempt, so
// policy changes apply to in-flight calls: a call that started under
// one policy follows the current policy on its next redirect hop or
// retry.
//
// On top of what the agent provides, Client adds the following
// features:
//
// • Client reads and buffers the entire HTTP response body, and
// optionally decodes it as JSON;
//
// • Client follows redirects and retries retryable status codes, within
// the limits of its policy;
//
// • Client sets individual attempt timeouts using a customizable
// timeout policy; and
//
// • Client invokes user-provided handler functions at designated plug-in
// points within the attempt loop, allowing new features to be mixed in
// from outside libraries.
type Client struct {
	// RetryPolicy decides whether to retry a response and how long to
	// wait before retrying.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used, which follows
	// the client policy.
	RetryPolicy retry.Policy
	// TimeoutPolicy specifies how to set timeouts on individual
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used, which
	// applies the timeout given in the request description.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during a request chain.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives debug events for each attempt, redirect and
	// retry, and error events for failed calls.
	//
	// If Logger is nil, nothing is logged.
	Logger *zerolog.Logger
	// Throttle, if not nil, bounds the rate at which the client
	// dispatches attempts across all of its request chains.
	Throttle *throttle.Throttle

	mu        sync.RWMutex
	policy    policy.Policy
	policySet bool
	version   uint64
}

// NewClient returns a Client following policy p. It returns an
// *errs.Error of kind InvalidClientOptions if p is invalid.
func NewClient(p policy.Policy) (*Client, error) {
	c := &Client{}
	if err := c.SetPolicy(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Policy returns a snapshot of the client's current policy.
func (c *Client) Policy() policy.Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.policySet {
		return policy.Default()
	}
	return c.policy.Normalize()
}

// SetPolicy replaces the client's policy. If p is invalid, an
// *errs.Error of kind InvalidClientOptions is returned and the policy
// is left unchanged.
//
// Calls already in flight follow p from their next attempt on.
func (c *Client) SetPolicy(p policy.Policy) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(p)
	return nil
}

// UpdatePolicy applies f to a copy of the current policy and installs
// the result. If the result is invalid, an *errs.Error of kind
// InvalidClientOptions is returned and the policy is left unchanged.
//
// No lock is held while f runs, so f may call back into the client.
// If another update lands while f runs, f is applied again to the
// newer policy, so f should be free of side effects.
func (c *Client) UpdatePolicy(f func(p *policy.Policy)) error {
	for {
		c.mu.RLock()
		p := policy.Default()
		if c.policySet {
			p = c.policy.Normalize()
		}
		version := c.version
		c.mu.RUnlock()

		f(&p)
		p = p.Normalize()
		if err := p.Validate(); err != nil {
			return err
		}

		c.mu.Lock()
		if c.version == version {
			c.install(p)
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
	}
}

// install sets the policy. The caller must hold c.mu.
func (c *Client) install(p policy.Policy) {
	c.policy = p
	c.policySet = true
	c.version++
}

// Do executes the logical request described by d and returns the final
// execution state, following the client policy and the retry and
// timeout policies set on Client.
//
// The returned Execution is never nil. If an error is returned, the
// Err field of the Execution references the same error, and the error
// is an *errs.Error whose Kind tells what went wrong. A status code
// that exhausted the redirect or retry budget is not an error: the
// final response is returned as is.
//
// The description is not modified. Its State and ID fields continue an
// existing chain when they are set.
//
// For simple use cases, Request and the verb methods Get, Head, Delete,
// Post, Put and Patch may prove easier to use than Do.
func (c *Client) Do(ctx context.Context, d *request.Description) (*request.Execution, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	e := &request.Execution{
		Description: d,
	}

	logger := c.logger()

	timeoutPolicy := c.TimeoutPolicy
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	retryPolicy := c.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = retry.DefaultPolicy
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	cfg, err := request.Resolve(d)
	if err != nil {
		e.Err = annotate(err, e)
		return c.end(e, handlers, logger)
	}
	e.Config = cfg
	defer cfg.Release()

	var payload, body *request.Payload
	defer func() {
		_ = payload.Close()
	}()

	for {
		e.Policy = c.Policy()
		if err = e.Policy.Validate(); err != nil {
			e.Err = annotate(err, e)
			break
		}

		if e.Attempt == 0 {
			if payload, err = request.NewPayload(cfg.Body); err != nil {
				e.Err = annotate(err, e)
				break
			}
			body = payload
		}

		c.attempt(ctx, e, body, handlers, timeoutPolicy.Timeout(e), logger)
		if e.Timeout() {
			e.AttemptTimeouts++
			handlers.run(AfterAttemptTimeout, e)
		}
		handlers.run(AfterAttempt, e)
		if e.Err != nil {
			break
		}

		if location := redirectLocation(e); location != "" && e.Policy.RedirectAllowed(e.Redirects()) {
			status := e.StatusCode()
			if err = cfg.Redirect(location); err != nil {
				e.Err = annotate(err, e)
				break
			}
			cfg.RetryState.RedirectAttempts++
			if status != http.StatusTemporaryRedirect && status != http.StatusPermanentRedirect {
				body = nil
			}
			handlers.run(BeforeRedirect, e)
			logger.Debug().
				Str("request_id", cfg.ID).
				Int("status", status).
				Str("url", cfg.URL.Redacted()).
				Int("redirects", cfg.RetryState.RedirectAttempts).
				Msg("following redirect")
			next(e)
			continue
		}

		if retryPolicy.Decide(e) {
			e.Wait = retryPolicy.Wait(e)
			cfg.RetryState.RetryAttempts++
			handlers.run(BeforeRetryWait, e)
			logger.Debug().
				Str("request_id", cfg.ID).
				Int("status", e.StatusCode()).
				Int("retries", cfg.RetryState.RetryAttempts).
				Dur("wait", e.Wait).
				Msg("queuing retry")
			if err = sleep(ctx, e.Wait); err != nil {
				e.Err = annotate(transportError(transient.HangUp(false, err)), e)
				break
			}
			next(e)
			continue
		}

		decode(e)
		break
	}

	return c.end(e, handlers, logger)
}

// Request executes the logical request described by d and returns its
// final response. If body is not nil, it is sent instead of the body
// embedded in d.
//
// The supported body types are those of request.NewPayload: an
// io.Reader is streamed, a string or []byte is sent verbatim, and
// any other value is encoded as JSON.
func (c *Client) Request(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Request(ctx, c, d, body)
}

// Get issues a GET for the request described by d, using the same
// policies followed by Do.
func (c *Client) Get(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Get(ctx, c, d)
}

// Head issues a HEAD for the request described by d, using the same
// policies followed by Do.
func (c *Client) Head(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Head(ctx, c, d)
}

// Delete issues a DELETE for the request described by d, using the
// same policies followed by Do.
func (c *Client) Delete(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Delete(ctx, c, d)
}

// Post issues a POST for the request described by d, using the same
// policies followed by Do. A non-nil body overrides the body embedded
// in d.
func (c *Client) Post(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Post(ctx, c, d, body)
}

// Put issues a PUT for the request described by d, using the same
// policies followed by Do. A non-nil body overrides the body embedded
// in d.
func (c *Client) Put(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Put(ctx, c, d, body)
}

// Patch issues a PATCH for the request described by d, using the same
// policies followed by Do. A non-nil body overrides the body embedded
// in d.
func (c *Client) Patch(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Patch(ctx, c, d, body)
}

// PostForm issues a POST for the request described by d, with data's
// keys and values URL-encoded as the request body.
func (c *Client) PostForm(ctx context.Context, d *request.Description, data url.Values) (*request.Response, error) {
	return PostForm(ctx, c, d, data)
}

func (c *Client) attempt(ctx context.Context, e *request.Execution, body *request.Payload, handlers *HandlerGroup, timeout time.Duration, logger *zerolog.Logger) {
	actx, cancel := context.WithCancel(ctx)
	defer cancel()

	var aborted atomic.Int32
	abort := func(reason int32) {
		if aborted.CompareAndSwap(notAborted, reason) {
			cancel()
		}
	}
	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() { abort(abortedByTimer) })
		defer timer.Stop()
	}
	stop := context.AfterFunc(ctx, func() { abort(abortedByCaller) })
	defer stop()

	cfg := e.Config
	req, err := cfg.ToRequest(actx, body)
	if err != nil {
		e.Err = annotate(errs.Wrap(errs.BodySerialization, "cannot read body", err), e)
		return
	}
	e.Request = req
	handlers.run(BeforeAttempt, e)

	logger.Debug().
		Str("request_id", cfg.ID).
		Str("method", cfg.Method).
		Str("url", cfg.URL.Redacted()).
		Int("attempt", e.Attempt).
		Int("redirects", cfg.RetryState.RedirectAttempts).
		Int("retries", cfg.RetryState.RetryAttempts).
		Msg("dispatching")

	resp, err := c.roundTripper(cfg).RoundTrip(e.Request)
	if err != nil {
		e.Err = annotate(transportError(hangUp(ctx, err, aborted.Load())), e)
		return
	}
	e.Response = resp
	readBody(ctx, e, handlers, &aborted)
}

func readBody(ctx context.Context, e *request.Execution, handlers *HandlerGroup, aborted *atomic.Int32) {
	defer func() {
		_ = e.Response.Body.Close()
	}()
	handlers.run(BeforeReadBody, e)
	var err error
	e.Body, err = io.ReadAll(e.Response.Body)
	if err == nil {
		return
	}

	reason := aborted.Load()
	if reason == notAborted && errors.Is(err, io.ErrUnexpectedEOF) {
		e.Err = annotate(&errs.Error{
			Kind:    errs.IncompleteResponse,
			Message: "response terminated before completion",
			Err:     err,
		}, e)
		return
	}
	e.Err = annotate(transportError(hangUp(ctx, err, reason)), e)
}

// hangUp converts err into a "socket hang up" error if the attempt was
// aborted or the agent gave up on a socket timeout.
func hangUp(ctx context.Context, err error, reason int32) error {
	switch {
	case reason == abortedByTimer:
		return transient.HangUp(true, err)
	case reason == abortedByCaller || ctx.Err() != nil:
		return transient.HangUp(false, err)
	case transient.Categorize(err) == transient.Timeout:
		return transient.HangUp(true, err)
	default:
		return err
	}
}

func transportError(err error) *errs.Error {
	return &errs.Error{Kind: errs.TransportError, Err: err}
}

func (c *Client) roundTripper(cfg *request.Config) http.RoundTripper {
	rt := cfg.RoundTripper()
	if c.Throttle != nil {
		rt = c.Throttle.Wrap(rt)
	}
	return rt
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger == nil {
		return &nopLogger
	}
	return c.Logger
}

func (c *Client) end(e *request.Execution, handlers *HandlerGroup, logger *zerolog.Logger) (*request.Execution, error) {
	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)
	if e.Err != nil {
		ev := logger.Error().Err(e.Err).Str("kind", errs.KindOf(e.Err).String())
		if e.Config != nil {
			ev = ev.Str("request_id", e.Config.ID).
				Str("method", e.Config.Method).
				Str("url", e.Config.URL.Redacted())
		}
		ev.Msg("request failed")
	} else {
		logger.Debug().
			Str("request_id", e.Config.ID).
			Int("status", e.StatusCode()).
			Int("redirects", e.Redirects()).
			Int("retries", e.Retries()).
			Dur("duration", e.Duration()).
			Msg("request complete")
	}
	return e, e.Err
}

// next clears the per-attempt state before a redirect hop or retry.
func next(e *request.Execution) {
	e.Request = nil
	e.Response = nil
	e.Body = nil
	e.Err = nil
	e.Wait = 0
	e.Attempt++
}

// redirectLocation returns the Location of a redirect response, or the
// empty string if the response is not a redirect.
func redirectLocation(e *request.Execution) string {
	status := e.StatusCode()
	if status < 300 || status >= 400 {
		return ""
	}
	return e.Header().Get("Location")
}

// decode parses the response body as JSON when the policy asks for it
// and the response declares a JSON content type. An empty body decodes
// to nil.
func decode(e *request.Execution) {
	if !e.Policy.DecodeJSON || len(e.Body) == 0 || !request.IsJSON(e.Header().Get("Content-Type")) {
		return
	}
	if err := json.Unmarshal(e.Body, &e.JSON); err != nil {
		e.JSON = nil
		e.Err = annotate(&errs.Error{
			Kind:     errs.BodyDecode,
			Message:  "cannot decode body as json",
			Err:      err,
			Response: e.Result(),
		}, e)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// annotate fills in the operation, URL and configuration of the
// *errs.Error in err's chain, where they are not already set.
func annotate(err error, e *request.Execution) error {
	var x *errs.Error
	if !errors.As(err, &x) {
		x = &errs.Error{Kind: errs.Unknown, Err: err}
		err = x
	}
	if x.Op == "" {
		method := ""
		if e.Config != nil {
			method = e.Config.Method
		} else if e.Description != nil {
			method = e.Description.Method
		}
		x.Op = urlErrorOp(method)
	}
	if e.Config != nil {
		if x.URL == "" {
			x.URL = e.Config.URL.Redacted()
		}
		if x.Config == nil {
			x.Config = e.Config
		}
	}
	return err
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
