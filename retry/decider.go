// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/reqi/request"
)

// A Decider decides if a retry should be done.
//
// A Decider is only consulted after an attempt that produced an HTTP
// response which was not followed as a redirect. Transport errors are
// never retried.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
//
// Use the built-in deciders Retryable, Budget and WithinMaxWait, which
// read the client policy snapshot in the execution, or the
// constructors Times, StatusCode and Before; or implement your own
// Decider. Use DeciderFunc to convert an ordinary function into a
// Decider, and to compose deciders logically using DeciderFunc.And and
// DeciderFunc.Or.
type Decider interface {
	Decide(e *request.Execution) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It implements the Decider interface, and
// also provides the logical composition methods And and Or.
//
// Every DeciderFunc must be safe for concurrent use by multiple
// goroutines.
type DeciderFunc func(e *request.Execution) bool

// Retryable is a decider that returns true if the most recent response
// status code is one of the policy's retry codes.
var Retryable DeciderFunc = retryable

// Budget is a decider that returns true while the chain has made fewer
// retries than the policy's retry limit allows.
var Budget DeciderFunc = budget

// WithinMaxWait is a decider that returns true if the most recent
// response carries no Retry-After header, or one asking for a wait no
// longer than the policy's MaxWait. An unparseable Retry-After value
// returns false.
var WithinMaxWait DeciderFunc = withinMaxWait

// DefaultDecider retries a response whose status code is one of the
// policy's retry codes, while the retry budget lasts, and provided the
// server does not ask for a longer wait than the policy's MaxWait.
var DefaultDecider = Retryable.And(Budget).And(WithinMaxWait)

// Decide returns true if a retry should be done, and false otherwise,
// after examining the current execution state.
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And composes two retry deciders into a new decider which returns true
// if both sub-deciders return true, and false otherwise.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or composes two retry deciders into a new decider which returns
// true if either of the two sub-deciders returns true, but false if
// they both return false.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Times constructs a retry decider which allows up to n retries,
// regardless of the policy's retry limit.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Retries() < n
	}
}

// Before constructs a retry decider allowing retries until a certain
// amount of time has elapsed since the start of the request chain.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode constructs a retry decider allowing retries based on the
// HTTP response status code, regardless of the policy's retry codes.
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(e *request.Execution) bool {
		for _, s := range ss2 {
			if e.StatusCode() == s {
				return true
			}
		}
		return false
	}
}

func retryable(e *request.Execution) bool {
	return e.Response != nil && e.Policy.Retryable(e.StatusCode())
}

func budget(e *request.Execution) bool {
	return e.Policy.RetryAllowed(e.Retries())
}

func withinMaxWait(e *request.Execution) bool {
	value := e.Header().Get("Retry-After")
	if value == "" {
		return true
	}
	d, ok := ParseRetryAfter(value, time.Now())
	return ok && d <= e.Policy.MaxWait
}
