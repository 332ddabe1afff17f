// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/reqi/request"
)

// A Policy controls if and how retries are done in a request chain.
// After every attempt that produced a response which was not followed
// as a redirect, a Policy decides whether a retry should be done and,
// if so, how long the wait period should be before retrying.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy follows the client policy snapshot carried in the
// execution. It is a composition of DefaultDecider for retry decisions
// and DefaultWaiter for wait time calculations.
var DefaultPolicy Policy = composedPolicy{DefaultDecider, DefaultWaiter}

// Never is a policy that never retries, whatever the client policy
// says.
var Never Policy = composedPolicy{Times(0), DefaultWaiter}

type composedPolicy struct {
	decider Decider
	waiter  Waiter
}

// NewPolicy composes a Decider and a Waiter into a retry Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("reqi/retry: nil decider")
	}
	if w == nil {
		panic("reqi/retry: nil waiter")
	}
	return composedPolicy{decider: d, waiter: w}
}

func (p composedPolicy) Decide(e *request.Execution) bool {
	return p.decider.Decide(e)
}

func (p composedPolicy) Wait(e *request.Execution) time.Duration {
	return p.waiter.Wait(e)
}
