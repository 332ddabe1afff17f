// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides policies deciding whether a response should be
// retried, and how long to wait before retrying.
//
// The interface Policy defines a retry Policy. DefaultPolicy follows
// the client's policy.Policy: it retries responses whose status code is
// among the retry codes, while the retry limit allows, honoring any
// Retry-After header up to MaxWait. Custom policies are assembled with
// NewPolicy from a Decider and a Waiter:
//
//	decider := retry.DefaultDecider.And(retry.Before(30 * time.Second))
//	waiter := retry.RetryAfter(retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now()))
//	p := retry.NewPolicy(decider, waiter)
package retry
