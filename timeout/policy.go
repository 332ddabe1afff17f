// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/reqi/request"
)

// A Policy defines a timeout policy which may be plugged into the
// client (reqi.Client) to direct how to set the timeout for every
// attempt within a request chain, including redirect hops and retries.
//
// A timeout of zero means the attempt never times out. When an attempt
// times out, the request chain ends with a "socket hang up" error; the
// attempt is not retried.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the next attempt within
	// the request chain.
	//
	// Parameter e contains the current state of the request chain.
	// Its Config field is always non-nil when Timeout is called.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy is the default timeout policy. It uses the timeout
// given in the request description, so that a description without a
// timeout never times out.
var DefaultPolicy Policy = Configured

// Configured is a built-in timeout policy which returns the timeout of
// the resolved request configuration.
var Configured Policy = configured{}

// Infinite is a built-in timeout policy which never times out,
// whatever the request description says.
var Infinite Policy = Fixed(0)

// Fixed constructs a timeout policy that uses the same value to set
// every attempt timeout, ignoring the timeout given in the request
// description. A non-positive d means no timeout.
func Fixed(d time.Duration) Policy {
	if d < 0 {
		d = 0
	}
	return fixed(d)
}

// Min constructs a timeout policy returning the timeout of the request
// configuration capped to max. A configuration without a timeout gets
// max.
func Min(max time.Duration) Policy {
	return capped(max)
}

type configured struct{}

func (configured) Timeout(e *request.Execution) time.Duration {
	if e.Config == nil || e.Config.Timeout < 0 {
		return 0
	}
	return e.Config.Timeout
}

type fixed time.Duration

func (p fixed) Timeout(_ *request.Execution) time.Duration {
	return time.Duration(p)
}

type capped time.Duration

func (p capped) Timeout(e *request.Execution) time.Duration {
	d := Configured.Timeout(e)
	if d == 0 || time.Duration(p) < d {
		return time.Duration(p)
	}
	return d
}
