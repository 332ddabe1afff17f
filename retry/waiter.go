// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogama/reqi/request"
)

// A Waiter specifies how long to wait before retrying.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
//
// The client will not call the Waiter on a retry policy if the policy
// Decider returned false.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// DefaultWaiter honors the Retry-After header of the most recent
// response and otherwise retries immediately.
var DefaultWaiter = RetryAfter(nil)

// RetryAfter constructs a Waiter which returns the delay requested by
// the Retry-After header of the most recent response. If the header is
// absent or unparseable, the fallback Waiter is consulted, or zero is
// returned if fallback is nil.
func RetryAfter(fallback Waiter) Waiter {
	return retryAfterWaiter{fallback: fallback}
}

type retryAfterWaiter struct {
	fallback Waiter
}

func (w retryAfterWaiter) Wait(e *request.Execution) time.Duration {
	if value := e.Header().Get("Retry-After"); value != "" {
		if d, ok := ParseRetryAfter(value, time.Now()); ok {
			return d
		}
	}
	if w.fallback != nil {
		return w.fallback.Wait(e)
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header value, given either as a
// non-negative number of seconds or as an HTTP date, relative to now.
// A date in the past yields zero. The second result is false if value
// cannot be parsed.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || secs > math.MaxInt64/float64(time.Second) {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter constructs a Waiter implementing an exponential backoff
// formula with optional jitter, keyed on the number of retries made so
// far in the chain.
//
// The formula implemented is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := min(base * 2**retries, max)
//
// Base and max must be positive values, and max must be at least equal
// to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. To make a waiter that does not jitter, pass nil. Otherwise pass
// a seed (as a time.Time, int, or int64) or a rand.Source.
//
// Combine with RetryAfter to back off only when the server does not
// say how long to wait:
//
//	retry.RetryAfter(retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now()))
func NewExpWaiter(base, max time.Duration, jitter any) Waiter {
	if base < 1 {
		panic("reqi/retry: base must be positive")
	}
	if max < base {
		panic("reqi/retry: max must be at least base")
	}
	r := jitterToRand(jitter)
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: r,
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(e *request.Execution) time.Duration {
	exp := int64(1) << e.Retries()
	if exp < 1 {
		exp = 1<<63 - 1
	}

	ceil := int64(w.base) * exp
	if ceil < int64(w.base) || int64(w.max) < ceil {
		ceil = int64(w.max)
	}

	duration := ceil
	if ceil > 0 && w.rand != nil {
		w.lock.Lock()
		defer w.lock.Unlock()
		duration = w.rand.Int63n(ceil)
	}

	return time.Duration(duration)
}

func jitterToRand(jitter any) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("reqi/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("reqi/retry: invalid jitter type")
	}
	return rand.New(s)
}
