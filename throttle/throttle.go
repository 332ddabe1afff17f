// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package throttle

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrMustNotBeZero is returned by New when the rate or burst is not
	// positive.
	ErrMustNotBeZero = errors.New("must be greater than zero")
	// ErrWaitingFailed wraps the error of a limiter wait that could not
	// complete, typically because the request deadline is too close.
	ErrWaitingFailed = errors.New("limiter waiting failed")
	// ErrContextEnded is returned when the request context ends before
	// or just after a token is obtained.
	ErrContextEnded = errors.New("throttle context ended")
)

// A Throttle is a token bucket shared by every agent it wraps. Install
// one in a Client to bound the rate of dispatch attempts across all of
// its request chains, including redirect hops and retries.
type Throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	logger  *zerolog.Logger
}

// New returns a Throttle allowing rps attempts per second with bursts
// of up to burst attempts. A nil logger disables logging.
func New(rps, burst int, logger *zerolog.Logger) (*Throttle, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		logger:  logger,
	}, nil
}

// NewRoundTripper returns an http.RoundTripper that throttles requests
// sent through next using its own token bucket.
func NewRoundTripper(rps, burst int, logger *zerolog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	t, err := New(rps, burst, logger)
	if err != nil {
		return nil, err
	}
	return t.Wrap(next), nil
}

// Wrap returns an http.RoundTripper that waits for a token from t
// before sending each request through next.
func (t *Throttle) Wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{t: t, next: next}
}

type roundTripper struct {
	t    *Throttle
	next http.RoundTripper
}

func (rt *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	t := rt.t
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	if t.logger != nil && t.limiter.Tokens() < 1 {
		t.logger.Debug().
			Int("rate", t.rps).
			Int("burst", t.burst).
			Str("path", r.URL.Path).
			Msg("throttle tokens exhausted")

		defer func() {
			t.logger.Debug().
				Dur("waited", waited).
				Int("rate", t.rps).
				Int("burst", t.burst).
				Msg("throttle wait complete")
		}()
	}

	start := time.Now()

	err := t.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return rt.next.RoundTrip(r)
}

// CloseIdleConnections forwards to the wrapped agent, if it supports
// it.
func (rt *roundTripper) CloseIdleConnections() {
	type idleCloser interface {
		CloseIdleConnections()
	}
	if ic, ok := rt.next.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}
