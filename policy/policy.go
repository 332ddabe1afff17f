// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gogama/reqi/errs"
)

// A Limit caps the number of redirect hops or retry attempts made
// within one logical request chain.
//
// The zero value, Never, disables the feature. Unbounded enables it
// without an explicit cap, subject to the hard ceilings MaxRedirects
// and MaxRetries. Any positive value is an explicit cap.
type Limit int

const (
	// Never disables redirects or retries.
	Never Limit = 0
	// Unbounded enables redirects or retries without an explicit cap.
	Unbounded Limit = -1
)

const (
	// MaxRedirects is the number of redirect hops followed when the
	// redirect limit is Unbounded.
	MaxRedirects = 20
	// MaxRetries is the number of retries made when the retry limit is
	// Unbounded.
	MaxRetries = 10

	// DefaultMaxWait is the default ceiling on an honored Retry-After.
	DefaultMaxWait = 3 * time.Second
)

const invalidOptionsMsg = "client options contain invalid input"

// Allows reports whether another hop may be made after attempts hops
// have already been made. For Unbounded, ceiling is the effective cap.
func (l Limit) Allows(attempts, ceiling int) bool {
	if l == Unbounded {
		return attempts < ceiling
	}
	return attempts < int(l)
}

// String returns "false" for Never, "true" for Unbounded, and the
// decimal cap otherwise.
func (l Limit) String() string {
	switch l {
	case Never:
		return "false"
	case Unbounded:
		return "true"
	default:
		return strconv.Itoa(int(l))
	}
}

// Of converts a boolean into a Limit: Unbounded for true and Never for
// false.
func Of(enabled bool) Limit {
	if enabled {
		return Unbounded
	}
	return Never
}

// A Policy controls how a client follows redirects, retries responses,
// and decodes response bodies. It is shared by every request made with
// the same client.
type Policy struct {
	// Redirect bounds the number of redirect hops followed.
	Redirect Limit `validate:"gte=-1"`
	// Retry bounds the number of retry attempts made.
	Retry Limit `validate:"gte=-1"`
	// RetryCodes lists the response status codes eligible for retry.
	RetryCodes []int `validate:"dive,gte=100,lte=599"`
	// MaxWait is the ceiling on an honored Retry-After header. A
	// response asking the client to wait longer is not retried.
	MaxWait time.Duration `validate:"gte=0"`
	// DecodeJSON enables decoding of JSON response bodies.
	DecodeJSON bool
}

// Default returns the default policy: no redirects, no retries, an
// empty retry code set, a MaxWait of three seconds, and no decoding.
func Default() Policy {
	return Policy{MaxWait: DefaultMaxWait}
}

// Codes returns the normalized form of cs: sorted, without duplicates.
func Codes(cs ...int) []int {
	if len(cs) == 0 {
		return nil
	}
	out := make([]int, len(cs))
	copy(out, cs)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Normalize returns a copy of p with its retry codes normalized and
// owned by the copy.
func (p Policy) Normalize() Policy {
	p.RetryCodes = Codes(p.RetryCodes...)
	return p
}

// Retryable reports whether status is one of the retry codes.
func (p Policy) Retryable(status int) bool {
	for _, c := range p.RetryCodes {
		if c == status {
			return true
		}
	}
	return false
}

// RedirectAllowed reports whether another redirect hop may be made
// after the given number of hops.
func (p Policy) RedirectAllowed(redirects int) bool {
	return p.Redirect.Allows(redirects, MaxRedirects)
}

// RetryAllowed reports whether another retry attempt may be made after
// the given number of retries.
func (p Policy) RetryAllowed(retries int) bool {
	return p.Retry.Allows(retries, MaxRetries)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the shape of p. It returns an *errs.Error of kind
// InvalidClientOptions describing the first offending field, or nil.
func (p Policy) Validate() error {
	if err := structValidator().Struct(p); err != nil {
		return &errs.Error{
			Kind:    errs.InvalidClientOptions,
			Message: invalidOptionsMsg,
			Err:     err,
		}
	}
	return nil
}
