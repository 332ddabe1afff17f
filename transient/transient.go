// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// A Category is the category of a particular error encountered while
// dispatching a request attempt, as reported by function Categorize.
//
// The category Not means the error does not fall into any of the
// connection-level categories recognized by this package.
type Category int

const (
	// Not indicates any uncategorized error, including nil.
	Not Category = iota
	// Timeout indicates a client-side timeout.
	//
	// Function Categorize returns Timeout if the error or any of its
	// wrapped causes has a Timeout function that reports true. This
	// includes the hang-up error produced by HangUp when the attempt
	// was aborted by its timer.
	Timeout
	// ConnRefused indicates the remote host refused the connection, and
	// corresponds to the POSIX error code ECONNREFUSED.
	ConnRefused
	// ConnReset indicates the connection was reset, and corresponds to
	// the POSIX error code ECONNRESET. Attempts aborted by the caller
	// rather than by a timer are categorized as ConnReset.
	ConnReset
	// Unreachable indicates the remote host name could not be resolved.
	Unreachable
	// Incomplete indicates the response stream ended before the full
	// message was received.
	Incomplete
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"Unreachable",
	"Incomplete",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// Categorize returns the category of the given error. A nil error, and
// an error that is not recognized, both produce the return value Not.
//
// In assessing the category, Categorize looks at wrapped cause errors
// contained within err, not just err itself.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Unreachable
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return Incomplete
	}

	return Not
}

type hasTimeout interface {
	Timeout() bool
}

// HangUp returns the error reported when an in-flight request attempt
// is aborted, either because its timer fired (timeout is true) or
// because the caller cancelled it.
//
// The returned error reads "socket hang up" and wraps ECONNRESET as
// well as cause, which may be nil.
func HangUp(timeout bool, cause error) error {
	return &hangUpError{timeout: timeout, cause: cause}
}

type hangUpError struct {
	timeout bool
	cause   error
}

func (err *hangUpError) Error() string {
	return "socket hang up"
}

func (err *hangUpError) Timeout() bool {
	return err.timeout
}

func (err *hangUpError) Unwrap() []error {
	if err.cause == nil {
		return []error{syscall.ECONNRESET}
	}
	return []error{syscall.ECONNRESET, err.cause}
}
