// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package errs defines the structured error type returned by every
// failing reqi operation, along with the Kind discriminator that
// identifies which stage of the request lifecycle failed.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogama/reqi/transient"
)

// A Kind identifies the category of an Error.
type Kind int

const (
	// Unknown is the Kind reported by KindOf for errors which are not
	// of type *Error.
	Unknown Kind = iota
	// InvalidInput indicates a missing or malformed request
	// description.
	InvalidInput
	// InvalidURL indicates the request URL could not be parsed or
	// does not name an absolute http or https resource.
	InvalidURL
	// InvalidClientOptions indicates a malformed client policy.
	InvalidClientOptions
	// InvalidAgent indicates the agent option was neither nil, false,
	// nor an http.RoundTripper.
	InvalidAgent
	// TransportError indicates a connection-level failure before a
	// response was received, including timeout and abort.
	TransportError
	// IncompleteResponse indicates the response stream ended before
	// the full message was received.
	IncompleteResponse
	// BodySerialization indicates the request body could not be
	// converted into wire bytes.
	BodySerialization
	// BodyDecode indicates the response body could not be decoded as
	// JSON when decoding was requested.
	BodyDecode
)

var kindNames = []string{
	"Unknown",
	"InvalidInput",
	"InvalidURL",
	"InvalidClientOptions",
	"InvalidAgent",
	"TransportError",
	"IncompleteResponseError",
	"BodySerializationError",
	"BodyDecodeError",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[Unknown]
	}
	return kindNames[k]
}

// An Error records a failed request operation.
//
// Config and Response carry the request configuration and the
// partially built response, when available, for diagnostics. They hold
// a *request.Config and a *request.Response respectively.
type Error struct {
	Kind     Kind
	Op       string
	URL      string
	Message  string
	Err      error
	Config   any
	Response any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.URL != "" {
		fmt.Fprintf(&b, "%q: ", e.URL)
	}
	switch {
	case e.Message != "" && e.Err != nil:
		b.WriteString(e.Message)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error was caused by a timeout, including
// an attempt aborted because its timer fired.
func (e *Error) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// New returns an Error of the given kind with a message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is like New but formats the message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind wrapping cause. If cause is
// already an *Error it is returned unchanged.
func Wrap(kind Kind, msg string, cause error) *Error {
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// Unknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err's chain contains an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
