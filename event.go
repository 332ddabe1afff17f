// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqi

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// request chain starts.
	//
	// When Client fires BeforeExecutionStart, the execution is
	// non-nil but the only field that has been set is the description.
	BeforeExecutionStart Event = iota
	// BeforeAttempt identifies the event that occurs before each
	// individual dispatch attempt, whether it is the initial attempt,
	// a redirect hop or a retry.
	//
	// When Client fires BeforeAttempt, the execution's request
	// field is set to the HTTP request that WILL BE sent after all
	// BeforeAttempt handlers have finished, and its policy field holds
	// the client policy snapshot for the attempt.
	//
	// BeforeAttempt handlers may add headers to the execution's
	// request (for example for tracing), but should not replace it.
	BeforeAttempt
	// BeforeReadBody identifies the event that occurs after an attempt
	// has resulted in an HTTP response (as opposed to an error) but
	// before the response body is read and buffered.
	//
	// Note that BeforeReadBody never fires if the attempt ended in
	// error, but always fires if an HTTP response is received,
	// regardless of status code.
	BeforeReadBody
	// AfterAttemptTimeout identifies the event that occurs after an
	// attempt was aborted because its timeout elapsed.
	//
	// When Client fires AfterAttemptTimeout, the execution's error
	// field is set to the timeout error, and its attempt timeout
	// counter has been incremented.
	AfterAttemptTimeout
	// AfterAttempt identifies the event that occurs after an attempt
	// is concluded, regardless of whether it concluded successfully or
	// not.
	//
	// When Client fires AfterAttempt, either the execution's response
	// field or its error field OR BOTH may be set to non-nil values.
	// The response will only be non-nil when the error is also non-nil
	// if reading the response body failed.
	//
	// AfterAttempt runs before the response is classified as a
	// redirect, a retry or a final result.
	AfterAttempt
	// BeforeRedirect identifies the event that occurs after a response
	// was classified as a redirect, and the configuration was updated
	// to target the new location.
	//
	// When Client fires BeforeRedirect, the execution's config holds
	// the redirect target and its redirect counter has been
	// incremented. The response field still holds the redirect
	// response.
	BeforeRedirect
	// BeforeRetryWait identifies the event that occurs after a response
	// was classified as retryable, before the client waits out the
	// retry delay.
	//
	// When Client fires BeforeRetryWait, the execution's wait field
	// holds the delay and its retry counter has been incremented.
	BeforeRetryWait
	// AfterExecutionEnd identifies the event that occurs after the
	// request chain ends.
	//
	// When Client fires AfterExecutionEnd, the execution is in
	// the same state it was in after the final attempt (and last
	// AfterAttempt event) EXCEPT that the end time is set, and a
	// decoded body or decode error may have been added.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"BeforeReadBody",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"BeforeRedirect",
	"BeforeRetryWait",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in a
// request chain executed by Client, in the order in which they would
// occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		BeforeReadBody,
		AfterAttemptTimeout,
		AfterAttempt,
		BeforeRedirect,
		BeforeRetryWait,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
