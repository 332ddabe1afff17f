// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"
)

// A Description is a loosely typed description of a logical HTTP
// request, as supplied by the caller. Resolve turns a Description into
// a Config.
type Description struct {
	// URL specifies the resource to request. It may be a string, a
	// *url.URL, or a url.URL, and is required. The URL must be absolute
	// and use the http or https scheme.
	URL any

	// Method specifies the HTTP method. An empty string means GET.
	Method string

	// Header contains request header fields. It is copied, never
	// modified.
	Header http.Header

	// Body is the request body. It may be nil, an io.Reader (streamed),
	// a string or []byte (sent verbatim), url.Values (form encoded), or
	// any other value, which is encoded as JSON.
	//
	// A body passed directly to Client.Request, or to one of the verb
	// methods that accept a body, overrides this field.
	Body any

	// Timeout bounds each dispatch attempt. Zero means no timeout.
	Timeout time.Duration

	// TLS holds certificate material for the default agent. It is
	// ignored when Agent is an http.RoundTripper.
	TLS *TLSOptions

	// Agent controls connection reuse. It may be nil, in which case a
	// fresh default agent is created; false, which disables connection
	// reuse; or an http.RoundTripper, which is used as-is. Any other
	// value is rejected with an InvalidAgent error.
	Agent any

	// Auth holds Basic credentials. When set it overrides any userinfo
	// carried in URL.
	Auth *BasicAuth

	// State carries the redirect and retry counters of an existing
	// request chain. It is nil for a new logical request.
	State *RetryState

	// ID is the identifier of an existing request chain. When empty a
	// new identifier is generated.
	ID string
}

// BasicAuth holds HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// RetryState holds the counters threaded through one logical request
// chain. They are never reset within a chain.
type RetryState struct {
	// RetryAttempts is the number of retries made so far.
	RetryAttempts int
	// RedirectAttempts is the number of redirect hops followed so far.
	RedirectAttempts int
}

// WithMethod returns a shallow copy of d with its method set to method.
func (d *Description) WithMethod(method string) *Description {
	d2 := new(Description)
	if d != nil {
		*d2 = *d
	}
	d2.Method = method
	return d2
}
