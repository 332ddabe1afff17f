// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package policy defines the client-wide Policy governing redirects,
retries and response decoding.

A Policy is a typed struct validated when a client is constructed and
again before every request attempt:

	p := policy.Default()
	p.Retry = 3
	p.RetryCodes = policy.Codes(429, 503)
	p.MaxWait = 5 * time.Second

Policies sourced from untyped configuration are loaded with FromMap,
FromYAML or FromEnv, which accept the loose shapes such configuration
usually carries (a bool or an integer for Redirect and Retry, a single
code or a list for RetryCodes, seconds or a duration string for
MaxWait) and reject anything else with an InvalidClientOptions error.
*/
package policy
