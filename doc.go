// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package reqi provides an HTTP request executor that follows redirects,
retries throttled or unavailable responses and decodes JSON bodies,
within a small and familiar interface.

Create a Client with a policy to begin making requests.

	client, err := reqi.NewClient(policy.Policy{
		Redirect:   policy.Unbounded,
		Retry:      3,
		RetryCodes: []int{408, 429, 503},
		MaxWait:    15 * time.Second,
		DecodeJSON: true,
	})
	...
	resp, err := client.Get(ctx, &request.Description{URL: "https://www.example.com"})
	...
	resp, err := client.Post(ctx, &request.Description{URL: "https://www.example.com/upload"},
		map[string]any{"name": "widget"})

A request description is resolved into a request.Config once per call.
The config then follows the request chain through its redirect hops and
retries, carrying the chain's redirect and retry counters. A redirect
is followed when the status code is 3xx, the response has a Location
header, and the policy allows another hop. A retry is made when the
status code is one of the policy's retry codes, the policy allows
another retry, and any Retry-After header asks for no more than the
policy's MaxWait. Redirect and retry budgets are not errors: when a
budget runs out, the last response is returned as is.

The client policy may be changed at any time with SetPolicy or
UpdatePolicy. Policy changes apply to in-flight calls: the policy is
read afresh before every attempt. Policies may also be loaded from
untyped sources with policy.FromMap, policy.FromYAML and
policy.FromEnv.

Every error returned is an *errs.Error whose Kind tells what went
wrong. An attempt that times out, or that the caller cancels, fails
with kind TransportError and the cause "socket hang up"; use the
error's Timeout method to tell a timeout from a cancellation.

For control over the client's retry decisions and timing, create a
custom retry policy using components from package retry:

	decider := retry.DefaultDecider.And(retry.Before(30 * time.Second))
	waiter := retry.RetryAfter(retry.NewExpWaiter(250*time.Millisecond, 5*time.Second, time.Now()))
	client.RetryPolicy = retry.NewPolicy(decider, waiter)

To hook into the fine-grained details of the client's request chain,
install a handler into the appropriate handler chain. Packages metrics
and tracing are built this way:

	handlers := &reqi.HandlerGroup{}
	handlers.PushBack(reqi.BeforeRedirect, reqi.HandlerFunc(
		func(_ reqi.Event, e *request.Execution) {
			log.Printf("Redirect %d to %s", e.Redirects(), e.Config.URL)
		}),
	)
	client.Handlers = handlers

Package reqi provides basic interfaces for each method of the client
(Doer, Requester, Getter, Header, Deleter, Poster, Putter, Patcher and
FormPoster); a combined interface that composes all the basic methods
(Executor); and utility functions for working with a Doer (Inflate,
Request, Get, Head, Delete, Post, Put, Patch and PostForm).
*/
package reqi
