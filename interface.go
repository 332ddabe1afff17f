// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqi

import (
	"context"
	"net/url"

	"github.com/gogama/reqi/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes the logical request described by d and returns the final
// execution state (and error, if any). Client implements the Doer
// interface, and any other Doer implementation must behave
// substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(ctx context.Context, d *request.Description) (*request.Execution, error)
}

// Requester is the interface that wraps the basic Request method.
//
// Request executes the logical request described by d, sending body
// instead of the description's body if body is not nil, and returns
// the final response.
//
// Any Doer can be used to emulate a Requester via the Request function.
type Requester interface {
	Request(ctx context.Context, d *request.Description, body any) (*request.Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Any Doer can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(ctx context.Context, d *request.Description) (*request.Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Any Doer can be used to emulate a Header via the Head function.
type Header interface {
	Head(ctx context.Context, d *request.Description) (*request.Response, error)
}

// Deleter is the interface that wraps the basic Delete method.
//
// Any Doer can be used to emulate a Deleter via the Delete function.
type Deleter interface {
	Delete(ctx context.Context, d *request.Description) (*request.Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil to send the description's body, or
// may be any of the types supported by request.NewPayload.
//
// Any Doer can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(ctx context.Context, d *request.Description, body any) (*request.Response, error)
}

// Putter is the interface that wraps the basic Put method.
//
// Any Doer can be used to emulate a Putter via the Put function.
type Putter interface {
	Put(ctx context.Context, d *request.Description, body any) (*request.Response, error)
}

// Patcher is the interface that wraps the basic Patch method.
//
// Any Doer can be used to emulate a Patcher via the Patch function.
type Patcher interface {
	Patch(ctx context.Context, d *request.Description, body any) (*request.Response, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// The request body is set to the URL-encoded keys and values from
// data, and the content type is set to
// application/x-www-form-urlencoded unless the description sets one.
//
// Any Doer can be used to emulate a FormPoster via the PostForm
// function.
type FormPoster interface {
	PostForm(ctx context.Context, d *request.Description, data url.Values) (*request.Response, error)
}

// Executor is the interface that groups the basic Do, Request, Get,
// Head, Delete, Post, Put, Patch and PostForm methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Requester
	Getter
	Header
	Deleter
	Poster
	Putter
	Patcher
	FormPoster
}

// Request uses the specified Doer to execute the logical request
// described by d. If body is not nil, it is sent instead of the body
// embedded in d.
//
// On success, the final response is returned. On failure, the error
// returned by d.Do is returned.
func Request(ctx context.Context, doer Doer, d *request.Description, body any) (*request.Response, error) {
	if d != nil && body != nil {
		d2 := *d
		d2.Body = body
		d = &d2
	}
	e, err := doer.Do(ctx, d)
	if err != nil {
		return nil, err
	}
	return e.Result(), nil
}

// Get uses the specified Doer to issue a GET for the request described
// by d, using the same policies as doer.Do.
func Get(ctx context.Context, doer Doer, d *request.Description) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("GET"), nil)
}

// Head uses the specified Doer to issue a HEAD for the request
// described by d, using the same policies as doer.Do.
func Head(ctx context.Context, doer Doer, d *request.Description) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("HEAD"), nil)
}

// Delete uses the specified Doer to issue a DELETE for the request
// described by d, using the same policies as doer.Do.
func Delete(ctx context.Context, doer Doer, d *request.Description) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("DELETE"), nil)
}

// Post uses the specified Doer to issue a POST for the request
// described by d, using the same policies as doer.Do. A non-nil body
// overrides the body embedded in d.
func Post(ctx context.Context, doer Doer, d *request.Description, body any) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("POST"), body)
}

// Put uses the specified Doer to issue a PUT for the request described
// by d, using the same policies as doer.Do. A non-nil body overrides
// the body embedded in d.
func Put(ctx context.Context, doer Doer, d *request.Description, body any) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("PUT"), body)
}

// Patch uses the specified Doer to issue a PATCH for the request
// described by d, using the same policies as doer.Do. A non-nil body
// overrides the body embedded in d.
func Patch(ctx context.Context, doer Doer, d *request.Description, body any) (*request.Response, error) {
	return Request(ctx, doer, d.WithMethod("PATCH"), body)
}

// PostForm uses the specified Doer to issue a POST for the request
// described by d, with data's keys and values URL-encoded as the
// request body.
func PostForm(ctx context.Context, doer Doer, d *request.Description, data url.Values) (*request.Response, error) {
	if data == nil {
		data = url.Values{}
	}
	return Post(ctx, doer, d, data)
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("reqi: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(ctx context.Context, d *request.Description) (*request.Execution, error) {
	return i.doer.Do(ctx, d)
}

func (i inflated) Request(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Request(ctx, i.doer, d, body)
}

func (i inflated) Get(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Get(ctx, i.doer, d)
}

func (i inflated) Head(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Head(ctx, i.doer, d)
}

func (i inflated) Delete(ctx context.Context, d *request.Description) (*request.Response, error) {
	return Delete(ctx, i.doer, d)
}

func (i inflated) Post(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Post(ctx, i.doer, d, body)
}

func (i inflated) Put(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Put(ctx, i.doer, d, body)
}

func (i inflated) Patch(ctx context.Context, d *request.Description, body any) (*request.Response, error) {
	return Patch(ctx, i.doer, d, body)
}

func (i inflated) PostForm(ctx context.Context, d *request.Description, data url.Values) (*request.Response, error) {
	return PostForm(ctx, i.doer, d, data)
}
