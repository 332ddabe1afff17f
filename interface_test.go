// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gogama/reqi/errs"
	"github.com/gogama/reqi/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequest(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		expected := okExecution()
		d := &request.Description{URL: "http://foo", Body: "a"}
		m := newMockDoer(t)
		m.On("Do", mock.Anything, d).Return(expected, nil).Once()
		r, err := Request(context.Background(), m, d, nil)
		require.NoError(t, err)
		assert.Equal(t, 200, r.StatusCode)
		assert.Equal(t, []byte("ok"), r.Body)
		m.AssertExpectations(t)
	})
	t.Run("body overrides description", func(t *testing.T) {
		d := &request.Description{URL: "http://foo", Body: "A"}
		m := newMockDoer(t)
		m.On("Do", mock.Anything, mock.MatchedBy(func(d2 *request.Description) bool {
			return d2 != d && d2.Body == "B" && d2.URL == "http://foo"
		})).Return(okExecution(), nil).Once()
		_, err := Request(context.Background(), m, d, "B")
		assert.NoError(t, err)
		assert.Equal(t, "A", d.Body)
		m.AssertExpectations(t)
	})
	t.Run("error", func(t *testing.T) {
		expectedErr := errs.New(errs.TransportError, "down")
		m := newMockDoer(t)
		m.On("Do", mock.Anything, mock.Anything).Return(&request.Execution{Err: expectedErr}, expectedErr).Once()
		r, err := Request(context.Background(), m, &request.Description{URL: "http://foo"}, nil)
		assert.Nil(t, r)
		assert.Same(t, expectedErr, err)
		m.AssertExpectations(t)
	})
	t.Run("nil execution", func(t *testing.T) {
		m := newMockDoer(t)
		m.On("Do", mock.Anything, mock.Anything).Return(nil, errors.New("nope")).Once()
		r, err := Request(context.Background(), m, nil, nil)
		assert.Nil(t, r)
		assert.EqualError(t, err, "nope")
	})
}

func TestVerbs(t *testing.T) {
	d := &request.Description{URL: "http://verbs", Method: "OPTIONS", Body: "embedded"}
	testCases := []struct {
		method string
		body   any
		call   func(m Doer) (*request.Response, error)
	}{
		{"GET", "embedded", func(m Doer) (*request.Response, error) { return Get(context.Background(), m, d) }},
		{"HEAD", "embedded", func(m Doer) (*request.Response, error) { return Head(context.Background(), m, d) }},
		{"DELETE", "embedded", func(m Doer) (*request.Response, error) { return Delete(context.Background(), m, d) }},
		{"POST", "p", func(m Doer) (*request.Response, error) { return Post(context.Background(), m, d, "p") }},
		{"PUT", "embedded", func(m Doer) (*request.Response, error) { return Put(context.Background(), m, d, nil) }},
		{"PATCH", 42, func(m Doer) (*request.Response, error) { return Patch(context.Background(), m, d, 42) }},
		{"POST", url.Values{"x": {"y"}}, func(m Doer) (*request.Response, error) {
			return PostForm(context.Background(), m, d, url.Values{"x": {"y"}})
		}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.method, func(t *testing.T) {
			m := newMockDoer(t)
			m.On("Do", mock.Anything, mock.MatchedBy(func(d2 *request.Description) bool {
				return d2.Method == testCase.method && d2.URL == "http://verbs" &&
					assert.ObjectsAreEqual(testCase.body, d2.Body)
			})).Return(okExecution(), nil).Once()
			r, err := testCase.call(m)
			require.NoError(t, err)
			assert.Equal(t, 200, r.StatusCode)
			assert.Equal(t, "OPTIONS", d.Method)
			m.AssertExpectations(t)
		})
	}
}

func TestInflate(t *testing.T) {
	t.Run("Inflate", func(t *testing.T) {
		t.Run("nil doer", func(t *testing.T) {
			assert.PanicsWithValue(t, "reqi: nil doer", func() {
				Inflate(nil)
			})
		})
		t.Run("already an Executor", func(t *testing.T) {
			cl := &Client{}
			x := Inflate(cl)
			assert.Same(t, cl, x)
		})
		t.Run("not yet an Executor", func(t *testing.T) {
			m := newMockDoer(t)
			x := Inflate(m)
			assert.NotSame(t, m, x)
		})
	})
	d := &request.Description{URL: "http://www.randomcollections.com/widgets/1"}
	methods := []struct {
		method string
		call   func(x Executor) (*request.Response, error)
	}{
		{"GET", func(x Executor) (*request.Response, error) { return x.Get(context.Background(), d) }},
		{"HEAD", func(x Executor) (*request.Response, error) { return x.Head(context.Background(), d) }},
		{"DELETE", func(x Executor) (*request.Response, error) { return x.Delete(context.Background(), d) }},
		{"POST", func(x Executor) (*request.Response, error) { return x.Post(context.Background(), d, "foo") }},
		{"PUT", func(x Executor) (*request.Response, error) { return x.Put(context.Background(), d, "foo") }},
		{"PATCH", func(x Executor) (*request.Response, error) { return x.Patch(context.Background(), d, "foo") }},
		{"POST", func(x Executor) (*request.Response, error) {
			return x.PostForm(context.Background(), d, url.Values{"a": {"b"}})
		}},
		{"", func(x Executor) (*request.Response, error) { return x.Request(context.Background(), d, nil) }},
	}
	for _, method := range methods {
		t.Run("method "+method.method, func(t *testing.T) {
			m := newMockDoer(t)
			m.On("Do", mock.Anything, mock.MatchedBy(func(d2 *request.Description) bool {
				return d2.Method == method.method
			})).Return(okExecution(), nil).Once()
			r, err := method.call(Inflate(m))
			require.NoError(t, err)
			assert.Equal(t, 200, r.StatusCode)
			m.AssertExpectations(t)
		})
	}
	t.Run("Do", func(t *testing.T) {
		expected := okExecution()
		m := newMockDoer(t)
		m.On("Do", mock.Anything, d).Return(expected, nil).Once()
		e, err := Inflate(m).Do(context.Background(), d)
		assert.Same(t, expected, e)
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
}

func okExecution() *request.Execution {
	return &request.Execution{
		Response: &http.Response{StatusCode: 200, Header: http.Header{}},
		Body:     []byte("ok"),
	}
}

type mockDoer struct {
	mock.Mock
}

func newMockDoer(t *testing.T) *mockDoer {
	m := &mockDoer{}
	m.Test(t)
	return m
}

func (m *mockDoer) Do(ctx context.Context, d *request.Description) (*request.Execution, error) {
	args := m.Called(ctx, d)
	e := args.Get(0)
	err := args.Error(1)
	if e == nil {
		return nil, err
	}
	return e.(*request.Execution), err
}
