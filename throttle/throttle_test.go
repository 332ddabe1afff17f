// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package throttle

import (
	"bytes"
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct {
	n atomic.Int32
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return &http.Response{StatusCode: 204, Request: r, Body: http.NoBody}, nil
}

func newRequest(t *testing.T, ctx context.Context) *http.Request {
	r, err := http.NewRequestWithContext(ctx, "GET", "http://example.com/ping", nil)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name       string
		rps, burst int
	}{
		{"zero rps", 0, 1},
		{"zero burst", 1, 0},
		{"negative", -1, -1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			th, err := New(testCase.rps, testCase.burst, nil)
			assert.Nil(t, th)
			assert.ErrorIs(t, err, ErrMustNotBeZero)
		})
	}
	t.Run("valid", func(t *testing.T) {
		th, err := New(5, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, th.rps)
		assert.Equal(t, 2, th.burst)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		next := &countingTransport{}
		rt, err := NewRoundTripper(100, 3, nil, next)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			resp, err := rt.RoundTrip(newRequest(t, context.Background()))
			require.NoError(t, err)
			assert.Equal(t, 204, resp.StatusCode)
		}
		assert.Equal(t, int32(3), next.n.Load())
	})
	t.Run("waits for token", func(t *testing.T) {
		next := &countingTransport{}
		rt, err := NewRoundTripper(10, 1, nil, next)
		require.NoError(t, err)
		start := time.Now()
		_, err = rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
		_, err = rt.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})
	t.Run("shared bucket", func(t *testing.T) {
		th, err := New(1, 1, nil)
		require.NoError(t, err)
		a, b := th.Wrap(&countingTransport{}), th.Wrap(&countingTransport{})
		_, err = a.RoundTrip(newRequest(t, context.Background()))
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = b.RoundTrip(newRequest(t, ctx))
		assert.ErrorIs(t, err, ErrWaitingFailed)
	})
	t.Run("context ended early", func(t *testing.T) {
		next := &countingTransport{}
		rt, err := NewRoundTripper(1, 1, nil, next)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = rt.RoundTrip(newRequest(t, ctx))
		assert.ErrorIs(t, err, ErrContextEnded)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(0), next.n.Load())
	})
	t.Run("logs exhaustion", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
		rt, err := NewRoundTripper(20, 1, &logger, &countingTransport{})
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err = rt.RoundTrip(newRequest(t, context.Background()))
			require.NoError(t, err)
		}
		assert.Contains(t, buf.String(), "throttle tokens exhausted")
		assert.Contains(t, buf.String(), "throttle wait complete")
	})
}
