// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/gogama/reqi/policy"
	"github.com/gogama/reqi/request"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	p := policy.Policy{Retry: 1, RetryCodes: []int{429}, MaxWait: time.Second}
	h := http.Header{"Retry-After": {"1"}}
	t.Run("Decider", func(t *testing.T) {
		assert.True(t, DefaultPolicy.Decide(execution(p, 429, 0, h)))
		assert.False(t, DefaultPolicy.Decide(execution(p, 429, 1, h)))
		assert.False(t, DefaultPolicy.Decide(execution(p, 200, 0, h)))
	})
	t.Run("Waiter", func(t *testing.T) {
		assert.Equal(t, time.Second, DefaultPolicy.Wait(execution(p, 429, 0, h)))
	})
	t.Run("policy changes apply per attempt", func(t *testing.T) {
		e := execution(p, 429, 1, nil)
		assert.False(t, DefaultPolicy.Decide(e))
		e.Policy.Retry = 2
		assert.True(t, DefaultPolicy.Decide(e))
	})
}

func TestNever(t *testing.T) {
	p := policy.Policy{Retry: policy.Unbounded, RetryCodes: []int{503}}
	assert.False(t, Never.Decide(execution(p, 503, 0, nil)))
}

func TestNewPolicy(t *testing.T) {
	p := &testPolicy{}
	t.Run("Bad Args", func(t *testing.T) {
		assert.PanicsWithValue(t, "reqi/retry: nil decider", func() { NewPolicy(nil, p) })
		assert.PanicsWithValue(t, "reqi/retry: nil waiter", func() { NewPolicy(p, nil) })
	})
	t.Run("Normal", func(t *testing.T) {
		P := NewPolicy(p, p)
		assert.True(t, P.Decide(&request.Execution{}))
		assert.Equal(t, 1, p.d)
		assert.Equal(t, time.Second, P.Wait(&request.Execution{}))
		assert.Equal(t, 1, p.w)
	})
}

type testPolicy struct {
	d int
	w int
}

func (p *testPolicy) Decide(_ *request.Execution) bool {
	p.d++
	return true
}

func (p *testPolicy) Wait(_ *request.Execution) time.Duration {
	p.w++
	return time.Second
}
