// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gogama/reqi/policy"
	"github.com/gogama/reqi/request"
	"github.com/stretchr/testify/assert"
)

func TestDefaultDecider(t *testing.T) {
	p := policy.Policy{Retry: 3, RetryCodes: []int{429, 503}, MaxWait: 2 * time.Second}

	t.Run("Retryable status codes", func(t *testing.T) {
		for i, code := range p.RetryCodes {
			t.Run(fmt.Sprintf("codes[%d]=%d", i, code), func(t *testing.T) {
				for j := 0; j < 3; j++ {
					e := execution(p, code, j, nil)
					assert.True(t, DefaultDecider(e), fmt.Sprintf("Expect true for retry %d", j))
				}
				e := execution(p, code, 3, nil)
				assert.False(t, DefaultDecider(e), "Expect false once budget exhausted")
			})
		}
	})
	t.Run("Non-retryable status codes", func(t *testing.T) {
		codes := []int{200, 201, 204, 301, 400, 404, 500, 502}
		for i, code := range codes {
			t.Run(fmt.Sprintf("codes[%d]=%d", i, code), func(t *testing.T) {
				assert.False(t, DefaultDecider(execution(p, code, 0, nil)))
			})
		}
	})
	t.Run("No response", func(t *testing.T) {
		e := &request.Execution{Policy: p}
		assert.False(t, DefaultDecider(e))
	})
	t.Run("Retry disabled", func(t *testing.T) {
		p2 := p
		p2.Retry = policy.Never
		assert.False(t, DefaultDecider(execution(p2, 429, 0, nil)))
	})
	t.Run("Retry unbounded", func(t *testing.T) {
		p2 := p
		p2.Retry = policy.Unbounded
		assert.True(t, DefaultDecider(execution(p2, 429, policy.MaxRetries-1, nil)))
		assert.False(t, DefaultDecider(execution(p2, 429, policy.MaxRetries, nil)))
	})
	t.Run("Retry-After", func(t *testing.T) {
		testCases := []struct {
			value string
			want  bool
		}{
			{"0", true},
			{"1", true},
			{"2", true},
			{"3", false},
			{"1.5", true},
			{"soon", false},
			{"-1", false},
			{time.Now().Add(time.Hour).UTC().Format(http.TimeFormat), false},
			{time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), true},
		}
		for _, testCase := range testCases {
			t.Run(testCase.value, func(t *testing.T) {
				h := http.Header{"Retry-After": {testCase.value}}
				assert.Equal(t, testCase.want, DefaultDecider(execution(p, 429, 0, h)))
			})
		}
	})
}

func TestDeciderAnd(t *testing.T) {
	true_ := DeciderFunc(func(_ *request.Execution) bool { return true })
	false_ := DeciderFunc(func(_ *request.Execution) bool { return false })
	tt := true_.And(true_)
	tf := true_.And(false_)
	ft := false_.And(true_)
	ff := false_.And(false_)
	assert.True(t, tt(&request.Execution{}))
	assert.False(t, tf(&request.Execution{}))
	assert.False(t, ft(&request.Execution{}))
	assert.False(t, ff(&request.Execution{}))
}

func TestDeciderOr(t *testing.T) {
	true_ := DeciderFunc(func(_ *request.Execution) bool { return true })
	false_ := DeciderFunc(func(_ *request.Execution) bool { return false })
	tt := true_.Or(true_)
	tf := true_.Or(false_)
	ft := false_.Or(true_)
	ff := false_.Or(false_)
	assert.True(t, tt(&request.Execution{}))
	assert.True(t, tf(&request.Execution{}))
	assert.True(t, ft(&request.Execution{}))
	assert.False(t, ff(&request.Execution{}))
}

func TestTimes(t *testing.T) {
	zero := Times(0)
	assert.False(t, zero(&request.Execution{}))
	one := Times(1)
	assert.True(t, one(&request.Execution{}))
	assert.False(t, one(execution(policy.Policy{}, 0, 1, nil)))
	two := Times(2)
	assert.True(t, two(execution(policy.Policy{}, 0, 1, nil)))
	assert.False(t, two(execution(policy.Policy{}, 0, 2, nil)))
}

func TestBefore(t *testing.T) {
	e := request.Execution{Start: time.Now()}
	before := Before(time.Minute)
	assert.True(t, before(&e))
	e.End = e.Start.Add(2 * time.Minute)
	assert.False(t, before(&e))
}

func TestStatusCode(t *testing.T) {
	empty := StatusCode()
	assert.False(t, empty(&request.Execution{}))
	one := StatusCode(602)
	assert.False(t, one(&request.Execution{}))
	r := http.Response{}
	e := request.Execution{Response: &r}
	assert.False(t, empty(&e))
	assert.False(t, one(&e))
	r.StatusCode = 602
	assert.True(t, one(&e))
	two := StatusCode(509, 602)
	assert.True(t, two(&e))
	r.StatusCode = 509
	assert.True(t, two(&e))
	r.StatusCode = 508
	assert.False(t, two(&e))
}

func execution(p policy.Policy, status, retries int, h http.Header) *request.Execution {
	e := &request.Execution{
		Policy: p,
		Config: &request.Config{RetryState: request.RetryState{RetryAttempts: retries}},
	}
	if status != 0 {
		e.Response = &http.Response{StatusCode: status, Header: h}
	}
	return e
}
