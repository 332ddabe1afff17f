// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/gogama/reqi/policy"
	"github.com/stretchr/testify/assert"
)

func TestDefaultWaiter(t *testing.T) {
	p := policy.Default()
	assert.Equal(t, time.Duration(0), DefaultWaiter.Wait(execution(p, 429, 0, nil)))
	assert.Equal(t, time.Second, DefaultWaiter.Wait(execution(p, 429, 0, http.Header{"Retry-After": {"1"}})))
	assert.Equal(t, time.Duration(0), DefaultWaiter.Wait(execution(p, 429, 0, http.Header{"Retry-After": {"nope"}})))
}

func TestRetryAfter(t *testing.T) {
	w := RetryAfter(NewFixedWaiter(250 * time.Millisecond))
	p := policy.Default()
	assert.Equal(t, 250*time.Millisecond, w.Wait(execution(p, 503, 0, nil)))
	assert.Equal(t, 2*time.Second, w.Wait(execution(p, 503, 0, http.Header{"Retry-After": {"2"}})))
	assert.Equal(t, 250*time.Millisecond, w.Wait(execution(p, 503, 0, http.Header{"Retry-After": {"x"}})))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	testCases := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"0", 0, true},
		{"5", 5 * time.Second, true},
		{" 7 ", 7 * time.Second, true},
		{"0.25", 250 * time.Millisecond, true},
		{"-3", 0, false},
		{"NaN", 0, false},
		{"", 0, false},
		{"tomorrow", 0, false},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second, true},
		{now.Add(-90 * time.Second).Format(http.TimeFormat), 0, true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.value, func(t *testing.T) {
			d, ok := ParseRetryAfter(testCase.value, now)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.want, d)
		})
	}
}

func TestNewFixedWaiter(t *testing.T) {
	w := NewFixedWaiter(3 * time.Second)
	assert.Equal(t, 3*time.Second, w.Wait(execution(policy.Policy{}, 0, 5, nil)))
}

func TestNewExpWaiter(t *testing.T) {
	base, max := 1*time.Millisecond, 1*time.Hour
	t.Run("invalid base", func(t *testing.T) {
		assert.Panics(t, func() {
			NewExpWaiter(time.Duration(-1), max, nil)
		}, "negative base")
		assert.Panics(t, func() {
			NewExpWaiter(time.Duration(0), max, nil)
		}, "zero base")
	})
	t.Run("invalid max", func(t *testing.T) {
		assert.Panics(t, func() {
			NewExpWaiter(time.Duration(2), time.Duration(1), nil)
		}, "max less than base")
	})
	t.Run("invalid jitter", func(t *testing.T) {
		assert.Panics(t, func() {
			NewExpWaiter(base, max, float64(1))
		}, "float64")
		var nilRand *rand.Rand
		assert.Panics(t, func() {
			NewExpWaiter(base, max, nilRand)
		}, "nil *rand.Rand")
	})
	t.Run("no jitter", func(t *testing.T) {
		j := newJitterExpWaiter(t, base, max, nil, "explicit nil")
		assert.Nil(t, j.rand, "explicit nil")
		for i := 0; i < 10; i++ {
			ceil := 1 << i
			assert.Equal(t, time.Duration(ceil)*time.Millisecond, j.Wait(execution(policy.Policy{}, 0, i, nil)))
		}
		assert.Equal(t, max, j.Wait(execution(policy.Policy{}, 0, 25, nil)))
		assert.Equal(t, max, j.Wait(execution(policy.Policy{}, 0, 1000, nil)))
	})
	t.Run("with jitter", func(t *testing.T) {
		jitters := []struct {
			name  string
			value any
		}{
			{"zero time.Time", time.Time{}},
			{"time.Now()", time.Now()},
			{"int", 1},
			{"int64", int64(1)},
			{"rand.Source", rand.NewSource(0)},
			{"*rand.Rand", rand.New(rand.NewSource(0))},
		}
		for i, jitter := range jitters {
			t.Run(fmt.Sprintf("jitters[%d]=%s", i, jitter.name), func(t *testing.T) {
				w := NewExpWaiter(base, max, jitter.value)
				for j := 0; j < 100; j++ {
					d := w.Wait(execution(policy.Policy{}, 0, j, nil))
					assert.GreaterOrEqual(t, d, time.Duration(0))
					assert.LessOrEqual(t, d, max)
				}
			})
		}
	})
}

func newJitterExpWaiter(t *testing.T, base, max time.Duration, jitter any, message string) *jitterExpWaiter {
	j := NewExpWaiter(base, max, jitter)
	assert.IsType(t, &jitterExpWaiter{}, j, message)
	return j.(*jitterExpWaiter)
}
