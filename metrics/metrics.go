// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"strconv"

	"github.com/gogama/reqi"
	"github.com/gogama/reqi/errs"
	"github.com/gogama/reqi/request"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reqi"

// A Collector records Prometheus metrics for the request chains of
// every client whose handler group it is installed in. It is safe for
// concurrent use.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attemptsTotal   *prometheus.CounterVec
	redirectsTotal  *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	timeoutsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// NewCollector creates a Collector whose metrics are registered with
// reg. It panics if any metric is already registered, as promauto does.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of logical requests completed, by final status code.",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of logical requests in seconds, including redirects and retries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of dispatch attempts.",
			},
			[]string{"method"},
		),
		redirectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Total number of redirect hops followed.",
			},
			[]string{"method"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retries queued.",
			},
			[]string{"method"},
		),
		timeoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempt_timeouts_total",
				Help:      "Total number of attempts aborted by their timeout.",
			},
			[]string{"method"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of logical requests that failed, by error kind.",
			},
			[]string{"method", "kind"},
		),
	}
}

// Install adds the collector's handlers to g.
func (c *Collector) Install(g *reqi.HandlerGroup) {
	if c == nil {
		return
	}

	g.PushBack(reqi.BeforeAttempt, reqi.HandlerFunc(c.onAttempt))
	g.PushBack(reqi.AfterAttemptTimeout, reqi.HandlerFunc(c.onTimeout))
	g.PushBack(reqi.BeforeRedirect, reqi.HandlerFunc(c.onRedirect))
	g.PushBack(reqi.BeforeRetryWait, reqi.HandlerFunc(c.onRetry))
	g.PushBack(reqi.AfterExecutionEnd, reqi.HandlerFunc(c.onEnd))
}

func (c *Collector) onAttempt(_ reqi.Event, e *request.Execution) {
	c.attemptsTotal.WithLabelValues(method(e)).Inc()
}

func (c *Collector) onTimeout(_ reqi.Event, e *request.Execution) {
	c.timeoutsTotal.WithLabelValues(method(e)).Inc()
}

func (c *Collector) onRedirect(_ reqi.Event, e *request.Execution) {
	c.redirectsTotal.WithLabelValues(method(e)).Inc()
}

func (c *Collector) onRetry(_ reqi.Event, e *request.Execution) {
	c.retriesTotal.WithLabelValues(method(e)).Inc()
}

func (c *Collector) onEnd(_ reqi.Event, e *request.Execution) {
	m := method(e)
	c.requestDuration.WithLabelValues(m).Observe(e.Duration().Seconds())
	if e.Err != nil {
		c.errorsTotal.WithLabelValues(m, errs.KindOf(e.Err).String()).Inc()
		return
	}
	c.requestsTotal.WithLabelValues(m, strconv.Itoa(e.StatusCode())).Inc()
}

// method returns the method label for an execution. An execution that
// failed before its description was resolved may carry no method.
func method(e *request.Execution) string {
	switch {
	case e.Config != nil:
		return e.Config.Method
	case e.Description != nil && e.Description.Method != "":
		return e.Description.Method
	default:
		return "GET"
	}
}
