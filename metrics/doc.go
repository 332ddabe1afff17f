// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package metrics records Prometheus metrics for reqi clients.

A Collector counts requests, attempts, redirects, retries, attempt
timeouts and errors, and observes request duration. It hooks into a
client through the client's handler group:

	handlers := &reqi.HandlerGroup{}
	metrics.NewCollector(prometheus.DefaultRegisterer).Install(handlers)
	client.Handlers = handlers

All metric names carry the prefix "reqi_".
*/
package metrics
