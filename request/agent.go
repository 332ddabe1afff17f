// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	defaultDialTimeout = 30 * time.Second
	keepAlivePeriod    = 30 * time.Second
)

// newAgent returns a default agent. The agent sets no response header
// timeout: attempt timeouts are enforced by the client through the
// request context. When pooled is false connections are closed after
// each request and HTTP/2 is not negotiated.
func newAgent(tlsConf *tls.Config, pooled bool) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   defaultDialTimeout,
		KeepAlive: keepAlivePeriod,
	}

	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConf,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableKeepAlives:     !pooled,
	}
	if !pooled {
		return t, nil
	}

	if err := http2.ConfigureTransport(t); err != nil {
		return nil, err
	}
	return t, nil
}

type idleCloser interface {
	CloseIdleConnections()
}
