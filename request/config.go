// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/reqi/errs"
	"github.com/google/uuid"
	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	badAgentMsg = `the "agent" option must be one of type http.RoundTripper, nil, or false`
	badURLMsg   = "invalid url"
	noURLMsg    = "url is required"
)

// A Config is the canonical, fully resolved configuration of a logical
// HTTP request, produced by Resolve.
//
// A Config is mutated in place as a request chain follows redirects
// and retries, so that RetryState persists across hops. It is owned by
// a single request chain and must not be shared between concurrent
// chains.
type Config struct {
	// URL is the resolved absolute URL.
	URL *urlpkg.URL

	// Protocol is "http" or "https".
	Protocol string

	// Method is the HTTP method.
	Method string

	// Hostname is the host name or IP address, without port.
	Hostname string

	// Port is the explicit URL port, or 80 for http and 443 for https.
	Port int

	// Path is the escaped path and query. It is "/" when the URL path
	// is empty.
	Path string

	// Header holds the request header fields, including any injected
	// Basic Authorization header.
	Header http.Header

	// Agent is the connection agent. It is nil if, and only if,
	// connection reuse was disabled.
	Agent http.RoundTripper

	// ID identifies the logical request chain. It is preserved across
	// redirects and retries.
	ID string

	// RetryState holds the chain's redirect and retry counters.
	RetryState RetryState

	// Timeout bounds each dispatch attempt. Zero means no timeout.
	Timeout time.Duration

	// TLS holds the certificate material the default agent was built
	// from, if any.
	TLS *TLSOptions

	// Body is the body embedded in the description, if any.
	Body any

	tlsConfig *tls.Config
	ownAgent  bool
}

// Resolve turns a request description into a Config. It has no side
// effects other than generating a request identifier and, when
// d.Agent is nil, building a default agent.
//
// The returned error, if any, is an *errs.Error of kind InvalidInput,
// InvalidURL, or InvalidAgent.
func Resolve(d *Description) (*Config, error) {
	if d == nil {
		return nil, errs.New(errs.InvalidInput, "request description is required")
	}

	u, err := parseURL(d.URL)
	if err != nil {
		return nil, err
	}

	c := &Config{
		URL:      u,
		Protocol: u.Scheme,
		Method:   d.Method,
		Hostname: u.Hostname(),
		Timeout:  d.Timeout,
		TLS:      d.TLS,
		Body:     d.Body,
		ID:       d.ID,
	}
	if c.Method == "" {
		c.Method = "GET"
	}
	if !validMethod(c.Method) {
		return nil, errs.Newf(errs.InvalidInput, "invalid method %q", c.Method)
	}
	if c.Port, err = port(u); err != nil {
		return nil, urlError(u, err)
	}
	c.Path = u.EscapedPath()
	if c.Path == "" {
		c.Path = "/"
	}
	if u.RawQuery != "" {
		c.Path += "?" + u.RawQuery
	}

	if c.Header, err = copyHeader(d.Header); err != nil {
		return nil, err
	}
	setBasicAuth(c.Header, d.Auth, u.User)

	if err = c.resolveAgent(d.Agent); err != nil {
		return nil, err
	}

	if d.State != nil {
		c.RetryState = *d.State
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	return c, nil
}

func parseURL(v any) (*urlpkg.URL, error) {
	var u *urlpkg.URL
	switch x := v.(type) {
	case nil:
		return nil, errs.New(errs.InvalidInput, noURLMsg)
	case string:
		if x == "" {
			return nil, errs.New(errs.InvalidInput, noURLMsg)
		}
		var err error
		if u, err = urlpkg.Parse(x); err != nil {
			return nil, &errs.Error{Kind: errs.InvalidURL, URL: x, Message: badURLMsg, Err: err}
		}
	case *urlpkg.URL:
		if x == nil {
			return nil, errs.New(errs.InvalidInput, noURLMsg)
		}
		u2 := *x
		u = &u2
	case urlpkg.URL:
		u = &x
	default:
		return nil, errs.Newf(errs.InvalidURL, "unsupported url type %T", v)
	}

	if u.Scheme == "" || u.Host == "" || u.Hostname() == "" {
		return nil, &errs.Error{Kind: errs.InvalidURL, URL: u.Redacted(), Message: badURLMsg}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &errs.Error{
			Kind:    errs.InvalidURL,
			URL:     u.Redacted(),
			Message: fmt.Sprintf("unsupported protocol scheme %q", u.Scheme),
		}
	}
	u.Host = removeEmptyPort(u.Host)

	return u, nil
}

func urlError(u *urlpkg.URL, err error) error {
	return &errs.Error{Kind: errs.InvalidURL, URL: u.Redacted(), Message: badURLMsg, Err: err}
}

func port(u *urlpkg.URL) (int, error) {
	p := u.Port()
	if p == "" {
		if u.Scheme == "https" {
			return 443, nil
		}
		return 80, nil
	}
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", p)
	}
	return n, nil
}

func copyHeader(h http.Header) (http.Header, error) {
	out := make(http.Header, len(h)+1)
	for name, values := range h {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, errs.Newf(errs.InvalidInput, "invalid header field name %q", name)
		}
		for _, value := range values {
			if !httpguts.ValidHeaderFieldValue(value) {
				return nil, errs.Newf(errs.InvalidInput, "invalid header field value for %q", name)
			}
		}
		out[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	return out, nil
}

// setBasicAuth injects a Basic Authorization header from explicit
// credentials, or URL userinfo when the explicit credentials are absent
// or empty, unless the header is already present or both are empty.
func setBasicAuth(h http.Header, auth *BasicAuth, user *urlpkg.Userinfo) {
	if h.Get("Authorization") != "" {
		return
	}
	var username, password string
	if auth != nil {
		username, password = auth.Username, auth.Password
	}
	if len(username)+len(password) == 0 && user != nil {
		username = user.Username()
		password, _ = user.Password()
	}
	if len(username)+len(password) == 0 {
		return
	}
	h.Set("Authorization", "Basic "+basicAuth(username, password))
}

func (c *Config) resolveAgent(agent any) error {
	switch a := agent.(type) {
	case nil:
		tlsConf, err := c.TLS.Config()
		if err != nil {
			return &errs.Error{Kind: errs.InvalidInput, Message: "invalid tls options", Err: err}
		}
		t, err := newAgent(tlsConf, true)
		if err != nil {
			return &errs.Error{Kind: errs.InvalidInput, Message: "cannot build agent", Err: err}
		}
		c.Agent = t
		c.tlsConfig = tlsConf
		c.ownAgent = true
	case bool:
		if a {
			return errs.New(errs.InvalidAgent, badAgentMsg)
		}
		tlsConf, err := c.TLS.Config()
		if err != nil {
			return &errs.Error{Kind: errs.InvalidInput, Message: "invalid tls options", Err: err}
		}
		c.tlsConfig = tlsConf
	case http.RoundTripper:
		c.Agent = a
	default:
		return errs.New(errs.InvalidAgent, badAgentMsg)
	}
	return nil
}

// AgentDisabled reports whether connection reuse was disabled by
// passing false as the agent.
func (c *Config) AgentDisabled() bool {
	return c.Agent == nil
}

// RoundTripper returns the agent that dispatches the next attempt. If
// connection reuse is disabled, a single-use agent is returned which
// closes its connection after the response.
func (c *Config) RoundTripper() http.RoundTripper {
	if c.Agent != nil {
		return c.Agent
	}
	t, _ := newAgent(c.tlsConfig, false)
	return t
}

// Redirect updates c in place to target location, which is resolved
// relative to the current URL. Counters, the request identifier and
// the agent are preserved. The Authorization header is dropped when
// the redirect leaves the current host.
//
// The caller is responsible for incrementing RetryState.RedirectAttempts.
func (c *Config) Redirect(location string) error {
	target, err := c.URL.Parse(location)
	if err != nil {
		return &errs.Error{Kind: errs.InvalidURL, URL: location, Message: badURLMsg, Err: err}
	}

	header := c.Header
	if !strings.EqualFold(target.Host, c.URL.Host) {
		header = header.Clone()
		header.Del("Authorization")
	}

	var agent any = c.Agent
	if c.Agent == nil {
		agent = false
	}
	state := c.RetryState
	next, err := Resolve(&Description{
		URL:     target,
		Method:  c.Method,
		Header:  header,
		Body:    c.Body,
		Timeout: c.Timeout,
		TLS:     c.TLS,
		Agent:   agent,
		State:   &state,
		ID:      c.ID,
	})
	if err != nil {
		return err
	}

	next.tlsConfig = c.tlsConfig
	next.ownAgent = c.ownAgent
	*c = *next
	return nil
}

// Release closes idle connections held by an agent that Resolve
// created. Agents supplied by the caller are never touched.
func (c *Config) Release() {
	if !c.ownAgent {
		return
	}
	if ic, ok := c.Agent.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// ToRequest creates an HTTP request for one dispatch attempt. The
// request's context is set to ctx, which may not be nil.
func (c *Config) ToRequest(ctx context.Context, p *Payload) (*http.Request, error) {
	r := template.WithContext(ctx)
	r.Method = c.Method
	u := *c.URL
	u.User = nil
	r.URL = &u
	r.Host = u.Host
	r.Header = c.Header.Clone()
	r.Close = c.AgentDisabled()

	body, n, err := p.Body()
	if err != nil {
		return nil, err
	}
	if body != nil {
		r.Body = body
		r.ContentLength = n
		if n > 0 {
			r.GetBody = p.GetBody
		}
		if ct := p.ContentType(); ct != "" && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", ct)
		}
	}
	return r, nil
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is a valid HTTP token. The empty
// string is never passed, as it is interpreted as "GET".
func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
