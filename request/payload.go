// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"sync"

	"github.com/gogama/reqi/errs"
)

const (
	jsonContentType = "application/json"
	formContentType = "application/x-www-form-urlencoded"
)

// A Payload is a request body prepared for dispatch, possibly more than
// once if the request is retried.
//
// A streamed body is sent directly to the connection on the first
// attempt. The bytes sent are captured, so a later attempt replays
// them, followed by whatever the first attempt left unread.
type Payload struct {
	mu          sync.Mutex
	data        []byte
	stream      io.Reader
	closer      io.Closer
	gen         int
	contentType string
}

// NewPayload prepares body for dispatch. The conversion logic is:
//
// • If body is nil, a nil Payload and no error is returned.
//
// • If body is an io.Reader, it is streamed.
//
// • If body is a string or []byte, it is sent verbatim.
//
// • If body is url.Values, it is form encoded.
//
// • Otherwise body is encoded as JSON. If encoding fails, the error is
// an *errs.Error of kind BodySerialization.
func NewPayload(body any) (*Payload, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		p := &Payload{stream: x}
		p.closer, _ = x.(io.Closer)
		return p, nil
	case string:
		return &Payload{data: []byte(x)}, nil
	case []byte:
		return &Payload{data: x}, nil
	case url.Values:
		return &Payload{data: []byte(x.Encode()), contentType: formContentType}, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, &errs.Error{Kind: errs.BodySerialization, Message: "cannot encode body as json", Err: err}
		}
		return &Payload{data: b, contentType: jsonContentType}, nil
	}
}

// ContentType returns the content type implied by the body's type, or
// the empty string if it implies none.
func (p *Payload) ContentType() string {
	if p == nil {
		return ""
	}
	return p.contentType
}

// Body returns a reader over the payload for the next dispatch attempt
// and its length, which is -1 when unknown. Any reader returned by an
// earlier call stops producing data.
//
// A nil or empty payload produces a nil reader.
func (p *Payload) Body() (io.ReadCloser, int64, error) {
	if p == nil {
		return nil, 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	if p.stream == nil {
		if len(p.data) == 0 {
			return nil, 0, nil
		}
		return io.NopCloser(bytes.NewReader(p.data)), int64(len(p.data)), nil
	}
	if p.gen > 1 {
		rest, err := io.ReadAll(p.stream)
		p.data = append(p.data, rest...)
		p.stream = nil
		if err != nil {
			return nil, 0, err
		}
		return io.NopCloser(bytes.NewReader(p.data)), int64(len(p.data)), nil
	}
	return &streamBody{p: p, gen: p.gen}, -1, nil
}

// GetBody returns a fresh reader over the buffered payload. It is used
// by the transport to replay the body on connection retries.
func (p *Payload) GetBody() (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return io.NopCloser(bytes.NewReader(p.data)), nil
}

// Close closes the caller's stream if it is an io.Closer.
func (p *Payload) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closer == nil {
		return nil
	}
	c := p.closer
	p.closer = nil
	return c.Close()
}

type streamBody struct {
	p   *Payload
	gen int
}

func (b *streamBody) Read(buf []byte) (int, error) {
	b.p.mu.Lock()
	defer b.p.mu.Unlock()
	if b.gen != b.p.gen {
		return 0, io.ErrClosedPipe
	}
	if b.p.stream == nil {
		return 0, io.EOF
	}
	n, err := b.p.stream.Read(buf)
	b.p.data = append(b.p.data, buf[:n]...)
	if err == io.EOF {
		b.p.stream = nil
	}
	return n, err
}

func (b *streamBody) Close() error {
	return nil
}
