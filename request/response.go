// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// A Response is the terminal result of a successful request chain.
type Response struct {
	// StatusCode is the status code of the final response.
	StatusCode int

	// Header holds the final response's header fields.
	Header http.Header

	// Body is the complete raw response body.
	Body []byte

	// JSON is the decoded body. It is nil unless decoding was enabled
	// and the response declared a JSON content type.
	JSON any

	// Config is the configuration that produced the response.
	Config *Config
}

// Text returns the raw response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Decode unmarshals the raw body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// IsJSON reports whether a Content-Type header value names a JSON media
// type: application/json, or any type with a +json suffix.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == jsonContentType || strings.HasSuffix(mediaType, "+json")
}
