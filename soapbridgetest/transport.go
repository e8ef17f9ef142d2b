// Copyright (c) 2025 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package soapbridgetest provides test doubles for code that consumes a
// soapbridge.TransportContext.
package soapbridgetest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"go.uber.org/soapbridge"
)

var _ soapbridge.TransportContext = (*TransportContext)(nil)

// TransportContext is an in-memory soapbridge.TransportContext whose
// response is captured by an httptest.ResponseRecorder.
type TransportContext struct {
	ctx    context.Context
	method string
	secure bool
	host   string
	path   string
	header http.Header
	body   io.Reader

	// Recorder captures everything written to the response.
	Recorder *httptest.ResponseRecorder
}

// Option customizes a TransportContext.
type Option func(*TransportContext)

// WithContext sets the context that signals client disconnects.
func WithContext(ctx context.Context) Option {
	return func(tc *TransportContext) { tc.ctx = ctx }
}

// WithMethod sets the HTTP method. The default is POST.
func WithMethod(method string) Option {
	return func(tc *TransportContext) { tc.method = method }
}

// WithSecure marks the request as received over TLS.
func WithSecure() Option {
	return func(tc *TransportContext) { tc.secure = true }
}

// WithHost sets the request host. The default is "localhost".
func WithHost(host string) Option {
	return func(tc *TransportContext) { tc.host = host }
}

// WithPath sets the request path. The default is "/".
func WithPath(path string) Option {
	return func(tc *TransportContext) { tc.path = path }
}

// WithHeader adds a request header.
func WithHeader(key, value string) Option {
	return func(tc *TransportContext) { tc.header.Add(key, value) }
}

// WithContentType sets the Content-Type request header.
func WithContentType(contentType string) Option {
	return func(tc *TransportContext) { tc.header.Set("Content-Type", contentType) }
}

// WithBody sets the request body.
func WithBody(body string) Option {
	return func(tc *TransportContext) { tc.body = strings.NewReader(body) }
}

// WithBodyBytes sets the request body.
func WithBodyBytes(body []byte) Option {
	return func(tc *TransportContext) { tc.body = strings.NewReader(string(body)) }
}

// NewTransportContext builds a POST to http://localhost/ with an empty body,
// modified by opts.
func NewTransportContext(opts ...Option) *TransportContext {
	tc := &TransportContext{
		ctx:      context.Background(),
		method:   http.MethodPost,
		host:     "localhost",
		path:     "/",
		header:   make(http.Header),
		body:     strings.NewReader(""),
		Recorder: httptest.NewRecorder(),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Context implements soapbridge.TransportContext.
func (tc *TransportContext) Context() context.Context { return tc.ctx }

// Method implements soapbridge.TransportContext.
func (tc *TransportContext) Method() string { return tc.method }

// Secure implements soapbridge.TransportContext.
func (tc *TransportContext) Secure() bool { return tc.secure }

// Host implements soapbridge.TransportContext.
func (tc *TransportContext) Host() string { return tc.host }

// Path implements soapbridge.TransportContext.
func (tc *TransportContext) Path() string { return tc.path }

// Header implements soapbridge.TransportContext.
func (tc *TransportContext) Header() http.Header { return tc.header }

// Body implements soapbridge.TransportContext.
func (tc *TransportContext) Body() io.Reader { return tc.body }

// Response implements soapbridge.TransportContext.
func (tc *TransportContext) Response() http.ResponseWriter { return tc.Recorder }

// ResponseBody returns what was written to the response body so far.
func (tc *TransportContext) ResponseBody() string {
	return tc.Recorder.Body.String()
}

// StatusCode returns the status written to the response.
func (tc *TransportContext) StatusCode() int {
	return tc.Recorder.Code
}
