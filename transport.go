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

package soapbridge

import (
	"context"
	"io"
	"net/http"
)

// TransportContext is the view of a single HTTP call that the bridge needs.
// It is supplied by the HTTP front end and passed explicitly to every layer
// that reads the request or writes the response.
type TransportContext interface {
	// Context is cancelled when the client disconnects.
	Context() context.Context

	// Method is the HTTP method of the request.
	Method() string

	// Secure is true if the request arrived over TLS.
	Secure() bool

	// Host is the host (and port, if any) the request was addressed to.
	Host() string

	// Path is the full request path.
	Path() string

	// Header holds the request headers.
	Header() http.Header

	// Body is the request body.
	Body() io.Reader

	// Response is the sink the reply is written to.
	Response() http.ResponseWriter
}

// RouteKeyFor returns the method-specific route key of a call for the given
// base path.
func RouteKeyFor(tc TransportContext, basePath string) RouteKey {
	return NewRouteKey(tc.Secure(), tc.Method(), basePath)
}

// ViaURI returns the absolute URI the call arrived at.
func ViaURI(tc TransportContext) string {
	host := tc.Host()
	if host == "" {
		host = "localhost"
	}
	return RouteKeyFor(tc, "").Scheme() + "://" + host + NormalizePath(tc.Path())
}
