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
	"fmt"
	"path"
	"strings"
)

// RouteKey identifies the logical listener queue a call is routed to.
type RouteKey struct {
	// Secure is true for routes served over HTTPS.
	Secure bool

	// Method optionally restricts the route to a single HTTP method. An
	// empty method matches any method.
	Method string

	// BasePath is the path prefix the route is registered under.
	BasePath string
}

// NewRouteKey builds a RouteKey with a normalized method and base path.
func NewRouteKey(secure bool, method, basePath string) RouteKey {
	return RouteKey{
		Secure:   secure,
		Method:   strings.ToUpper(strings.TrimSpace(method)),
		BasePath: NormalizePath(basePath),
	}
}

// Normalize returns a copy of the key with its method and base path in
// canonical form.
func (k RouteKey) Normalize() RouteKey {
	return NewRouteKey(k.Secure, k.Method, k.BasePath)
}

// Default returns the method-agnostic key for the same scheme and path.
func (k RouteKey) Default() RouteKey {
	return RouteKey{Secure: k.Secure, BasePath: k.BasePath}
}

// Scheme returns "https" for secure routes and "http" otherwise.
func (k RouteKey) Scheme() string {
	if k.Secure {
		return "https"
	}
	return "http"
}

func (k RouteKey) String() string {
	method := k.Method
	if method == "" {
		method = "*"
	}
	return fmt.Sprintf("%s %s://%s", method, k.Scheme(), k.BasePath)
}

// NormalizePath cleans p so that it always starts with a slash and never
// ends with one, except for the root path.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// AncestorPaths returns p followed by each of its parent paths, longest
// first, ending with the root path.
func AncestorPaths(p string) []string {
	p = NormalizePath(p)
	paths := []string{p}
	for p != "/" {
		p = path.Dir(p)
		paths = append(paths, p)
	}
	return paths
}
