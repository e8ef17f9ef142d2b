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

package dispatcher

import (
	"context"

	"go.uber.org/soapbridge"
)

//go:generate mockgen -destination=dispatchertest/handler.go -package=dispatchertest go.uber.org/soapbridge/dispatcher Handler

// Request is a decoded call handed to a Handler.
type Request struct {
	// RouteKey is the route the call was accepted on.
	RouteKey soapbridge.RouteKey

	// Message is the decoded request.
	Message *soapbridge.Message

	// Transport is the HTTP call the request arrived on.
	Transport soapbridge.TransportContext
}

// Handler processes requests accepted by a Dispatcher.
//
// Returning a nil message acknowledges a one-way request with 202 Accepted.
// Returning an error answers the caller with a fault.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*soapbridge.Message, error)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(context.Context, *Request) (*soapbridge.Message, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*soapbridge.Message, error) {
	return f(ctx, req)
}
