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

package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/soapbridge"
	"go.uber.org/zap"
)

// Dispatcher hands a call to the listener that serves it and returns once
// the call was answered or failed.
type Dispatcher interface {
	Dispatch(tc soapbridge.TransportContext, timeout time.Duration) error
}

// handler adapts a Dispatcher into a handler for net/http.
type handler struct {
	dispatcher Dispatcher
	timeout    time.Duration
	tracer     opentracing.Tracer
	logger     *zap.Logger
}

func (h handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	defer req.Body.Close()

	ctx, span := h.createSpan(req, start)
	defer span.Finish()

	rw := &responseWriter{w: w}
	tc := &transportContext{ctx: ctx, req: req, w: rw}

	err := h.dispatcher.Dispatch(tc, h.timeout)
	if err != nil {
		updateSpanWithErr(span, err)
		// The call is complete once Dispatch returns, so nothing else
		// writes to rw from here on.
		if !rw.wroteHeader {
			http.Error(rw, err.Error(), statusCodeForError(err))
		}
		h.logger.Debug("call failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err))
	}
	ext.HTTPStatusCode.Set(span, uint16(rw.status()))
}

func updateSpanWithErr(span opentracing.Span, err error) {
	if err != nil {
		ext.Error.Set(span, true)
		span.LogKV("event", "error", "message", err.Error())
	}
}

func (h handler) createSpan(req *http.Request, start time.Time) (context.Context, opentracing.Span) {
	carrier := opentracing.HTTPHeadersCarrier(req.Header)
	parentSpanCtx, _ := h.tracer.Extract(opentracing.HTTPHeaders, carrier)
	// parentSpanCtx may be nil, ext.RPCServerOption handles a nil parent
	// gracefully.
	span := h.tracer.StartSpan(
		req.Method+" "+req.URL.Path,
		opentracing.StartTime(start),
		opentracing.Tags{
			"soap.action":   req.Header.Get("SOAPAction"),
			"rpc.transport": "http",
		},
		ext.RPCServerOption(parentSpanCtx), // implies ChildOf
	)
	ext.HTTPMethod.Set(span, req.Method)
	ext.HTTPUrl.Set(span, req.URL.String())
	return opentracing.ContextWithSpan(req.Context(), span), span
}

// transportContext exposes a net/http request to the bridge.
type transportContext struct {
	ctx context.Context
	req *http.Request
	w   *responseWriter
}

var _ soapbridge.TransportContext = (*transportContext)(nil)

func (tc *transportContext) Context() context.Context      { return tc.ctx }
func (tc *transportContext) Method() string                { return tc.req.Method }
func (tc *transportContext) Secure() bool                  { return tc.req.TLS != nil }
func (tc *transportContext) Host() string                  { return tc.req.Host }
func (tc *transportContext) Path() string                  { return tc.req.URL.Path }
func (tc *transportContext) Header() http.Header           { return tc.req.Header }
func (tc *transportContext) Body() io.Reader               { return tc.req.Body }
func (tc *transportContext) Response() http.ResponseWriter { return tc.w }

// responseWriter records whether a response was started.
type responseWriter struct {
	w           http.ResponseWriter
	wroteHeader bool
	statusCode  int
}

func (rw *responseWriter) Header() http.Header {
	return rw.w.Header()
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = statusCode
	rw.w.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.w.Write(b)
}

func (rw *responseWriter) status() int {
	if !rw.wroteHeader {
		return http.StatusOK
	}
	return rw.statusCode
}
