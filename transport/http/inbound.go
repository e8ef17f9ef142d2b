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

// Package http serves the bridge over net/http. Every request is handed to
// a Dispatcher, usually a router.Router, which blocks until a listener
// answered the call.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/soapbridge/internal/lifecycle"
	intnet "go.uber.org/soapbridge/internal/net"
	"go.uber.org/zap"
)

const _defaultTimeout = 60 * time.Second

// InboundOption customizes the behavior of an HTTP Inbound.
type InboundOption func(*Inbound)

// Mux specifies that the HTTP server should make the bridge's handler
// available under the given pattern on the given ServeMux. By default, the
// bridge service is made available on all paths of the HTTP server. By
// specifying a ServeMux, users can narrow the endpoints under which the
// bridge is served and add their own handlers.
func Mux(pattern string, mux *http.ServeMux) InboundOption {
	return func(i *Inbound) {
		i.mux = mux
		i.muxPattern = pattern
	}
}

// Timeout bounds how long a call waits for a listener to answer it.
// Defaults to 60 seconds.
func Timeout(timeout time.Duration) InboundOption {
	return func(i *Inbound) {
		i.timeout = timeout
	}
}

// TLS serves HTTPS with the given certificate and key files.
func TLS(certFile, keyFile string) InboundOption {
	return func(i *Inbound) {
		i.certFile = certFile
		i.keyFile = keyFile
		i.secure = true
	}
}

// Tracer configures a tracer for the inbound. Defaults to the global
// opentracing tracer.
func Tracer(tracer opentracing.Tracer) InboundOption {
	return func(i *Inbound) {
		i.tracer = tracer
	}
}

// Logger sets the logger of the inbound.
func Logger(logger *zap.Logger) InboundOption {
	return func(i *Inbound) {
		i.logger = logger
	}
}

// NewInbound builds a new HTTP inbound that listens on the given address
// and hands every request to d.
func NewInbound(addr string, d Dispatcher, opts ...InboundOption) *Inbound {
	i := &Inbound{
		addr:       addr,
		dispatcher: d,
		timeout:    _defaultTimeout,
		once:       lifecycle.NewOnce(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.tracer == nil {
		i.tracer = opentracing.GlobalTracer()
	}
	if i.logger == nil {
		i.logger = zap.NewNop()
	}
	return i
}

// Inbound receives SOAP calls over HTTP.
type Inbound struct {
	addr       string
	dispatcher Dispatcher
	mux        *http.ServeMux
	muxPattern string
	timeout    time.Duration
	certFile   string
	keyFile    string
	secure     bool
	tracer     opentracing.Tracer
	logger     *zap.Logger

	server *intnet.HTTPServer
	once   *lifecycle.Once
}

// Start starts the inbound. It returns once the address is bound.
func (i *Inbound) Start(ctx context.Context) error {
	return i.once.Open(i.start)
}

func (i *Inbound) start() error {
	if i.dispatcher == nil {
		return errors.New("no dispatcher set for HTTP inbound")
	}

	var httpHandler http.Handler = handler{
		dispatcher: i.dispatcher,
		timeout:    i.timeout,
		tracer:     i.tracer,
		logger:     i.logger,
	}
	if i.mux != nil {
		i.mux.Handle(i.muxPattern, httpHandler)
		httpHandler = i.mux
	}

	server := &http.Server{Addr: i.addr, Handler: httpHandler}
	if i.secure {
		i.server = intnet.NewHTTPSServer(server, i.certFile, i.keyFile)
	} else {
		i.server = intnet.NewHTTPServer(server)
	}
	if err := i.server.ListenAndServe(); err != nil {
		return err
	}

	i.addr = i.server.Listener().Addr().String() // in case it changed
	i.logger.Info("started HTTP inbound", zap.String("address", i.addr), zap.Bool("secure", i.secure))
	return nil
}

// Stop stops the inbound, waiting for in-flight requests until ctx ends.
func (i *Inbound) Stop(ctx context.Context) error {
	return i.once.Close(func() error {
		if i.server == nil {
			return nil
		}
		err := i.server.Shutdown(ctx)
		i.logger.Info("stopped HTTP inbound", zap.Error(err))
		return err
	})
}

// Addr returns the address on which the server is listening. Returns nil
// if Start has not been called yet.
func (i *Inbound) Addr() net.Addr {
	if i.server == nil {
		return nil
	}
	listener := i.server.Listener()
	if listener == nil {
		return nil
	}
	return listener.Addr()
}

// URL returns the base URL of the running inbound, or an empty string if it
// is not running.
func (i *Inbound) URL() string {
	addr := i.Addr()
	if addr == nil {
		return ""
	}
	scheme := "http"
	if i.secure {
		scheme = "https"
	}
	return scheme + "://" + intnet.HostPort(addr)
}
