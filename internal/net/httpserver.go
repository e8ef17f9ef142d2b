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

// Package net wraps net/http servers so that they can be started without
// blocking and shut down gracefully.
package net

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/atomic"
)

var (
	errServerStopped    = errors.New("the server has been stopped")
	errAlreadyListening = errors.New("the server is already listening")
)

// HTTPServer runs an http.Server in the background.
type HTTPServer struct {
	*http.Server

	certFile string
	keyFile  string

	lock     sync.Mutex
	listener net.Listener
	done     chan error
	stopped  atomic.Bool
}

// NewHTTPServer wraps s. The server must not be started yet.
func NewHTTPServer(s *http.Server) *HTTPServer {
	return &HTTPServer{
		Server: s,
		done:   make(chan error, 1),
	}
}

// NewHTTPSServer wraps s and serves TLS with the given certificate and key
// files. Either file may be empty if s.TLSConfig already carries a
// certificate.
func NewHTTPSServer(s *http.Server, certFile, keyFile string) *HTTPServer {
	h := NewHTTPServer(s)
	h.certFile = certFile
	h.keyFile = keyFile
	return h
}

// Secure returns true if the server serves TLS.
func (h *HTTPServer) Secure() bool {
	return h.certFile != "" || h.keyFile != "" || h.Server.TLSConfig != nil
}

// Listener returns the listener the server is bound to, or nil if it is
// not listening.
func (h *HTTPServer) Listener() net.Listener {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.listener
}

// ListenAndServe binds the server address and serves in the background. It
// returns once the address is bound.
func (h *HTTPServer) ListenAndServe() error {
	if h.stopped.Load() {
		return errServerStopped
	}

	addr := h.Server.Addr
	if addr == "" {
		addr = ":http"
		if h.Secure() {
			addr = ":https"
		}
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener != nil {
		return errAlreadyListening
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func(done chan<- error) {
		var err error
		if h.Secure() {
			err = h.Server.ServeTLS(listener, h.certFile, h.keyFile)
		} else {
			err = h.Server.Serve(listener)
		}
		// Serve always returns a non-nil error. It is only a failure if we
		// did not ask it to stop.
		if h.stopped.Load() || err == http.ErrServerClosed {
			err = nil
		}
		done <- err
	}(h.done)

	h.listener = listener
	return nil
}

// Shutdown stops accepting connections and waits for active requests to
// finish or for ctx to end, whichever comes first.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	if h.stopped.Swap(true) {
		return nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener == nil {
		return nil
	}

	shutdownErr := h.Server.Shutdown(ctx)
	h.listener = nil
	if shutdownErr != nil {
		// Shutdown gave up waiting; cut the remaining connections.
		h.Server.Close()
	}
	serveErr := <-h.done
	if shutdownErr != nil {
		return shutdownErr
	}
	return serveErr
}

// HostPort converts a listener address into a dialable host:port, replacing
// unspecified IPs with the loopback address.
func HostPort(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	host := "127.0.0.1"
	if tcp.IP != nil && !tcp.IP.IsUnspecified() {
		host = tcp.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}
