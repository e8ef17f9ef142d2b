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

// Package channel turns queued HTTP calls into sessions that yield one
// request message and take one reply.
//
// A Listener registers a route with a Registry, then repeatedly accepts
// sessions from the route's queue:
//
//   if err := l.Open(ctx); err != nil {
//     return err
//   }
//   defer l.Close(ctx)
//
//   for {
//     s, err := l.AcceptChannel(time.Second)
//     if err != nil {
//       ...
//     }
//     reply := handle(s.Request())
//     s.Reply(reply, replyTimeout)
//   }
package channel

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/codec"
	"go.uber.org/soapbridge/handoff"
	"go.uber.org/soapbridge/internal/lifecycle"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle state of a Listener.
type State = lifecycle.State

// Listener states.
const (
	Created = lifecycle.Created
	Opening = lifecycle.Opening
	Opened  = lifecycle.Opened
	Closing = lifecycle.Closing
	Closed  = lifecycle.Closed
	Faulted = lifecycle.Faulted
)

// Registry hands out leases on the queue of a route.
type Registry interface {
	Resolve(soapbridge.RouteKey) (*handoff.Lease, error)
}

// Config configures a Listener.
type Config struct {
	// Registry is where the listener registers its route. Required.
	Registry Registry

	// Key is the route the listener serves.
	Key soapbridge.RouteKey

	// Codec decodes requests and encodes replies. Required.
	Codec *codec.Codec

	// MaxConcurrentSessions bounds the sessions accepted but not yet
	// finished. Zero means unbounded.
	MaxConcurrentSessions int

	// Host is used to build the listener URI. Defaults to "localhost".
	Host string

	Logger *zap.Logger
	Scope  tally.Scope
}

// Listener accepts sessions for a single route.
type Listener struct {
	key      soapbridge.RouteKey
	registry Registry
	codec    *codec.Codec
	host     string
	logger   *zap.Logger
	metrics  *metrics

	once    *lifecycle.Once
	limiter *semaphore.Weighted

	// Set by Open.
	lease *handoff.Lease
	queue *handoff.Queue

	// ctx is cancelled when the listener closes so that waits return.
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards closing; inflight counts accepts in progress and sessions
	// not yet finished.
	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup

	openSessions atomic.Int64
}

// NewListener builds a listener in the Created state.
func NewListener(cfg Config) (*Listener, error) {
	if cfg.Registry == nil {
		return nil, errors.New("channel: a registry is required")
	}
	if cfg.Codec == nil {
		return nil, errors.New("channel: a codec is required")
	}
	if cfg.MaxConcurrentSessions < 0 {
		return nil, errors.New("channel: MaxConcurrentSessions must not be negative")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scope := cfg.Scope
	if scope == nil {
		scope = tally.NoopScope
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	key := cfg.Key.Normalize()
	l := &Listener{
		key:      key,
		registry: cfg.Registry,
		codec:    cfg.Codec,
		host:     host,
		logger:   logger.With(zap.Stringer("route", key)),
		metrics:  newMetrics(scope, key.String()),
		once:     lifecycle.NewOnce(),
	}
	if cfg.MaxConcurrentSessions > 0 {
		l.limiter = semaphore.NewWeighted(int64(cfg.MaxConcurrentSessions))
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

// RouteKey returns the route the listener serves.
func (l *Listener) RouteKey() soapbridge.RouteKey {
	return l.key
}

// URI returns the address the listener serves.
func (l *Listener) URI() string {
	return l.key.Scheme() + "://" + l.host + l.key.BasePath
}

// State returns the lifecycle state of the listener.
func (l *Listener) State() State {
	return l.once.State()
}

// Open registers the listener's route.
func (l *Listener) Open(ctx context.Context) error {
	return l.once.Open(func() error {
		if err := ctx.Err(); err != nil {
			return bridgeerrors.AbortedErrorf("cannot open listener: %v", err)
		}

		lease, err := l.registry.Resolve(l.key)
		if err != nil {
			return err
		}
		queue, err := lease.Queue()
		if err != nil {
			lease.Release()
			return err
		}
		l.lease, l.queue = lease, queue
		l.logger.Info("listener opened")
		return nil
	})
}

// WaitForChannel waits up to timeout for a call to become available
// without accepting it. It returns false if none arrived in time.
func (l *Listener) WaitForChannel(timeout time.Duration) (bool, error) {
	if err := l.once.CheckOpened(); err != nil {
		return false, err
	}

	ok, err := l.queue.WaitForItem(l.ctx, timeout)
	if err != nil {
		return false, l.waitError(err)
	}
	return ok, nil
}

// AcceptChannel waits up to timeout for a call and returns a session for
// it. Requests that cannot be decoded fail their call and are reported
// here; the listener stays usable.
func (l *Listener) AcceptChannel(timeout time.Duration) (*Session, error) {
	if err := l.once.CheckOpened(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return nil, bridgeerrors.ClosedErrorf("listener is closing")
	}
	l.inflight.Add(1)
	l.mu.Unlock()

	session, err := l.accept(handoff.CapTimeout(timeout))
	if err != nil {
		l.inflight.Done()
		return nil, err
	}
	return session, nil
}

func (l *Listener) accept(timeout time.Duration) (*Session, error) {
	deadline := time.Now().Add(timeout)

	release := func() {}
	if l.limiter != nil {
		ctx, cancel := context.WithTimeout(l.ctx, timeout)
		err := l.limiter.Acquire(ctx, 1)
		cancel()
		if err != nil {
			if l.ctx.Err() != nil {
				return nil, bridgeerrors.ClosedErrorf("listener closed while waiting for a session slot")
			}
			l.metrics.acceptTimeouts.Inc(1)
			return nil, bridgeerrors.AcceptTimeoutErrorf(
				"no session slot freed up within %v", timeout)
		}
		release = func() { l.limiter.Release(1) }
	}

	call, err := l.queue.Receive(l.ctx, time.Until(deadline))
	if err != nil {
		release()
		return nil, l.waitError(err)
	}

	request, err := l.readRequest(call.Transport())
	if err != nil {
		call.Fail(err)
		release()
		l.metrics.protocolErrors.Inc(1)
		l.logger.Warn("failed to read request",
			zap.String("method", call.Transport().Method()),
			zap.String("path", call.Transport().Path()),
			zap.Error(err))
		return nil, err
	}

	l.metrics.accepted.Inc(1)
	return newSession(l, call, request, release), nil
}

func (l *Listener) readRequest(tc soapbridge.TransportContext) (*soapbridge.Message, error) {
	var (
		msg *soapbridge.Message
		err error
	)
	if tc.Method() == http.MethodGet {
		msg = &soapbridge.Message{Version: l.codec.MessageVersion()}
	} else {
		msg, err = l.codec.ReadMessage(tc.Body(), tc.Header().Get("Content-Type"))
		if err != nil {
			return nil, err
		}
	}

	if err := applyAddressing(msg, tc); err != nil {
		return nil, err
	}
	return msg, nil
}

// waitError translates a queue wait failure into a listener failure.
func (l *Listener) waitError(err error) error {
	if l.ctx.Err() != nil {
		return bridgeerrors.ClosedErrorf("listener closed")
	}
	if errors.Is(err, bridgeerrors.ErrQueueClosed) {
		// The router retired the queue under us; nothing more will arrive.
		if l.once.Fault(err) {
			l.logger.Error("listener faulted", zap.Error(err))
		}
		return bridgeerrors.FaultedErrorf("listener queue closed: %v", err)
	}
	return err
}

// Close stops accepting, waits for open sessions to finish or for ctx to
// end, and releases the route registration.
func (l *Listener) Close(ctx context.Context) error {
	return l.once.Close(func() error {
		l.stop()

		done := make(chan struct{})
		go func() {
			l.inflight.Wait()
			close(done)
		}()

		var err error
		select {
		case <-done:
		case <-ctx.Done():
			err = bridgeerrors.TimeoutErrorf("listener closed with sessions still open: %v", ctx.Err())
		}

		l.releaseLease()
		l.logger.Info("listener closed", zap.Error(err))
		return err
	})
}

// Abort closes the listener without waiting for open sessions.
func (l *Listener) Abort() {
	l.once.Close(func() error {
		l.stop()
		l.releaseLease()
		l.logger.Info("listener aborted")
		return nil
	})
}

func (l *Listener) stop() {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()
	l.cancel()
}

func (l *Listener) releaseLease() {
	if l.lease != nil {
		l.lease.Release()
	}
}
