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

// Package dispatcher runs accept loops over channel listeners and feeds the
// accepted requests to a Handler.
//
//   d, err := dispatcher.New(dispatcher.Config{
//     Listeners: []*channel.Listener{l},
//     Handler:   dispatcher.HandlerFunc(handle),
//   })
//   if err != nil {
//     return err
//   }
//   if err := d.Start(ctx); err != nil {
//     return err
//   }
//   defer d.Stop(ctx)
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/channel"
	"go.uber.org/soapbridge/internal/lifecycle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	_defaultAcceptTimeout = 5 * time.Second
	_defaultReplyTimeout  = 30 * time.Second
)

// Config configures a Dispatcher.
type Config struct {
	// Listeners are opened by Start and closed by Stop. Each gets its own
	// accept loop.
	Listeners []*channel.Listener

	// Handler processes every accepted request. Required.
	Handler Handler

	// AcceptTimeout bounds each accept attempt. Loops retry after a
	// timeout, so this only affects how often idle loops wake up.
	AcceptTimeout time.Duration

	// ReplyTimeout bounds the time spent writing a reply.
	ReplyTimeout time.Duration

	// AcceptRate limits accepts per second across all listeners. Zero
	// means unlimited.
	AcceptRate float64

	Logger *zap.Logger
	Scope  tally.Scope
}

// Dispatcher accepts sessions from its listeners and answers each one with
// the result of the Handler.
type Dispatcher struct {
	listeners     []*channel.Listener
	handler       Handler
	acceptTimeout time.Duration
	replyTimeout  time.Duration
	limiter       *rate.Limiter
	logger        *zap.Logger

	requests tally.Counter
	faults   tally.Counter
	oneWay   tally.Counter

	once    *lifecycle.Once
	ctx     context.Context
	cancel  context.CancelFunc
	loops   errgroup.Group
	serving sync.WaitGroup
}

// New builds a Dispatcher. It does not open the listeners.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Handler == nil {
		return nil, errors.New("dispatcher: a handler is required")
	}
	if len(cfg.Listeners) == 0 {
		return nil, errors.New("dispatcher: at least one listener is required")
	}
	if cfg.AcceptRate < 0 {
		return nil, errors.New("dispatcher: AcceptRate must not be negative")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scope := cfg.Scope
	if scope == nil {
		scope = tally.NoopScope
	}

	d := &Dispatcher{
		listeners:     cfg.Listeners,
		handler:       cfg.Handler,
		acceptTimeout: cfg.AcceptTimeout,
		replyTimeout:  cfg.ReplyTimeout,
		logger:        logger,
		requests:      scope.Counter("requests"),
		faults:        scope.Counter("faults"),
		oneWay:        scope.Counter("one_way"),
		once:          lifecycle.NewOnce(),
	}
	if d.acceptTimeout <= 0 {
		d.acceptTimeout = _defaultAcceptTimeout
	}
	if d.replyTimeout <= 0 {
		d.replyTimeout = _defaultReplyTimeout
	}
	if cfg.AcceptRate > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), 1)
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start opens every listener and starts the accept loops. If a listener
// fails to open, the ones already opened are aborted.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.once.Open(func() error {
		for i, l := range d.listeners {
			if err := l.Open(ctx); err != nil {
				for _, opened := range d.listeners[:i] {
					opened.Abort()
				}
				return fmt.Errorf("failed to open listener for %v: %w", l.RouteKey(), err)
			}
		}

		for _, l := range d.listeners {
			l := l
			d.loops.Go(func() error {
				return d.acceptLoop(l)
			})
		}
		d.logger.Info("dispatcher started", zap.Int("listeners", len(d.listeners)))
		return nil
	})
}

// Stop closes the listeners, waiting for open sessions until ctx ends, and
// returns the errors of the listeners and accept loops combined.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.once.Close(func() error {
		d.cancel()

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			err error
		)
		for _, l := range d.listeners {
			wg.Add(1)
			go func(l *channel.Listener) {
				defer wg.Done()
				if closeErr := l.Close(ctx); closeErr != nil {
					mu.Lock()
					err = multierr.Append(err, closeErr)
					mu.Unlock()
				}
			}(l)
		}
		wg.Wait()
		err = multierr.Append(err, d.loops.Wait())

		done := make(chan struct{})
		go func() {
			d.serving.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = multierr.Append(err, bridgeerrors.TimeoutErrorf(
				"handlers still running at shutdown: %v", ctx.Err()))
		}

		d.logger.Info("dispatcher stopped", zap.Error(err))
		return err
	})
}

func (d *Dispatcher) acceptLoop(l *channel.Listener) error {
	logger := d.logger.With(zap.Stringer("route", l.RouteKey()))
	for {
		if d.limiter != nil {
			if err := d.limiter.Wait(d.ctx); err != nil {
				return nil
			}
		}

		s, err := l.AcceptChannel(d.acceptTimeout)
		switch {
		case err == nil:
			d.serving.Add(1)
			go d.serve(s, logger)
		case errors.Is(err, bridgeerrors.ErrFaulted):
			logger.Error("listener faulted, stopping accept loop", zap.Error(err))
			return err
		case d.ctx.Err() != nil:
			return nil
		case errors.Is(err, bridgeerrors.ErrClosed):
			return nil
		case bridgeerrors.IsTimeout(err), bridgeerrors.IsProtocolError(err):
			// The listener already failed the call, if there was one.
		default:
			logger.Warn("accept failed", zap.Error(err))
		}
	}
}

func (d *Dispatcher) serve(s *channel.Session, logger *zap.Logger) {
	defer d.serving.Done()
	d.requests.Inc(1)

	req := &Request{
		RouteKey:  s.RouteKey(),
		Message:   s.Request(),
		Transport: s.Transport(),
	}
	reply, err := d.handle(s.Transport().Context(), req)
	if err != nil {
		d.faults.Inc(1)
		logger.Debug("handler failed", zap.String("action", req.Message.Action), zap.Error(err))
		reply = soapbridge.NewFaultMessage(req.Message, err)
	}

	if reply == nil {
		d.oneWay.Inc(1)
		err = s.Close()
	} else {
		err = s.Reply(reply, d.replyTimeout)
	}
	if err != nil {
		logger.Debug("could not answer call", zap.Error(err))
	}
}

func (d *Dispatcher) handle(ctx context.Context, req *Request) (reply *soapbridge.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			reply, err = nil, bridgeerrors.Newf(bridgeerrors.CodeInternal, "handler panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, req)
}
