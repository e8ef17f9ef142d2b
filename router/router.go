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

// Package router maps inbound HTTP calls to the handoff queues of the
// listeners registered for them.
//
// Listeners register a RouteKey with Resolve and hold the returned lease for
// as long as they listen. The queue for a key exists exactly while at least
// one lease on it is outstanding; releasing the last lease retires the
// queue. Dispatch looks up the best queue for a call and blocks until a
// listener has answered it.
package router

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/handoff"
	"go.uber.org/zap"
)

// Router owns the route to queue registry.
type Router struct {
	logger  *zap.Logger
	metrics *metrics

	// Routes with a method and method-agnostic routes live in separate
	// maps, each guarded by its own lock.
	indexed   routeMap
	defaults  routeMap
	numQueues atomic.Int32
	closed    atomic.Bool
}

type routeMap struct {
	mu     sync.Mutex
	routes map[soapbridge.RouteKey]*handoff.Resource
}

// New builds an empty Router.
func New(opts ...Option) *Router {
	options := applyOptions(opts...)
	return &Router{
		logger:   options.logger,
		metrics:  newMetrics(options.scope),
		indexed:  routeMap{routes: make(map[soapbridge.RouteKey]*handoff.Resource)},
		defaults: routeMap{routes: make(map[soapbridge.RouteKey]*handoff.Resource)},
	}
}

func (r *Router) routesFor(key soapbridge.RouteKey) *routeMap {
	if key.Method == "" {
		return &r.defaults
	}
	return &r.indexed
}

// Resolve returns a lease on the queue for key, creating the queue if no
// listener holds one. The caller must release the lease when it stops
// listening.
func (r *Router) Resolve(key soapbridge.RouteKey) (*handoff.Lease, error) {
	if r.closed.Load() {
		return nil, bridgeerrors.ClosedErrorf("cannot resolve %v: router is closed", key)
	}

	key = key.Normalize()
	m := r.routesFor(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if res, ok := m.routes[key]; ok {
		if lease, ok := res.TryAcquire(); ok {
			return lease, nil
		}
		// The resource completed but its callback has not removed it yet;
		// replace it below.
	}

	var res *handoff.Resource
	res = handoff.NewResource(handoff.NewQueue(), func(*handoff.Resource) {
		r.retire(key, res)
	})
	lease, _ := res.TryAcquire()
	m.routes[key] = res
	r.metrics.setQueues(int(r.numQueues.Inc()))
	r.logger.Info("created queue", zap.Stringer("route", key))
	return lease, nil
}

// retire removes a completed resource from its map and closes its queue.
func (r *Router) retire(key soapbridge.RouteKey, res *handoff.Resource) {
	m := r.routesFor(key)

	m.mu.Lock()
	if current, ok := m.routes[key]; ok && current == res {
		delete(m.routes, key)
	}
	m.mu.Unlock()

	res.Queue().Close()
	r.metrics.setQueues(int(r.numQueues.Dec()))
	r.logger.Info("retired queue", zap.Stringer("route", key))
}

// queue returns the live queue registered for key, if any. Only listener
// leases keep a queue alive; looking one up does not take a lease.
func (r *Router) queue(key soapbridge.RouteKey) *handoff.Queue {
	m := r.routesFor(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.routes[key]
	if !ok || res.Completed() {
		return nil
	}
	return res.Queue()
}

// Match returns the best queue for the call described by secure, method
// and path. The request path and each of its ancestors are tried longest
// first; at each level a queue registered for the method wins over a
// method-agnostic one.
func (r *Router) Match(secure bool, method, path string) (*handoff.Queue, error) {
	if r.closed.Load() {
		return nil, bridgeerrors.ClosedErrorf("router is closed")
	}

	for _, p := range soapbridge.AncestorPaths(path) {
		key := soapbridge.NewRouteKey(secure, method, p)
		if key.Method != "" {
			if q := r.queue(key); q != nil {
				r.metrics.match(true)
				return q, nil
			}
		}
		if q := r.queue(key.Default()); q != nil {
			r.metrics.match(false)
			return q, nil
		}
	}

	r.metrics.noRoute()
	key := soapbridge.NewRouteKey(secure, method, path)
	return nil, bridgeerrors.NoRouteFoundErrorf(
		"no listener registered for %s %s://%s", method, key.Scheme(), key.BasePath)
}

// Dispatch enqueues the call on its best-matching queue and blocks until a
// listener answers it, the client goes away, the queue retires, or timeout
// elapses.
func (r *Router) Dispatch(tc soapbridge.TransportContext, timeout time.Duration) error {
	queue, err := r.Match(tc.Secure(), tc.Method(), tc.Path())
	if err != nil {
		r.logger.Debug("no route for call",
			zap.String("method", tc.Method()),
			zap.String("path", tc.Path()),
			zap.Error(err))
		return err
	}

	// If the last listener leaves after the match, the queue closes and the
	// call fails with a queue-closed error instead of waiting out timeout.
	if err := queue.Send(handoff.NewCall(tc), timeout); err != nil {
		r.metrics.failure()
		r.logger.Debug("call failed",
			zap.String("method", tc.Method()),
			zap.String("path", tc.Path()),
			zap.Error(err))
		return err
	}
	return nil
}

// Routes lists the keys with a live queue, sorted for stable output.
func (r *Router) Routes() []soapbridge.RouteKey {
	var keys []soapbridge.RouteKey
	for _, m := range []*routeMap{&r.indexed, &r.defaults} {
		m.mu.Lock()
		for key, res := range m.routes {
			if res.Completed() {
				continue
			}
			keys = append(keys, key)
		}
		m.mu.Unlock()
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Close stops routing and closes every queue, failing the calls still
// waiting in them. Outstanding leases stay valid but their queues refuse
// new calls. Close is idempotent.
func (r *Router) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	var resources []*handoff.Resource
	for _, m := range []*routeMap{&r.indexed, &r.defaults} {
		m.mu.Lock()
		for _, res := range m.routes {
			resources = append(resources, res)
		}
		m.mu.Unlock()
	}

	for _, res := range resources {
		res.Queue().Close()
	}
	r.logger.Info("router closed", zap.Int("queues", len(resources)))
	return nil
}
