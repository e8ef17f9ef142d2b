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

package router

import "github.com/uber-go/tally"

const (
	_dispatchesName = "dispatches"
	_failuresName   = "dispatch_failures"
	_noRouteName    = "no_route"
	_queuesName     = "queues"
	_matchType      = "match_type"
	_methodTag      = "method"
	_defaultTag     = "default"
)

type metrics struct {
	methodMatches  tally.Counter
	defaultMatches tally.Counter
	failures       tally.Counter
	noRoutes       tally.Counter
	queues         tally.Gauge
}

func newMetrics(scope tally.Scope) *metrics {
	methodScope := scope.Tagged(map[string]string{_matchType: _methodTag})
	defaultScope := scope.Tagged(map[string]string{_matchType: _defaultTag})

	return &metrics{
		methodMatches:  methodScope.Counter(_dispatchesName),
		defaultMatches: defaultScope.Counter(_dispatchesName),
		failures:       scope.Counter(_failuresName),
		noRoutes:       scope.Counter(_noRouteName),
		queues:         scope.Gauge(_queuesName),
	}
}

func (m *metrics) match(method bool) {
	if method {
		m.methodMatches.Inc(1)
		return
	}
	m.defaultMatches.Inc(1)
}

func (m *metrics) failure() {
	m.failures.Inc(1)
}

func (m *metrics) noRoute() {
	m.noRoutes.Inc(1)
}

func (m *metrics) setQueues(n int) {
	m.queues.Update(float64(n))
}
