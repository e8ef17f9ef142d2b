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

package channel

import "github.com/uber-go/tally"

const (
	_routeTag = "route"
)

type metrics struct {
	accepted       tally.Counter
	acceptTimeouts tally.Counter
	protocolErrors tally.Counter
	replies        tally.Counter
	replyFailures  tally.Counter
	aborts         tally.Counter
	sessions       tally.Gauge
}

func newMetrics(scope tally.Scope, route string) *metrics {
	scope = scope.Tagged(map[string]string{_routeTag: route})
	return &metrics{
		accepted:       scope.Counter("accepted"),
		acceptTimeouts: scope.Counter("accept_timeouts"),
		protocolErrors: scope.Counter("protocol_errors"),
		replies:        scope.Counter("replies"),
		replyFailures:  scope.Counter("reply_failures"),
		aborts:         scope.Counter("aborts"),
		sessions:       scope.Gauge("sessions"),
	}
}
