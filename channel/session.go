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

import (
	"net/http"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
	"go.uber.org/soapbridge/handoff"
	"go.uber.org/zap"
)

// Session is one accepted call. It yields exactly one request and takes
// at most one reply. Every session must end with Reply, Abort or Close.
type Session struct {
	listener *Listener
	call     *handoff.Call
	request  *soapbridge.Message
	release  func()

	replied  atomic.Bool
	finished atomic.Bool
}

func newSession(l *Listener, call *handoff.Call, request *soapbridge.Message, release func()) *Session {
	l.metrics.sessions.Update(float64(l.openSessions.Inc()))
	return &Session{
		listener: l,
		call:     call,
		request:  request,
		release:  release,
	}
}

// Request returns the decoded request message.
func (s *Session) Request() *soapbridge.Message {
	return s.request
}

// Transport returns the HTTP call the session answers.
func (s *Session) Transport() soapbridge.TransportContext {
	return s.call.Transport()
}

// RouteKey returns the route the session was accepted on.
func (s *Session) RouteKey() soapbridge.RouteKey {
	return s.listener.key
}

// Reply encodes msg and writes it to the caller, then ends the session.
// A reply without an encoding mirrors the request's. If the caller went
// away nothing is written and the reply fails as aborted. If the write does
// not finish within timeout Reply returns a timeout error; the write itself
// cannot be interrupted and completes the call when it ends.
func (s *Session) Reply(msg *soapbridge.Message, timeout time.Duration) error {
	if !s.replied.CAS(false, true) {
		return bridgeerrors.Newf(bridgeerrors.CodeFailedPrecondition, "session already replied")
	}
	defer s.finish()

	if msg == nil {
		msg = soapbridge.NewReply(s.request, "", nil)
	}
	if msg.Encoding == soapbridge.EncodingUnspecified {
		mirrored := *msg
		mirrored.Encoding = s.request.Encoding
		msg = &mirrored
	}

	timeout = handoff.CapTimeout(timeout)
	result := make(chan error, 1)
	go func() {
		result <- s.call.Reply(func(w http.ResponseWriter) error {
			return s.listener.codec.WriteMessage(w, msg)
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-result:
	case <-timer.C:
		err = bridgeerrors.TimeoutErrorf("reply was not written within %v", timeout)
	}

	l := s.listener
	if err != nil {
		l.metrics.replyFailures.Inc(1)
		l.logger.Debug("reply failed", zap.Error(err))
		return err
	}
	l.metrics.replies.Inc(1)
	return nil
}

// Abort fails the call without replying and ends the session.
func (s *Session) Abort() {
	if s.replied.CAS(false, true) {
		s.call.Fail(bridgeerrors.AbortedErrorf("session aborted"))
		s.listener.metrics.aborts.Inc(1)
	}
	s.finish()
}

// Close ends the session. A session closed without a reply answers the
// caller with 202 Accepted and an empty body.
func (s *Session) Close() error {
	var err error
	if s.replied.CAS(false, true) {
		err = s.call.Reply(func(w http.ResponseWriter) error {
			w.WriteHeader(http.StatusAccepted)
			return nil
		})
	}
	s.finish()
	return err
}

// finish returns the session slot exactly once.
func (s *Session) finish() {
	if !s.finished.CAS(false, true) {
		return
	}
	s.release()
	s.listener.metrics.sessions.Update(float64(s.listener.openSessions.Dec()))
	s.listener.inflight.Done()
}
