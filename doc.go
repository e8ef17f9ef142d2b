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

// Package soapbridge connects a push-style HTTP front end to a pull-style,
// session-oriented reply channel model.
//
// An inbound HTTP call is wrapped into a pending call and handed to the
// handoff queue of the route it belongs to. The caller then blocks until a
// channel listener accepts the call, decodes it into a Message, and the
// contract-dispatch layer replies through the accepted session. The reply is
// encoded back onto the HTTP response and the caller returns.
//
// The pieces are split across packages:
//
//  - handoff: pending calls, the FIFO handoff queue and reference-counted
//    queue leases.
//  - router: maps route keys to handoff queues and dispatches HTTP calls.
//  - codec: reads and writes messages using either a single-part text
//    encoding or a multi-part MTOM encoding, negotiated per message.
//  - channel: the listener state machine that accepts sessions and the
//    session reply path.
//  - dispatcher: accept loops feeding a Handler.
//  - transport/http: the net/http inbound.
//
// This package holds the types shared by all of them.
package soapbridge
