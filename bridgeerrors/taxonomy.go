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

package bridgeerrors

import "errors"

// Sentinel errors reachable with errors.Is from any Status built by the
// constructors below.
var (
	ErrNoRouteFound        = errors.New("no route found")
	ErrQueueClosed         = errors.New("queue closed")
	ErrAborted             = errors.New("call aborted")
	ErrTimeout             = errors.New("timed out")
	ErrContentTypeRequired = errors.New("content type required")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrActionMismatch      = errors.New("action mismatch")
	ErrMalformedMessage    = errors.New("malformed message")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrAcceptTimeout       = errors.New("accept timed out")
	ErrFaulted             = errors.New("faulted")
	ErrClosed              = errors.New("closed")
	ErrReleased            = errors.New("lease released")
)

var _kindToCode = map[error]Code{
	ErrNoRouteFound:        CodeNotFound,
	ErrQueueClosed:         CodeUnavailable,
	ErrAborted:             CodeCancelled,
	ErrTimeout:             CodeDeadlineExceeded,
	ErrContentTypeRequired: CodeInvalidArgument,
	ErrUnsupportedEncoding: CodeInvalidArgument,
	ErrActionMismatch:      CodeInvalidArgument,
	ErrMalformedMessage:    CodeInvalidArgument,
	ErrQuotaExceeded:       CodeResourceExhausted,
	ErrAcceptTimeout:       CodeResourceExhausted,
	ErrFaulted:             CodeFailedPrecondition,
	ErrClosed:              CodeUnavailable,
	ErrReleased:            CodeFailedPrecondition,
}

// kindError carries the message of a taxonomy error and unwraps to its
// sentinel.
type kindError struct {
	kind    error
	message string
}

func (e *kindError) Error() string { return e.message }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args []interface{}) error {
	code, ok := _kindToCode[kind]
	if !ok {
		code = CodeUnknown
	}
	return &Status{
		code: code,
		err:  &kindError{kind: kind, message: sprintf(format, args...)},
	}
}

// NoRouteFoundErrorf reports that no listener is registered for a call.
func NoRouteFoundErrorf(format string, args ...interface{}) error {
	return newKind(ErrNoRouteFound, format, args)
}

// QueueClosedErrorf reports that a handoff queue stopped accepting calls.
func QueueClosedErrorf(format string, args ...interface{}) error {
	return newKind(ErrQueueClosed, format, args)
}

// AbortedErrorf reports that a call was cancelled, usually because the
// client went away.
func AbortedErrorf(format string, args ...interface{}) error {
	return newKind(ErrAborted, format, args)
}

// TimeoutErrorf reports that a bounded wait expired.
func TimeoutErrorf(format string, args ...interface{}) error {
	return newKind(ErrTimeout, format, args)
}

// ContentTypeRequiredErrorf reports a request without a Content-Type.
func ContentTypeRequiredErrorf(format string, args ...interface{}) error {
	return newKind(ErrContentTypeRequired, format, args)
}

// UnsupportedEncodingErrorf reports a content type that no configured
// encoding can read.
func UnsupportedEncodingErrorf(format string, args ...interface{}) error {
	return newKind(ErrUnsupportedEncoding, format, args)
}

// ActionMismatchErrorf reports an HTTP-level action that disagrees with the
// action carried by the message.
func ActionMismatchErrorf(format string, args ...interface{}) error {
	return newKind(ErrActionMismatch, format, args)
}

// MalformedMessageErrorf reports a message that could not be decoded.
func MalformedMessageErrorf(format string, args ...interface{}) error {
	return newKind(ErrMalformedMessage, format, args)
}

// QuotaExceededErrorf reports a message exceeding a configured size limit.
func QuotaExceededErrorf(format string, args ...interface{}) error {
	return newKind(ErrQuotaExceeded, format, args)
}

// AcceptTimeoutErrorf reports that no session slot freed up in time.
func AcceptTimeoutErrorf(format string, args ...interface{}) error {
	return newKind(ErrAcceptTimeout, format, args)
}

// FaultedErrorf reports an operation on a faulted listener.
func FaultedErrorf(format string, args ...interface{}) error {
	return newKind(ErrFaulted, format, args)
}

// ClosedErrorf reports an operation on a closed listener or router.
func ClosedErrorf(format string, args ...interface{}) error {
	return newKind(ErrClosed, format, args)
}

// ReleasedErrorf reports use of a released lease.
func ReleasedErrorf(format string, args ...interface{}) error {
	return newKind(ErrReleased, format, args)
}

// IsProtocolError returns true if err is a failure to decode or validate a
// message.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrContentTypeRequired) ||
		errors.Is(err, ErrUnsupportedEncoding) ||
		errors.Is(err, ErrActionMismatch) ||
		errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrQuotaExceeded)
}

// IsTimeout returns true for both wait timeouts and accept timeouts.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrAcceptTimeout)
}
