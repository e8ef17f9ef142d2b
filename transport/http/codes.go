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

package http

import (
	"net/http"

	"go.uber.org/soapbridge/bridgeerrors"
)

// _codeToStatusCode maps all Codes to their corresponding HTTP status code.
var _codeToStatusCode = map[bridgeerrors.Code]int{
	bridgeerrors.CodeOK:                 200,
	bridgeerrors.CodeCancelled:          499,
	bridgeerrors.CodeUnknown:            500,
	bridgeerrors.CodeInvalidArgument:    400,
	bridgeerrors.CodeDeadlineExceeded:   504,
	bridgeerrors.CodeNotFound:           404,
	bridgeerrors.CodeAlreadyExists:      409,
	bridgeerrors.CodePermissionDenied:   403,
	bridgeerrors.CodeResourceExhausted:  429,
	bridgeerrors.CodeFailedPrecondition: 400,
	bridgeerrors.CodeAborted:            409,
	bridgeerrors.CodeOutOfRange:         400,
	bridgeerrors.CodeUnimplemented:      501,
	bridgeerrors.CodeInternal:           500,
	bridgeerrors.CodeUnavailable:        503,
	bridgeerrors.CodeDataLoss:           500,
	bridgeerrors.CodeUnauthenticated:    401,
}

// statusCodeForError returns the HTTP status that reports err to a caller.
// Errors without a known code are internal errors.
func statusCodeForError(err error) int {
	if statusCode, ok := _codeToStatusCode[bridgeerrors.FromError(err).Code()]; ok && statusCode >= 400 {
		return statusCode
	}
	return http.StatusInternalServerError
}
