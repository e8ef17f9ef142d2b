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

package codec

import (
	"io"
	"mime"
	"strings"

	"go.uber.org/soapbridge"
)

// Encoder is a single wire encoding.
type Encoder interface {
	// Encoding identifies the encoding. It is recorded on every message
	// the encoder reads.
	Encoding() soapbridge.Encoding

	// ContentType is the media type, with its fixed parameters, of
	// messages this encoder writes.
	ContentType() string

	// ReadMessage decodes a message from a complete request body.
	ReadMessage(body []byte, contentType string) (*soapbridge.Message, error)

	// WriteMessage encodes msg into w and returns the full content type
	// the body must be sent with.
	WriteMessage(w io.Writer, msg *soapbridge.Message) (string, error)
}

const (
	_xopMediaType       = "application/xop+xml"
	_multipartMediaType = "multipart/related"
	_mtomMarker         = `type="application/xop+xml"`
)

// IsMTOMContentType reports whether contentType announces a multi-part
// XOP package with a quoted type="application/xop+xml" parameter.
func IsMTOMContentType(contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), _mtomMarker) {
		return true
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == _multipartMediaType && strings.EqualFold(params["type"], _xopMediaType)
}
