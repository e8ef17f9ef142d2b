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

package soapbridge

import (
	"net/http"
)

// Encoding records which wire encoding produced a message, so that a reply
// can be written the same way.
type Encoding int

const (
	// EncodingUnspecified means no encoding was recorded. Writers fall back
	// to the text encoding.
	EncodingUnspecified Encoding = iota
	// EncodingText is the single-part text encoding.
	EncodingText
	// EncodingMTOM is the multi-part MTOM encoding.
	EncodingMTOM
)

func (e Encoding) String() string {
	switch e {
	case EncodingText:
		return "text"
	case EncodingMTOM:
		return "mtom"
	default:
		return "unspecified"
	}
}

// Header is a single envelope header.
type Header struct {
	Namespace string
	Name      string

	// Value is the text content of the header element.
	Value string

	// Raw holds the complete header element for headers that Value alone
	// cannot represent, such as ones with attributes or child elements.
	// When set it is written back verbatim.
	Raw []byte
}

// Headers is an ordered list of envelope headers. The same name may appear
// more than once.
type Headers []Header

// Get returns the value of the first header with the given namespace and
// name.
func (hs Headers) Get(namespace, name string) (string, bool) {
	for _, h := range hs {
		if h.Namespace == namespace && h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// With returns the headers with the given header appended.
func (hs Headers) With(namespace, name, value string) Headers {
	return append(hs, Header{Namespace: namespace, Name: name, Value: value})
}

// Del returns the headers without any header matching namespace and name.
func (hs Headers) Del(namespace, name string) Headers {
	out := hs[:0]
	for _, h := range hs {
		if h.Namespace == namespace && h.Name == name {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Attachment is a binary MTOM part referenced from the message body.
type Attachment struct {
	ContentID   string
	ContentType string
	Data        []byte
}

// Message is the envelope exchanged between the channel layer and the
// contract-dispatch layer.
type Message struct {
	// Version is the envelope and addressing version of the message.
	Version MessageVersion

	// Action identifies the operation the message is for.
	Action string

	// To is the logical destination of the message.
	To string

	// Via is the physical address the message arrived at.
	Via string

	// Headers holds the envelope headers other than addressing headers.
	Headers Headers

	// Body is the raw content of the envelope body.
	Body []byte

	// Attachments are the binary parts of an MTOM message.
	Attachments []Attachment

	// Encoding records the wire encoding the message was read with, or the
	// one it should be written with.
	Encoding Encoding

	// HTTPHeaders holds a copy of the HTTP request headers the message
	// arrived with. On replies they are added to the HTTP response.
	HTTPHeaders http.Header

	// StatusCode is the HTTP status written for a reply. Zero means 200.
	StatusCode int
}

// IsEmpty returns true if the message carries no body and no headers.
func (m *Message) IsEmpty() bool {
	return m == nil || (len(m.Body) == 0 && len(m.Headers) == 0 && len(m.Attachments) == 0)
}

// NewReply builds an empty reply for the request, carrying over its
// version and encoding.
func NewReply(request *Message, action string, body []byte) *Message {
	reply := &Message{Action: action, Body: body}
	if request != nil {
		reply.Version = request.Version
		reply.Encoding = request.Encoding
	}
	return reply
}
