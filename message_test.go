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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	var hs Headers
	hs = hs.With("urn:a", "Token", "1").With("urn:b", "Token", "2").With("urn:a", "Token", "3")

	v, ok := hs.Get("urn:a", "Token")
	assert.True(t, ok)
	assert.Equal(t, "1", v, "Get returns the first match")

	_, ok = hs.Get("urn:c", "Token")
	assert.False(t, ok)

	hs = hs.Del("urn:a", "Token")
	assert.Equal(t, Headers{{Namespace: "urn:b", Name: "Token", Value: "2"}}, hs)
}

func TestIsEmpty(t *testing.T) {
	var nilMessage *Message
	assert.True(t, nilMessage.IsEmpty())
	assert.True(t, (&Message{Action: "Ping", Via: "http://localhost/"}).IsEmpty())
	assert.False(t, (&Message{Body: []byte("<a/>")}).IsEmpty())
	assert.False(t, (&Message{Headers: Headers{{Name: "h"}}}).IsEmpty())
	assert.False(t, (&Message{Attachments: []Attachment{{ContentID: "a"}}}).IsEmpty())
}

func TestNewReply(t *testing.T) {
	req := &Message{
		Version:  MessageVersionSoap12WSA10,
		Encoding: EncodingMTOM,
		Action:   "Add",
		Body:     []byte("request"),
	}
	reply := NewReply(req, "AddResponse", []byte("reply"))
	assert.Equal(t, &Message{
		Version:  MessageVersionSoap12WSA10,
		Encoding: EncodingMTOM,
		Action:   "AddResponse",
		Body:     []byte("reply"),
	}, reply)

	assert.Equal(t, &Message{Action: "x"}, NewReply(nil, "x", nil))
}

func TestEncodingString(t *testing.T) {
	assert.Equal(t, "unspecified", EncodingUnspecified.String())
	assert.Equal(t, "text", EncodingText.String())
	assert.Equal(t, "mtom", EncodingMTOM.String())
}
