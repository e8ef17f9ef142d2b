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
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
)

var _soapActionKey = textproto.CanonicalMIMEHeaderKey("SOAPAction")

// applyAddressing fills the addressing fields of a request from the HTTP
// call. Messages without envelope addressing take their action from HTTP
// and are addressed to the URI they arrived at. Messages with envelope
// addressing must carry the same action as any sent over HTTP.
func applyAddressing(msg *soapbridge.Message, tc soapbridge.TransportContext) error {
	msg.Via = soapbridge.ViaURI(tc)
	msg.HTTPHeaders = cloneHeader(tc.Header())

	action, ok := httpAction(tc.Header(), msg.Version.Envelope)
	if msg.Version.Addressing == soapbridge.AddressingNone {
		msg.To = msg.Via
		if ok {
			if msg.Action != "" && msg.Action != action {
				return bridgeerrors.ActionMismatchErrorf(
					"HTTP action %q does not match message action %q", action, msg.Action)
			}
			msg.Action = action
		}
		return nil
	}

	// An envelope without an action header does not match a non-empty
	// HTTP action either.
	if ok && action != msg.Action {
		return bridgeerrors.ActionMismatchErrorf(
			"HTTP action %q does not match message action %q", action, msg.Action)
	}
	return nil
}

// httpAction extracts the action sent at the HTTP level: the SOAPAction
// header for SOAP 1.1, and the action media type parameter for SOAP 1.2.
func httpAction(header http.Header, envelope soapbridge.EnvelopeVersion) (string, bool) {
	if envelope == soapbridge.EnvelopeSoap12 {
		return contentTypeAction(header.Get("Content-Type"))
	}

	values, ok := header[_soapActionKey]
	if !ok || len(values) == 0 {
		return "", false
	}
	action := decodeAction(values[0])
	return action, action != ""
}

func contentTypeAction(contentType string) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}

	action, ok := params["action"]
	if mediaType == "multipart/related" {
		if _, startParams, err := mime.ParseMediaType(params["start-info"]); err == nil {
			if a, found := startParams["action"]; found {
				action, ok = a, true
			}
		}
	}
	if !ok {
		return "", false
	}
	action = decodeAction(action)
	return action, action != ""
}

func decodeAction(raw string) string {
	action := strings.TrimSpace(raw)
	if len(action) >= 2 && action[0] == '"' && action[len(action)-1] == '"' {
		action = action[1 : len(action)-1]
	}
	if decoded, err := url.QueryUnescape(action); err == nil {
		action = decoded
	}
	return action
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
