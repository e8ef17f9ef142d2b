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
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"sort"
	"strings"

	"go.uber.org/soapbridge"
	"go.uber.org/soapbridge/bridgeerrors"
)

// textEncoder reads and writes single-part XML messages.
type textEncoder struct {
	version       soapbridge.MessageVersion
	maxHeaderSize int
}

var _ Encoder = (*textEncoder)(nil)

func newTextEncoder(version soapbridge.MessageVersion, maxHeaderSize int) *textEncoder {
	return &textEncoder{version: version, maxHeaderSize: maxHeaderSize}
}

func (e *textEncoder) Encoding() soapbridge.Encoding {
	return soapbridge.EncodingText
}

func (e *textEncoder) ContentType() string {
	return e.version.Envelope.MediaType() + "; charset=utf-8"
}

func (e *textEncoder) supports(mediaType string) bool {
	switch e.version.Envelope {
	case soapbridge.EnvelopeNone:
		return mediaType == "application/xml" || mediaType == "text/xml"
	default:
		return mediaType == e.version.Envelope.MediaType()
	}
}

func (e *textEncoder) ReadMessage(body []byte, contentType string) (*soapbridge.Message, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, bridgeerrors.UnsupportedEncodingErrorf("cannot parse content type %q: %v", contentType, err)
	}
	if !e.supports(mediaType) {
		return nil, bridgeerrors.UnsupportedEncodingErrorf(
			"content type %q is not supported, expected %q", mediaType, e.version.Envelope.MediaType())
	}
	if charset, ok := params["charset"]; ok && !isUTF8(charset) {
		return nil, bridgeerrors.UnsupportedEncodingErrorf("charset %q is not supported", charset)
	}
	return decodeEnvelope(e.version, body, e.maxHeaderSize)
}

func (e *textEncoder) WriteMessage(w io.Writer, msg *soapbridge.Message) (string, error) {
	if err := encodeEnvelope(w, e.version, msg); err != nil {
		return "", err
	}
	return e.ContentType(), nil
}

func isUTF8(charset string) bool {
	return strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8")
}

// decodeEnvelope parses an envelope of the given version. The returned
// message never aliases data.
func decodeEnvelope(version soapbridge.MessageVersion, data []byte, maxHeaderSize int) (*soapbridge.Message, error) {
	if version.Envelope == soapbridge.EnvelopeNone {
		if err := checkWellFormed(data); err != nil {
			return nil, bridgeerrors.MalformedMessageErrorf("cannot decode message: %v", err)
		}
		return &soapbridge.Message{
			Version: version,
			Body:    append([]byte(nil), data...),
		}, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	root, err := firstElement(dec)
	if err != nil {
		return nil, bridgeerrors.MalformedMessageErrorf("cannot decode envelope: %v", err)
	}

	ns := version.Envelope.Namespace()
	if root.Name.Local != "Envelope" {
		return nil, bridgeerrors.MalformedMessageErrorf("expected an Envelope element, got %q", root.Name.Local)
	}
	if root.Name.Space != ns {
		return nil, bridgeerrors.MalformedMessageErrorf(
			"envelope namespace %q does not match message version %v", root.Name.Space, version)
	}
	scope := namespaces(nil).with(root)

	msg := &soapbridge.Message{Version: version}
	hasBody := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, bridgeerrors.MalformedMessageErrorf("cannot decode envelope: %v", err)
		}

		var start xml.StartElement
		switch t := tok.(type) {
		case xml.EndElement:
			if !hasBody {
				return nil, bridgeerrors.MalformedMessageErrorf("envelope has no body")
			}
			return msg, nil
		case xml.StartElement:
			start = t
		default:
			continue
		}

		switch {
		case start.Name.Local == "Header":
			if start.Name.Space != ns {
				return nil, bridgeerrors.MalformedMessageErrorf("header namespace %q does not match the envelope", start.Name.Space)
			}
			_, items, size, err := readChildren(dec, data, scope.with(start))
			if err != nil {
				return nil, bridgeerrors.MalformedMessageErrorf("cannot decode envelope headers: %v", err)
			}
			if maxHeaderSize > 0 && size > maxHeaderSize {
				return nil, bridgeerrors.QuotaExceededErrorf(
					"envelope headers exceed the maximum of %d bytes", maxHeaderSize)
			}
			for _, item := range items {
				if version.Addressing == soapbridge.Addressing10 && item.name.Space == soapbridge.AddressingNamespace {
					switch item.name.Local {
					case "Action":
						msg.Action = strings.TrimSpace(item.text)
						continue
					case "To":
						msg.To = strings.TrimSpace(item.text)
						continue
					}
				}
				h := soapbridge.Header{Namespace: item.name.Space, Name: item.name.Local, Value: item.text}
				if item.structured {
					h.Raw = item.raw
				}
				msg.Headers = append(msg.Headers, h)
			}

		case start.Name.Local == "Body" && start.Name.Space == ns:
			body, _, _, err := readChildren(dec, data, scope.with(start))
			if err != nil {
				return nil, bridgeerrors.MalformedMessageErrorf("cannot decode envelope body: %v", err)
			}
			msg.Body = body
			hasBody = true

		default:
			if err := dec.Skip(); err != nil {
				return nil, bridgeerrors.MalformedMessageErrorf("cannot decode envelope: %v", err)
			}
		}
	}
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, errors.New("no root element")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// namespaces maps the prefixes in scope to namespace names. The default
// namespace has the empty prefix.
type namespaces map[string]string

func (ns namespaces) with(start xml.StartElement) namespaces {
	out := make(namespaces, len(ns)+len(start.Attr))
	for prefix, name := range ns {
		out[prefix] = name
	}
	for _, a := range start.Attr {
		if prefix, ok := declaredPrefix(a.Name); ok {
			out[prefix] = a.Value
		}
	}
	return out
}

// declaredPrefix reports whether an attribute is a namespace declaration
// and for which prefix.
func declaredPrefix(name xml.Name) (string, bool) {
	switch {
	case name.Space == "xmlns":
		return name.Local, true
	case name.Space == "" && name.Local == "xmlns":
		return "", true
	default:
		return "", false
	}
}

// element is a direct child of the envelope Header or Body.
type element struct {
	name xml.Name
	text string

	// raw is the element as received, carrying the namespace declarations
	// it inherited from the envelope.
	raw []byte

	// structured is set when the element has attributes or child elements
	// that its text alone cannot represent.
	structured bool
}

// readChildren consumes the content of the element whose start tag was
// just read, through its end tag. It returns that content with each child
// element made self-contained, the children, and the size of the content
// as received.
func readChildren(dec *xml.Decoder, data []byte, scope namespaces) ([]byte, []element, int, error) {
	var (
		content  bytes.Buffer
		children []element
	)
	begin := dec.InputOffset()
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, 0, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return content.Bytes(), children, int(offset - begin), nil
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return nil, nil, 0, err
			}
			child, err := newElement(t.Name, data[offset:dec.InputOffset()], scope)
			if err != nil {
				return nil, nil, 0, err
			}
			content.Write(child.raw)
			children = append(children, child)
		default:
			content.Write(data[offset:dec.InputOffset()])
		}
	}
}

// newElement inspects the well-formed element in raw and copies onto its
// start tag the declarations from scope for the prefixes it uses but does
// not declare itself.
func newElement(name xml.Name, raw []byte, scope namespaces) (element, error) {
	el := element{name: name}
	var (
		text  strings.Builder
		own   = make(map[string]bool)
		used  = make(map[string]bool)
		depth int
	)

	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return element{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > 1 {
				el.structured = true
			}
			used[t.Name.Space] = true
			for _, a := range t.Attr {
				if prefix, ok := declaredPrefix(a.Name); ok {
					if depth == 1 {
						own[prefix] = true
					}
					continue
				}
				el.structured = true
				if a.Name.Space != "" {
					used[a.Name.Space] = true
				}
				// QName values such as xsi:type="tns:Point".
				if i := strings.IndexByte(a.Value, ':'); i > 0 {
					used[a.Value[:i]] = true
				}
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		}
	}

	var prefixes []string
	for prefix := range used {
		if _, ok := scope[prefix]; ok && !own[prefix] && prefix != "xml" {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Strings(prefixes)

	el.text = text.String()
	el.raw = withDeclarations(raw, prefixes, scope)
	return el, nil
}

// withDeclarations returns a copy of raw with xmlns attributes for prefixes
// added to its start tag.
func withDeclarations(raw []byte, prefixes []string, scope namespaces) []byte {
	i := 1
	for i < len(raw) && !strings.ContainsRune(" \t\r\n/>", rune(raw[i])) {
		i++
	}

	var buf bytes.Buffer
	buf.Grow(len(raw) + 64*len(prefixes))
	buf.Write(raw[:i])
	for _, prefix := range prefixes {
		if prefix == "" {
			buf.WriteString(` xmlns="`)
		} else {
			buf.WriteString(` xmlns:` + prefix + `="`)
		}
		// Writing to a bytes.Buffer does not fail.
		_ = xml.EscapeText(&buf, []byte(scope[prefix]))
		buf.WriteByte('"')
	}
	buf.Write(raw[i:])
	return buf.Bytes()
}

func checkWellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// encodeEnvelope writes msg as an envelope of the given version.
func encodeEnvelope(w io.Writer, version soapbridge.MessageVersion, msg *soapbridge.Message) error {
	ew := &errWriter{w: w}
	if version.Envelope == soapbridge.EnvelopeNone {
		ew.write(msg.Body)
		return ew.err
	}

	addressing := version.Addressing == soapbridge.Addressing10
	ew.str(`<s:Envelope xmlns:s="` + version.Envelope.Namespace() + `"`)
	if addressing {
		ew.str(` xmlns:a="` + soapbridge.AddressingNamespace + `"`)
	}
	ew.str(`>`)

	if len(msg.Headers) > 0 || (addressing && (msg.Action != "" || msg.To != "")) {
		ew.str(`<s:Header>`)
		if addressing && msg.Action != "" {
			ew.str(`<a:Action s:mustUnderstand="1">`)
			ew.escaped(msg.Action)
			ew.str(`</a:Action>`)
		}
		for _, h := range msg.Headers {
			if len(h.Raw) > 0 {
				ew.write(h.Raw)
				continue
			}
			if h.Namespace == "" {
				ew.str(`<` + h.Name + `>`)
				ew.escaped(h.Value)
				ew.str(`</` + h.Name + `>`)
				continue
			}
			ew.str(`<h:` + h.Name + ` xmlns:h="`)
			ew.escaped(h.Namespace)
			ew.str(`">`)
			ew.escaped(h.Value)
			ew.str(`</h:` + h.Name + `>`)
		}
		if addressing && msg.To != "" {
			ew.str(`<a:To s:mustUnderstand="1">`)
			ew.escaped(msg.To)
			ew.str(`</a:To>`)
		}
		ew.str(`</s:Header>`)
	}

	ew.str(`<s:Body>`)
	ew.write(msg.Body)
	ew.str(`</s:Body></s:Envelope>`)
	return ew.err
}

// errWriter remembers the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) write(p []byte) {
	if ew.err != nil || len(p) == 0 {
		return
	}
	_, ew.err = ew.w.Write(p)
}

func (ew *errWriter) str(s string) {
	ew.write([]byte(s))
}

func (ew *errWriter) escaped(s string) {
	if ew.err != nil {
		return
	}
	ew.err = xml.EscapeText(ew.w, []byte(s))
}
