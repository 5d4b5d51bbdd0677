// Package header implements header-folding/unfolding on top of the
// teacher's RFC 5322 line scanner and adds the typed accessors the message
// parser needs: raw unfolded values, and RFC 2047 encoded-word decoded,
// charset-transcoded values.
package header

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"github.com/halvardwex/ingestcore/internal/bufio"
	"github.com/halvardwex/ingestcore/internal/decode"
	"github.com/halvardwex/ingestcore/internal/rfc5322"
)

// Field is one header field as it appeared on the wire: Name exactly as
// written, Raw the unfolded value with the CRLFs that preceded folding
// whitespace removed (the folding whitespace itself is kept literally).
type Field struct {
	Name string
	Raw  []byte
}

// Set is the ordered list of header fields parsed from one message or
// MIME part, preserving duplicates (e.g. multiple Received: lines) in
// wire order.
type Set struct {
	fields []Field
}

// Fields returns every field, in wire order.
func (s *Set) Fields() []Field {
	return s.fields
}

func (s *Set) add(chunks [][]byte) {
	if len(chunks) == 0 {
		return
	}
	first := chunks[0]
	colon := bytes.IndexByte(first, ':')
	var name string
	var valueParts [][]byte
	if colon < 0 {
		// Malformed header line with no colon: keep it under its own raw
		// text as the name, empty value, best-effort rather than dropped.
		name = strings.TrimSpace(string(first))
	} else {
		name = strings.TrimSpace(string(first[:colon]))
		rest := first[colon+1:]
		if len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
		valueParts = append(valueParts, rest)
	}
	valueParts = append(valueParts, chunks[1:]...)
	raw := bytes.Join(valueParts, nil)
	s.fields = append(s.fields, Field{Name: name, Raw: raw})
}

// Parse scans a full message (or MIME part) from r, returning the header
// field set and the unconsumed body bytes. It never returns an error for
// malformed header syntax; only an underlying I/O error propagates.
func Parse(r bufio.BufferedReader) (*Set, []byte, error) {
	set := &Set{}
	var body bytes.Buffer
	handler := rfc5322.ScannerHandlerFromFunctions(
		func([]byte) error { return nil },
		func(chunks [][]byte) error {
			set.add(chunks)
			return nil
		},
		func(br bufio.BufferedReader) error {
			_, err := io.Copy(&body, br)
			return err
		},
	)
	if err := rfc5322.Scan(r, handler); err != nil {
		return nil, nil, err
	}
	return set, body.Bytes(), nil
}

func eqFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ByName returns the raw (not encoded-word decoded) values of every field
// with the given name, case-insensitively, in wire order.
func (s *Set) ByName(name string) [][]byte {
	var out [][]byte
	for _, f := range s.fields {
		if eqFold(f.Name, name) {
			out = append(out, f.Raw)
		}
	}
	return out
}

// First returns the raw value of the first field with the given name.
func (s *Set) First(name string) ([]byte, bool) {
	for _, f := range s.fields {
		if eqFold(f.Name, name) {
			return f.Raw, true
		}
	}
	return nil, false
}

// byNameExact is ByName's exact-case counterpart: a field named "subject"
// is not returned for name "Subject". Used by the Strong* accessors,
// which filter by exact case in addition to decoding.
func (s *Set) byNameExact(name string) [][]byte {
	var out [][]byte
	for _, f := range s.fields {
		if f.Name == name {
			out = append(out, f.Raw)
		}
	}
	return out
}

// firstExact is First's exact-case counterpart.
func (s *Set) firstExact(name string) ([]byte, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f.Raw, true
		}
	}
	return nil, false
}

// wordDecoder is shared across all StrongByName calls; mime.WordDecoder
// holds no mutable state beyond the CharsetReader func pointer, so one
// instance is safe to reuse.
var wordDecoder = &mime.WordDecoder{CharsetReader: decode.CharsetReader}

// decodeHeaderValue applies RFC 2047 encoded-word decoding, falling back
// to the raw bytes (trimmed) on any decode failure; malformed
// encoded-words must never abort header access.
func decodeHeaderValue(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if !strings.Contains(s, "=?") {
		return s
	}
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// StrongByName returns the RFC 2047 decoded, charset-transcoded values of
// every field whose name matches exactly (case-sensitive), in wire order.
// "strong" here is both of that: a field named "subject" is not
// considered a match for name "Subject", unlike ByName.
func (s *Set) StrongByName(name string) []string {
	var out []string
	for _, raw := range s.byNameExact(name) {
		out = append(out, decodeHeaderValue(raw))
	}
	return out
}

// StrongFirst returns the decoded value of the first field whose name
// matches name exactly (case-sensitive).
func (s *Set) StrongFirst(name string) (string, bool) {
	raw, ok := s.firstExact(name)
	if !ok {
		return "", false
	}
	return decodeHeaderValue(raw), true
}
