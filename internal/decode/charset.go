// Package decode implements the best-effort Content-Transfer-Encoding and
// charset transcoding steps of the MIME pipeline: it never fails a caller
// over a malformed or unrecognized encoding, it degrades to the original
// bytes instead.
package decode

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// CharsetReader resolves charset to a decoding io.Reader wrapping input.
// It is directly usable as a mime.WordDecoder.CharsetReader. Lookup tries
// the MIME charset registry first, then the broader IANA registry, the
// same two-step fallback used for charset aliases (x-mac-*, windows-*)
// that MIME's own table doesn't carry.
func CharsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "us-ascii" || charset == "ascii" || charset == "utf-8" || charset == "utf8" {
		return input, nil
	}
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		enc, err = ianaindex.IANA.Encoding(charset)
	}
	if err != nil || enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

// Transcode decodes b from the named charset to UTF-8. An unresolved or
// malformed charset, or any decode error, leaves b unchanged rather than
// returning an error: the parser this feeds must never abort on
// malformed input.
func Transcode(b []byte, charset string) []byte {
	r, err := CharsetReader(charset, bytes.NewReader(b))
	if err != nil {
		return b
	}
	out, err := io.ReadAll(r)
	if err != nil || len(out) == 0 {
		return b
	}
	return out
}
