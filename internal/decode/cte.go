package decode

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"
)

// Body decodes a MIME part's body according to its declared
// Content-Transfer-Encoding (already upper-cased by the caller). Unknown
// or absent encodings pass the bytes through unchanged (7bit/8bit/binary
// are identity transforms by definition). Truncated or invalid
// quoted-printable/base64 data degrades to whatever could be decoded
// before the error rather than discarding the whole body; this parser
// never aborts on malformed input.
func Body(raw []byte, transferEncoding string) []byte {
	switch strings.ToUpper(strings.TrimSpace(transferEncoding)) {
	case "BASE64":
		return decodeBase64(raw)
	case "QUOTED-PRINTABLE":
		return decodeQuotedPrintable(raw)
	case "", "7BIT", "8BIT", "BINARY":
		return raw
	default:
		return raw
	}
}

func decodeBase64(raw []byte) []byte {
	clean := make([]byte, 0, len(raw))
	for _, b := range raw {
		switch {
		case b == '\r' || b == '\n' || b == ' ' || b == '\t':
			continue
		case (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '+' || b == '/' || b == '=':
			clean = append(clean, b)
		default:
			// Stop at the first byte that can't appear in base64: truncate
			// rather than fail the whole body.
			goto decode
		}
	}
decode:
	out, err := base64.StdEncoding.DecodeString(string(clean))
	if err == nil {
		return out
	}
	// Trim trailing garbage in groups of 4 until it decodes, salvaging as
	// much of the body as possible.
	for len(clean)%4 != 0 && len(clean) > 0 {
		clean = clean[:len(clean)-1]
	}
	for len(clean) > 0 {
		out, err = base64.StdEncoding.DecodeString(string(clean))
		if err == nil {
			return out
		}
		clean = clean[:len(clean)-4]
	}
	return nil
}

func decodeQuotedPrintable(raw []byte) []byte {
	r := quotedprintable.NewReader(bytes.NewReader(raw))
	out, err := io.ReadAll(r)
	if err == nil {
		return out
	}
	// A bare '=' not followed by a valid escape, or a truncated escape at
	// EOF, is common in the wild; keep whatever decoded before the error.
	return out
}
