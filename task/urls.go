package task

import (
	"unicode"
	"unicode/utf8"

	"github.com/halvardwex/ingestcore/internal/tokenize"
	"github.com/halvardwex/ingestcore/internal/urlparse"
)

// isURLBoundary reports whether r can never appear inside a URL token,
// so it is safe to split candidate spans on.
func isURLBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '<' || r == '>' || r == '"' || r == '\''
}

// scanURLExceptions walks text looking for whitespace-delimited spans
// that parse as a URL, returning one URL-kind process exception per hit
// in text's byte-offset coordinates. It never mutates text and never
// fails; a span that doesn't parse as a URL is simply not an exception.
func scanURLExceptions(text []byte) []tokenize.Exception {
	var exs []tokenize.Exception
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRune(text[i:])
		if isURLBoundary(r) {
			i += size
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRune(text[i:])
			if isURLBoundary(r) {
				break
			}
			i += size
		}
		span := text[start:i]
		if looksLikeURLCandidate(span) {
			if _, err := urlparse.Parse(span); err == nil {
				exs = append(exs, tokenize.Exception{Kind: tokenize.ExceptionURL, Start: start, End: i})
			}
		}
	}
	return exs
}

// scanURLTokens is the header variant: it returns the candidate spans
// themselves rather than positions, since header URL extraction only
// needs the parsed Url, not a splice point into stripped body content.
func scanURLTokens(raw []byte) [][]byte {
	var out [][]byte
	i := 0
	for i < len(raw) {
		r, size := utf8.DecodeRune(raw[i:])
		if isURLBoundary(r) {
			i += size
			continue
		}
		start := i
		for i < len(raw) {
			r, size = utf8.DecodeRune(raw[i:])
			if isURLBoundary(r) {
				break
			}
			i += size
		}
		span := raw[start:i]
		if looksLikeURLCandidate(span) {
			out = append(out, span)
		}
	}
	return out
}

// looksLikeURLCandidate filters out spans with no chance of parsing as
// a URL before paying for a full urlparse.Parse call.
func looksLikeURLCandidate(span []byte) bool {
	if len(span) < 4 {
		return false
	}
	hasDot := false
	hasAt := false
	hasColon := false
	for _, b := range span {
		switch b {
		case '.':
			hasDot = true
		case '@':
			hasAt = true
		case ':':
			hasColon = true
		}
	}
	return hasDot || hasAt || hasColon
}
