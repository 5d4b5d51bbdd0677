// Package tokenize turns normalized text into maximal word-like tokens,
// hashed with a seeded 64-bit non-cryptographic hash, while leaving room
// for "process exceptions": spans the caller has already classified (a
// URL, a generated/boilerplate span, a line break) that get spliced into
// the token stream as a single opaque sentinel rather than being
// tokenized as ordinary words.
package tokenize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// hashSeed is the fixed seed used for every word hash; matching it
// exactly matters because downstream similarity comparisons assume the
// same seed was used on both sides.
const hashSeed = 0xdeadbabe

// exceptionSentinel is the token text substituted for any spliced
// process exception. It is never hashed; a URL or line-break exception
// carries no lexical content worth comparing across parts.
const exceptionSentinel = "!!EX!!"

// ExceptionKind classifies a process exception.
type ExceptionKind int

const (
	ExceptionNewline ExceptionKind = iota
	ExceptionGenerated
	ExceptionURL
)

// Priority orders exceptions when two overlap at the same start: a URL
// always wins over a generated span, which always wins over a bare
// newline.
func (k ExceptionKind) Priority() int {
	switch k {
	case ExceptionURL:
		return 2
	case ExceptionGenerated:
		return 1
	default:
		return 0
	}
}

// Exception is a byte-offset span of the normalized text that the
// tokenizer should splice as a single opaque token rather than tokenize
// normally.
type Exception struct {
	Kind  ExceptionKind
	Start int
	End   int
}

// NormalizeExceptions sorts exceptions by start position (higher
// priority first at an equal start) and drops any exception that starts
// before the end of the last exception kept, whatever its priority.
// Exceptions are spliced, not layered, so overlaps must resolve to
// exactly one winner.
func NormalizeExceptions(exs []Exception) []Exception {
	sorted := append([]Exception(nil), exs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Kind.Priority() > sorted[j].Kind.Priority()
	})
	var out []Exception
	lastEnd := -1
	for _, e := range sorted {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}

// Token is one tokenized unit: either a lowercased word run or a spliced
// exception carrying the sentinel text.
type Token struct {
	Text        string
	Hash        uint64
	IsException bool
	Start       int
	End         int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-'
}

// Hash computes the seeded 64-bit hash used for every non-exception
// token. It is also exposed directly for the inter-part similarity
// comparison, which hashes tokens the same way on both sides.
func Hash(s string) uint64 {
	h := xxhash.NewWithSeed(hashSeed)
	_, _ = h.WriteString(s)
	return h.Sum64()
}

// Tokenize splits text into maximal runs of letters, digits, apostrophe,
// and hyphen, lowercasing each run (Unicode-aware) and hashing it, while
// splicing exceptions as single sentinel tokens that are never hashed.
// Exceptions are expected in text's byte-offset coordinates.
func Tokenize(text string, exceptions []Exception) []Token {
	exceptions = NormalizeExceptions(exceptions)
	b := []byte(text)
	var tokens []Token
	wordStart := -1

	flushWord := func(end int) {
		if wordStart < 0 {
			return
		}
		raw := string(b[wordStart:end])
		lower := strings.ToLower(raw)
		tokens = append(tokens, Token{
			Text:  lower,
			Hash:  Hash(lower),
			Start: wordStart,
			End:   end,
		})
		wordStart = -1
	}

	exIdx := 0
	i := 0
	for i < len(b) {
		if exIdx < len(exceptions) && exceptions[exIdx].Start == i {
			flushWord(i)
			ex := exceptions[exIdx]
			end := ex.End
			if end > len(b) {
				end = len(b)
			}
			if end < i {
				end = i
			}
			tokens = append(tokens, Token{
				Text:        exceptionSentinel,
				IsException: true,
				Start:       ex.Start,
				End:         end,
			})
			i = end
			exIdx++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			flushWord(i)
			i++
			continue
		}
		if isWordRune(r) {
			if wordStart < 0 {
				wordStart = i
			}
			i += size
			continue
		}
		flushWord(i)
		i += size
	}
	flushWord(len(b))
	return tokens
}
