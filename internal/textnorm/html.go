package textnorm

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// blockTags get a newline inserted after them so that "<p>a</p><p>b</p>"
// doesn't tokenize as one run "ab".
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "blockquote": true,
}

// preTags mark a preformatted context: CR/LF inside them is emitted as a
// space rather than a real line break, so StripNewlines never sees (and
// so never has to account for) a line break that the source author
// intended as layout inside a <pre> or <textarea> block.
var preTags = map[string]bool{
	"pre": true, "textarea": true,
}

// ExtractText walks an HTML document and returns its visible text,
// dropping <script> and <style> contents entirely. Malformed markup never
// aborts extraction: golang.org/x/net/html's tokenizer is itself
// best-effort and simply emits an ErrorToken at EOF or on unrecoverable
// syntax, at which point this returns whatever text was collected so far.
func ExtractText(raw []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(raw))
	var buf bytes.Buffer
	skipDepth := 0
	preDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return buf.Bytes()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := strings.ToLower(string(name))
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if preTags[tag] && tt == html.StartTagToken {
				preDepth++
			}
			if blockTags[tag] && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := strings.ToLower(string(name))
			if (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
				continue
			}
			if preTags[tag] && preDepth > 0 {
				preDepth--
			}
			if blockTags[tag] {
				buf.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				writeText(&buf, z.Text(), preDepth > 0)
			}
		}
	}
}

// writeText appends text to buf, turning every CR, LF, or CRLF run into
// a single space when inPre is true.
func writeText(buf *bytes.Buffer, text []byte, inPre bool) {
	if !inPre {
		buf.Write(text)
		return
	}
	for len(text) > 0 {
		i := bytes.IndexAny(text, "\r\n")
		if i < 0 {
			buf.Write(text)
			return
		}
		buf.Write(text[:i])
		buf.WriteByte(' ')
		wasCR := text[i] == '\r'
		text = text[i+1:]
		if wasCR && len(text) > 0 && text[0] == '\n' {
			text = text[1:]
		}
	}
}
