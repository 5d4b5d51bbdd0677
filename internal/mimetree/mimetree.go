// Package mimetree implements the recursive-descent MIME container parser:
// it turns a raw message or part body into a tree of Parts, classifying
// each leaf by media type and descending into multipart/message containers.
// It never returns an error for malformed input: a missing or unparsable
// Content-Type is treated as text/plain, and a multipart part whose
// boundary is absent, never found, or beyond the depth bound becomes an
// opaque KindOther leaf holding its raw body, modeled on the
// Parse/EnsurePart/fallbackPart split in other_examples/mjl--mox__part.go.
package mimetree

import (
	"bytes"
	"mime"
	"strings"

	"github.com/halvardwex/ingestcore/internal/bufio"
	"github.com/halvardwex/ingestcore/internal/header"
)

// DefaultMaxDepth is the nesting bound Parse applies when given a
// non-positive maxDepth.
const DefaultMaxDepth = 20

// Kind classifies a leaf or container part for the rest of the pipeline.
type Kind int

const (
	KindText Kind = iota
	KindHTML
	KindImage
	KindArchive
	KindMultipart
	KindMessage
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindHTML:
		return "html"
	case KindImage:
		return "image"
	case KindArchive:
		return "archive"
	case KindMultipart:
		return "multipart"
	case KindMessage:
		return "message"
	default:
		return "other"
	}
}

// Part is one node of the MIME tree.
type Part struct {
	Kind Kind

	MediaType    string // lower-case, e.g. "text"
	MediaSubType string // lower-case, e.g. "plain"
	Params       map[string]string

	ContentID          string
	ContentDescription string
	TransferEncoding    string // upper-case, e.g. "BASE64"

	Header *header.Set

	// RawBody holds this part's body exactly as it appeared on the wire,
	// still subject to TransferEncoding. Only populated for leaves; empty
	// for multipart/message containers, whose content lives in
	// Children/Message instead.
	RawBody []byte

	Children []*Part // populated when Kind == KindMultipart
	Message  *Part   // populated when Kind == KindMessage

	Depth           int
	DepthTruncated  bool // true if nesting hit MaxDepth and was forced opaque
	MalformedHeader bool // true if the Content-Type header failed to parse
}

// Parse parses raw as a top-level message or MIME part body. A part at
// maxDepth is never descended into further, regardless of its declared
// Content-Type; it becomes opaque instead. maxDepth <= 0 falls back to
// DefaultMaxDepth.
func Parse(raw []byte, maxDepth int) *Part {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return parseAt(raw, 0, maxDepth)
}

func parseAt(raw []byte, depth, maxDepth int) *Part {
	set, body, err := header.Parse(&bufio.BytesReaderWrapper{Reader: bytes.NewReader(raw)})
	if err != nil || set == nil {
		set = &header.Set{}
		body = raw
	}

	p := &Part{Header: set, Depth: depth}

	ctRaw, _ := set.First("Content-Type")
	mt, params, err := mime.ParseMediaType(strings.TrimSpace(string(ctRaw)))
	if err != nil || mt == "" {
		p.MalformedHeader = err != nil && len(ctRaw) > 0
		mt = "text/plain"
		params = map[string]string{}
	}
	parts := strings.SplitN(strings.ToLower(mt), "/", 2)
	p.MediaType = parts[0]
	if len(parts) == 2 {
		p.MediaSubType = parts[1]
	}
	p.Params = params

	if cid, ok := set.First("Content-Id"); ok {
		p.ContentID = strings.Trim(string(cid), " <>")
	}
	if cd, ok := set.StrongFirst("Content-Description"); ok {
		p.ContentDescription = cd
	}
	if cte, ok := set.First("Content-Transfer-Encoding"); ok {
		p.TransferEncoding = strings.ToUpper(strings.TrimSpace(string(cte)))
	}

	switch {
	case p.MediaType == "multipart":
		boundary := params["boundary"]
		if boundary == "" || depth >= maxDepth {
			p.Kind = KindOther
			p.DepthTruncated = depth >= maxDepth
			p.RawBody = body
			return p
		}
		segments, ok := splitOnBoundary(body, boundary)
		if !ok {
			// Declared multipart but no boundary markers found in the
			// body: degrade to an opaque leaf rather than aborting.
			p.Kind = KindOther
			p.RawBody = body
			return p
		}
		p.Kind = KindMultipart
		for _, seg := range segments {
			p.Children = append(p.Children, parseAt(seg, depth+1, maxDepth))
		}

	case p.MediaType == "message" && (p.MediaSubType == "rfc822" || p.MediaSubType == "global"):
		if depth >= maxDepth {
			p.Kind = KindOther
			p.DepthTruncated = true
			p.RawBody = body
			return p
		}
		p.Kind = KindMessage
		p.Message = parseAt(body, depth+1, maxDepth)

	case p.MediaType == "text" && p.MediaSubType == "html":
		p.Kind = KindHTML
		p.RawBody = body

	case p.MediaType == "text":
		p.Kind = KindText
		p.RawBody = body

	case p.MediaType == "image":
		p.Kind = KindImage
		p.RawBody = body

	case isArchiveType(p.MediaType, p.MediaSubType):
		p.Kind = KindArchive
		p.RawBody = body

	default:
		p.Kind = KindOther
		p.RawBody = body
	}

	return p
}

func isArchiveType(mediaType, subType string) bool {
	if mediaType != "application" {
		return false
	}
	switch subType {
	case "zip", "x-zip-compressed", "x-rar-compressed", "x-7z-compressed",
		"gzip", "x-gzip", "x-tar", "x-bzip2", "vnd.rar":
		return true
	}
	return false
}

// Walk calls fn for p and every descendant, depth first.
func Walk(p *Part, fn func(*Part)) {
	if p == nil {
		return
	}
	fn(p)
	for _, c := range p.Children {
		Walk(c, fn)
	}
	if p.Message != nil {
		Walk(p.Message, fn)
	}
}

// splitOnBoundary splits body on a MIME multipart boundary, tolerating a
// missing closing delimiter (the last open segment is still returned).
// Modeled on the prefix/whitespace boundary-line match in
// other_examples/mjl--mox__part.go's checkBound, adapted to operate on an
// in-memory buffer instead of an io.ReaderAt.
func splitOnBoundary(body []byte, boundary string) ([][]byte, bool) {
	marker := append([]byte("--"), boundary...)
	lines := bytes.Split(body, []byte("\n"))

	var segs [][]byte
	var cur []byte
	started := false
	finished := false

	flush := func() {
		cur = bytes.TrimSuffix(cur, []byte("\r\n"))
		cur = bytes.TrimSuffix(cur, []byte("\n"))
		segs = append(segs, cur)
	}

	for _, line := range lines {
		trimmed := bytes.TrimRight(line, "\r")
		if bytes.HasPrefix(trimmed, marker) {
			rest := trimmed[len(marker):]
			if bytes.HasPrefix(rest, []byte("--")) {
				if started {
					flush()
				}
				finished = true
				break
			}
			if len(rest) == 0 || rest[0] == ' ' || rest[0] == '\t' {
				if started {
					flush()
				}
				cur = nil
				started = true
				continue
			}
		}
		if started {
			cur = append(cur, line...)
			cur = append(cur, '\n')
		}
	}
	if started && !finished {
		flush()
	}
	return segs, started
}
