package task

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/halvardwex/ingestcore/config"
	"github.com/halvardwex/ingestcore/internal/arena"
	"github.com/halvardwex/ingestcore/internal/decode"
	"github.com/halvardwex/ingestcore/internal/digest"
	"github.com/halvardwex/ingestcore/internal/header"
	"github.com/halvardwex/ingestcore/internal/mimetree"
	"github.com/halvardwex/ingestcore/internal/rfc5322/address"
	"github.com/halvardwex/ingestcore/internal/simtext"
	"github.com/halvardwex/ingestcore/internal/textnorm"
	"github.com/halvardwex/ingestcore/internal/tokenize"
	"github.com/halvardwex/ingestcore/internal/urlparse"
)

// Process runs the full ingestion pipeline over raw, a single message
// exactly as it arrived on the wire. It never returns an error except
// ConfigForbidsRaw: any other recoverable condition accumulates on
// the returned Task's Errors field and parsing continues best-effort.
//
// Process never spawns a goroutine and never blocks; the caller owns
// the returned Task and must call Close when done with it to release
// its arena.
func Process(raw []byte, cfg *config.Config, opts ...Option) (*Task, error) {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	t := &Task{
		arena:   arena.New(),
		Scratch: make(map[string]any),
	}
	t.Raw = raw

	body := stripMboxEnvelope(raw, cfg, o)

	var root *mimetree.Part
	if o.isMIME {
		root = mimetree.Parse(body, cfg.MaxMimeDepth)
	} else {
		if !cfg.AllowRawInput {
			t.Close()
			return nil, newError(ConfigForbidsRaw, 0, nil)
		}
		t.Flags |= FlagRaw
		mt := "application/octet-stream"
		if o.contentTypeOracle != nil {
			if sniffed, ok := o.contentTypeOracle(body); ok {
				mt = sniffed
			}
		}
		root = syntheticPart(body, mt)
	}

	addPart(t, root, -1, cfg, o)
	if len(t.Parts) > 0 {
		t.Headers = t.Parts[0].Header
	} else {
		t.Headers = &header.Set{}
	}

	// message-id, sentinel "undef" when absent.
	t.MessageID = "undef"
	if raw, ok := t.Headers.First("Message-Id"); ok {
		id := strings.Trim(strings.TrimSpace(string(raw)), "<>")
		if id != "" {
			t.MessageID = id
		}
	}

	// subject.
	if subj, ok := t.Headers.StrongFirst("Subject"); ok {
		t.Subject = subj
		t.HasSubject = true
	}

	// GTUBE scan over any text part no larger than the configured bound.
	scanGtube(t, cfg, o)

	// Received chain.
	if !cfg.IgnoreReceived {
		buildReceivedChain(t, o)
	}

	// envelope-from, delivered-to, recipient/from address lists.
	extractAddresses(t)

	// URLs from every Subject header.
	for _, raw := range t.Headers.ByName("Subject") {
		for _, span := range scanURLTokens(raw) {
			u, err := urlparse.Parse(span)
			if err != nil {
				continue
			}
			if o.tldLookup != nil {
				if tld, ok := o.tldLookup(u.Host); ok {
					u.TLD = tld
				}
			}
			t.URLs = append(t.URLs, u)
		}
	}

	// two-part similarity under a shared multipart/alternative parent.
	computePartsSimilarity(t)

	// task digest accumulation.
	accumulateDigest(t, o)

	return t, nil
}

// stripMboxEnvelope skips a leading mbox "From " envelope line.
func stripMboxEnvelope(raw []byte, cfg *config.Config, o *options) []byte {
	if o.isJSON && !cfg.LocalClient {
		return raw
	}
	b := bytes.TrimLeft(raw, " \t\r\n")
	if !bytes.HasPrefix(b, []byte("From ")) {
		return b
	}
	nl := bytes.IndexByte(b, '\n')
	if nl < 0 {
		return b
	}
	return bytes.TrimLeft(b[nl+1:], " \t")
}

// syntheticPart builds a single opaque or text leaf from raw bytes and a
// sniffed MIME type, for the non-MIME fallback path.
func syntheticPart(body []byte, mimeType string) *mimetree.Part {
	fields := strings.SplitN(strings.ToLower(mimeType), "/", 2)
	mt := fields[0]
	st := ""
	if len(fields) == 2 {
		st = fields[1]
	}
	kind := mimetree.KindOther
	switch {
	case mt == "text" && st == "html":
		kind = mimetree.KindHTML
	case mt == "text":
		kind = mimetree.KindText
	}
	return &mimetree.Part{
		Kind:         kind,
		MediaType:    mt,
		MediaSubType: st,
		Params:       map[string]string{},
		Header:       &header.Set{},
		RawBody:      body,
	}
}

// addPart flattens the mimetree.Part tree into t.Parts depth-first
// pre-order, building a TextPart for every text-typed leaf that isn't a
// skipped attachment, and returns the new part's index.
func addPart(t *Task, mp *mimetree.Part, parentIdx int, cfg *config.Config, o *options) int {
	mpart := &MimePart{
		Kind:               mp.Kind,
		MediaType:          mp.MediaType,
		MediaSubType:       mp.MediaSubType,
		Params:             mp.Params,
		ContentID:          mp.ContentID,
		ContentDescription: mp.ContentDescription,
		TransferEncoding:   mp.TransferEncoding,
		Header:             mp.Header,
		ParentIndex:        parentIdx,
		TextPartIndex:      -1,
	}
	if mp.MalformedHeader {
		mpart.Flags |= MimePartBroken
		e := newError(MalformedInput, 0, fmt.Errorf("part %d: Content-Type header did not parse", len(t.Parts)))
		t.Errors = append(t.Errors, e)
		o.logger.Debug("malformed part header", "error", e)
	}
	if mp.DepthTruncated {
		mpart.Flags |= MimePartTruncated
		e := newError(Truncation, 0, fmt.Errorf("part %d: nesting depth truncated at %d", len(t.Parts), mp.Depth))
		t.Errors = append(t.Errors, e)
		o.logger.Info("mime nesting truncated", "error", e)
	}

	isAttachment := false
	if disp, ok := mp.Header.First("Content-Disposition"); ok {
		isAttachment = strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(disp))), "attachment")
	}
	if isAttachment {
		mpart.Flags |= MimePartAttachment
	}

	idx := len(t.Parts)
	t.Parts = append(t.Parts, mpart)

	leafBody := decode.Body(mp.RawBody, mp.TransferEncoding)
	switch mp.Kind {
	case mimetree.KindText, mimetree.KindHTML:
		mpart.Flags |= MimePartText
		if !(isAttachment && !cfg.CheckTextAttachments) {
			tp := buildTextPart(t, idx, mp, o)
			if isAttachment {
				tp.Flags |= TextPartAttachment
			}
			mpart.Payload.Text = tp
			mpart.TextPartIndex = len(t.TextParts)
			t.TextParts = append(t.TextParts, tp)
		}
		mpart.Digest = digestBytes(leafBody, o)
	case mimetree.KindArchive:
		mpart.Payload.Archive = &ArchiveInfo{SniffedType: mp.MediaType + "/" + mp.MediaSubType, Size: len(mp.RawBody)}
		mpart.Digest = digestBytes(leafBody, o)
	case mimetree.KindImage:
		mpart.Payload.Image = &ImageInfo{SniffedType: mp.MediaType + "/" + mp.MediaSubType, Size: len(mp.RawBody)}
		mpart.Digest = digestBytes(leafBody, o)
	case mimetree.KindOther:
		mpart.Digest = digestBytes(leafBody, o)
	}

	for _, c := range mp.Children {
		addPart(t, c, idx, cfg, o)
	}
	if mp.Message != nil {
		addPart(t, mp.Message, idx, cfg, o)
	}
	return idx
}

// buildTextPart decodes, normalizes, and tokenizes one text-typed leaf.
// Non-HTML parts also contribute any URLs found in their body text to
// t.URLs, alongside the Subject-header URLs Process collects itself.
func buildTextPart(t *Task, mimePartIdx int, mp *mimetree.Part, o *options) *TextPart {
	if !knownTransferEncodings[strings.ToUpper(strings.TrimSpace(mp.TransferEncoding))] {
		e := newError(UnsupportedEncoding, 0, fmt.Errorf("part %d: unrecognized transfer encoding %q, passed through unchanged", mimePartIdx, mp.TransferEncoding))
		t.Errors = append(t.Errors, e)
		o.logger.Info("unsupported transfer encoding", "error", e)
	}
	cteDecoded := decode.Body(mp.RawBody, mp.TransferEncoding)
	charset := mp.Params["charset"]
	transcoded := decode.Transcode(cteDecoded, charset)

	var flags TextPartFlags
	var textBytes []byte
	if mp.Kind == mimetree.KindHTML {
		textBytes = textnorm.ExtractText(transcoded)
		flags |= TextPartHTML
	} else {
		textBytes = transcoded
	}
	if utf8.Valid(transcoded) {
		flags |= TextPartUTF
	}

	stripped, offsetMap := textnorm.StripNewlines(textBytes)
	if len(stripped) == 0 {
		flags |= TextPartEmpty
	}

	script := textnorm.DetectScript(string(stripped))

	var exceptions []ProcessException
	var tokExceptions []tokenize.Exception
	for _, pos := range offsetMap.NewlineBoundaries() {
		exceptions = append(exceptions, ProcessException{Pos: pos, Kind: tokenize.ExceptionNewline})
		tokExceptions = append(tokExceptions, tokenize.Exception{Kind: tokenize.ExceptionNewline, Start: pos, End: pos})
	}
	for _, ue := range scanURLExceptions(stripped) {
		exceptions = append(exceptions, ProcessException{Pos: ue.Start, Len: ue.End - ue.Start, Kind: tokenize.ExceptionURL})
		tokExceptions = append(tokExceptions, ue)
		if flags&TextPartHTML == 0 {
			if u, err := urlparse.Parse(stripped[ue.Start:ue.End]); err == nil {
				if o.tldLookup != nil {
					if tld, ok := o.tldLookup(u.Host); ok {
						u.TLD = tld
					}
				}
				t.URLs = append(t.URLs, u)
			}
		}
	}

	tokens := tokenize.Tokenize(string(stripped), tokExceptions)

	// Open Question #2 (preserved, see DESIGN.md): stemming only runs
	// when the detected script resolved to a non-empty language code.
	if o.stemmer != nil && script.Code != "" {
		for i := range tokens {
			if tokens[i].IsException {
				continue
			}
			stemmed := o.stemmer.Stem(tokens[i].Text)
			if stemmed != tokens[i].Text {
				tokens[i].Text = stemmed
				tokens[i].Hash = tokenize.Hash(stemmed)
			}
		}
	}

	hashes := make([]uint64, 0, len(tokens))
	for _, tk := range tokens {
		if tk.IsException {
			continue
		}
		hashes = append(hashes, tk.Hash)
	}

	return &TextPart{
		MimePartIndex: mimePartIdx,
		Decoded:       transcoded,
		Stripped:      stripped,
		OffsetMap:     offsetMap,
		Exceptions:    normalizeProcessExceptions(exceptions),
		Script:        script,
		Tokens:        tokens,
		Hashes:        hashes,
		Flags:         flags,
	}
}

// knownTransferEncodings are the Content-Transfer-Encoding values
// internal/decode.Body actually decodes or explicitly passes through as
// an identity transform; anything else still passes through unchanged,
// but is surfaced as an UnsupportedEncoding ParseError instead of
// silently treated as if it were known.
var knownTransferEncodings = map[string]bool{
	"": true, "7BIT": true, "8BIT": true, "BINARY": true,
	"BASE64": true, "QUOTED-PRINTABLE": true,
}

func digestBytes(b []byte, o *options) [digest.Size]byte {
	h := o.digestHasher()
	_, _ = h.Write(b)
	return h.Sum()
}

// scanGtube checks every small text part for the GTUBE test pattern. A
// part over the configured bound is skipped rather than scanned, and
// recorded as a ResourceLimit condition rather than silently ignored.
func scanGtube(t *Task, cfg *config.Config, o *options) {
	limit := cfg.GtubeMaxPartSize
	for i, tp := range t.TextParts {
		if len(tp.Decoded) > limit {
			e := newError(ResourceLimit, 0, fmt.Errorf("text part %d: %d bytes exceeds gtube_max_part_size %d, scan skipped", i, len(tp.Decoded), limit))
			t.Errors = append(t.Errors, e)
			o.logger.Debug("gtube scan skipped", "error", e)
			continue
		}
		if bytes.Contains(tp.Decoded, []byte(GTUBE)) {
			t.Flags |= FlagSkip | FlagGtube
			t.Verdict = Verdict{Action: ActionReject, Message: "Gtube pattern"}
			t.Symbols = append(t.Symbols, "GTUBE")
			return
		}
	}
}

// buildReceivedChain parses every Received header into the chain. When the
// caller observed a client IP, it is cross-checked against the first
// header's real_ip and a synthetic entry is prepended on mismatch or
// absence. When no IP was observed, the first header's real_ip/
// real_hostname are adopted as the task's source IP/hostname instead.
func buildReceivedChain(t *Task, o *options) {
	for _, raw := range t.Headers.ByName("Received") {
		t.Received = append(t.Received, parseReceivedHeader(string(raw)))
	}
	if o.clientIP == nil {
		if len(t.Received) > 0 {
			first := t.Received[0]
			if first.RealIP != nil {
				t.SourceIP = first.RealIP
			}
			if first.RealHostname != "" {
				t.SourceHostname = first.RealHostname
			}
		}
		return
	}
	t.SourceIP = o.clientIP
	needsSynthetic := len(t.Received) == 0 || t.Received[0].RealIP == nil || !t.Received[0].RealIP.Equal(o.clientIP)
	if needsSynthetic {
		synthetic := ReceivedHeader{RealIP: o.clientIP, Synthetic: true}
		t.Received = append([]ReceivedHeader{synthetic}, t.Received...)
	}
}

// extractAddresses pulls envelope-from, delivered-to, and the
// recipient/from address lists out of the header set.
func extractAddresses(t *Task) {
	if rp, ok := t.Headers.First("Return-Path"); ok {
		t.EnvelopeFrom = strings.Trim(strings.TrimSpace(string(rp)), "<>")
	}
	if dt, ok := t.Headers.First("Delivered-To"); ok {
		t.DeliveredTo = strings.TrimSpace(string(dt))
	}

	parser := &address.AddressParser{PermissiveLocalPart: true}
	collect := func(name string) []string {
		var out []string
		for _, raw := range t.Headers.ByName(name) {
			addrs, err := parser.ParseListBytes(raw)
			if err != nil {
				continue
			}
			for _, a := range addrs {
				if addr := a.GetAddress(); len(addr) > 0 {
					out = append(out, string(addr))
				}
				if t.FromDisplayName == "" && name == "From" {
					if dn := strings.TrimSpace(string(a.GetDisplayName())); dn != "" {
						t.FromDisplayName = dn
					}
				}
			}
		}
		return out
	}
	t.Recipients = append(t.Recipients, collect("To")...)
	t.Recipients = append(t.Recipients, collect("Cc")...)
	t.Recipients = append(t.Recipients, collect("Bcc")...)
	t.FromAddrs = collect("From")
}

// computePartsSimilarity compares the two text parts under a shared
// multipart/alternative parent, if there are exactly two.
func computePartsSimilarity(t *Task) {
	altGroups := make(map[int][]int)
	for ti, tp := range t.TextParts {
		mp := t.Parts[tp.MimePartIndex]
		if mp.ParentIndex < 0 {
			continue
		}
		parent := t.Parts[mp.ParentIndex]
		if parent.MediaType == "multipart" && parent.MediaSubType == "alternative" {
			altGroups[mp.ParentIndex] = append(altGroups[mp.ParentIndex], ti)
		}
	}
	for _, group := range altGroups {
		if len(group) != 2 {
			continue
		}
		a, b := t.TextParts[group[0]], t.TextParts[group[1]]
		// Open Question #1 (preserved, see DESIGN.md): a part sanitized to
		// empty short-circuits similarity even though the parts might
		// otherwise be comparable.
		if a.Flags&TextPartEmpty != 0 || b.Flags&TextPartEmpty != 0 {
			continue
		}
		dist, ok := simtext.Distance(a.Hashes, b.Hashes)
		if !ok {
			continue
		}
		t.PartsDistance = dist
		t.HasPartsDistance = true
		if ratio, ok := simtext.Ratio(a.Hashes, b.Hashes); ok {
			t.PartsRatio = ratio
		}
		return
	}
}

// accumulateDigest folds the digest of every leaf part (anything but a
// multipart or message container) into the task-level digest, in t.Parts
// order (depth-first pre-order).
func accumulateDigest(t *Task, o *options) {
	h := o.digestHasher()
	for _, mp := range t.Parts {
		if mp.Kind == mimetree.KindMultipart || mp.Kind == mimetree.KindMessage {
			continue
		}
		_, _ = h.Write(mp.Digest[:])
	}
	t.Digest = h.Sum()
}

// normalizeProcessExceptions sorts exceptions ascending by Pos, higher
// priority first among equal Pos, and keeps an exception only if it
// starts at or after the end of the last one kept, whatever its
// priority, mirroring internal/tokenize's
// NormalizeExceptions so the public Exceptions field never carries two
// overlapping entries.
func normalizeProcessExceptions(exs []ProcessException) []ProcessException {
	if len(exs) < 2 {
		return exs
	}
	sorted := append([]ProcessException(nil), exs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Pos != sorted[j].Pos {
			return sorted[i].Pos < sorted[j].Pos
		}
		return sorted[i].Kind.Priority() > sorted[j].Kind.Priority()
	})
	var out []ProcessException
	lastEnd := -1
	for _, e := range sorted {
		if e.Pos < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.Pos + e.Len
	}
	return out
}
