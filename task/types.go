// Package task implements the Task/MimePart/TextPart data model and the
// orchestrator that drives the rest of the ingestion pipeline
// (internal/urlparse, internal/header, internal/mimetree,
// internal/decode, internal/textnorm, internal/tokenize,
// internal/simtext, internal/digest) over one message at a time.
package task

import (
	"net"
	"time"

	"github.com/halvardwex/ingestcore/internal/arena"
	"github.com/halvardwex/ingestcore/internal/digest"
	"github.com/halvardwex/ingestcore/internal/header"
	"github.com/halvardwex/ingestcore/internal/mimetree"
	"github.com/halvardwex/ingestcore/internal/textnorm"
	"github.com/halvardwex/ingestcore/internal/tokenize"
	"github.com/halvardwex/ingestcore/internal/urlparse"
)

// GTUBE is the standard anti-UBE test pattern. A text part no larger
// than GtubeMaxPartSize containing this literal substring triggers the
// reject verdict regardless of any other scoring.
const GTUBE = "XJS*C4JDBQADN1.NSBN3*2IDNEN*GTUBE-STANDARD-ANTI-UBE-TEST-EMAIL*C.34X"

// TaskFlags are task-scope flags set by the orchestrator.
type TaskFlags uint32

const (
	FlagSkip TaskFlags = 1 << iota
	FlagGtube
	FlagRaw // task was parsed via the raw/content-type-oracle fallback, not real MIME
)

// Action is the pre-result action the orchestrator may set. It is never
// a substitute for a real scoring verdict; only GTUBE short-circuits to
// Reject in this core.
type Action int

const (
	ActionNone Action = iota
	ActionReject
)

// Verdict is the pre-result the orchestrator may attach to a task.
type Verdict struct {
	Action  Action
	Message string
}

// MimePartFlags are per-part flags: text, attachment, broken, truncated.
type MimePartFlags uint32

const (
	MimePartText MimePartFlags = 1 << iota
	MimePartAttachment
	MimePartBroken
	MimePartTruncated
)

// PartPayload is the closed set of type-specific variants a MimePart can
// carry, dispatched on MimePart.Kind.
type PartPayload struct {
	Text    *TextPart
	Archive *ArchiveInfo
	Image   *ImageInfo
}

// ArchiveInfo records only the sniffed content type and size of an
// archive-typed part; archive *contents* are never inspected by this
// core.
type ArchiveInfo struct {
	SniffedType string
	Size        int
}

// ImageInfo mirrors ArchiveInfo for image-typed parts.
type ImageInfo struct {
	SniffedType string
	Size        int
}

// MimePart is one node of the flattened, depth-first pre-order MIME
// tree. ParentIndex is a weak back-reference into Task.Parts (-1 for the
// root), implemented as a stable slice index per the arena lifetime
// rules rather than a pointer, so it stays valid even if Task.Parts is
// copied.
type MimePart struct {
	Kind         mimetree.Kind
	MediaType    string
	MediaSubType string
	Params       map[string]string

	ContentID          string
	ContentDescription string
	TransferEncoding   string

	Header *header.Set

	ParentIndex int
	Digest      [digest.Size]byte
	Flags       MimePartFlags

	Payload PartPayload

	// TextPartIndex is the index into Task.TextParts for this part, or -1
	// if this part carries no text payload.
	TextPartIndex int
}

// TextPartFlags are per-text-part flags.
type TextPartFlags uint32

const (
	TextPartUTF        TextPartFlags = 1 << iota
	TextPartHTML
	TextPartBalanced
	TextPartEmpty
	TextPartAttachment
)

// ProcessException is a byte range within a text part's stripped content
// that tokenization must skip, expressed as {pos, len, kind} rather than
// internal/tokenize's {Start, End}.
type ProcessException struct {
	Pos  int
	Len  int
	Kind tokenize.ExceptionKind
}

// TextPart is the normalized-text view of a MimePart with Kind Text or
// HTML. MimePartIndex is the weak back-reference into Task.Parts.
type TextPart struct {
	MimePartIndex int

	Decoded  []byte // after CTE decode + charset transcode, before HTML extraction
	Stripped []byte // newline-free content used for tokenization
	OffsetMap *textnorm.OffsetMap

	Exceptions []ProcessException

	Script textnorm.ScriptResult

	Tokens []tokenize.Token
	Hashes []uint64

	Flags TextPartFlags
}

// ReceivedHeader is one parsed hop of a Received: chain.
type ReceivedHeader struct {
	From          string
	By            string
	RealIP        net.IP
	FromHostname  string
	RealHostname  string
	Timestamp     time.Time
	Synthetic     bool // true for the orchestrator-synthesized entry, not parsed from a header
}

// Task is the root entity scoped to one message.
type Task struct {
	Raw []byte

	MessageID string // never empty after Process; sentinel "undef"
	QueueID   string
	Subject   string
	HasSubject bool

	EnvelopeFrom string
	DeliveredTo  string
	Recipients   []string // To/Cc/Bcc combined
	FromAddrs    []string

	// FromDisplayName is the display name on the first From address, if
	// any (e.g. "Alice Example" in "Alice Example <alice@example.com>").
	// Useful for display-name spoofing heuristics downstream: a From
	// display name that itself looks like a different address, or that
	// doesn't match the registered sender, is a common phishing signal.
	FromDisplayName string

	SourceIP       net.IP
	SourceHostname string

	Headers *header.Set

	Parts     []*MimePart
	TextParts []*TextPart
	Received  []ReceivedHeader
	URLs      []*urlparse.Url

	Digest [digest.Size]byte

	Verdict Verdict
	Flags   TaskFlags
	Symbols []string

	PartsDistance    int
	PartsRatio       float64
	HasPartsDistance bool

	Scratch map[string]any

	Errors []*ParseError

	arena *arena.Arena
}

// Arena exposes the task's scoped allocator. Components may allocate
// scratch buffers through it; nothing allocated here may be returned
// across the task's public API boundary without first being copied to
// caller-owned storage.
func (t *Task) Arena() *arena.Arena { return t.arena }

// Close releases the task's arena, running any deferred destructors.
func (t *Task) Close() { t.arena.Close() }
