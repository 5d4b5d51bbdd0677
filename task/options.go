package task

import (
	"log/slog"
	"net"

	"github.com/halvardwex/ingestcore/internal/digest"
	"github.com/halvardwex/ingestcore/internal/logging"
	"github.com/halvardwex/ingestcore/internal/stemmer"
)

// ContentTypeOracle sniffs a content type from raw bytes, standing in
// for an external libmagic-style collaborator.
type ContentTypeOracle func(b []byte) (mimeType string, ok bool)

// TLDLookup resolves a host to its registrable suffix via a public
// suffix list, another external collaborator.
type TLDLookup func(host string) (tld string, ok bool)

type options struct {
	contentTypeOracle ContentTypeOracle
	tldLookup         TLDLookup
	stemmer           stemmer.Stemmer
	digestHasher      func() digest.Hasher
	logger            *slog.Logger
	clientIP          net.IP
	isMIME            bool
	isJSON            bool
}

func defaultOptions() *options {
	return &options{
		stemmer:      stemmer.Noop(),
		digestHasher: digest.New,
		logger:       slog.New(logging.BlackholeHandler{}),
		isMIME:       true,
	}
}

// Option configures a single Process call.
type Option func(*options)

// WithContentTypeOracle supplies the content-type sniffer used for tasks
// marked with WithRawInput. MIME parsing never falls back to it.
func WithContentTypeOracle(o ContentTypeOracle) Option {
	return func(opts *options) { opts.contentTypeOracle = o }
}

// WithTLDLookup supplies the public-suffix resolver URLs are annotated
// with.
func WithTLDLookup(l TLDLookup) Option {
	return func(opts *options) { opts.tldLookup = l }
}

// WithStemmer supplies the per-task stemmer oracle. Defaults to
// stemmer.Noop.
func WithStemmer(s stemmer.Stemmer) Option {
	return func(opts *options) { opts.stemmer = s }
}

// WithDigestHasher overrides the default blake2b-backed digest.Hasher
// constructor used to accumulate the task's content digest.
func WithDigestHasher(newHasher func() digest.Hasher) Option {
	return func(opts *options) { opts.digestHasher = newHasher }
}

// WithLogger supplies the *slog.Logger recoverable conditions are
// logged to. Defaults to a handler that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) { opts.logger = l }
}

// WithClientIP supplies the observed SMTP client IP used to validate or
// synthesize the first Received-header entry.
func WithClientIP(ip net.IP) Option {
	return func(opts *options) { opts.clientIP = ip }
}

// WithRawInput marks the task as not being a MIME message: Process
// skips MIME structure parsing entirely and synthesizes a single part
// via the content-type oracle, or fails with ConfigForbidsRaw if the
// config disallows it.
func WithRawInput() Option {
	return func(opts *options) { opts.isMIME = false }
}

// WithJSONInput marks the task as JSON-format input, which skips the
// mbox "From " envelope-line heuristic unless the config's LocalClient
// flag is set.
func WithJSONInput() Option {
	return func(opts *options) { opts.isJSON = true }
}
