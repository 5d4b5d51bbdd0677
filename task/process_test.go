package task

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"testing"

	"github.com/halvardwex/ingestcore/config"
	"github.com/halvardwex/ingestcore/internal/tokenize"
)

func mustProcess(t *testing.T, msg string, opts ...Option) *Task {
	t.Helper()
	tsk, err := Process([]byte(msg), nil, opts...)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	t.Cleanup(tsk.Close)
	return tsk
}

func TestProcessExtractsMessageIDAndSubject(t *testing.T) {
	msg := "Message-Id: <abc123@example.com>\r\nSubject: hello\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if tsk.MessageID != "abc123@example.com" {
		t.Errorf("MessageID = %q", tsk.MessageID)
	}
	if tsk.Subject != "hello" {
		t.Errorf("Subject = %q", tsk.Subject)
	}
}

func TestProcessMissingMessageIDFallsBackToUndef(t *testing.T) {
	msg := "Subject: hi\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if tsk.MessageID != "undef" {
		t.Errorf("MessageID = %q, want undef", tsk.MessageID)
	}
}

func TestProcessSkipsMboxEnvelopeLine(t *testing.T) {
	msg := "From sender@example.com Mon Jan 1 00:00:00 2024\r\n" +
		"Subject: hi\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if tsk.Subject != "hi" {
		t.Errorf("Subject = %q, mbox envelope line not skipped", tsk.Subject)
	}
}

func TestProcessGtubeTriggersRejectVerdict(t *testing.T) {
	msg := "Subject: test\r\nContent-Type: text/plain\r\n\r\n" +
		"XJS*C4JDBQADN1.NSBN3*2IDNEN*GTUBE-STANDARD-ANTI-UBE-TEST-EMAIL*C.34X\r\n"
	tsk := mustProcess(t, msg)
	if tsk.Flags&FlagGtube == 0 || tsk.Flags&FlagSkip == 0 {
		t.Fatalf("expected Gtube and Skip flags set, got %v", tsk.Flags)
	}
	if tsk.Verdict.Action != ActionReject || tsk.Verdict.Message != "Gtube pattern" {
		t.Errorf("verdict = %+v", tsk.Verdict)
	}
	found := false
	for _, s := range tsk.Symbols {
		if s == "GTUBE" {
			found = true
		}
	}
	if !found {
		t.Errorf("GTUBE symbol not injected: %v", tsk.Symbols)
	}
}

func TestProcessTwoPartAlternativeSimilarity(t *testing.T) {
	msg := "Content-Type: multipart/alternative; boundary=XYZ\r\n\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello world foo\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello world bar\r\n" +
		"--XYZ--\r\n"
	tsk := mustProcess(t, msg)
	if !tsk.HasPartsDistance {
		t.Fatalf("expected a computed parts distance")
	}
	if tsk.PartsDistance != 2 {
		t.Errorf("PartsDistance = %d, want 2", tsk.PartsDistance)
	}
	wantRatio := float64(2) / float64(6)
	if tsk.PartsRatio != wantRatio {
		t.Errorf("PartsRatio = %v, want %v", tsk.PartsRatio, wantRatio)
	}
}

func TestProcessConfigForbidsRawInput(t *testing.T) {
	cfg := config.Default()
	cfg.AllowRawInput = false
	_, err := Process([]byte("not a mime message"), &cfg, WithRawInput())
	if err == nil {
		t.Fatal("expected ConfigForbidsRaw error")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ConfigForbidsRaw {
		t.Errorf("got %v, want ConfigForbidsRaw", err)
	}
}

func TestProcessAllowsRawInputWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.AllowRawInput = true
	tsk, err := Process([]byte("plain body text"), &cfg,
		WithRawInput(),
		WithContentTypeOracle(func(b []byte) (string, bool) { return "text/plain", true }),
	)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer tsk.Close()
	if tsk.Flags&FlagRaw == 0 {
		t.Errorf("expected FlagRaw set")
	}
	if len(tsk.TextParts) != 1 {
		t.Fatalf("got %d text parts, want 1", len(tsk.TextParts))
	}
}

func TestProcessDigestDeterministic(t *testing.T) {
	msg := "Subject: hi\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	a := mustProcess(t, msg)
	b := mustProcess(t, msg)
	if a.Digest != b.Digest {
		t.Errorf("digest not deterministic: %x != %x", a.Digest, b.Digest)
	}
}

func TestProcessHeaderOrderPreserved(t *testing.T) {
	msg := "Received: one\r\nReceived: two\r\nReceived: three\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if len(tsk.Received) != 3 {
		t.Fatalf("got %d received entries, want 3", len(tsk.Received))
	}
	want := []string{"one", "two", "three"}
	got := tsk.Headers.ByName("Received")
	if len(got) != len(want) {
		t.Fatalf("got %d Received headers, want %d", len(got), len(want))
	}
	for i, w := range want {
		if string(got[i]) != w {
			t.Errorf("Received header %d = %q, want %q", i, got[i], w)
		}
	}
}

func TestProcessExtractsRecipientsAndFrom(t *testing.T) {
	msg := "From: Alice <alice@example.com>\r\nTo: Bob <bob@example.com>\r\n" +
		"Content-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if len(tsk.FromAddrs) != 1 || tsk.FromAddrs[0] != "alice@example.com" {
		t.Errorf("FromAddrs = %v", tsk.FromAddrs)
	}
	if len(tsk.Recipients) != 1 || tsk.Recipients[0] != "bob@example.com" {
		t.Errorf("Recipients = %v", tsk.Recipients)
	}
}

func TestProcessExtractsSubjectURL(t *testing.T) {
	msg := "Subject: visit http://example.com now\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if len(tsk.URLs) != 1 {
		t.Fatalf("got %d urls, want 1", len(tsk.URLs))
	}
	if tsk.URLs[0].Host != "example.com" {
		t.Errorf("host = %q", tsk.URLs[0].Host)
	}
}

func TestProcessCollectsPlainTextBodyURLs(t *testing.T) {
	msg := "Subject: hi\r\nContent-Type: text/plain\r\n\r\nvisit http://example.org today\r\n"
	tsk := mustProcess(t, msg)
	found := false
	for _, u := range tsk.URLs {
		if u.Host == "example.org" {
			found = true
		}
	}
	if !found {
		t.Errorf("URLs = %v, want an entry for example.org", tsk.URLs)
	}
}

func TestProcessSkipsHTMLBodyURLs(t *testing.T) {
	msg := "Subject: hi\r\nContent-Type: text/html\r\n\r\n<p>http://example.net</p>\r\n"
	tsk := mustProcess(t, msg)
	for _, u := range tsk.URLs {
		if u.Host == "example.net" {
			t.Errorf("URLs = %v, html body URL should not be collected", tsk.URLs)
		}
	}
}

func TestProcessNoOverlappingExceptions(t *testing.T) {
	msg := "Subject: hi\r\nContent-Type: text/plain\r\n\r\nhi \r\nhttp://example.com\r\n"
	tsk := mustProcess(t, msg)
	if len(tsk.TextParts) != 1 {
		t.Fatalf("got %d text parts, want 1", len(tsk.TextParts))
	}
	exs := tsk.TextParts[0].Exceptions
	for i := 1; i < len(exs); i++ {
		prevEnd := exs[i-1].Pos + exs[i-1].Len
		if exs[i].Pos < prevEnd {
			t.Fatalf("exceptions overlap: %+v then %+v", exs[i-1], exs[i])
		}
	}
	sawURL := false
	for _, e := range exs {
		if e.Kind == tokenize.ExceptionURL {
			sawURL = true
		}
	}
	if !sawURL {
		t.Errorf("expected a surviving URL exception, got %+v", exs)
	}
}

func TestProcessAdoptsSourceFromReceivedWhenNoClientIP(t *testing.T) {
	msg := "Received: from mail.example.com ([10.0.0.5]) by mx.example.com; Mon, 2 Jan 2006 15:04:05 +0000\r\n" +
		"Content-Type: text/plain\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	if tsk.SourceIP == nil || tsk.SourceIP.String() != "10.0.0.5" {
		t.Errorf("SourceIP = %v, want 10.0.0.5", tsk.SourceIP)
	}
	if tsk.SourceHostname != "mail.example.com" {
		t.Errorf("SourceHostname = %q, want mail.example.com", tsk.SourceHostname)
	}
}

func TestProcessClientIPOverridesReceivedAdoption(t *testing.T) {
	msg := "Received: from mail.example.com ([10.0.0.5]) by mx.example.com; Mon, 2 Jan 2006 15:04:05 +0000\r\n" +
		"Content-Type: text/plain\r\n\r\nbody\r\n"
	clientIP := net.ParseIP("10.0.0.5")
	tsk := mustProcess(t, msg, WithClientIP(clientIP))
	if tsk.SourceIP == nil || !tsk.SourceIP.Equal(clientIP) {
		t.Errorf("SourceIP = %v, want %v", tsk.SourceIP, clientIP)
	}
	if len(tsk.Received) != 1 {
		t.Fatalf("got %d received entries, want 1 (no synthetic needed)", len(tsk.Received))
	}
	if tsk.Received[0].Synthetic {
		t.Errorf("Received[0] should not be synthetic when it matches the observed client IP")
	}
}

func TestProcessClientIPMismatchPrependsSynthetic(t *testing.T) {
	msg := "Received: from mail.example.com ([10.0.0.5]) by mx.example.com; Mon, 2 Jan 2006 15:04:05 +0000\r\n" +
		"Content-Type: text/plain\r\n\r\nbody\r\n"
	clientIP := net.ParseIP("192.168.1.1")
	tsk := mustProcess(t, msg, WithClientIP(clientIP))
	if tsk.SourceIP == nil || !tsk.SourceIP.Equal(clientIP) {
		t.Errorf("SourceIP = %v, want %v", tsk.SourceIP, clientIP)
	}
	if len(tsk.Received) != 2 {
		t.Fatalf("got %d received entries, want 2 (synthetic prepended)", len(tsk.Received))
	}
	if !tsk.Received[0].Synthetic || !tsk.Received[0].RealIP.Equal(clientIP) {
		t.Errorf("Received[0] = %+v, want synthetic entry for %v", tsk.Received[0], clientIP)
	}
}

func TestProcessRecordsMalformedContentTypeError(t *testing.T) {
	msg := "Content-Type: ; name=broken\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	found := false
	for _, e := range tsk.Errors {
		if e.Kind == MalformedInput {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a MalformedInput entry", tsk.Errors)
	}
}

func TestProcessRecordsTruncationErrorBeyondMaxDepth(t *testing.T) {
	inner := "Content-Type: text/plain\r\n\r\nleaf\r\n"
	for i := 0; i < 3; i++ {
		b := fmt.Sprintf("B%d", i)
		inner = "Content-Type: multipart/mixed; boundary=" + b + "\r\n\r\n--" + b + "\r\n" + inner + "--" + b + "--\r\n"
	}
	cfg := config.Default()
	cfg.MaxMimeDepth = 2
	tsk, err := Process([]byte(inner), &cfg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer tsk.Close()
	found := false
	for _, e := range tsk.Errors {
		if e.Kind == Truncation {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a Truncation entry given MaxMimeDepth=2", tsk.Errors)
	}
}

func TestProcessRecordsUnsupportedEncodingError(t *testing.T) {
	msg := "Content-Type: text/plain\r\nContent-Transfer-Encoding: x-proprietary\r\n\r\nbody\r\n"
	tsk := mustProcess(t, msg)
	found := false
	for _, e := range tsk.Errors {
		if e.Kind == UnsupportedEncoding {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want an UnsupportedEncoding entry", tsk.Errors)
	}
}

func TestProcessRecordsResourceLimitForOversizeGtubeScan(t *testing.T) {
	cfg := config.Default()
	cfg.GtubeMaxPartSize = 4
	msg := "Content-Type: text/plain\r\n\r\nlonger than four bytes\r\n"
	tsk, err := Process([]byte(msg), &cfg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	defer tsk.Close()
	found := false
	for _, e := range tsk.Errors {
		if e.Kind == ResourceLimit {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a ResourceLimit entry", tsk.Errors)
	}
}

func TestProcessLogsRecoverableConditionsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	msg := "Content-Type: ; name=broken\r\n\r\nbody\r\n"
	_ = mustProcess(t, msg, WithLogger(logger))
	if buf.Len() == 0 {
		t.Errorf("expected the injected logger to receive at least one record")
	}
}
