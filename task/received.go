package task

import (
	"net"
	"regexp"
	"strings"
	"time"
)

// receivedFromRE and receivedByRE pull the "from <token>" and "by
// <token>" clauses out of a Received: header value. Real Received
// headers are free-form enough that a full grammar isn't worth
// carrying here; this extracts the two clauses rspamd's real_ip/
// real_hostname fields are actually derived from, tolerating whatever
// trails them (via, with, id, ;-terminated date).
var (
	receivedFromRE = regexp.MustCompile(`(?i)from\s+([^\s;]+(?:\s+\([^)]*\))?)`)
	receivedByRE   = regexp.MustCompile(`(?i)by\s+([^\s;]+)`)
	receivedIPRE   = regexp.MustCompile(`\[([0-9a-fA-F:.]+)\]`)
)

// parseReceivedHeader extracts from/by/real-IP/timestamp fields from one
// Received: header's unfolded value (encoded words are not decoded). It never fails outright;
// fields it cannot find are left zero.
func parseReceivedHeader(raw string) ReceivedHeader {
	var rh ReceivedHeader

	if m := receivedFromRE.FindStringSubmatch(raw); m != nil {
		clause := strings.TrimSpace(m[1])
		rh.From = clause
		if ip := receivedIPRE.FindStringSubmatch(clause); ip != nil {
			rh.RealIP = net.ParseIP(ip[1])
		}
		rh.FromHostname = firstToken(clause)
		if rh.RealIP != nil {
			rh.RealHostname = rh.FromHostname
		}
	}
	if m := receivedByRE.FindStringSubmatch(raw); m != nil {
		rh.By = strings.TrimSpace(m[1])
	}
	if idx := strings.LastIndexByte(raw, ';'); idx >= 0 {
		datePart := strings.TrimSpace(raw[idx+1:])
		if ts, err := time.Parse(time.RFC1123Z, datePart); err == nil {
			rh.Timestamp = ts
		} else if ts, err := time.Parse("Mon, 2 Jan 2006 15:04:05 -0700", datePart); err == nil {
			rh.Timestamp = ts
		}
	}
	return rh
}

func firstToken(s string) string {
	if i := strings.IndexAny(s, " \t("); i >= 0 {
		return s[:i]
	}
	return s
}
