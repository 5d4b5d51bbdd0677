package urlparse

import "bytes"

// CanonicalizePath removes "." and ".." segments from b in place per
// RFC 3986 §5.2.4, with two deviations the conformance fixtures require:
// repeated slashes collapse as segment separators rather than producing
// empty segments, and a "." or ".." segment that removes the path's last
// segment never leaves a trailing slash behind unless the input itself
// ended in one. A ".." that would pop past the root instead forces an
// absolute "/" result, even for a relative input.
//
// CanonicalizePath returns the length of the canonicalized path now
// occupying the front of b; the result never grows past len(b).
func CanonicalizePath(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	absolute := b[0] == '/'
	trailingSlash := b[len(b)-1] == '/' && len(b) > 0
	forcedAbsolute := false

	var stack [][]byte
	for _, seg := range bytes.Split(b, []byte("/")) {
		if len(seg) == 0 {
			continue
		}
		switch {
		case bytes.Equal(seg, []byte(".")):
			// drop
		case bytes.Equal(seg, []byte("..")):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			} else {
				forcedAbsolute = true
			}
		default:
			stack = append(stack, seg)
		}
	}

	isAbsolute := absolute || forcedAbsolute
	n := 0
	writeByte := func(c byte) {
		b[n] = c
		n++
	}
	writeBytes := func(s []byte) {
		copy(b[n:n+len(s)], s)
		n += len(s)
	}

	switch {
	case isAbsolute && len(stack) == 0:
		writeByte('/')
	case isAbsolute:
		for _, seg := range stack {
			writeByte('/')
			writeBytes(seg)
		}
		if trailingSlash {
			writeByte('/')
		}
	case len(stack) == 0:
		// relative input that never forced an absolute root and has no
		// surviving segments canonicalizes to the empty path.
	default:
		for i, seg := range stack {
			if i > 0 {
				writeByte('/')
			}
			writeBytes(seg)
		}
		if trailingSlash {
			writeByte('/')
		}
	}
	return n
}
