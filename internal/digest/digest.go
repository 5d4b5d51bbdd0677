// Package digest provides the pluggable 16-byte streaming hash behind a
// task's content digests: each leaf part's transfer-decoded body is
// digested on its own, and the task digest folds those per-part digests
// in part order, so it depends on how the content is split into parts as
// well as on the bytes themselves.
package digest

import (
	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = 16

// Hasher is a pluggable streaming digest accumulator. The default
// implementation wraps blake2b configured for a 16-byte output; callers
// needing a different algorithm (or a deterministic stub for tests) can
// satisfy this interface directly.
type Hasher interface {
	Write(p []byte) (n int, err error)
	Sum() [Size]byte
	Reset()
}

type blake2bHasher struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

// New returns the default Hasher: blake2b with a 16-byte digest size and
// no key.
func New() Hasher {
	h, err := blake2b.New(Size, nil)
	if err != nil {
		// Size is a compile-time constant within blake2b's supported
		// range, so this can only fail if that range ever changes.
		panic(err)
	}
	return &blake2bHasher{h: h}
}

func (d *blake2bHasher) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

func (d *blake2bHasher) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], d.h.Sum(nil))
	return out
}

func (d *blake2bHasher) Reset() {
	d.h.Reset()
}

// Bytes digests b in one shot using a fresh Hasher.
func Bytes(b []byte) [Size]byte {
	h := New()
	_, _ = h.Write(b)
	return h.Sum()
}
