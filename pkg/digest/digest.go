// Package digest provides the content-addressing primitive used throughout
// the backup engine: a fixed-size cryptographic digest of file contents.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a Digest.
const Size = 20

// Digest is a 20-byte content digest, serialized as 40 lowercase hex
// characters. Two equal digests are treated as implying equal content;
// collisions are not modeled.
type Digest [Size]byte

// Zero is the distinguished digest for empty content.
var Zero = FromContent(nil)

// FromContent computes the digest of the given bytes.
func FromContent(content []byte) Digest {
	return Digest(sha1.Sum(content))
}

// Parse decodes a 40-character lowercase hex string into a Digest.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != Size*2 {
		return d, fmt.Errorf("digest: invalid length %d for %q", len(s), s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("digest: invalid hex %q: %w", s, err)
	}
	copy(d[:], b)
	return d, nil
}

// String returns the 40-character lowercase hex encoding.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the underlying 20 bytes.
func (d Digest) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, d[:])
	return b
}

// IsZero reports whether d is the empty-content digest.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Compare gives a total byte-sequence ordering: -1, 0, or 1.
func (d Digest) Compare(other Digest) int {
	for i := range d {
		if d[i] != other[i] {
			if d[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether d sorts before other.
func (d Digest) Less(other Digest) bool {
	return d.Compare(other) < 0
}

// MarshalJSON encodes the digest as its hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a hex string into the digest.
func (d *Digest) UnmarshalJSON(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("digest: invalid json %q", b)
	}
	s := string(b[1 : len(b)-1])
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
