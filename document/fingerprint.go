package document

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies a source document by path and content hash.
// Sessions record it so edits can be rebound only to the document they were
// made against.
type Fingerprint struct {
	Path string `json:"path"`
	Hash string `json:"hash"` // hex BLAKE2b-256 of the file bytes
}

// NewFingerprint hashes the document bytes.
func NewFingerprint(path string, data []byte) Fingerprint {
	sum := blake2b.Sum256(data)
	return Fingerprint{Path: path, Hash: hex.EncodeToString(sum[:])}
}

// Matches reports whether two fingerprints identify the same content.
// The recorded path is informational; only the hash decides.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Hash != "" && f.Hash == other.Hash
}
