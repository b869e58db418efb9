package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "thecl/program/v1"
	DomainBlob    = "thecl/blob/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content digest of a Program from its canonical JSON.
// Two programs with the same structure have the same digest regardless of
// how they were built.
func Digest(p *Program) (string, error) {
	canonical, err := MarshalCanonical(Document(p))
	if err != nil {
		return "", fmt.Errorf("Digest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// BlobDigest computes the digest of raw input or output bytes.
func BlobDigest(data []byte) string {
	return hashWithDomain(DomainBlob, data)
}
