package cgml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed hashing.
// Version suffix enables future algorithm migration.
const (
	DomainDelta    = "cgml/delta/v1"
	DomainDocument = "cgml/document/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeltaHash computes the content hash of one output-stream delta payload.
// The replay verifier compares recorded and re-derived hashes seq by seq.
func DeltaHash(payload Map) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("DeltaHash: %w", err)
	}
	return hashWithDomain(DomainDelta, canonical), nil
}

// DocumentHash computes the content hash of a merged document tree.
// Stored in the trace header so replay can refuse a mismatched document.
func DocumentHash(tree Map) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustDeltaHash is like DeltaHash but panics on error.
// Use only in tests with known-valid payloads.
func MustDeltaHash(payload Map) string {
	h, err := DeltaHash(payload)
	if err != nil {
		panic(err)
	}
	return h
}
