package ir

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainFunction = "milir/function/v1"
	DomainProgram  = "milir/program/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + NFC(text))
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain, text string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write([]byte(norm.NFC.String(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable identity for the function's rendering under
// name. Structurally identical functions share a fingerprint.
func (f *Function) Fingerprint(name string) string {
	return HashWithDomain(DomainFunction, f.Render(name))
}
