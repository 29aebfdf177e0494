package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashWithDomainDeterminism(t *testing.T) {
	h1 := HashWithDomain(DomainProgram, "function main[iOS13]() {\n} -> ()\n")
	h2 := HashWithDomain(DomainProgram, "function main[iOS13]() {\n} -> ()\n")

	assert.Equal(t, h1, h2, "hash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashWithDomainSeparation(t *testing.T) {
	text := "same text"
	assert.NotEqual(t, HashWithDomain(DomainProgram, text), HashWithDomain(DomainFunction, text))
}

func TestHashWithDomainBoundary(t *testing.T) {
	// Without the separator "ab"+"c" and "a"+"bc" would collide.
	assert.NotEqual(t, HashWithDomain("ab", "c"), HashWithDomain("a", "bc"))
}

func TestHashWithDomainNormalizesNFC(t *testing.T) {
	composed := "\u00e9"
	decomposed := "e\u0301"
	assert.Equal(t, HashWithDomain(DomainProgram, composed), HashWithDomain(DomainProgram, decomposed))
}
