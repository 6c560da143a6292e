package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex is the lowercase hex SHA-256 of input. Policy fingerprints and
// idempotency keys are built from it.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
