package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey derives the file name key for an identity. The raw user id never reaches disk.
func OwnerKey(stableUserID string) string {
	sum := sha256.Sum256([]byte(stableUserID))
	return hex.EncodeToString(sum[:])
}
