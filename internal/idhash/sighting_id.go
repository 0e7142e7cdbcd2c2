package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
)

// SightingID computes a deterministic sighting_id using SHA256.
// Formula: SHA256(address|provenance|observed_at_ms)
// Returns hex-encoded hash (64 characters).
func SightingID(address string, provenance domain.Provenance, observedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", address, string(provenance), observedAtMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
