package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// fingerprintPrefixLen bounds how much input participates in the cache
// key. Fixed per deployment: changing it invalidates every cached entry.
const fingerprintPrefixLen = 200

// Fingerprint derives the deterministic cache key for a (task type, input)
// pair. The input is lowercased and whitespace-collapsed, then truncated to
// a fixed prefix, so semantically identical requests share a key regardless
// of incidental formatting.
func Fingerprint(task TaskType, input string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if len(normalized) > fingerprintPrefixLen {
		normalized = normalized[:fingerprintPrefixLen]
	}

	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", task, normalized)))
	return hex.EncodeToString(hash[:])
}
