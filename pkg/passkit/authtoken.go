package passkit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateAuthToken derives a card's wallet web-service secret. The result is
// 64 hex characters and must be persisted; it is never re-derived.
func GenerateAuthToken(secret, serialNumber string, now time.Time) string {
	raw := fmt.Sprintf("%s:%s:%d", secret, serialNumber, now.UnixNano())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
