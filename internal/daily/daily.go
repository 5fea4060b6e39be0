package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// BoardSeed returns a deterministic shuffle seed for a date using
// HMAC(salt, YYYY-MM-DD), so everyone starting the daily board on the same
// day gets the same layout without the server storing anything.
func BoardSeed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as a non-negative seed
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
