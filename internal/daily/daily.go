// internal/daily/daily.go
//
// Deterministic "country of the day" selection.
// The same date and salt always pick the same index, so every player in
// daily mode chases the same target.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// Mode names accepted when starting a game.
const (
	ModeClassic = "classic"
	ModeDaily   = "daily"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TargetIndex returns a deterministic index for a date using HMAC(salt, YYYY-MM-DD) % n.
func TargetIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Picker implements game.Picker by picking today's index.
type Picker struct {
	Salt string
	Now  func() time.Time // defaults to time.Now
}

func (p Picker) Pick(n int) int {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return TargetIndex(now(), p.Salt, n)
}
