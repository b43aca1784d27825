// internal/daily/daily.go
//
// Daily challenge seeding. Every daily game started on the same UTC date
// draws the same item sequence and spawn positions, so players compete on
// identical runs. The seed is HMAC-SHA256(salt, YYYY-MM-DD); without the
// salt the sequence cannot be predicted ahead of time.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseKey validates a YYYY-MM-DD date key.
func ParseKey(s string) (string, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", false
	}
	return DateKey(t), true
}

// Seed derives the two PCG seed words for a date key.
func Seed(dateKey, salt string) (uint64, uint64) {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(dateKey))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Rand returns the generator for a date key's daily run.
func Rand(dateKey, salt string) *rand.Rand {
	return rand.New(rand.NewPCG(Seed(dateKey, salt)))
}
