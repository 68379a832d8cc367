// Package clockrand provides the real, non-test implementations of
// the Clock and Random ports.
package clockrand

import (
	"crypto/rand"
	"math/big"
	"time"

	"ludo/internal/ports"
)

// RealClock delegates to the stdlib time package.
type RealClock struct{}

func (RealClock) Now() time.Time                      { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

var _ ports.Clock = RealClock{}

// SecureRandom draws uniform integers from crypto/rand so the dice
// distribution (and in particular the pity-six / three-sixes rules
// layered on top of it) can't be biased by a predictable seed. The
// technique mirrors the teacher's service.secureRandInt helper.
type SecureRandom struct{}

// IntInRange returns a uniform integer in [min, max] inclusive.
func (SecureRandom) IntInRange(min, max int) int {
	if max <= min {
		return min
	}
	span := int64(max-min) + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		// crypto/rand failure is effectively unrecoverable entropy
		// starvation; fall back to the low end rather than panic.
		return min
	}
	return min + int(n.Int64())
}

var _ ports.Random = SecureRandom{}
