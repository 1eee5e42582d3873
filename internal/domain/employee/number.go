package employee

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const numberAttempts = 5

// NewEmployeeNumber formats EMP + two-digit year + two-digit month + three
// random digits, e.g. EMP2503042.
func NewEmployeeNumber(now time.Time, random func(n int) int) string {
	if random == nil {
		random = rand.IntN
	}
	return fmt.Sprintf("EMP%02d%02d%03d", now.Year()%100, int(now.Month()), random(1000))
}
