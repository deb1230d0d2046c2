package stabilizer

import (
	"math"
	"testing"
	"time"
)

// framesOf returns the duration of n frames at the default 60 fps tick.
func framesOf(n int) time.Duration {
	return time.Duration(n) * time.Second / 60
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}
