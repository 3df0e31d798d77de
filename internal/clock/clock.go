// Package clock supplies the external timestamp source for the ledger.
package clock

import "time"

// SystemClock reads Unix seconds from the wall clock. time.Now is
// monotone enough at second granularity for settlement purposes; the
// same reading repeating across calls is fine, the ledger treats a
// non-advancing clock as a no-op.
type SystemClock struct{}

func System() *SystemClock {
	return &SystemClock{}
}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}
