package heartbeat

import (
	"testing"

	"go.uber.org/goleak"
)

// The supervisor owns goroutines that must provably die on disarm;
// verify no test leaks one.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
