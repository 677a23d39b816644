package cli

import (
	"testing"
	"time"
)

func TestStartSpinnerDisabledReturnsNoopStop(t *testing.T) {
	t.Parallel()

	stop := startSpinner(false, "working")
	stop()
	stop()
}

func TestStartSpinnerStopsCleanly(t *testing.T) {
	t.Parallel()

	stop := startSpinner(true, "working")
	time.Sleep(150 * time.Millisecond)
	stop()
	stop()
}
