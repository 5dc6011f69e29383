package power_test

import (
	"testing"

	"mediaq/internal/power"
)

func TestNoopInhibitor(t *testing.T) {
	var inh power.Inhibitor = power.Noop{}
	release, err := inh.Inhibit("test")
	if err != nil {
		t.Fatalf("Inhibit: %v", err)
	}
	release()
	release()
}
