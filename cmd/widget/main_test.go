package main

import "testing"

// TestCoverageGaps_IntentionallyUntested documents why cmd/widget has no unit tests.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Skip("main.go is wiring-only; the widget tree, model and Bind are tested in internal/widget")
}
