// Package tassert provides small test-failure helpers for the plain
// testing.T-based tests that don't use Ginkgo/Gomega.
package tassert

import "testing"

// CheckFatal fails and stops the test immediately if err is non-nil.
func CheckFatal(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// CheckError reports (without stopping) if err is non-nil.
func CheckError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// Fatal fails the test immediately if cond is false.
func Fatal(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// Errorf reports (without stopping) if cond is false.
func Errorf(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Errorf(format, args...)
	}
}
