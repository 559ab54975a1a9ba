package testutils

import (
	"strings"
	"testing"
)

// AssertDiffContains verifies that the given diff contains all expected strings.
// It calls t.Helper() to ensure accurate stack traces and fails the test if any
// expected string is missing.
func AssertDiffContains(t *testing.T, diff string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(diff, s) {
			t.Fatalf("diff missing %q\n\nActual diff:\n%s", s, diff)
		}
	}
}

// AssertDiffNotContains verifies that the given diff does not contain any unwanted strings.
// It calls t.Helper() to ensure accurate stack traces and fails the test if any
// unwanted string is found.
func AssertDiffNotContains(t *testing.T, diff string, unwanted ...string) {
	t.Helper()
	for _, s := range unwanted {
		if strings.Contains(diff, s) {
			t.Fatalf("diff should not contain %q\n\nActual diff:\n%s", s, diff)
		}
	}
}

// DiffLineOffset returns the character offset of the first line of diff
// that equals line, or -1. Selections in tests are built from it.
func DiffLineOffset(diff, line string) int {
	offset := 0
	for _, l := range strings.SplitAfter(diff, "\n") {
		if strings.TrimSuffix(l, "\n") == line {
			return offset
		}
		offset += len([]rune(l))
	}
	return -1
}
