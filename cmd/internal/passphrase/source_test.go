package passphrase

import (
	"strings"
	"testing"
)

func TestReadPrefersEnvironment(t *testing.T) {
	t.Setenv("TEST_KEYSTORE_PASS", "hunter2")
	got, err := Read("TEST_KEYSTORE_PASS", true)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("passphrase = %q", got)
	}
}

func TestReadRejectsEmptyEnvironmentValue(t *testing.T) {
	t.Setenv("TEST_KEYSTORE_PASS", "   ")
	if _, err := Read("TEST_KEYSTORE_PASS", false); err == nil {
		t.Fatal("expected error for whitespace-only value")
	}
}

func TestReadFailsWithoutTerminal(t *testing.T) {
	// Test binaries run with stdin detached from a terminal, so the
	// interactive fallback must refuse rather than hang.
	_, err := Read("TEST_KEYSTORE_PASS_UNSET", false)
	if err == nil {
		t.Fatal("expected error with no env value and no terminal")
	}
	if !strings.Contains(err.Error(), "TEST_KEYSTORE_PASS_UNSET") {
		t.Fatalf("error should name the variable: %v", err)
	}
}
