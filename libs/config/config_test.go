package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPortRejectsGarbage(t *testing.T) {
	t.Setenv("TEST_PORT", "http")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("expected fallback 8080, got %q (%v)", p, err)
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "14")
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_DUR", "45")
	t.Setenv("TEST_LIST", " a, ,b ,c")

	if got := Int("TEST_INT", 7); got != 14 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("TEST_MISSING", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if !Bool("TEST_BOOL", false) {
		t.Fatalf("Bool: expected true")
	}
	if got := Duration("TEST_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("Duration: got %s", got)
	}
	list := List("TEST_LIST", "")
	if len(list) != 3 || list[0] != "a" || list[2] != "c" {
		t.Fatalf("List: got %#v", list)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CLINIC_TEST_A=from-file\nCLINIC_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CLINIC_TEST_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("CLINIC_TEST_B") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CLINIC_TEST_A"); got != "from-env" {
		t.Fatalf("existing value overridden: %q", got)
	}
	if got := os.Getenv("CLINIC_TEST_B"); got != "from-file" {
		t.Fatalf("file value not loaded: %q", got)
	}
}
