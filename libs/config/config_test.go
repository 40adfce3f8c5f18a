package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIntAndBool(t *testing.T) {
	t.Setenv("TF_INT", "42")
	t.Setenv("TF_BOOL", "yes")
	t.Setenv("TF_BAD", "abc")

	n, err := Int("TF_INT", 1)
	if err != nil || n != 42 {
		t.Fatalf("Int: got %d, %v", n, err)
	}
	if n, _ := Int("TF_UNSET_INT", 7); n != 7 {
		t.Fatalf("expected fallback 7, got %d", n)
	}
	if _, err := Int("TF_BAD", 0); err == nil {
		t.Fatal("expected error for non-integer")
	}
	b, err := Bool("TF_BOOL", false)
	if err != nil || !b {
		t.Fatalf("Bool: got %v, %v", b, err)
	}
	if _, err := Bool("TF_BAD", false); err == nil {
		t.Fatal("expected error for non-boolean")
	}
}

func TestSecondsAndList(t *testing.T) {
	t.Setenv("TF_SECS", "15")
	t.Setenv("TF_LIST", " a, ,b ,c")

	d, err := Seconds("TF_SECS", time.Second)
	if err != nil || d != 15*time.Second {
		t.Fatalf("Seconds: got %v, %v", d, err)
	}
	got := List("TF_LIST")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("List: got %v", got)
	}
}

func TestPortRejectsOutOfRange(t *testing.T) {
	t.Setenv("TF_PORT", "70000")
	if _, err := Port("TF_PORT", "8080"); err == nil {
		t.Fatal("expected invalid port error")
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TF_FROM_FILE=file\nTF_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TF_PRESET", "env")
	t.Setenv("TF_FROM_FILE", "")
	os.Unsetenv("TF_FROM_FILE")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TF_FROM_FILE") })
	if os.Getenv("TF_FROM_FILE") != "file" {
		t.Fatalf("expected value from file, got %q", os.Getenv("TF_FROM_FILE"))
	}
	if os.Getenv("TF_PRESET") != "env" {
		t.Fatalf("expected existing env to win, got %q", os.Getenv("TF_PRESET"))
	}
}
