package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintTarget(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "ok.go", "package q\n\nconst QBalance = `--sql 0b5f1c0e-4d7a-4c52-9a51-3f1f0e2a9b10\nSELECT sunshines FROM user_balances WHERE user_id = $1`\n")
	writeGo(t, dir, "missing.go", "package q\n\nconst QNoMarker = `SELECT 1 FROM donations`\n")
	writeGo(t, dir, "dup.go", "package q\n\nconst QCopy = `--sql 0b5f1c0e-4d7a-4c52-9a51-3f1f0e2a9b10\nSELECT stars FROM user_balances`\n")
	writeGo(t, dir, "plain.go", "package q\n\nconst greeting = \"hello\"\n")

	l := newLinter()
	if err := l.lintTarget(dir); err != nil {
		t.Fatalf("lintTarget: %v", err)
	}
	if len(l.violations) != 2 {
		t.Fatalf("violations = %+v, want 2", l.violations)
	}
	var sawMissing, sawDup bool
	for _, v := range l.violations {
		switch {
		case v.name == "QNoMarker" && strings.Contains(v.message, "missing"):
			sawMissing = true
		case strings.Contains(v.message, "already used"):
			sawDup = true
		}
	}
	if !sawMissing || !sawDup {
		t.Fatalf("violations = %+v, want one missing and one duplicate", l.violations)
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\n  --sql abc\nSELECT 1"); got != "--sql abc" {
		t.Fatalf("firstLine() = %q", got)
	}
	if got := firstLine("SELECT 1"); got != "SELECT 1" {
		t.Fatalf("firstLine() = %q", got)
	}
}
