package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("board.outcome.rejected", map[string]any{"Move": "a1b2"})
	if err != nil || got != "a1b2 is not allowed" {
		t.Fatalf("Render: %q %v", got, err)
	}
	if _, err := c.Render("board.outcome.rejected", map[string]any{}); err == nil {
		t.Fatalf("missing data key should be an error")
	}
	if got := c.Text("board.nope", nil); got != "board.nope" {
		t.Fatalf("Text fallback: %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("board:\n  status:\n    ready: \"Go\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("board.status.ready", nil); got != "Go" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("board.status.loading", nil); !strings.HasPrefix(got, "Loading") {
		t.Fatalf("embedded default lost: %q", got)
	}
}

func TestDuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("board:\n  help: x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestOverrideRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("board:\n  statuz: x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "unknown message key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestOverrideRejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("board:\n  help: \"{{.Oops\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected template parse error")
	}
}

func TestOverrideRejectsSequence(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("board:\n  help:\n    - a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "a.yaml:3") {
		t.Fatalf("expected positioned error, got %v", err)
	}
}

func TestKeysCoverShellMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := map[string]bool{}
	for _, k := range []string{"board.title", "board.outcome.failed", "board.feed.connected", "board.error.load"} {
		want[k] = true
	}
	for _, k := range c.Keys() {
		delete(want, k)
	}
	if len(want) != 0 {
		t.Fatalf("missing keys: %v", want)
	}
}
