package admin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLogFile_NewestFirst(t *testing.T) {
	path := writeLogFile(t, "first\nsecond\n\nthird\n")

	tail := TailLogFile(path, 0)
	if !tail.Meta.Exists {
		t.Fatal("expected exists=true")
	}
	if tail.Meta.Limit != 300 {
		t.Fatalf("expected default limit 300, got %d", tail.Meta.Limit)
	}
	want := []string{"third", "second", "first"}
	if len(tail.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(tail.Lines))
	}
	for i, line := range want {
		if tail.Lines[i] != line {
			t.Fatalf("line %d: expected %q, got %q", i, line, tail.Lines[i])
		}
	}
}

func TestTailLogFile_LimitApplied(t *testing.T) {
	path := writeLogFile(t, "a\nb\nc\nd\ne\n")

	tail := TailLogFile(path, 2)
	if len(tail.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(tail.Lines))
	}
	if tail.Lines[0] != "e" || tail.Lines[1] != "d" {
		t.Fatalf("expected last two lines newest first, got %v", tail.Lines)
	}
}

func TestTailLogFile_LimitClamped(t *testing.T) {
	path := writeLogFile(t, "a\n")
	tail := TailLogFile(path, 99999)
	if tail.Meta.Limit != 2000 {
		t.Fatalf("expected limit clamped to 2000, got %d", tail.Meta.Limit)
	}
}

func TestTailLogFile_MissingFile(t *testing.T) {
	tail := TailLogFile(filepath.Join(t.TempDir(), "missing.log"), 0)
	if tail.Meta.Exists {
		t.Fatal("expected exists=false for missing file")
	}
	if len(tail.Lines) != 1 {
		t.Fatalf("expected a single notice line, got %v", tail.Lines)
	}
}
