package tools

import (
	"context"
	"strings"
	"testing"

	apperrors "shellfs/internal/errors"
)

func TestReadFileParts(t *testing.T) {
	registry, mem := newTestRegistry(t, DefaultOptions())
	line := strings.Repeat("x", 99) + "\n"
	mem.AddFile("/data/big.txt", []byte(strings.Repeat(line, 2000)))
	ctx := context.Background()

	first := registry.Execute(ctx, "read_file", map[string]interface{}{"path": "big.txt"})
	if first.Error != nil {
		t.Fatalf("unexpected error: %v", first.Error)
	}
	if len(first.Result) != 95_000 || first.Truncated {
		t.Fatalf("expected an unfiltered full part, got %d bytes (truncated=%v)", len(first.Result), first.Truncated)
	}

	second := registry.Execute(ctx, "read_file", map[string]interface{}{"path": "big.txt", "part": 2})
	if second.Error != nil {
		t.Fatalf("unexpected error: %v", second.Error)
	}
	if !strings.HasPrefix(second.Result, line) {
		t.Fatal("expected part 2 to start on a line boundary")
	}

	beyond := registry.Execute(ctx, "read_file", map[string]interface{}{"path": "big.txt", "part": 4})
	if !apperrors.Is(beyond.Error, apperrors.CodePartOutOfRange) {
		t.Fatalf("expected part out of range, got %v", beyond.Error)
	}
}

func TestReadFileOutsideSandbox(t *testing.T) {
	registry, _ := newTestRegistry(t, DefaultOptions())

	result := registry.Execute(context.Background(), "read_file", map[string]interface{}{"path": "../outside/secret.txt"})
	if !apperrors.Is(result.Error, apperrors.CodeAccessDenied) {
		t.Fatalf("expected access denied, got %v", result.Error)
	}
	if result.Result == "secret" {
		t.Fatal("file content leaked")
	}
}

func TestReadMultipleFilesIsolatesFailures(t *testing.T) {
	registry, mem := newTestRegistry(t, DefaultOptions())
	mem.AddFile("/data/b.txt", []byte("bee\n"))

	result := registry.Execute(context.Background(), "read_multiple_files", map[string]interface{}{
		"paths": []interface{}{"notes.txt", "/outside/secret.txt", "missing/x.txt", "b.txt"},
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	sections := strings.Split(result.Result, "\n---\n")
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %d:\n%s", len(sections), result.Result)
	}
	if sections[0] != "notes.txt:\nfirst\nsecond\nthird\n" {
		t.Fatalf("unexpected first section %q", sections[0])
	}
	if !strings.HasPrefix(sections[1], "/outside/secret.txt: Error: access denied") {
		t.Fatalf("unexpected second section %q", sections[1])
	}
	if !strings.HasPrefix(sections[2], "missing/x.txt: Error: parent directory") {
		t.Fatalf("unexpected third section %q", sections[2])
	}
	if sections[3] != "b.txt:\nbee\n" {
		t.Fatalf("unexpected fourth section %q", sections[3])
	}
}

func TestReadMultipleFilesBatchLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.Limits.MaxBatchFiles = 2
	registry, _ := newTestRegistry(t, opts)

	result := registry.Execute(context.Background(), "read_multiple_files", map[string]interface{}{
		"paths": []interface{}{"a", "b", "c"},
	})
	if !apperrors.Is(result.Error, apperrors.CodeInvalidArgs) {
		t.Fatalf("expected invalid arguments, got %v", result.Error)
	}
}

func TestEditFileReturnsFencedDiff(t *testing.T) {
	registry, mem := newTestRegistry(t, DefaultOptions())

	result := registry.Execute(context.Background(), "edit_file", map[string]interface{}{
		"path": "notes.txt",
		"edits": []interface{}{
			map[string]interface{}{"oldText": "second", "newText": "2nd"},
		},
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if !strings.HasPrefix(result.Result, "```diff\n") || !strings.Contains(result.Result, "\n+2nd\n") {
		t.Fatalf("unexpected diff:\n%s", result.Result)
	}
	data, _ := mem.File("/data/notes.txt")
	if string(data) != "first\n2nd\nthird\n" {
		t.Fatalf("unexpected stored content %q", data)
	}
}

func TestEditFileDryRunAndNoMatch(t *testing.T) {
	registry, mem := newTestRegistry(t, DefaultOptions())
	ctx := context.Background()

	result := registry.Execute(ctx, "edit_file", map[string]interface{}{
		"path":   "notes.txt",
		"edits":  []interface{}{map[string]interface{}{"oldText": "third", "newText": "3rd"}},
		"dryRun": true,
	})
	if result.Error != nil || mem.Writes() != 0 {
		t.Fatalf("expected dry run without writes, got %v (writes=%d)", result.Error, mem.Writes())
	}

	result = registry.Execute(ctx, "edit_file", map[string]interface{}{
		"path":  "notes.txt",
		"edits": []interface{}{map[string]interface{}{"oldText": "fourth", "newText": "4th"}},
	})
	if !apperrors.Is(result.Error, apperrors.CodeNoMatch) {
		t.Fatalf("expected no match, got %v", result.Error)
	}
	if !strings.Contains(result.Result, "could not find exact match for edit:\nfourth") {
		t.Fatalf("expected the failing oldText in the message, got %q", result.Result)
	}
}

func TestWriteFileCreatesAndLimits(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = PolicyFromLists(nil, nil, []string{})
	opts.Limits.MaxFileSizeBytes = 8
	registry, mem := newTestRegistry(t, opts)
	ctx := context.Background()

	result := registry.Execute(ctx, "write_file", map[string]interface{}{"path": "new.txt", "content": "hello"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if data, ok := mem.File("/data/new.txt"); !ok || string(data) != "hello" {
		t.Fatalf("unexpected stored file %q (exists=%v)", data, ok)
	}

	result = registry.Execute(ctx, "write_file", map[string]interface{}{"path": "big.txt", "content": "way too long"})
	if !apperrors.Is(result.Error, apperrors.CodeInvalidArgs) {
		t.Fatalf("expected size limit, got %v", result.Error)
	}

	result = registry.Execute(ctx, "write_file", map[string]interface{}{"path": "nodir/new.txt", "content": "x"})
	if !apperrors.Is(result.Error, apperrors.CodeParentMissing) {
		t.Fatalf("expected parent missing, got %v", result.Error)
	}
}

func TestResolvePath(t *testing.T) {
	registry, mem := newTestRegistry(t, DefaultOptions())
	mem.AddSymlink("/data/current", "notes.txt")

	result := registry.Execute(context.Background(), "resolve_path", map[string]interface{}{"path": "current"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %v", result.Error)
	}
	if result.Result != "/data/notes.txt" {
		t.Fatalf("unexpected resolved path %q", result.Result)
	}
}
