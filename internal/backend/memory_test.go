package backend

import (
	"context"
	"errors"
	"testing"

	apperrors "shellfs/internal/errors"
)

func TestMemoryRealpathFollowsSymlinks(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.AddFile("/srv/real/config.yaml", []byte("a: 1\n"))
	mem.AddSymlink("/data/current", "/srv/real")
	mem.AddSymlink("/data/rel", "current/config.yaml")

	got, err := mem.Realpath(ctx, "/data/current/config.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/srv/real/config.yaml" {
		t.Fatalf("expected symlink to resolve, got %q", got)
	}

	got, err = mem.Realpath(ctx, "/data/rel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/srv/real/config.yaml" {
		t.Fatalf("expected relative symlink chain to resolve, got %q", got)
	}
}

func TestMemoryRealpathMissing(t *testing.T) {
	mem := NewMemory()
	mem.AddDir("/data")

	_, err := mem.Realpath(context.Background(), "/data/missing.txt")
	if !IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CodeBackend) {
		t.Fatalf("expected backend code, got %v", err)
	}
}

func TestMemoryRealpathLoop(t *testing.T) {
	mem := NewMemory()
	mem.AddSymlink("/a", "/b")
	mem.AddSymlink("/b", "/a")

	if _, err := mem.Realpath(context.Background(), "/a"); err == nil {
		t.Fatal("expected error for symlink loop")
	}
}

func TestMemoryReadRange(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.AddFile("/f", []byte("0123456789"))

	cases := []struct {
		start, length int64
		want          string
	}{
		{0, 4, "0123"},
		{8, 10, "89"},
		{10, 5, ""},
		{3, 0, ""},
	}
	for _, tc := range cases {
		got, err := mem.ReadRange(ctx, "/f", tc.start, tc.length)
		if err != nil {
			t.Fatalf("ReadRange(%d, %d): %v", tc.start, tc.length, err)
		}
		if string(got) != tc.want {
			t.Errorf("ReadRange(%d, %d) = %q, want %q", tc.start, tc.length, got, tc.want)
		}
	}
}

func TestMemoryWriteAllRequiresParent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	if err := mem.WriteAll(ctx, "/nope/file.txt", []byte("x")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}

	mem.AddDir("/data")
	if err := mem.WriteAll(ctx, "/data/file.txt", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data, ok := mem.File("/data/file.txt"); !ok || string(data) != "x" {
		t.Fatalf("unexpected stored content: %q (exists=%v)", data, ok)
	}
	if mem.Writes() != 1 {
		t.Fatalf("expected 1 write, got %d", mem.Writes())
	}
}

func TestMemoryWriteErrLeavesContent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.AddFile("/data/file.txt", []byte("original"))
	mem.WriteErr = errors.New("disk full")

	if err := mem.WriteAll(ctx, "/data/file.txt", []byte("new")); err == nil {
		t.Fatal("expected write failure")
	}
	if data, _ := mem.File("/data/file.txt"); string(data) != "original" {
		t.Fatalf("expected content to be untouched, got %q", data)
	}
}

func TestMemoryRunWithoutHandler(t *testing.T) {
	mem := NewMemory()
	_, err := mem.Run(context.Background(), "ls")
	if !apperrors.Is(err, apperrors.CodeBackend) {
		t.Fatalf("expected backend failure, got %v", err)
	}
}
