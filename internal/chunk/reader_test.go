package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"shellfs/internal/backend"
	apperrors "shellfs/internal/errors"
)

func newReader(content string) *Reader {
	mem := backend.NewMemory()
	mem.AddFile("/data/big.txt", []byte(content))
	return NewReader(mem, Options{Logger: zerolog.Nop()})
}

func withNewlines(size int, at ...int) string {
	buf := []byte(strings.Repeat("a", size))
	for _, i := range at {
		buf[i] = '\n'
	}
	return string(buf)
}

func TestReadPartOutOfRange(t *testing.T) {
	r := newReader(strings.Repeat("x", 50_000))

	_, err := r.ReadPart(context.Background(), "/data/big.txt", 2)
	if !apperrors.Is(err, apperrors.CodePartOutOfRange) {
		t.Fatalf("expected part out of range, got %v", err)
	}
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected RangeError in chain, got %T", err)
	}
	if rangeErr.Size != 50_000 {
		t.Fatalf("expected size 50000, got %d", rangeErr.Size)
	}
}

func TestReadPartEmptyFile(t *testing.T) {
	r := newReader("")

	_, err := r.ReadPart(context.Background(), "/data/big.txt", 1)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) || rangeErr.Size != 0 {
		t.Fatalf("expected range error with size 0, got %v", err)
	}
}

func TestReadPartRejectsInvalidPart(t *testing.T) {
	r := newReader("hello\n")

	for _, part := range []int{0, -1} {
		if _, err := r.ReadPart(context.Background(), "/data/big.txt", part); !apperrors.Is(err, apperrors.CodeInvalidArgs) {
			t.Fatalf("part %d: expected invalid arguments, got %v", part, err)
		}
	}
}

func TestReadPartOneIsVerbatim(t *testing.T) {
	content := withNewlines(120_000, 95_050)
	r := newReader(content)

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != content[:PartSize] {
		t.Fatalf("expected first %d bytes, got %d bytes", PartSize, len(got))
	}
}

func TestReadPartSmallFile(t *testing.T) {
	r := newReader("line one\nline two\n")

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line one\nline two\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestReadPartBacktracksToLineStart(t *testing.T) {
	content := withNewlines(200_000, 94_990)
	r := newReader(content)

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := content[94_991 : 94_991+PartSize]; got != want {
		t.Fatalf("expected part 2 to start at 94991, got %d bytes starting %q", len(got), got[:10])
	}
}

func TestReadPartWithoutNewlineKeepsNominalStart(t *testing.T) {
	content := withNewlines(200_000, 94_000)
	r := newReader(content)

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := content[95_000:190_000]; got != want {
		t.Fatalf("expected part 2 to start at 95000, got %d bytes", len(got))
	}
}

func TestReadPartExtendsThroughNextNewline(t *testing.T) {
	content := withNewlines(250_000, 94_990, 190_001)
	r := newReader(content)

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := content[94_991:190_002]; got != want {
		t.Fatalf("expected extension through newline, got %d bytes (want %d)", len(got), len(want))
	}
	if !strings.HasSuffix(got, "\n") {
		t.Fatal("expected part to end on a newline")
	}
}

func TestReadPartLastPartIsShort(t *testing.T) {
	content := withNewlines(200_000, 94_990)
	r := newReader(content)

	got, err := r.ReadPart(context.Background(), "/data/big.txt", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := content[190_000:]; got != want {
		t.Fatalf("expected tail of file, got %d bytes", len(got))
	}
}

// Every part starts on a line boundary inside its backtrack window and the
// last part reaches end of file; neighbouring parts may share bytes.
func TestReadPartsOverlapAtBoundaries(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 400_000; i++ {
		fmt.Fprintf(&b, "%06d %s\n", i, strings.Repeat("z", 20+i%90))
	}
	content := b.String()
	r := newReader(content)
	ctx := context.Background()

	prevEnd := 0
	overlapped := false
	for part := 1; ; part++ {
		got, err := r.ReadPart(ctx, "/data/big.txt", part)
		if err != nil {
			var rangeErr *RangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("part %d: unexpected error %v", part, err)
			}
			if rangeErr.Size != int64(len(content)) {
				t.Fatalf("range error size %d, want %d", rangeErr.Size, len(content))
			}
			break
		}

		nominal := (part - 1) * PartSize
		searchFrom := nominal - MaxBacktrack
		if searchFrom < 0 {
			searchFrom = 0
		}
		idx := strings.Index(content[searchFrom:], got)
		if idx < 0 || searchFrom+idx > nominal {
			t.Fatalf("part %d does not start within the backtrack window", part)
		}
		start := searchFrom + idx
		if part > 1 && content[start-1] != '\n' {
			t.Fatalf("part %d starts mid-line", part)
		}
		if start < prevEnd {
			overlapped = true
		}
		prevEnd = start + len(got)
	}

	if prevEnd != len(content) {
		t.Fatalf("parts end at %d, file is %d bytes", prevEnd, len(content))
	}
	if !overlapped {
		t.Fatal("expected at least one overlapping boundary")
	}
}

// A part pulled back to an early line start and then extended to the next
// newline can stop short of where the following part begins.
func TestReadPartBoundaryCanSkipShortLine(t *testing.T) {
	content := "aaaa\n" + "bbbbbbbbbbb\n" + "c\n" + "dddddddddd\n"
	mem := backend.NewMemory()
	mem.AddFile("/f", []byte(content))
	r := NewReader(mem, Options{PartSize: 10, MaxBacktrack: 6, Logger: zerolog.Nop()})
	ctx := context.Background()

	second, err := r.ReadPart(ctx, "/f", 2)
	if err != nil {
		t.Fatalf("part 2: %v", err)
	}
	third, err := r.ReadPart(ctx, "/f", 3)
	if err != nil {
		t.Fatalf("part 3: %v", err)
	}
	if second != "bbbbbbbbbbb\n" {
		t.Fatalf("unexpected part 2 %q", second)
	}
	if third != "dddddddddd\n" {
		t.Fatalf("unexpected part 3 %q", third)
	}
}

func TestReadPartMissingFile(t *testing.T) {
	r := newReader("x")

	_, err := r.ReadPart(context.Background(), "/data/missing.txt", 1)
	if !apperrors.Is(err, apperrors.CodeBackend) {
		t.Fatalf("expected backend failure, got %v", err)
	}
}

func TestReadPartCustomGeometry(t *testing.T) {
	mem := backend.NewMemory()
	mem.AddFile("/f", []byte("aaaa\nbbbb\ncccc\ndddd\n"))
	r := NewReader(mem, Options{PartSize: 8, MaxBacktrack: 4, Logger: zerolog.Nop()})

	got, err := r.ReadPart(context.Background(), "/f", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// nominal 8; last newline in [4,8) is at 4; slice [5,13) extends to 14.
	if got != "bbbb\ncccc\n" {
		t.Fatalf("unexpected part %q", got)
	}
}
