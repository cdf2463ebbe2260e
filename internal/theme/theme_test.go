package theme

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	if theme.HeaderColor == "" || theme.ErrorColor == "" || theme.DiffAddColor == "" || theme.DiffDelColor == "" {
		t.Errorf("expected every default color to be set, got %+v", theme)
	}
}

func TestLoadThemeNonExistent(t *testing.T) {
	theme, err := LoadTheme("/nonexistent/theme.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if *theme != *DefaultTheme() {
		t.Errorf("expected defaults, got %+v", theme)
	}

	theme, err = LoadTheme("")
	if err != nil || *theme != *DefaultTheme() {
		t.Fatalf("expected defaults for empty path, got %+v (%v)", theme, err)
	}
}

func TestColorizeDiffPlain(t *testing.T) {
	scheme := DisabledColorScheme()
	diff := "--- a\toriginal\n+++ a\tmodified\n@@ -1 +1 @@\n-old\n+new\n"

	if got := scheme.ColorizeDiff(diff); got != diff {
		t.Fatalf("expected disabled scheme to leave diff untouched, got %q", got)
	}
}

func TestColorizeDiffPaintsLines(t *testing.T) {
	scheme := DefaultTheme().ToColorScheme()
	for _, c := range []*color.Color{scheme.Header, scheme.Hunk, scheme.DiffAdd, scheme.DiffDel} {
		c.EnableColor()
	}

	got := scheme.ColorizeDiff("@@ -1 +1 @@\n context\n-old\n+new\n")

	if !strings.Contains(got, scheme.DiffDel.Sprint("-old")+"\n") {
		t.Fatalf("removed line not painted: %q", got)
	}
	if !strings.Contains(got, scheme.DiffAdd.Sprint("+new")+"\n") {
		t.Fatalf("added line not painted: %q", got)
	}
	if !strings.Contains(got, "\n context\n") {
		t.Fatalf("context line changed: %q", got)
	}
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected escape sequences in %q", got)
	}
}
