package systemprompt

import (
	"os"
	"strings"
	"testing"
)

func TestLoadConcatenatesPromptFiles(t *testing.T) {
	names, err := promptNames()
	if err != nil {
		t.Fatalf("promptNames: %v", err)
	}

	var sections []string
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		sections = append(sections, strings.TrimRight(string(data), "\n")+"\n")
	}

	prompt, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if prompt != strings.Join(sections, "\n") {
		t.Fatalf("Load() output mismatch")
	}
	if !strings.Contains(prompt, "edit_file") || !strings.Contains(prompt, "read_file") {
		t.Fatal("expected the prompt to describe the file tools")
	}
}

func TestForSandbox(t *testing.T) {
	prompt, err := ForSandbox([]string{"/srv/app", "/tmp/work"}, "/srv/app")
	if err != nil {
		t.Fatalf("ForSandbox: %v", err)
	}
	if !strings.HasSuffix(prompt, "Sandbox roots:\n- /srv/app\n- /tmp/work\nWorking directory: /srv/app\n") {
		t.Fatalf("unexpected sandbox footer:\n%s", prompt)
	}

	prompt, err = ForSandbox([]string{"/srv/app"}, "")
	if err != nil {
		t.Fatalf("ForSandbox: %v", err)
	}
	if strings.Contains(prompt, "Working directory") {
		t.Fatal("expected no working directory line")
	}
}
