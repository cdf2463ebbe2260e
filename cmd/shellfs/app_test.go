package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"shellfs/internal/backend"
	"shellfs/internal/config"
)

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) (*app, *backend.Memory) {
	t.Helper()
	mem := backend.NewMemory()
	mem.SetHome("/data")
	mem.AddFile("/data/notes.txt", []byte("first\nsecond\nthird\n"))
	mem.AddFile("/data/code.go", []byte("package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"))
	mem.AddFile("/outside/secret.txt", []byte("secret"))

	cfg := config.DefaultConfig()
	cfg.SandboxRoots = []string{"/data"}
	if mutate != nil {
		mutate(cfg)
	}

	a, err := buildApp(context.Background(), cfg, mem, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	return a, mem
}

func TestBuildAppRegistersTools(t *testing.T) {
	a, _ := newTestApp(t, nil)

	names := a.registry.GetToolNames()
	if len(names) != 5 {
		t.Fatalf("expected five tools, got %v", names)
	}
	if !a.registry.GetPermission("write_file").RequireConfirmation {
		t.Fatal("expected write_file to require confirmation by default")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuildAppAppliesPolicy(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.Tools.Deny = []string{"write_file"}
	})

	if a.registry.GetPermission("write_file").Allowed {
		t.Fatal("expected write_file to be denied")
	}
	if !a.registry.GetPermission("read_file").Allowed {
		t.Fatal("expected read_file to stay allowed")
	}
}

func TestBuildAppMissingRoot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SandboxRoots = []string{"/nowhere"}

	if _, err := buildApp(context.Background(), cfg, backend.NewMemory(), zerolog.Nop()); err == nil {
		t.Fatal("expected a missing sandbox root to fail")
	}
}

func TestBuildAppExpandsWorkdir(t *testing.T) {
	a, _ := newTestApp(t, func(cfg *config.Config) {
		cfg.Workdir = "~"
	})

	result := a.registry.Execute(context.Background(), "read_file", map[string]interface{}{"path": "notes.txt"})
	if result.Error != nil {
		t.Fatalf("expected relative path to resolve under the home workdir: %v", result.Error)
	}
}

func TestWriteToolSchemas(t *testing.T) {
	a, _ := newTestApp(t, nil)

	var buf bytes.Buffer
	if err := writeToolSchemas(&buf, a.registry); err != nil {
		t.Fatalf("writeToolSchemas: %v", err)
	}
	var defs []openai.Tool
	if err := json.Unmarshal(buf.Bytes(), &defs); err != nil {
		t.Fatalf("schemas are not valid JSON: %v", err)
	}
	if len(defs) != 5 || defs[0].Function.Name != "edit_file" {
		t.Fatalf("unexpected schemas %+v", defs)
	}
}
