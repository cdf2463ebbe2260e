package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"shellfs/internal/backend"
	"shellfs/internal/chunk"
	"shellfs/internal/patch"
	"shellfs/internal/sandbox"
)

func newBenchRegistry(b *testing.B) *Registry {
	b.Helper()
	mem := backend.NewMemory()
	mem.AddFile("/data/notes.txt", []byte(strings.Repeat("line of text\n", 1000)))
	roots, err := sandbox.NewRoots([]string{"/data"})
	if err != nil {
		b.Fatalf("NewRoots: %v", err)
	}
	logger := zerolog.Nop()
	opts := DefaultOptions()
	opts.RateLimits = RateLimitConfig{}
	registry := NewRegistry(opts)
	err = RegisterFileTools(registry, FileCore{
		Backend:  mem,
		Resolver: sandbox.NewResolver(mem, roots, sandbox.Options{Workdir: "/data", Logger: logger}),
		Reader:   chunk.NewReader(mem, chunk.Options{Logger: logger}),
		Engine:   patch.NewEngine(mem, patch.Options{Logger: logger}),
	})
	if err != nil {
		b.Fatalf("RegisterFileTools: %v", err)
	}
	return registry
}

// BenchmarkToolRegistration measures tool registration performance
func BenchmarkToolRegistration(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = newBenchRegistry(b)
	}
}

// BenchmarkGetPermission measures permission check performance
func BenchmarkGetPermission(b *testing.B) {
	registry := newBenchRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.GetPermission("read_file")
	}
}

// BenchmarkExecuteOpenAIToolCall measures tool execution overhead
func BenchmarkExecuteOpenAIToolCall(b *testing.B) {
	registry := newBenchRegistry(b)
	ctx := context.Background()

	toolCall := openai.ToolCall{
		ID:   "test-call",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      "read_file",
			Arguments: `{"path": "notes.txt"}`,
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.ExecuteOpenAIToolCall(ctx, toolCall)
	}
}

// BenchmarkEditDryRun measures matching and diffing through the registry
func BenchmarkEditDryRun(b *testing.B) {
	registry := newBenchRegistry(b)
	ctx := context.Background()
	args := map[string]interface{}{
		"path":   "notes.txt",
		"edits":  []interface{}{map[string]interface{}{"oldText": "  line of text", "newText": "first line"}},
		"dryRun": true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.Execute(ctx, "edit_file", args)
	}
}
