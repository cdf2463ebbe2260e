package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	apperrors "shellfs/internal/errors"
)

func TestParseApprovalInput(t *testing.T) {
	cases := []struct {
		input    string
		expected approvalDecision
	}{
		{"", approvalYes},
		{" ", approvalYes},
		{"Y", approvalYes},
		{"ye", approvalYes},
		{"yes\n", approvalYes},
		{"n", approvalNo},
		{"no", approvalNo},
		{"a", approvalAlways},
		{"alw", approvalAlways},
		{"always", approvalAlways},
		{"maybe", approvalUnknown},
		{"yess", approvalUnknown},
		{"nope", approvalUnknown},
	}

	for _, tc := range cases {
		if decision := parseApprovalInput(tc.input); decision != tc.expected {
			t.Fatalf("input %q expected %v, got %v", tc.input, tc.expected, decision)
		}
	}
}

func TestToolApproverAlwaysPersists(t *testing.T) {
	prompts := 0
	approver := newToolApproverWithPrompt(func(call openai.ToolCall) (approvalDecision, error) {
		prompts++
		if call.Function.Name == "write_file" {
			return approvalAlways, nil
		}
		return approvalNo, nil
	})

	write := openai.ToolCall{Function: openai.FunctionCall{Name: "write_file"}}
	for i := 0; i < 3; i++ {
		ok, err := approver(write)
		if err != nil || !ok {
			t.Fatalf("expected approval, got %v (%v)", ok, err)
		}
	}
	if prompts != 1 {
		t.Fatalf("expected a single prompt, got %d", prompts)
	}

	ok, err := approver(openai.ToolCall{Function: openai.FunctionCall{Name: "edit_file"}})
	if err != nil || ok {
		t.Fatalf("expected edit_file to be declined, got %v (%v)", ok, err)
	}
	if prompts != 2 {
		t.Fatalf("expected a second prompt, got %d", prompts)
	}
}

func TestPromptApprovalRetriesUnknownInput(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("maybe\nalways\n"))
	call := openai.ToolCall{Function: openai.FunctionCall{
		Name:      "write_file",
		Arguments: `{"path":"/data/a.txt","content":"secret body"}`,
	}}

	decision, err := promptApproval(reader, &out, call)
	if err != nil {
		t.Fatalf("promptApproval: %v", err)
	}
	if decision != approvalAlways {
		t.Fatalf("expected always, got %v", decision)
	}
	if strings.Count(out.String(), "Allow tool write_file") != 2 {
		t.Fatalf("expected the question twice:\n%s", out.String())
	}
	if strings.Contains(out.String(), "secret body") {
		t.Fatal("file content leaked into the prompt")
	}
	if !strings.Contains(out.String(), "[11 bytes]") {
		t.Fatalf("expected content size in prompt:\n%s", out.String())
	}
}

func TestPromptApprovalEOF(t *testing.T) {
	var out bytes.Buffer
	decision, err := promptApproval(bufio.NewReader(strings.NewReader("")), &out, openai.ToolCall{})
	if err == nil || decision != approvalNo {
		t.Fatalf("expected EOF to decline, got %v (%v)", decision, err)
	}
}

func TestDescribeArgs(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"{}":                "",
		"null":              "",
		`{"path":"/a"}`:     ` with args {"path":"/a"}`,
		"not json":          " with args not json",
		`{"content":"xyz"}`: ` with args {"content":"[3 bytes]"}`,
	}
	for in, want := range cases {
		if got := describeArgs(in); got != want {
			t.Fatalf("describeArgs(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExecuteWithApproval(t *testing.T) {
	a, mem := newTestApp(t, nil)
	call := openai.ToolCall{ID: "w", Function: openai.FunctionCall{
		Name:      "write_file",
		Arguments: `{"path":"/data/out.txt","content":"x"}`,
	}}

	failing := func(openai.ToolCall) (bool, error) { return false, errors.New("no tty") }
	result := executeWithApproval(context.Background(), a.registry, call, failing)
	if !apperrors.Is(result.Error, apperrors.CodePermission) || !strings.Contains(result.Result, "no tty") {
		t.Fatalf("expected permission error, got %v / %q", result.Error, result.Result)
	}

	result = executeWithApproval(context.Background(), a.registry, call, approveAll)
	if result.Error != nil {
		t.Fatalf("expected approved call to succeed: %v", result.Error)
	}
	if _, ok := mem.File("/data/out.txt"); !ok {
		t.Fatal("expected file to be written")
	}

	read := openai.ToolCall{Function: openai.FunctionCall{Name: "read_file", Arguments: `{"path":"/data/notes.txt"}`}}
	calls := 0
	counting := func(openai.ToolCall) (bool, error) { calls++; return true, nil }
	if result := executeWithApproval(context.Background(), a.registry, read, counting); result.Error != nil {
		t.Fatalf("read_file failed: %v", result.Error)
	}
	if calls != 0 {
		t.Fatal("approver consulted for a tool that needs no confirmation")
	}
}
