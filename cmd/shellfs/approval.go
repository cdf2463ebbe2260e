// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/term"

	"shellfs/internal/tools"
)

type approvalDecision int

const (
	approvalUnknown approvalDecision = iota
	approvalYes
	approvalNo
	approvalAlways
)

// toolApprovalFunc asks whether a call that requires confirmation may run.
type toolApprovalFunc func(call openai.ToolCall) (bool, error)

type toolPromptFunc func(call openai.ToolCall) (approvalDecision, error)

func approveAll(openai.ToolCall) (bool, error) {
	return true, nil
}

func newToolApprover() toolApprovalFunc {
	return newToolApproverWithPrompt(promptToolApproval)
}

func newToolApproverWithPrompt(prompt toolPromptFunc) toolApprovalFunc {
	alwaysAllowed := make(map[string]bool)
	var mu sync.RWMutex
	return func(call openai.ToolCall) (bool, error) {
		toolName := toolCallName(call)
		mu.RLock()
		allowed := alwaysAllowed[toolName]
		mu.RUnlock()
		if allowed {
			return true, nil
		}

		decision, err := prompt(call)
		if err != nil {
			return false, err
		}
		if decision == approvalAlways {
			mu.Lock()
			alwaysAllowed[toolName] = true
			mu.Unlock()
			return true, nil
		}
		return decision == approvalYes, nil
	}
}

// executeWithApproval runs call and, when the registry asks for
// confirmation, consults approve before retrying with Force.
func executeWithApproval(ctx context.Context, registry *tools.Registry, call openai.ToolCall, approve toolApprovalFunc) *tools.ToolResult {
	result := registry.ExecuteOpenAIToolCall(ctx, call)
	if !errors.Is(result.Error, tools.ErrToolRequiresConfirmation) || approve == nil {
		return result
	}

	ok, err := approve(call)
	if err == nil && !ok {
		err = errors.New("declined by the user")
	}
	if err != nil {
		permErr := tools.NewPermissionError(result.Function, err)
		return &tools.ToolResult{Function: result.Function, Error: permErr, Result: tools.FormatError(permErr)}
	}
	return registry.ExecuteOpenAIToolCallWithOptions(ctx, call, tools.ExecuteOptions{Force: true})
}

func promptToolApproval(call openai.ToolCall) (approvalDecision, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	// Batch mode owns stdin, so ask on the controlling terminal instead.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return approvalNo, fmt.Errorf("no TTY available for tool approval")
		}
		defer tty.Close()
		input = tty
		output = tty
	}
	return promptApproval(bufio.NewReader(input), output, call)
}

func promptApproval(reader *bufio.Reader, output io.Writer, call openai.ToolCall) (approvalDecision, error) {
	name := toolCallName(call)
	argsDisplay := describeArgs(call.Function.Arguments)

	for {
		fmt.Fprintf(output, "Allow tool %s%s? (Yes/no/always): ", name, argsDisplay)
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return approvalNo, err
		}
		decision := parseApprovalInput(line)
		switch decision {
		case approvalYes, approvalNo, approvalAlways:
			return decision, nil
		default:
			fmt.Fprintln(output, "Please enter yes, no, or always.")
		}
	}
}

// describeArgs renders call arguments for the approval prompt with file
// content left out.
func describeArgs(rawArgs string) string {
	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" || rawArgs == "{}" || rawArgs == "null" {
		return ""
	}
	argsMap, ok := parseArgsJSON(rawArgs)
	if !ok {
		return fmt.Sprintf(" with args %s", rawArgs)
	}
	if content, ok := argsMap["content"].(string); ok {
		argsMap["content"] = fmt.Sprintf("[%d bytes]", len(content))
	}
	redacted, err := json.Marshal(argsMap)
	if err != nil {
		return fmt.Sprintf(" with args %s", rawArgs)
	}
	return fmt.Sprintf(" with args %s", redacted)
}

func parseApprovalInput(input string) approvalDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return approvalYes
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return approvalYes
	case isPrefixToken(normalized, "no"):
		return approvalNo
	case isPrefixToken(normalized, "always"):
		return approvalAlways
	default:
		return approvalUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}

func toolCallName(call openai.ToolCall) string {
	name := call.Function.Name
	if name == "" {
		return "unknown_tool"
	}
	return name
}

func parseArgsJSON(rawArgs string) (map[string]interface{}, bool) {
	if rawArgs == "" {
		return nil, false
	}
	var argsMap map[string]interface{}
	if err := json.Unmarshal([]byte(rawArgs), &argsMap); err != nil {
		return nil, false
	}
	return argsMap, true
}
