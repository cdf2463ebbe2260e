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
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"shellfs/internal/tools"
)

// maxBatchLine bounds one JSON-lines record; write_file content travels inline.
const maxBatchLine = 64 << 20

// runBatch reads one OpenAI tool call per line from in and writes the
// matching tool message per line to out, in input order.
func runBatch(ctx context.Context, a *app, in io.Reader, out io.Writer, approve toolApprovalFunc) error {
	a.logger.Debug().Msg("Running in batch mode")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var call openai.ToolCall
		if err := json.Unmarshal([]byte(line), &call); err != nil {
			a.logger.Warn().Int("line", lineNo).Err(err).Msg("Invalid tool call")
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleTool,
				Content: tools.FormatError(fmt.Errorf("line %d: invalid tool call: %v", lineNo, err)),
			}
			if err := enc.Encode(msg); err != nil {
				return err
			}
			continue
		}
		if call.Type == "" {
			call.Type = openai.ToolTypeFunction
		}

		result := executeWithApproval(ctx, a.registry, call, approve)
		logResult(a, call, result)
		if err := enc.Encode(tools.ToolMessage(call, result)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read tool calls: %w", err)
	}
	return nil
}

func logResult(a *app, call openai.ToolCall, result *tools.ToolResult) {
	event := a.logger.Info()
	if result.Error != nil {
		event = a.logger.Warn().Err(result.Error)
	}
	event.
		Str("tool", result.Function).
		Str("call_id", call.ID).
		Bool("truncated", result.Truncated).
		Int("bytes", len(result.Result)).
		Msg("Tool call finished")
}
