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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sashabaranov/go-openai"

	"shellfs/internal/config"
	"shellfs/internal/theme"
	"shellfs/internal/tools"
)

func runConsole(ctx context.Context, a *app, cfg *config.Config, approve toolApprovalFunc) error {
	a.logger.Debug().Msg("Running in console mode")

	themes, err := theme.NewManager(cfg.ThemeFile)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Falling back to the default theme")
		themes = theme.NewManagerWithTheme(theme.DefaultTheme())
	}
	colors := themes.ColorScheme()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              colors.Prompt.Sprint("shellfs❯ "),
		HistoryFile:         cfg.HistoryFile,
		AutoComplete:        getCommandCompleter(a.registry),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInterruptRune,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	c := &console{
		app:      a,
		colors:   colors,
		out:      rl.Stdout(),
		approve:  approve,
		canceler: &operationCanceler{},
		commands: &commandHandler{app: a, colors: colors, out: rl.Stdout(), logger: a.logger},
	}

	colors.Header.Fprintln(c.out, "shellfs by Dyne.org")
	fmt.Fprintf(c.out, "Sandbox roots: %s\n", a.resolver.Roots())
	fmt.Fprintln(c.out, "Type /help for commands, Ctrl+D or /quit to exit")
	fmt.Fprintln(c.out)

	for {
		line, err := rl.Readline()
		switch classifyReadlineError(line, err) {
		case readlineContinue:
			continue
		case readlineExit:
			a.logger.Info().Msg("Session ended")
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		if c.handleLine(ctx, line) {
			a.logger.Info().Msg("Session ended")
			return nil
		}
	}
}

// console executes tool lines typed at the prompt.
type console struct {
	app      *app
	colors   *theme.ColorScheme
	out      io.Writer
	approve  toolApprovalFunc
	canceler *operationCanceler
	commands *commandHandler
	calls    int
}

// handleLine runs one prompt line and reports whether the session should end.
func (c *console) handleLine(ctx context.Context, line string) bool {
	line = sanitizeInputLine(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "/") {
		return c.commands.handleCommand(line)
	}

	c.calls++
	call, err := parseConsoleLine(line, fmt.Sprintf("console-%d", c.calls))
	if err != nil {
		c.colors.Error.Fprintf(c.out, "✗ %v\n", err)
		return false
	}

	callCtx, cancel := context.WithCancel(ctx)
	c.canceler.Set(cancel)
	stop := watchInterrupts(c.canceler)
	result := executeWithApproval(callCtx, c.app.registry, call, c.approve)
	stop()
	c.canceler.Clear()
	interrupted := errors.Is(callCtx.Err(), context.Canceled) && ctx.Err() == nil
	cancel()

	logResult(c.app, call, result)
	c.printResult(result, interrupted)
	return false
}

func (c *console) printResult(result *tools.ToolResult, interrupted bool) {
	switch {
	case interrupted && result.Error != nil:
		c.colors.Error.Fprintln(c.out, "✗ Cancelled")
	case result.Error != nil:
		c.colors.Error.Fprintf(c.out, "✗ %s\n", result.Result)
	case result.Function == "edit_file":
		fmt.Fprint(c.out, c.colors.ColorizeDiff(result.Result))
	default:
		fmt.Fprintln(c.out, strings.TrimSuffix(result.Result, "\n"))
	}
	if result.Truncated {
		c.colors.Error.Fprintln(c.out, "(output truncated)")
	}
}

// parseConsoleLine turns "<tool> <json>" or "<tool> <path>" into a tool call.
func parseConsoleLine(line, id string) (openai.ToolCall, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	if name == "" {
		return openai.ToolCall{}, fmt.Errorf("missing tool name")
	}

	var arguments string
	switch {
	case rest == "":
		arguments = "{}"
	case strings.HasPrefix(rest, "{"):
		if !json.Valid([]byte(rest)) {
			return openai.ToolCall{}, fmt.Errorf("arguments for %s are not valid JSON", name)
		}
		arguments = rest
	default:
		data, err := json.Marshal(map[string]string{"path": rest})
		if err != nil {
			return openai.ToolCall{}, err
		}
		arguments = string(data)
	}

	return openai.ToolCall{
		ID:   id,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}, nil
}
