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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"shellfs/internal/theme"
	"shellfs/internal/tools"
)

// Command represents a slash command
type Command struct {
	Name        string
	Description string
}

// getAvailableCommands returns the list of all slash commands
func getAvailableCommands() []Command {
	return []Command{
		{Name: "help", Description: "Show available commands"},
		{Name: "tools", Description: "List tools and their permissions"},
		{Name: "schema", Description: "Print the JSON schema of a tool"},
		{Name: "allow", Description: "Skip confirmation for a tool in this session"},
		{Name: "roots", Description: "Show the sandbox roots"},
		{Name: "quit", Description: "Exit the application"},
		{Name: "exit", Description: "Exit the application"},
	}
}

// commandHandler runs slash commands against the registry.
type commandHandler struct {
	app    *app
	colors *theme.ColorScheme
	out    io.Writer
	logger zerolog.Logger
}

// handleCommand processes slash commands, returns true if should quit
func (h *commandHandler) handleCommand(input string) bool {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		h.colors.Error.Fprintln(h.out, "✗ Empty command (type /help for available commands)")
		return false
	}
	cmdName := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	h.logger.Debug().Str("command", cmdName).Msg("Executing command")

	switch cmdName {
	case "help":
		h.showHelp()
	case "tools":
		h.showTools()
	case "schema":
		h.showSchema(arg)
	case "allow":
		h.allow(arg)
	case "roots":
		for _, root := range h.app.resolver.Roots().List() {
			fmt.Fprintf(h.out, "  %s\n", root)
		}
	case "quit", "exit":
		return true
	default:
		h.colors.Error.Fprintf(h.out, "✗ Unknown command: /%s (type /help for available commands)\n", cmdName)
	}
	return false
}

func (h *commandHandler) showHelp() {
	h.colors.Header.Fprintln(h.out, "\nAvailable Commands:")
	for _, cmd := range getAvailableCommands() {
		fmt.Fprintf(h.out, "  /%-12s - %s\n", cmd.Name, cmd.Description)
	}
	h.colors.Header.Fprintln(h.out, "\nTool Calls:")
	fmt.Fprintln(h.out, "  <tool> {json}   - Call a tool with JSON arguments")
	fmt.Fprintln(h.out, "  <tool> <path>   - Shorthand for {\"path\": \"<path>\"}")
	fmt.Fprintln(h.out, "  Ctrl+C          - Cancel the running call")
	fmt.Fprintln(h.out)
}

func (h *commandHandler) showTools() {
	registry := h.app.registry
	toolNames := registry.GetToolNames()
	if len(toolNames) == 0 {
		fmt.Fprintln(h.out, "No tools available")
		return
	}

	h.colors.Header.Fprintln(h.out, "\nTool Permissions:")
	w := tabwriter.NewWriter(h.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Tool\tAllowed\tConfirm")
	fmt.Fprintln(w, "────\t───────\t───────")
	for _, name := range toolNames {
		perm := registry.GetPermission(name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, yesNo(perm.Allowed), yesNo(perm.RequireConfirmation))
	}
	w.Flush()
	fmt.Fprintln(h.out)
}

func (h *commandHandler) showSchema(name string) {
	if name == "" {
		h.colors.Error.Fprintln(h.out, "✗ Usage: /schema <tool>")
		return
	}
	for _, tool := range h.app.registry.OpenAITools() {
		if tool.Function == nil || tool.Function.Name != name {
			continue
		}
		data, err := json.MarshalIndent(tool.Function, "", "  ")
		if err != nil {
			h.colors.Error.Fprintf(h.out, "✗ %v\n", err)
			return
		}
		fmt.Fprintf(h.out, "%s\n", data)
		return
	}
	h.colors.Error.Fprintf(h.out, "✗ Unknown tool: %s\n", name)
}

func (h *commandHandler) allow(name string) {
	if name == "" {
		h.colors.Error.Fprintln(h.out, "✗ Usage: /allow <tool>")
		return
	}
	perm := h.app.registry.GetPermission(name)
	if !perm.Allowed {
		h.colors.Error.Fprintf(h.out, "✗ Tool %s is blocked by policy\n", name)
		return
	}
	h.app.registry.SetRequireConfirmation(name, false)
	h.colors.Success.Fprintf(h.out, "✓ %s will run without confirmation\n", name)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// getCommandCompleter builds a readline completer from commands and tools
func getCommandCompleter(registry *tools.Registry) *readline.PrefixCompleter {
	commands := getAvailableCommands()
	toolNames := registry.GetToolNames()

	toolItems := make([]readline.PrefixCompleterInterface, len(toolNames))
	for i, name := range toolNames {
		toolItems[i] = readline.PcItem(name)
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(commands)+len(toolNames))
	for _, cmd := range commands {
		switch cmd.Name {
		case "schema", "allow":
			items = append(items, readline.PcItem("/"+cmd.Name, toolItems...))
		default:
			items = append(items, readline.PcItem("/"+cmd.Name))
		}
	}
	for _, name := range toolNames {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
