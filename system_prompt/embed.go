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


// Package systemprompt embeds the instructions handed to an agent that drives
// the file tools.
package systemprompt

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.txt
var promptFiles embed.FS

func promptNames() ([]string, error) {
	entries, err := fs.ReadDir(promptFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded system prompt files: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no system prompt files found in embedded set")
	}
	sort.Strings(names)
	return names, nil
}

// Load concatenates all embedded prompt files in lexical order, separated by
// a blank line.
func Load() (string, error) {
	names, err := promptNames()
	if err != nil {
		return "", err
	}

	sections := make([]string, 0, len(names))
	for _, name := range names {
		data, err := promptFiles.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("failed to read system prompt file %q: %w", name, err)
		}
		sections = append(sections, strings.TrimRight(string(data), "\n")+"\n")
	}
	return strings.Join(sections, "\n"), nil
}

// ForSandbox returns the prompt followed by the roots and working directory
// the tools are confined to.
func ForSandbox(roots []string, workdir string) (string, error) {
	prompt, err := Load()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\nSandbox roots:\n")
	for _, root := range roots {
		fmt.Fprintf(&b, "- %s\n", root)
	}
	if workdir != "" {
		fmt.Fprintf(&b, "Working directory: %s\n", workdir)
	}
	return b.String(), nil
}
