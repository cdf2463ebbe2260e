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

package patch

import (
	"strings"
	"unicode"
)

// Mode records how an edit located its target.
type Mode string

const (
	ModeExact Mode = "exact"
	ModeFuzzy Mode = "fuzzy"
)

// Apply runs edits in order over LF-normalized content. Each edit sees the
// result of the previous one. On failure the returned content holds the edits
// applied so far and the error is a NoMatch carrying a *MatchError.
func Apply(content string, edits []Edit) (string, []Mode, error) {
	content = normalizeToLF(content)
	modes := make([]Mode, 0, len(edits))
	for i, edit := range edits {
		oldText := normalizeToLF(edit.OldText)
		newText := normalizeToLF(edit.NewText)

		if strings.Contains(content, oldText) {
			content = strings.Replace(content, oldText, newText, 1)
			modes = append(modes, ModeExact)
			continue
		}

		lines, ok := MatchLines(strings.Split(content, "\n"), strings.Split(oldText, "\n"), strings.Split(newText, "\n"))
		if !ok {
			return content, modes, noMatch(i+1, edit.OldText)
		}
		content = strings.Join(lines, "\n")
		modes = append(modes, ModeFuzzy)
	}
	return content, modes, nil
}

// MatchLines finds the first window of content whose lines equal oldLines
// after trimming surrounding whitespace, and returns content with that window
// replaced by the reindented newLines. It reports false when no window matches.
func MatchLines(content, oldLines, newLines []string) ([]string, bool) {
	if len(oldLines) == 0 || len(oldLines) > len(content) {
		return nil, false
	}
	for i := 0; i+len(oldLines) <= len(content); i++ {
		if !windowMatches(content[i:i+len(oldLines)], oldLines) {
			continue
		}
		replacement := ReindentBlock(leadingWhitespace(content[i]), oldLines, newLines)
		out := make([]string, 0, len(content)-len(oldLines)+len(replacement))
		out = append(out, content[:i]...)
		out = append(out, replacement...)
		out = append(out, content[i+len(oldLines):]...)
		return out, true
	}
	return nil, false
}

func windowMatches(window, old []string) bool {
	for j := range old {
		if strings.TrimSpace(window[j]) != strings.TrimSpace(old[j]) {
			return false
		}
	}
	return true
}

// ReindentBlock rebases newLines onto a block whose first line is indented by
// indent. The first line takes indent verbatim. A later line keeps its
// indentation relative to the matching old line when both are indented;
// otherwise it is emitted unchanged. Widths are counted in bytes and the
// relative part is always spaces.
func ReindentBlock(indent string, oldLines, newLines []string) []string {
	out := make([]string, len(newLines))
	for j, line := range newLines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if j == 0 {
			out[j] = indent + trimmed
			continue
		}
		var oldIndent string
		if j < len(oldLines) {
			oldIndent = leadingWhitespace(oldLines[j])
		}
		newIndent := leadingWhitespace(line)
		if oldIndent == "" || newIndent == "" {
			out[j] = line
			continue
		}
		delta := len(newIndent) - len(oldIndent)
		if delta < 0 {
			delta = 0
		}
		out[j] = indent + strings.Repeat(" ", delta) + trimmed
	}
	return out
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
}

func normalizeToLF(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func toCRLF(text string) string {
	return strings.ReplaceAll(text, "\n", "\r\n")
}

func usesCRLF(text string) bool {
	return strings.Contains(text, "\r\n")
}

// isText reports whether data looks like text rather than binary content.
// Any single-byte encoding passes; NUL bytes or a high share of control
// characters do not.
func isText(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	const sampleSize = 8192
	limit := len(data)
	if limit > sampleSize {
		limit = sampleSize
	}

	var nonPrintable int
	for _, b := range data[:limit] {
		switch b {
		case '\n', '\r', '\t':
			continue
		}
		if b == 0 {
			return false
		}
		if b < 0x20 || b == 0x7f {
			nonPrintable++
		}
	}
	return nonPrintable*10 < limit
}

func summarizeModes(modes []Mode) (exact, fuzzy int) {
	for _, mode := range modes {
		switch mode {
		case ModeExact:
			exact++
		case ModeFuzzy:
			fuzzy++
		}
	}
	return exact, fuzzy
}
