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

	"github.com/pmezard/go-difflib/difflib"
)

const (
	diffContext = 3
	fenceChar   = "`"
	minFence    = 3

	noNewlineMarker = "\\ No newline at end of file\n"
)

// UnifiedDiff renders the line differences between before and after, labeled
// original and modified.
func UnifiedDiff(path, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: path,
		FromDate: "original",
		ToFile:   path,
		ToDate:   "modified",
		Context:  diffContext,
	})
}

// splitLines keeps each line's terminator. An unterminated last line gets the
// no-newline marker so a change to the final newline shows up in the diff.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + noNewlineMarker
	return lines
}

// FenceDiff wraps diff in a diff code fence that is longer than any run of
// backticks inside it.
func FenceDiff(diff string) string {
	fence := strings.Repeat(fenceChar, max(minFence, longestRun(diff, '`')+1))
	var b strings.Builder
	b.Grow(len(diff) + 2*len(fence) + 8)
	b.WriteString(fence)
	b.WriteString("diff\n")
	b.WriteString(diff)
	if diff != "" && !strings.HasSuffix(diff, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)
	b.WriteString("\n\n")
	return b.String()
}

func longestRun(s string, c byte) int {
	longest, current := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			current = 0
			continue
		}
		current++
		if current > longest {
			longest = current
		}
	}
	return longest
}
