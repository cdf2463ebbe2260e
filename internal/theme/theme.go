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


package theme

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Theme names the console colors. Each value is a space separated list of
// attribute names such as "green" or "red bold".
type Theme struct {
	HeaderColor  string `json:"header_color"`
	PromptColor  string `json:"prompt_color"`
	ErrorColor   string `json:"error_color"`
	SuccessColor string `json:"success_color"`
	DiffAddColor string `json:"diff_add_color"`
	DiffDelColor string `json:"diff_del_color"`
	HunkColor    string `json:"hunk_color"`
}

// ColorScheme holds the printers built from a Theme.
type ColorScheme struct {
	Header  *color.Color
	Prompt  *color.Color
	Error   *color.Color
	Success *color.Color
	DiffAdd *color.Color
	DiffDel *color.Color
	Hunk    *color.Color
}

// DefaultTheme returns a theme with default values
func DefaultTheme() *Theme {
	return &Theme{
		HeaderColor:  "magenta bold",
		PromptColor:  "cyan",
		ErrorColor:   "red bold",
		SuccessColor: "green",
		DiffAddColor: "green",
		DiffDelColor: "red",
		HunkColor:    "cyan",
	}
}

// LoadTheme loads theme configuration from a JSON file. Missing fields keep
// their default value.
func LoadTheme(filepath string) (*Theme, error) {
	theme := DefaultTheme()

	if filepath == "" {
		return theme, nil
	}
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return theme, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, theme); err != nil {
		return nil, err
	}

	return theme, nil
}

// ToColorScheme converts the theme to color printers. Call ValidateTheme
// first; unknown attribute names are ignored here.
func (t *Theme) ToColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:  newColor(t.HeaderColor),
		Prompt:  newColor(t.PromptColor),
		Error:   newColor(t.ErrorColor),
		Success: newColor(t.SuccessColor),
		DiffAdd: newColor(t.DiffAddColor),
		DiffDel: newColor(t.DiffDelColor),
		Hunk:    newColor(t.HunkColor),
	}
}

// DisabledColorScheme returns a color scheme with all colors disabled (for NO_COLOR).
func DisabledColorScheme() *ColorScheme {
	plain := func() *color.Color {
		c := color.New()
		c.DisableColor()
		return c
	}
	return &ColorScheme{
		Header:  plain(),
		Prompt:  plain(),
		Error:   plain(),
		Success: plain(),
		DiffAdd: plain(),
		DiffDel: plain(),
		Hunk:    plain(),
	}
}

func newColor(value string) *color.Color {
	attrs := make([]color.Attribute, 0, 2)
	for _, name := range strings.Fields(value) {
		if attr, ok := attributes[strings.ToLower(name)]; ok {
			attrs = append(attrs, attr)
		}
	}
	return color.New(attrs...)
}

// ColorizeDiff paints the lines of a unified diff. Lines outside the diff
// body pass through unchanged.
func (s *ColorScheme) ColorizeDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			b.WriteString(s.Header.Sprint(body))
		case strings.HasPrefix(body, "@@"):
			b.WriteString(s.Hunk.Sprint(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(s.DiffAdd.Sprint(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(s.DiffDel.Sprint(body))
		default:
			b.WriteString(body)
		}
		b.WriteString(nl)
	}
	return b.String()
}
