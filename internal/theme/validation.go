package theme

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	ErrInvalidColor = errors.New("invalid color attribute")
	ErrEmptyColor   = errors.New("color cannot be empty")
)

var attributes = map[string]color.Attribute{
	"black":      color.FgBlack,
	"red":        color.FgRed,
	"green":      color.FgGreen,
	"yellow":     color.FgYellow,
	"blue":       color.FgBlue,
	"magenta":    color.FgMagenta,
	"cyan":       color.FgCyan,
	"white":      color.FgWhite,
	"hi-black":   color.FgHiBlack,
	"hi-red":     color.FgHiRed,
	"hi-green":   color.FgHiGreen,
	"hi-yellow":  color.FgHiYellow,
	"hi-blue":    color.FgHiBlue,
	"hi-magenta": color.FgHiMagenta,
	"hi-cyan":    color.FgHiCyan,
	"hi-white":   color.FgHiWhite,
	"bold":       color.Bold,
	"faint":      color.Faint,
	"italic":     color.Italic,
	"underline":  color.Underline,
	"none":       color.Reset,
}

// ValidateTheme validates all theme color values.
func ValidateTheme(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme is nil")
	}

	fields := []struct {
		name  string
		value string
	}{
		{"header_color", t.HeaderColor},
		{"prompt_color", t.PromptColor},
		{"error_color", t.ErrorColor},
		{"success_color", t.SuccessColor},
		{"diff_add_color", t.DiffAddColor},
		{"diff_del_color", t.DiffDelColor},
		{"hunk_color", t.HunkColor},
	}

	for _, field := range fields {
		if err := ValidateColor(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	return nil
}

// ValidateColor validates a single color value.
func ValidateColor(value string) error {
	names := strings.Fields(value)
	if len(names) == 0 {
		return ErrEmptyColor
	}

	for _, name := range names {
		if _, ok := attributes[strings.ToLower(name)]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidColor, name)
		}
	}

	return nil
}
