package theme

import (
	"testing"
)

func TestValidateColor(t *testing.T) {
	tests := []struct {
		name    string
		color   string
		wantErr bool
	}{
		{"single color", "red", false},
		{"uppercase", "GREEN", false},
		{"with modifier", "cyan bold", false},
		{"bright color", "hi-magenta underline", false},
		{"extra spaces", "  blue   faint ", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"hex value", "#abcdef", true},
		{"unknown modifier", "red blink-fast", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColor(tt.color)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColor(%q) error = %v, wantErr %v", tt.color, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTheme(t *testing.T) {
	t.Run("valid theme", func(t *testing.T) {
		if err := ValidateTheme(DefaultTheme()); err != nil {
			t.Errorf("ValidateTheme() with default theme should not error: %v", err)
		}
	})

	t.Run("nil theme", func(t *testing.T) {
		if err := ValidateTheme(nil); err == nil {
			t.Error("ValidateTheme(nil) should error")
		}
	})

	t.Run("invalid color in theme", func(t *testing.T) {
		theme := DefaultTheme()
		theme.DiffAddColor = "invalid"
		if err := ValidateTheme(theme); err == nil {
			t.Error("ValidateTheme() with invalid color should error")
		}
	})

	t.Run("empty color in theme", func(t *testing.T) {
		theme := DefaultTheme()
		theme.HunkColor = ""
		if err := ValidateTheme(theme); err == nil {
			t.Error("ValidateTheme() with empty color should error")
		}
	})
}
