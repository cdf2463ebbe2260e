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

// Package patch applies ordered text edits to backend files with exact then
// whitespace-tolerant line matching, and reports the change as a unified diff.
//
// The engine reads, edits and writes a file in three separate backend calls.
// Two concurrent edits of the same path race: the later write wins.
package patch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shellfs/internal/backend"
	apperrors "shellfs/internal/errors"
)

const (
	// MaxEdits bounds the number of edits in one call.
	MaxEdits = 64
	// MaxEditBytes bounds the size of one oldText or newText.
	MaxEditBytes = 64 * 1024
)

// Edit replaces the first occurrence of OldText with NewText.
type Edit struct {
	OldText string `json:"oldText" jsonschema:"description=Text to search for (exact or whitespace-insensitive per line)"`
	NewText string `json:"newText" jsonschema:"description=Text to replace it with"`
}

// Outcome is the result of one ApplyEdits call.
type Outcome struct {
	// Content is the final LF-normalized text.
	Content string
	Diff    string
	// Applied reports whether Content was written back.
	Applied bool
	Modes   []Mode
}

// Fenced returns the diff wrapped in a code fence.
func (o Outcome) Fenced() string {
	return FenceDiff(o.Diff)
}

// Summary describes how many edits matched exactly and how many fuzzily.
func (o Outcome) Summary() string {
	exact, fuzzy := summarizeModes(o.Modes)
	return fmt.Sprintf("exact=%d fuzzy=%d", exact, fuzzy)
}

// MatchError names the edit that could not be located.
type MatchError struct {
	Index   int
	OldText string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("edit %d: could not find exact match for edit:\n%s", e.Index, e.OldText)
}

func noMatch(index int, oldText string) error {
	return apperrors.Wrap(apperrors.CodeNoMatch, "", &MatchError{Index: index, OldText: oldText})
}

// Options configures an Engine.
type Options struct {
	// MaxFileSize rejects files larger than this many bytes. Zero disables the check.
	MaxFileSize int64
	Logger      zerolog.Logger
}

// Engine applies edits to files on a backend.
type Engine struct {
	backend     backend.Backend
	maxFileSize int64
	logger      zerolog.Logger
}

// NewEngine returns an Engine over b.
func NewEngine(b backend.Backend, opts Options) *Engine {
	return &Engine{
		backend:     b,
		maxFileSize: opts.MaxFileSize,
		logger:      opts.Logger,
	}
}

// ValidateEdits rejects edit lists the engine will not attempt.
func ValidateEdits(edits []Edit) error {
	if len(edits) == 0 {
		return apperrors.New(apperrors.CodeInvalidArgs, "at least one edit is required")
	}
	if len(edits) > MaxEdits {
		return apperrors.New(apperrors.CodeInvalidArgs, fmt.Sprintf("too many edits (max %d)", MaxEdits))
	}
	for i, edit := range edits {
		if edit.OldText == "" {
			return apperrors.New(apperrors.CodeInvalidArgs, fmt.Sprintf("edit %d: oldText cannot be empty", i+1))
		}
		if len(edit.OldText) > MaxEditBytes || len(edit.NewText) > MaxEditBytes {
			return apperrors.New(apperrors.CodeInvalidArgs,
				fmt.Sprintf("edit %d exceeds maximum size of %d bytes", i+1, MaxEditBytes))
		}
	}
	return nil
}

// ApplyEdits applies edits to path in order and returns the resulting diff.
// Unless dryRun is set the new content replaces the file through the backend's
// atomic write. Any failure leaves the file untouched.
func (e *Engine) ApplyEdits(ctx context.Context, path string, edits []Edit, dryRun bool) (Outcome, error) {
	if err := ValidateEdits(edits); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	raw, err := e.backend.ReadAll(ctx, path)
	if err != nil {
		return Outcome{}, err
	}
	if e.maxFileSize > 0 && int64(len(raw)) > e.maxFileSize {
		return Outcome{}, apperrors.New(apperrors.CodeInvalidArgs,
			fmt.Sprintf("file exceeds maximum size of %d bytes", e.maxFileSize))
	}
	if !isText(raw) {
		return Outcome{}, apperrors.New(apperrors.CodeInvalidArgs, "file appears to be binary; only text files can be edited")
	}

	original := string(raw)
	crlf := usesCRLF(original)
	before := normalizeToLF(original)

	after, modes, err := Apply(before, edits)
	if err != nil {
		e.logger.Debug().Str("path", path).Int("edits", len(edits)).Err(err).Msg("Edit did not match")
		return Outcome{}, err
	}

	var diff string
	if after != before {
		diff, err = UnifiedDiff(path, before, after)
		if err != nil {
			return Outcome{}, apperrors.Wrap(apperrors.CodeToolExecution, "failed to compute diff", err)
		}
	}

	outcome := Outcome{Content: after, Diff: diff, Modes: modes}
	if !dryRun && after != before {
		if e.maxFileSize > 0 && int64(len(after)) > e.maxFileSize {
			return Outcome{}, apperrors.New(apperrors.CodeInvalidArgs,
				fmt.Sprintf("updated file exceeds maximum size of %d bytes", e.maxFileSize))
		}
		persisted := after
		if crlf {
			persisted = toCRLF(after)
		}
		if err := e.backend.WriteAll(ctx, path, []byte(persisted)); err != nil {
			return Outcome{}, err
		}
		outcome.Applied = true
	}

	e.logger.Debug().
		Str("path", path).
		Int("edits", len(edits)).
		Bool("dry_run", dryRun).
		Bool("applied", outcome.Applied).
		Str("modes", outcome.Summary()).
		Dur("duration", time.Since(start)).
		Msg("Applied edits")
	return outcome, nil
}
