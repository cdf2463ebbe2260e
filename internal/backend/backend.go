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

// Package backend is the only way shellfs touches the target filesystem.
// Every operation is a round trip through a command-execution surface that the
// process does not own: a local shell, an SSH session, or an in-memory fake.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "shellfs/internal/errors"
)

// ErrNotExist reports that a path could not be resolved on the backend.
var ErrNotExist = errors.New("no such file or directory")

// Backend is the capability set the sandboxed core depends on.
type Backend interface {
	// Run executes a command string and returns its standard output.
	Run(ctx context.Context, command string) (string, error)
	// Realpath returns the symlink-free canonical form of path.
	Realpath(ctx context.Context, path string) (string, error)
	// Size returns the byte size of a regular file.
	Size(ctx context.Context, path string) (int64, error)
	// ReadRange returns up to length bytes starting at byte offset start.
	ReadRange(ctx context.Context, path string, start, length int64) ([]byte, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
	// WriteAll replaces the content of path. Implementations write to a
	// temporary sibling first so a failed write never truncates path.
	WriteAll(ctx context.Context, path string, data []byte) error
	// Home returns the backend user's home directory.
	Home(ctx context.Context) (string, error)
}

// ExitError is returned by executors when the command ran and exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// CommandError carries the diagnostic text of a failed backend command.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Output)
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func failure(err error) error {
	return apperrors.Wrap(apperrors.CodeBackend, "backend command failed", err)
}

func notExist(path string, cause error) error {
	if cause == nil || errors.Is(cause, ErrNotExist) {
		return apperrors.Wrap(apperrors.CodeBackend, fmt.Sprintf("cannot resolve %s", path), ErrNotExist)
	}
	return apperrors.Wrap(apperrors.CodeBackend, fmt.Sprintf("cannot resolve %s", path), fmt.Errorf("%w: %v", ErrNotExist, cause))
}

// IsNotExist reports whether err means the path does not exist on the backend.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// Quote single-quotes s for safe interpolation into a POSIX shell command.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
