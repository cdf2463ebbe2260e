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

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shellfs/internal/paths"
)

// Executor runs one command string on the target and captures its output.
type Executor interface {
	Execute(ctx context.Context, command string, stdin io.Reader) (stdout, stderr []byte, err error)
	Close() error
}

// ShellOptions tunes a Shell backend.
type ShellOptions struct {
	// Timeout bounds every executor call. Zero means no timeout.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Shell implements Backend by composing POSIX commands for an Executor.
type Shell struct {
	exec    Executor
	timeout time.Duration
	logger  zerolog.Logger
}

// NewShell wraps an executor in the Backend capability set.
func NewShell(exec Executor, opts ShellOptions) *Shell {
	return &Shell{
		exec:    exec,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// Close releases the underlying executor.
func (s *Shell) Close() error {
	return s.exec.Close()
}

func (s *Shell) execute(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, err := s.exec.Execute(ctx, command, stdin)
	s.logger.Debug().
		Str("command", command).
		Dur("duration", time.Since(start)).
		Int("stdout_bytes", len(stdout)).
		Err(err).
		Msg("Backend command")

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		diagnostic := strings.TrimSpace(string(stderr))
		if diagnostic == "" {
			diagnostic = strings.TrimSpace(string(stdout))
		}
		return nil, &CommandError{Command: command, Output: diagnostic, Err: err}
	}
	return stdout, nil
}

func exitedNonZero(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// Run executes command and returns its standard output.
func (s *Shell) Run(ctx context.Context, command string) (string, error) {
	out, err := s.execute(ctx, command, nil)
	if err != nil {
		return "", failure(err)
	}
	return string(out), nil
}

// Realpath resolves path with realpath -e, which fails for missing targets.
func (s *Shell) Realpath(ctx context.Context, path string) (string, error) {
	out, err := s.execute(ctx, "realpath -e -- "+Quote(path), nil)
	if err != nil {
		if ctx.Err() == nil && exitedNonZero(err) {
			return "", notExist(path, err)
		}
		return "", failure(err)
	}
	resolved := strings.TrimRight(string(out), "\r\n")
	if resolved == "" {
		return "", notExist(path, nil)
	}
	return resolved, nil
}

// Size returns the byte count reported by wc -c.
func (s *Shell) Size(ctx context.Context, path string) (int64, error) {
	out, err := s.execute(ctx, "wc -c < "+Quote(path), nil)
	if err != nil {
		return 0, failure(err)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, failure(fmt.Errorf("unexpected size output %q: %w", strings.TrimSpace(string(out)), err))
	}
	return size, nil
}

// ReadRange extracts a byte window with tail -c and head -c.
func (s *Shell) ReadRange(ctx context.Context, path string, start, length int64) ([]byte, error) {
	if start < 0 {
		return nil, failure(fmt.Errorf("negative range start %d", start))
	}
	if length <= 0 {
		return nil, nil
	}
	q := Quote(path)
	// tail | head exits 0 even when tail fails, so check readability first.
	command := fmt.Sprintf("[ -r %s ] || { echo %s: cannot read file >&2; exit 1; }; tail -c +%d -- %s | head -c %d",
		q, q, start+1, q, length)
	out, err := s.execute(ctx, command, nil)
	if err != nil {
		return nil, failure(err)
	}
	return out, nil
}

// ReadAll returns the complete content of path.
func (s *Shell) ReadAll(ctx context.Context, path string) ([]byte, error) {
	out, err := s.execute(ctx, "cat -- "+Quote(path), nil)
	if err != nil {
		return nil, failure(err)
	}
	return out, nil
}

// WriteAll streams data into a temporary sibling of path and renames it over
// path, so readers see either the old or the new content.
func (s *Shell) WriteAll(ctx context.Context, path string, data []byte) error {
	command := writeCommand(path, tempSibling(path))
	if _, err := s.execute(ctx, command, bytes.NewReader(data)); err != nil {
		return failure(err)
	}
	return nil
}

// Home reports $HOME as seen by the backend shell.
func (s *Shell) Home(ctx context.Context) (string, error) {
	out, err := s.execute(ctx, `printf '%s' "$HOME"`, nil)
	if err != nil {
		return "", failure(err)
	}
	return strings.TrimSpace(string(out)), nil
}

func tempSibling(path string) string {
	dir := paths.Parent(path)
	if dir == "/" {
		dir = ""
	}
	return fmt.Sprintf("%s/.%s.%s.tmp", dir, paths.Base(path), uuid.NewString())
}

func writeCommand(path, tmp string) string {
	p, t := Quote(path), Quote(tmp)
	return fmt.Sprintf("cat > %s && { [ ! -e %s ] || chmod --reference=%s %s 2>/dev/null || true; } && mv -f -- %s %s || { rm -f -- %s; exit 1; }",
		t, p, p, t, t, p, t)
}
