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
	"io"
	"os/exec"
)

const defaultShell = "sh"

// HostExecutor runs commands through a local shell.
type HostExecutor struct {
	// Shell is the interpreter invoked as "<shell> -c <command>".
	Shell string
	// Dir is the working directory for commands; empty inherits the process cwd.
	Dir string
}

// NewHostExecutor returns an executor for the given shell, defaulting to sh.
func NewHostExecutor(shell, dir string) *HostExecutor {
	if shell == "" {
		shell = defaultShell
	}
	return &HostExecutor{Shell: shell, Dir: dir}
}

// Execute runs command and waits for it. On cancellation the whole process
// group is killed so pipelines do not outlive the call.
func (h *HostExecutor) Execute(ctx context.Context, command string, stdin io.Reader) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, h.Shell, "-c", command)
	cmd.Dir = h.Dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcessGroup(cmd)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.Bytes(), stderr.Bytes(), &ExitError{Code: exitErr.ExitCode()}
		}
		return stdout.Bytes(), stderr.Bytes(), err
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// Close is a no-op for host execution.
func (h *HostExecutor) Close() error {
	return nil
}
