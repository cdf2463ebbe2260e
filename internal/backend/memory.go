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
	"context"
	"fmt"
	"strings"
	"sync"

	"shellfs/internal/paths"
)

const maxSymlinkHops = 40

// Memory is an in-memory Backend with files, directories and symlinks.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	links map[string]string
	home  string

	// RunFunc, when set, answers Run calls.
	RunFunc func(command string) (string, error)
	// WriteErr, when set, makes every WriteAll fail without touching content.
	WriteErr error

	writes int
}

// NewMemory returns an empty filesystem containing only "/".
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
		links: make(map[string]string),
		home:  "/root",
	}
}

// SetHome changes the directory reported by Home.
func (m *Memory) SetHome(home string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.home = home
}

// AddDir creates dir and its parents.
func (m *Memory) AddDir(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(paths.Normalize(dir))
}

// AddFile creates a file and its parent directories.
func (m *Memory) AddFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = paths.Normalize(path)
	m.mkdirAll(paths.Parent(path))
	m.files[path] = append([]byte(nil), data...)
}

// AddSymlink makes link point at target. Relative targets resolve against the
// link's directory, as on a real filesystem.
func (m *Memory) AddSymlink(link, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link = paths.Normalize(link)
	m.mkdirAll(paths.Parent(link))
	m.links[link] = target
}

// File returns the stored content of path without following symlinks.
func (m *Memory) File(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[paths.Normalize(path)]
	return append([]byte(nil), data...), ok
}

// Writes counts successful WriteAll calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) mkdirAll(dir string) {
	for dir != "/" {
		m.dirs[dir] = true
		dir = paths.Parent(dir)
	}
}

func (m *Memory) exists(p string) bool {
	_, isFile := m.files[p]
	return isFile || m.dirs[p]
}

// resolve walks p segment by segment, expanding symlinks as it goes.
func (m *Memory) resolve(p string) (string, error) {
	segments := splitSegments(paths.Normalize(p))
	hops := 0
	current := "/"
	for i := 0; i < len(segments); i++ {
		next := joinPath(current, segments[i])
		if target, ok := m.links[next]; ok {
			hops++
			if hops > maxSymlinkHops {
				return "", fmt.Errorf("too many levels of symbolic links: %s", p)
			}
			if !paths.IsAbs(target) {
				target = joinPath(current, target)
			}
			rest := strings.Join(segments[i+1:], "/")
			segments = splitSegments(paths.Normalize(target + "/" + rest))
			current = "/"
			i = -1
			continue
		}
		if !m.exists(next) {
			return "", ErrNotExist
		}
		if _, isFile := m.files[next]; isFile && i < len(segments)-1 {
			return "", fmt.Errorf("not a directory: %s", next)
		}
		current = next
	}
	return current, nil
}

func (m *Memory) readFile(path string) ([]byte, error) {
	resolved, err := m.resolve(path)
	if err != nil {
		return nil, notExist(path, err)
	}
	data, ok := m.files[resolved]
	if !ok {
		return nil, failure(&CommandError{Command: "read " + path, Err: fmt.Errorf("is a directory")})
	}
	return data, nil
}

// Run delegates to RunFunc; without one every command fails.
func (m *Memory) Run(ctx context.Context, command string) (string, error) {
	if m.RunFunc == nil {
		return "", failure(&CommandError{Command: command, Err: fmt.Errorf("command execution not supported")})
	}
	out, err := m.RunFunc(command)
	if err != nil {
		return "", failure(&CommandError{Command: command, Err: err})
	}
	return out, nil
}

func (m *Memory) Realpath(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resolved, err := m.resolve(path)
	if err != nil {
		return "", notExist(path, err)
	}
	return resolved, nil
}

func (m *Memory) Size(ctx context.Context, path string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.readFile(path)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (m *Memory) ReadRange(ctx context.Context, path string, start, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.readFile(path)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, failure(fmt.Errorf("negative range start %d", start))
	}
	if start >= int64(len(data)) || length <= 0 {
		return nil, nil
	}
	end := start + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return append([]byte(nil), data[start:end]...), nil
}

func (m *Memory) ReadAll(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.readFile(path)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// WriteAll replaces path in one step. Like rename(2) over a symlink, the link
// itself is replaced by a regular file.
func (m *Memory) WriteAll(ctx context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return failure(&CommandError{Command: "write " + path, Err: m.WriteErr})
	}
	path = paths.Normalize(path)
	parent, err := m.resolve(paths.Parent(path))
	if err != nil || !m.dirs[parent] {
		return notExist(paths.Parent(path), err)
	}
	if m.dirs[path] {
		return failure(&CommandError{Command: "write " + path, Err: fmt.Errorf("is a directory")})
	}
	delete(m.links, path)
	m.files[joinPath(parent, paths.Base(path))] = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *Memory) Home(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.home, nil
}

func splitSegments(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func joinPath(dir, name string) string {
	return paths.Normalize(dir + "/" + name)
}
