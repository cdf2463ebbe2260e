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

package sandbox

import (
	"context"
	"fmt"

	"shellfs/internal/backend"
	"shellfs/internal/paths"
)

// Roots is the immutable, ordered set of directories operations may touch.
type Roots struct {
	dirs []string
}

// NewRoots normalizes and deduplicates dirs, keeping their order. Every root
// must be absolute and at least one is required.
func NewRoots(dirs []string) (Roots, error) {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := paths.ValidatePathString(dir, 0); err != nil {
			return Roots{}, fmt.Errorf("invalid sandbox root %q: %w", dir, err)
		}
		if !paths.IsAbs(dir) {
			return Roots{}, fmt.Errorf("sandbox root %q must be absolute", dir)
		}
		norm := paths.Normalize(dir)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	if len(out) == 0 {
		return Roots{}, fmt.Errorf("at least one sandbox root is required")
	}
	return Roots{dirs: out}, nil
}

// Canonical returns roots with every entry replaced by its real path on b, so
// that roots reached through symlinks still contain their resolved children.
func (r Roots) Canonical(ctx context.Context, b backend.Backend) (Roots, error) {
	canonical := make([]string, 0, len(r.dirs))
	for _, dir := range r.dirs {
		resolved, err := b.Realpath(ctx, dir)
		if err != nil {
			return Roots{}, fmt.Errorf("sandbox root %s: %w", dir, err)
		}
		canonical = append(canonical, resolved)
	}
	return NewRoots(canonical)
}

// Contains reports whether p lies within one of the roots, segment-wise.
func (r Roots) Contains(p string) bool {
	return paths.WithinAny(p, r.dirs)
}

// List returns a copy of the roots.
func (r Roots) List() []string {
	return append([]string(nil), r.dirs...)
}

// First returns the first root, or "/" for the zero value.
func (r Roots) First() string {
	if len(r.dirs) == 0 {
		return "/"
	}
	return r.dirs[0]
}

func (r Roots) String() string {
	return fmt.Sprint(r.dirs)
}
