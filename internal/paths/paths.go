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

// Package paths implements lexical path handling for paths that live on the
// backend's filesystem. Nothing here touches the local disk: backend paths are
// always slash-separated POSIX paths regardless of the host platform.
package paths

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const homeMarker = "~"

// ValidatePathString rejects path strings that can never name a valid file.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	for _, r := range path {
		if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Me, r) {
			return fmt.Errorf("path contains unsupported unicode combining mark")
		}
	}
	if maxLen > 0 {
		if len(path) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
		if len(Normalize(path)) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
	}
	return nil
}

// IsAbs reports whether p is absolute once separators are normalized.
func IsAbs(p string) bool {
	return strings.HasPrefix(strings.ReplaceAll(p, `\`, "/"), "/")
}

// Normalize canonicalizes p lexically: backslashes become slashes, empty and
// "." segments are dropped and ".." collapses against the preceding segment.
// A relative path keeps leading ".." segments it cannot collapse; an absolute
// path never climbs above "/".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	abs := strings.HasPrefix(p, "/")

	segments := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if n := len(segments); n > 0 && segments[n-1] != ".." {
				segments = segments[:n-1]
				continue
			}
			if abs {
				continue
			}
			segments = append(segments, seg)
		default:
			segments = append(segments, seg)
		}
	}

	joined := strings.Join(segments, "/")
	if abs {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// ExpandHome replaces a leading "~" segment with home.
func ExpandHome(p, home string) string {
	if home == "" {
		return p
	}
	if p == homeMarker {
		return home
	}
	if strings.HasPrefix(p, homeMarker+"/") || strings.HasPrefix(p, homeMarker+`\`) {
		return strings.TrimSuffix(home, "/") + "/" + p[len(homeMarker)+1:]
	}
	return p
}

// Absolute anchors a relative p at workdir and normalizes the result.
func Absolute(p, workdir string) string {
	if IsAbs(p) {
		return Normalize(p)
	}
	return Normalize(workdir + "/" + p)
}

// Within reports whether path equals root or lies beneath it. The comparison
// is per segment, so "/data/app" contains "/data/app/x" but not "/data/app2".
func Within(path, root string) bool {
	path = Normalize(path)
	root = Normalize(root)
	if !IsAbs(path) || !IsAbs(root) {
		return false
	}
	if root == "/" {
		return true
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// WithinAny reports whether path lies within any of roots.
func WithinAny(path string, roots []string) bool {
	for _, root := range roots {
		if Within(path, root) {
			return true
		}
	}
	return false
}

// Parent returns the lexical parent directory of an absolute path.
func Parent(p string) string {
	p = Normalize(p)
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Base returns the last segment of p.
func Base(p string) string {
	p = Normalize(p)
	if p == "/" {
		return "/"
	}
	return p[strings.LastIndex(p, "/")+1:]
}
