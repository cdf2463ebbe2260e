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

// Package sandbox turns caller-supplied paths into canonical paths proven to
// lie within a fixed set of root directories on the backend.
package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shellfs/internal/backend"
	apperrors "shellfs/internal/errors"
	"shellfs/internal/paths"
)

// DefaultParallelism bounds ResolveAll when no limit is given.
const DefaultParallelism = 8

// Options configures a Resolver.
type Options struct {
	// Home replaces a leading "~" in raw paths.
	Home string
	// Workdir anchors relative raw paths.
	Workdir string
	Logger  zerolog.Logger
}

// Resolver checks paths against Roots, consulting the backend for symlinks.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	backend backend.Backend
	roots   Roots
	home    string
	workdir string
	logger  zerolog.Logger
}

// NewResolver builds a resolver over roots. An empty workdir defaults to the
// first root.
func NewResolver(b backend.Backend, roots Roots, opts Options) *Resolver {
	workdir := opts.Workdir
	if workdir == "" {
		workdir = roots.First()
	}
	return &Resolver{
		backend: b,
		roots:   roots,
		home:    opts.Home,
		workdir: paths.Normalize(workdir),
		logger:  opts.Logger,
	}
}

// Roots returns the roots this resolver enforces.
func (r *Resolver) Roots() Roots {
	return r.roots
}

// Workdir returns the directory relative paths are anchored to.
func (r *Resolver) Workdir() string {
	return r.workdir
}

// Resolve returns the canonical form of raw. Existing targets resolve to their
// symlink-free real path; a missing target resolves to its normalized absolute
// path as long as its parent exists inside the sandbox.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	if err := paths.ValidatePathString(raw, 0); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidArgs, "invalid path", err)
	}

	start := time.Now()
	abs := paths.Absolute(paths.ExpandHome(raw, r.home), r.workdir)
	if !r.roots.Contains(abs) {
		r.logger.Debug().Str("path", raw).Str("normalized", abs).Msg("path outside sandbox")
		return "", accessDenied(abs)
	}

	canonical, err := r.backend.Realpath(ctx, abs)
	if err == nil {
		if !r.roots.Contains(canonical) {
			r.logger.Debug().Str("path", abs).Str("real", canonical).Msg("symlink target outside sandbox")
			return "", accessDenied(abs)
		}
		r.logger.Debug().Str("path", abs).Str("real", canonical).Dur("duration", time.Since(start)).Msg("resolved path")
		return canonical, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", apperrors.Wrap(apperrors.CodeBackend, "resolve interrupted", ctxErr)
	}

	parent := paths.Parent(abs)
	realParent, perr := r.backend.Realpath(ctx, parent)
	if perr != nil || !r.roots.Contains(realParent) {
		r.logger.Debug().Str("path", abs).Str("parent", parent).Err(perr).Msg("parent not resolvable in sandbox")
		return "", apperrors.Wrap(apperrors.CodeParentMissing,
			fmt.Sprintf("parent directory %s does not exist in the sandbox", parent), perr)
	}
	r.logger.Debug().Str("path", abs).Dur("duration", time.Since(start)).Msg("resolved new path")
	return abs, nil
}

func accessDenied(p string) error {
	return apperrors.New(apperrors.CodeAccessDenied, fmt.Sprintf("access denied: %s is outside the sandbox", p))
}

// Result is the outcome of resolving one path in a batch.
type Result struct {
	Input string
	Path  string
	Err   error
}

// ResolveAll resolves raws concurrently, at most limit at a time. Results keep
// the input order and every item fails or succeeds on its own.
func (r *Resolver) ResolveAll(ctx context.Context, raws []string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultParallelism
	}
	results := make([]Result, len(raws))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, raw := range raws {
		g.Go(func() error {
			results[i].Input = raw
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Path, results[i].Err = r.Resolve(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
