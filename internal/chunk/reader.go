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

// Package chunk serves large backend files in bounded, line-aligned parts.
//
// Parts are computed independently from the file size. A part may end a few
// bytes past its nominal boundary and the next part recomputes its own start,
// so consecutive parts can overlap on a boundary line, and a short line that
// falls between a part's extended end and the next part's aligned start is not
// returned by either. Parts are for reading, not for reassembling a file.
package chunk

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shellfs/internal/backend"
	apperrors "shellfs/internal/errors"
)

const (
	// PartSize is the nominal number of bytes in one part.
	PartSize = 95_000
	// MaxBacktrack bounds how far a part boundary moves to reach a newline.
	MaxBacktrack = 300
)

// RangeError reports a part that starts at or beyond end of file.
type RangeError struct {
	Part int
	Size int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("part %d is out of range: file is %d bytes", e.Part, e.Size)
}

// Options overrides the part geometry. Zero values select the defaults.
type Options struct {
	PartSize     int64
	MaxBacktrack int64
	Logger       zerolog.Logger
}

// Reader reads parts of files through a backend.
type Reader struct {
	backend      backend.Backend
	partSize     int64
	maxBacktrack int64
	logger       zerolog.Logger
}

// NewReader returns a Reader over b.
func NewReader(b backend.Backend, opts Options) *Reader {
	r := &Reader{
		backend:      b,
		partSize:     opts.PartSize,
		maxBacktrack: opts.MaxBacktrack,
		logger:       opts.Logger,
	}
	if r.partSize <= 0 {
		r.partSize = PartSize
	}
	if r.maxBacktrack <= 0 {
		r.maxBacktrack = MaxBacktrack
	}
	return r
}

// PartSize returns the nominal part size in bytes.
func (r *Reader) PartSize() int64 {
	return r.partSize
}

// ReadPart returns part number part (1-based) of path. Part 1 is the first
// PartSize bytes verbatim. Later parts start just after the last newline in the
// MaxBacktrack bytes before their nominal start, and a full-size part is
// extended through the next newline found within MaxBacktrack bytes.
func (r *Reader) ReadPart(ctx context.Context, path string, part int) (string, error) {
	if part < 1 {
		return "", apperrors.New(apperrors.CodeInvalidArgs, fmt.Sprintf("part must be >= 1, got %d", part))
	}

	size, err := r.backend.Size(ctx, path)
	if err != nil {
		return "", err
	}

	nominal := int64(part-1) * r.partSize
	if nominal >= size {
		return "", apperrors.Wrap(apperrors.CodePartOutOfRange,
			fmt.Sprintf("part %d of %s does not exist", part, path), &RangeError{Part: part, Size: size})
	}

	if part == 1 {
		data, err := r.backend.ReadRange(ctx, path, 0, r.partSize)
		if err != nil {
			return "", err
		}
		r.logPart(path, part, size, 0, len(data))
		return string(data), nil
	}

	start, err := r.alignStart(ctx, path, nominal)
	if err != nil {
		return "", err
	}

	data, err := r.backend.ReadRange(ctx, path, start, r.partSize)
	if err != nil {
		return "", err
	}

	end := start + int64(len(data))
	if int64(len(data)) == r.partSize && end < size {
		tail, err := r.backend.ReadRange(ctx, path, end, r.maxBacktrack)
		if err != nil {
			return "", err
		}
		if idx := bytes.IndexByte(tail, '\n'); idx >= 0 {
			data = append(data, tail[:idx+1]...)
		}
	}

	r.logPart(path, part, size, start, len(data))
	return string(data), nil
}

// alignStart moves nominal forward to just past the closest preceding newline
// within the backtrack window, or leaves it unchanged when there is none.
func (r *Reader) alignStart(ctx context.Context, path string, nominal int64) (int64, error) {
	windowStart := nominal - r.maxBacktrack
	if windowStart < 0 {
		windowStart = 0
	}
	window, err := r.backend.ReadRange(ctx, path, windowStart, nominal-windowStart)
	if err != nil {
		return 0, err
	}
	if idx := bytes.LastIndexByte(window, '\n'); idx >= 0 {
		return windowStart + int64(idx) + 1, nil
	}
	return nominal, nil
}

func (r *Reader) logPart(path string, part int, size, start int64, n int) {
	r.logger.Debug().
		Str("path", path).
		Int("part", part).
		Int64("size", size).
		Int64("start", start).
		Int("bytes", n).
		Msg("Read part")
}
