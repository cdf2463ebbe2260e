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

package tools

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"shellfs/internal/backend"
	"shellfs/internal/chunk"
	apperrors "shellfs/internal/errors"
	"shellfs/internal/patch"
	"shellfs/internal/sandbox"
)

// FileCore bundles the sandboxed file services the file tools run on.
type FileCore struct {
	Backend  backend.Backend
	Resolver *sandbox.Resolver
	Reader   *chunk.Reader
	Engine   *patch.Engine
}

type readFileArgs struct {
	Path string `json:"path" jsonschema:"description=Path of the file to read" validate:"required"`
	Part *int   `json:"part,omitempty" jsonschema:"description=1-based part number for files larger than one part (default 1),minimum=1" validate:"omitempty,min=1"`
}

type readMultipleFilesArgs struct {
	Paths []string `json:"paths" jsonschema:"description=Paths of the files to read" validate:"required,min=1,dive,required"`
}

type editFileArgs struct {
	Path   string       `json:"path" jsonschema:"description=Path of the file to edit" validate:"required"`
	Edits  []patch.Edit `json:"edits" jsonschema:"description=Edits applied in order; each replaces the first match of oldText" validate:"required,min=1"`
	DryRun bool         `json:"dryRun,omitempty" jsonschema:"description=Preview the diff without writing the file"`
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"description=Path of the file to create or overwrite" validate:"required"`
	Content string `json:"content" jsonschema:"description=Full text content of the file"`
}

type resolvePathArgs struct {
	Path string `json:"path" jsonschema:"description=Path to resolve inside the sandbox" validate:"required"`
}

// RegisterFileTools registers the sandboxed file tools on r.
func RegisterFileTools(r *Registry, core FileCore) error {
	ft := &fileTools{core: core, limits: r.Limits()}
	defs := []*ToolDefinition{
		{
			NameValue: "read_file",
			DescriptionValue: fmt.Sprintf("Read a text file inside the sandbox. Files larger than %d bytes are returned in parts; "+
				"request further parts with the part parameter. Parts may repeat a few lines at their boundaries.", core.Reader.PartSize()),
			ParametersValue: mustSchemaParametersFor[readFileArgs](),
			ValidateFunc: ChainValidation(
				RequireStringArg("path", "missing or invalid 'path' parameter"),
				validateArgs[readFileArgs](),
			),
			ExecuteFunc:  ft.readFile,
			RawOutput:    true,
			VersionValue: HostAPIVersion,
		},
		{
			NameValue:        "read_multiple_files",
			DescriptionValue: "Read the first part of several files at once. A file that fails is reported inline and does not stop the others.",
			ParametersValue:  mustSchemaParametersFor[readMultipleFilesArgs](),
			ValidateFunc: ChainValidation(
				RequireNonEmptyArg("paths", "missing or invalid 'paths' parameter"),
				validateArgs[readMultipleFilesArgs](),
			),
			ExecuteFunc:  ft.readMultipleFiles,
			RawOutput:    true,
			VersionValue: HostAPIVersion,
		},
		{
			NameValue: "edit_file",
			DescriptionValue: "Apply line-based edits to a text file and return a git-style diff. Each oldText must match exactly " +
				"or line by line ignoring indentation. Use dryRun to preview.",
			ParametersValue: mustSchemaParametersFor[editFileArgs](),
			ValidateFunc: ChainValidation(
				RequireStringArg("path", "missing or invalid 'path' parameter"),
				RequireNonEmptyArg("edits", "missing or invalid 'edits' parameter"),
				validateArgs[editFileArgs](),
			),
			ExecuteFunc:  ft.editFile,
			RawOutput:    true,
			VersionValue: HostAPIVersion,
		},
		{
			NameValue:        "write_file",
			DescriptionValue: "Create a file or overwrite it completely. The parent directory must already exist inside the sandbox.",
			ParametersValue:  mustSchemaParametersFor[writeFileArgs](),
			ValidateFunc: ChainValidation(
				RequireStringArg("path", "missing or invalid 'path' parameter"),
				validateArgs[writeFileArgs](),
			),
			ExecuteFunc:  ft.writeFile,
			VersionValue: HostAPIVersion,
		},
		{
			NameValue:        "resolve_path",
			DescriptionValue: "Resolve a path to its canonical location inside the sandbox without reading it.",
			ParametersValue:  mustSchemaParametersFor[resolvePathArgs](),
			ValidateFunc:     validateArgs[resolvePathArgs](),
			ExecuteFunc:      ft.resolvePath,
			VersionValue:     HostAPIVersion,
		},
	}
	for _, def := range defs {
		if err := r.RegisterTool(def); err != nil {
			return err
		}
	}
	return nil
}

type fileTools struct {
	core   FileCore
	limits Limits
}

func (f *fileTools) readFile(ctx context.Context, args map[string]interface{}) (string, error) {
	in, err := unmarshalAndValidate[readFileArgs](args)
	if err != nil {
		return "", invalidArgs(err)
	}
	part := 1
	if in.Part != nil {
		part = *in.Part
	}
	resolved, err := f.core.Resolver.Resolve(ctx, in.Path)
	if err != nil {
		return "", err
	}
	return f.core.Reader.ReadPart(ctx, resolved, part)
}

func (f *fileTools) readMultipleFiles(ctx context.Context, args map[string]interface{}) (string, error) {
	in, err := unmarshalAndValidate[readMultipleFilesArgs](args)
	if err != nil {
		return "", invalidArgs(err)
	}
	if len(in.Paths) > f.limits.MaxBatchFiles {
		return "", apperrors.New(apperrors.CodeInvalidArgs,
			fmt.Sprintf("too many paths: %d (max %d)", len(in.Paths), f.limits.MaxBatchFiles))
	}

	resolved := f.core.Resolver.ResolveAll(ctx, in.Paths, sandbox.DefaultParallelism)
	sections := make([]string, len(resolved))

	var g errgroup.Group
	g.SetLimit(sandbox.DefaultParallelism)
	for i, res := range resolved {
		g.Go(func() error {
			if res.Err != nil {
				sections[i] = fmt.Sprintf("%s: %s", res.Input, FormatError(res.Err))
				return nil
			}
			content, err := f.core.Reader.ReadPart(ctx, res.Path, 1)
			if err != nil {
				sections[i] = fmt.Sprintf("%s: %s", res.Input, FormatError(err))
				return nil
			}
			sections[i] = fmt.Sprintf("%s:\n%s", res.Input, content)
			return nil
		})
	}
	_ = g.Wait()
	return strings.Join(sections, "\n---\n"), nil
}

func (f *fileTools) editFile(ctx context.Context, args map[string]interface{}) (string, error) {
	in, err := unmarshalAndValidate[editFileArgs](args)
	if err != nil {
		return "", invalidArgs(err)
	}
	resolved, err := f.core.Resolver.Resolve(ctx, in.Path)
	if err != nil {
		return "", err
	}
	outcome, err := f.core.Engine.ApplyEdits(ctx, resolved, in.Edits, in.DryRun)
	if err != nil {
		return "", err
	}
	return outcome.Fenced(), nil
}

func (f *fileTools) writeFile(ctx context.Context, args map[string]interface{}) (string, error) {
	in, err := unmarshalAndValidate[writeFileArgs](args)
	if err != nil {
		return "", invalidArgs(err)
	}
	if int64(len(in.Content)) > f.limits.MaxFileSizeBytes {
		return "", apperrors.New(apperrors.CodeInvalidArgs,
			fmt.Sprintf("content is %d bytes, limit is %d", len(in.Content), f.limits.MaxFileSizeBytes))
	}
	resolved, err := f.core.Resolver.Resolve(ctx, in.Path)
	if err != nil {
		return "", err
	}
	if err := f.core.Backend.WriteAll(ctx, resolved, []byte(in.Content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully wrote to %s", in.Path), nil
}

func (f *fileTools) resolvePath(ctx context.Context, args map[string]interface{}) (string, error) {
	in, err := unmarshalAndValidate[resolvePathArgs](args)
	if err != nil {
		return "", invalidArgs(err)
	}
	return f.core.Resolver.Resolve(ctx, in.Path)
}
