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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"shellfs/internal/backend"
	"shellfs/internal/chunk"
	"shellfs/internal/config"
	"shellfs/internal/patch"
	"shellfs/internal/paths"
	"shellfs/internal/sandbox"
	"shellfs/internal/tools"
)

// app wires the configured backend to the tool registry.
type app struct {
	backend  backend.Backend
	resolver *sandbox.Resolver
	registry *tools.Registry
	logger   zerolog.Logger
	closer   io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	var exec backend.Executor
	switch cfg.Backend.Kind {
	case config.BackendSSH:
		sshExec, err := backend.NewSSHExecutor(cfg.SSHConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Backend.SSH.Addr, err)
		}
		exec = sshExec
		logger.Info().Str("addr", cfg.Backend.SSH.Addr).Str("user", cfg.Backend.SSH.User).Msg("Using ssh backend")
	default:
		exec = backend.NewHostExecutor(cfg.Backend.Shell, "")
		logger.Info().Msg("Using host backend")
	}

	shell := backend.NewShell(exec, backend.ShellOptions{
		Timeout: cfg.BackendTimeout(),
		Logger:  logger.With().Str("component", "backend").Logger(),
	})

	a, err := buildApp(ctx, cfg, shell, logger)
	if err != nil {
		shell.Close()
		return nil, err
	}
	a.closer = shell
	return a, nil
}

// buildApp assembles the sandboxed core over an existing backend.
func buildApp(ctx context.Context, cfg *config.Config, b backend.Backend, logger zerolog.Logger) (*app, error) {
	home := cfg.Home
	if home == "" {
		h, err := b.Home(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Could not determine backend home directory")
		}
		home = h
	}

	roots, err := sandbox.NewRoots(cfg.SandboxRoots)
	if err != nil {
		return nil, err
	}
	roots, err = roots.Canonical(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox roots: %w", err)
	}

	workdir := cfg.Workdir
	if workdir != "" {
		workdir = paths.ExpandHome(workdir, home)
	}

	resolver := sandbox.NewResolver(b, roots, sandbox.Options{
		Home:    home,
		Workdir: workdir,
		Logger:  logger.With().Str("component", "sandbox").Logger(),
	})
	reader := chunk.NewReader(b, chunk.Options{
		Logger: logger.With().Str("component", "chunk").Logger(),
	})
	engine := patch.NewEngine(b, patch.Options{
		MaxFileSize: cfg.ToolLimitsConfig().MaxFileSizeBytes,
		Logger:      logger.With().Str("component", "patch").Logger(),
	})

	opts := cfg.ToolOptions()
	opts.Logger = logger.With().Str("component", "tools").Logger()
	registry := tools.NewRegistry(opts)
	if err := tools.RegisterFileTools(registry, tools.FileCore{
		Backend:  b,
		Resolver: resolver,
		Reader:   reader,
		Engine:   engine,
	}); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	for _, w := range cfg.Validate(registry) {
		logger.Warn().Str("field", w.Field).Msg(w.Message)
	}
	logger.Info().Str("roots", roots.String()).Str("home", home).Msg("Sandbox ready")

	return &app{
		backend:  b,
		resolver: resolver,
		registry: registry,
		logger:   logger,
	}, nil
}

// Close releases the backend connection.
func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func writeToolSchemas(w io.Writer, registry *tools.Registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(registry.OpenAITools())
}
