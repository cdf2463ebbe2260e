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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shellfs/internal/backend"
	"shellfs/internal/paths"
	"shellfs/internal/tools"
)

// Backend kinds.
const (
	BackendHost = "host"
	BackendSSH  = "ssh"
)

// Config represents the application configuration
type Config struct {
	SandboxRoots      []string          `json:"sandbox_roots"`
	Workdir           string            `json:"workdir,omitempty"`
	Home              string            `json:"home,omitempty"`
	Backend           BackendSettings   `json:"backend,omitempty"`
	Tools             ToolSettings      `json:"tools,omitempty"`
	ToolLimits        ToolLimits        `json:"tool_limits,omitempty"`
	ToolRateLimits    ToolRateLimits    `json:"tool_rate_limits,omitempty"`
	ToolTimeouts      ToolTimeouts      `json:"tool_timeouts,omitempty"`
	ToolOutputFilters ToolOutputFilters `json:"tool_output_filters,omitempty"`
	HistoryFile       string            `json:"history_file,omitempty"`
	ThemeFile         string            `json:"theme_file,omitempty"`
}

// BackendSettings selects and configures the command-execution surface.
type BackendSettings struct {
	Kind           string      `json:"kind,omitempty"`
	Shell          string      `json:"shell,omitempty"`
	TimeoutSeconds int         `json:"timeout_seconds,omitempty"`
	SSH            SSHSettings `json:"ssh,omitempty"`
}

// SSHSettings describes the remote target for the ssh backend.
type SSHSettings struct {
	Addr                  string `json:"addr,omitempty"`
	User                  string `json:"user,omitempty"`
	KeyFile               string `json:"key_file,omitempty"`
	KnownHosts            string `json:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool   `json:"insecure_ignore_host_key,omitempty"`
}

// ToolSettings describes tool allow/deny/confirmation lists.
type ToolSettings struct {
	Allow               []string `json:"allow,omitempty"`
	Deny                []string `json:"deny,omitempty"`
	RequireConfirmation []string `json:"require_confirmation,omitempty"`
}

// ToolLimits configures resource limits for tool execution.
type ToolLimits struct {
	MaxFileSizeBytes int64 `json:"max_file_size_bytes,omitempty"`
	MaxBatchFiles    int   `json:"max_batch_files,omitempty"`
}

// ToolRateLimits configures tool rate limits and cooldowns.
type ToolRateLimits struct {
	DefaultPerMinute int            `json:"default_per_minute,omitempty"`
	PerTool          map[string]int `json:"per_tool,omitempty"`
	CooldownSeconds  map[string]int `json:"cooldown_seconds,omitempty"`
}

// ToolTimeouts configures tool execution timeouts.
type ToolTimeouts struct {
	DefaultSeconds int            `json:"default_seconds,omitempty"`
	PerToolSeconds map[string]int `json:"per_tool_seconds,omitempty"`
}

// ToolOutputFilters configures output sanitization for tool results.
type ToolOutputFilters struct {
	MaxChars     int  `json:"max_chars,omitempty"`
	StripANSI    bool `json:"strip_ansi,omitempty"`
	StripControl bool `json:"strip_control,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	limits := tools.DefaultLimits()
	rateLimits := tools.DefaultRateLimitConfig()
	timeouts := tools.DefaultTimeoutConfig()
	filters := tools.DefaultOutputFilterConfig()

	perToolRate := make(map[string]int, len(rateLimits.PerTool))
	for name, rate := range rateLimits.PerTool {
		perToolRate[name] = rate
	}
	perToolTimeout := make(map[string]int, len(timeouts.PerTool))
	for name, timeout := range timeouts.PerTool {
		perToolTimeout[name] = int(timeout.Seconds())
	}

	return &Config{
		Backend: BackendSettings{Kind: BackendHost},
		ToolLimits: ToolLimits{
			MaxFileSizeBytes: limits.MaxFileSizeBytes,
			MaxBatchFiles:    limits.MaxBatchFiles,
		},
		ToolRateLimits: ToolRateLimits{
			DefaultPerMinute: rateLimits.DefaultPerMinute,
			PerTool:          perToolRate,
		},
		ToolTimeouts: ToolTimeouts{
			DefaultSeconds: int(timeouts.Default.Seconds()),
			PerToolSeconds: perToolTimeout,
		},
		ToolOutputFilters: ToolOutputFilters{
			MaxChars:     filters.MaxChars,
			StripANSI:    filters.StripANSI,
			StripControl: filters.StripControl,
		},
		HistoryFile: ".shellfs_history",
	}
}

// LoadConfig loads configuration from a JSON file, applies env overrides, and validates required fields.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, err
		}
	}

	// Env overrides (apply regardless of whether config file exists)
	if val := os.Getenv("SHELLFS_ROOTS"); val != "" {
		config.SandboxRoots = splitPathList(val)
	}
	if val := os.Getenv("SHELLFS_SSH_ADDR"); val != "" {
		config.Backend.SSH.Addr = val
		config.Backend.Kind = BackendSSH
	}
	if val := os.Getenv("SHELLFS_SSH_USER"); val != "" {
		config.Backend.SSH.User = val
	}

	if config.Backend.Kind == "" {
		config.Backend.Kind = BackendHost
	}

	// Validation
	if len(config.SandboxRoots) == 0 {
		return nil, fmt.Errorf("at least one sandbox root is required (set sandbox_roots in config.json or SHELLFS_ROOTS)")
	}
	for _, root := range config.SandboxRoots {
		if !paths.IsAbs(root) {
			return nil, fmt.Errorf("sandbox root %q must be an absolute path", root)
		}
	}
	switch config.Backend.Kind {
	case BackendHost:
	case BackendSSH:
		if config.Backend.SSH.Addr == "" || config.Backend.SSH.User == "" {
			return nil, fmt.Errorf("ssh backend requires backend.ssh.addr and backend.ssh.user (or SHELLFS_SSH_ADDR/SHELLFS_SSH_USER)")
		}
	default:
		return nil, fmt.Errorf("unknown backend kind %q (expected %q or %q)", config.Backend.Kind, BackendHost, BackendSSH)
	}

	return config, nil
}

func splitPathList(val string) []string {
	var roots []string
	for _, entry := range filepath.SplitList(val) {
		if entry = strings.TrimSpace(entry); entry != "" {
			roots = append(roots, entry)
		}
	}
	return roots
}

// BackendTimeout returns the per-command backend timeout, zero when unset.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SSHConfig converts the ssh settings for backend.NewSSHExecutor.
func (c *Config) SSHConfig() backend.SSHConfig {
	return backend.SSHConfig{
		Addr:                  c.Backend.SSH.Addr,
		User:                  c.Backend.SSH.User,
		KeyFile:               expandUser(c.Backend.SSH.KeyFile),
		KnownHostsFile:        expandUser(c.Backend.SSH.KnownHosts),
		InsecureIgnoreHostKey: c.Backend.SSH.InsecureIgnoreHostKey,
	}
}

// expandUser resolves a leading ~ in local file settings against the
// invoking user's home directory.
func expandUser(p string) string {
	if p == "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return paths.ExpandHome(p, home)
}

// ToolPolicy converts config settings into a tool policy.
func (c *Config) ToolPolicy() tools.Policy {
	return tools.PolicyFromLists(c.Tools.Allow, c.Tools.Deny, c.Tools.RequireConfirmation)
}

// ToolLimitsConfig returns tool limits for runtime enforcement.
func (c *Config) ToolLimitsConfig() tools.Limits {
	return tools.Limits{
		MaxFileSizeBytes: c.ToolLimits.MaxFileSizeBytes,
		MaxBatchFiles:    c.ToolLimits.MaxBatchFiles,
	}
}

// ToolRateLimitsConfig returns rate limiting configuration for tools.
func (c *Config) ToolRateLimitsConfig() tools.RateLimitConfig {
	cooldowns := make(map[string]time.Duration, len(c.ToolRateLimits.CooldownSeconds))
	for name, seconds := range c.ToolRateLimits.CooldownSeconds {
		if seconds <= 0 {
			continue
		}
		cooldowns[name] = time.Duration(seconds) * time.Second
	}
	perTool := make(map[string]int, len(c.ToolRateLimits.PerTool))
	for name, rate := range c.ToolRateLimits.PerTool {
		perTool[name] = rate
	}

	return tools.RateLimitConfig{
		DefaultPerMinute: c.ToolRateLimits.DefaultPerMinute,
		PerTool:          perTool,
		Cooldowns:        cooldowns,
	}
}

// ToolTimeoutsConfig returns timeout configuration for tools.
func (c *Config) ToolTimeoutsConfig() tools.TimeoutConfig {
	perTool := make(map[string]time.Duration, len(c.ToolTimeouts.PerToolSeconds))
	for name, seconds := range c.ToolTimeouts.PerToolSeconds {
		if seconds <= 0 {
			continue
		}
		perTool[name] = time.Duration(seconds) * time.Second
	}

	var defaultTimeout time.Duration
	if c.ToolTimeouts.DefaultSeconds > 0 {
		defaultTimeout = time.Duration(c.ToolTimeouts.DefaultSeconds) * time.Second
	}

	return tools.TimeoutConfig{
		Default: defaultTimeout,
		PerTool: perTool,
	}
}

// ToolOutputFiltersConfig returns output filter configuration for tools.
func (c *Config) ToolOutputFiltersConfig() tools.OutputFilterConfig {
	return tools.OutputFilterConfig{
		MaxChars:     c.ToolOutputFilters.MaxChars,
		StripANSI:    c.ToolOutputFilters.StripANSI,
		StripControl: c.ToolOutputFilters.StripControl,
	}
}

// ToolOptions bundles the registry options derived from the config.
func (c *Config) ToolOptions() tools.Options {
	return tools.Options{
		Policy:        c.ToolPolicy(),
		Limits:        c.ToolLimitsConfig(),
		Timeouts:      c.ToolTimeoutsConfig(),
		RateLimits:    c.ToolRateLimitsConfig(),
		OutputFilters: c.ToolOutputFiltersConfig(),
	}
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings
func (c *Config) Validate(registry *tools.Registry) []ValidationWarning {
	var warnings []ValidationWarning

	if c.Workdir != "" && paths.IsAbs(c.Workdir) && !paths.WithinAny(paths.Normalize(c.Workdir), c.SandboxRoots) {
		warnings = append(warnings, ValidationWarning{
			Field:   "workdir",
			Message: fmt.Sprintf("workdir %s is outside every sandbox root; relative paths will be denied", c.Workdir),
		})
	}

	if c.Backend.Kind == BackendSSH && c.Backend.SSH.InsecureIgnoreHostKey {
		warnings = append(warnings, ValidationWarning{
			Field:   "backend.ssh.insecure_ignore_host_key",
			Message: "host key checking is disabled",
		})
	}

	// Validate tool policy against registered tools
	if registry != nil {
		registeredTools := make(map[string]bool)
		for _, name := range registry.GetToolNames() {
			registeredTools[name] = true
		}

		lists := []struct {
			field string
			names []string
		}{
			{"tools.allow", c.Tools.Allow},
			{"tools.deny", c.Tools.Deny},
			{"tools.require_confirmation", c.Tools.RequireConfirmation},
		}
		for _, list := range lists {
			for _, toolName := range list.names {
				if !registeredTools[toolName] {
					warnings = append(warnings, ValidationWarning{
						Field:   list.field,
						Message: fmt.Sprintf("tool %q in %s list is not registered", toolName, strings.TrimPrefix(list.field, "tools.")),
					})
				}
			}
		}
	}

	if c.ToolLimits.MaxBatchFiles < 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "tool_limits.max_batch_files",
			Message: fmt.Sprintf("max_batch_files %d should be positive, using default", c.ToolLimits.MaxBatchFiles),
		})
	}

	return warnings
}
