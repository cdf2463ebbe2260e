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
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "shellfs/internal/errors"
)

// Default allow/confirm lists for the file tools.
var (
	DefaultAllowList   = []string{"read_file", "read_multiple_files", "edit_file", "write_file", "resolve_path"}
	DefaultConfirmList = []string{"write_file"}
)

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Function  string
	Result    string
	Error     error
	Truncated bool
}

// Permission describes the policy for a tool.
type Permission struct {
	Allowed             bool
	RequireConfirmation bool
}

// Policy configures which tools are allowed, denied and which require
// confirmation. A deny entry wins over an allow entry.
type Policy struct {
	Allowed             map[string]bool
	Denied              map[string]bool
	RequireConfirmation map[string]bool
}

// ExecuteOptions controls how tool execution is handled.
type ExecuteOptions struct {
	// Force bypasses confirmation requirements (use only after explicit user consent).
	// Denied tools stay blocked.
	Force bool
}

// Options configures a Registry.
type Options struct {
	Policy        Policy
	Limits        Limits
	Timeouts      TimeoutConfig
	RateLimits    RateLimitConfig
	OutputFilters OutputFilterConfig
	Logger        zerolog.Logger
	// Now overrides the clock used by rate limiting.
	Now func() time.Time
}

// DefaultOptions returns registry options with the default policy and limits.
func DefaultOptions() Options {
	return Options{
		Policy:        DefaultPolicy(),
		Limits:        DefaultLimits(),
		Timeouts:      DefaultTimeoutConfig(),
		RateLimits:    DefaultRateLimitConfig(),
		OutputFilters: DefaultOutputFilterConfig(),
		Logger:        zerolog.Nop(),
	}
}

// Registry holds all available tools with their implementations
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	permissions map[string]Permission
	limiters    map[string]*toolRateLimiter

	policy     Policy
	limits     Limits
	timeouts   TimeoutConfig
	rateLimits RateLimitConfig
	filters    OutputFilterConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewRegistry creates an empty tool registry configured by opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		tools:       make(map[string]Tool),
		permissions: make(map[string]Permission),
		limiters:    make(map[string]*toolRateLimiter),
		policy:      opts.Policy,
		limits:      normalizeLimits(opts.Limits),
		timeouts:    opts.Timeouts,
		rateLimits:  opts.RateLimits,
		filters:     normalizeOutputFilterConfig(opts.OutputFilters),
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Limits returns the registry's resource limits.
func (r *Registry) Limits() Limits {
	return r.limits
}

// RegisterTool adds a new tool with its implementation to the registry
func (r *Registry) RegisterTool(tool Tool) error {
	if !tool.CompatibleWith(HostAPIVersion) {
		return fmt.Errorf("%w: %s (version %s)", ErrIncompatibleTool, tool.Name(), tool.Version())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	r.tools[name] = tool
	r.permissions[name] = r.policy.permissionFor(name)
	rate, cooldown := r.rateLimits.limitFor(name)
	r.limiters[name] = newToolRateLimiter(rate, cooldown, r.now)
	return nil
}

func (p Policy) permissionFor(name string) Permission {
	allow := p.Allowed
	if allow == nil {
		allow = listToSet(DefaultAllowList)
	}
	confirm := p.RequireConfirmation
	if confirm == nil {
		confirm = listToSet(DefaultConfirmList)
	}
	return Permission{
		Allowed:             allow[name] && !p.Denied[name],
		RequireConfirmation: confirm[name],
	}
}

// DefaultPolicy returns the default allow/confirm policy.
func DefaultPolicy() Policy {
	return PolicyFromLists(DefaultAllowList, nil, DefaultConfirmList)
}

// PolicyFromLists builds a policy from allow/deny/confirmation lists. A nil
// allow or confirm list falls back to the defaults.
func PolicyFromLists(allow, deny, confirm []string) Policy {
	policy := Policy{Denied: listToSet(deny)}
	if allow != nil {
		policy.Allowed = listToSet(allow)
	}
	if confirm != nil {
		policy.RequireConfirmation = listToSet(confirm)
	}
	return policy
}

func listToSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// GetToolNames returns the sorted names of all registered tools.
func (r *Registry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAITools returns the registry as OpenAI tool definitions, sorted by name.
func (r *Registry) OpenAITools() []openai.Tool {
	names := r.GetToolNames()
	defs := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		tool, ok := r.getTool(name)
		if !ok {
			continue
		}
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the specified tool with given arguments.
func (r *Registry) Execute(ctx context.Context, function string, args map[string]interface{}) *ToolResult {
	return r.ExecuteWithOptions(ctx, function, args, ExecuteOptions{})
}

// ExecuteWithOptions runs the tool using the provided options.
func (r *Registry) ExecuteWithOptions(ctx context.Context, function string, args map[string]interface{}, opts ExecuteOptions) *ToolResult {
	result := &ToolResult{
		Function: function,
	}

	tool, exists := r.getTool(function)
	if !exists {
		result.Error = fmt.Errorf("%w: %s", ErrToolNotFound, function)
		result.Result = fmt.Sprintf("Error: Tool '%s' not found. Available tools: %v", function, r.GetToolNames())
		return result
	}

	perm := r.GetPermission(function)
	if !perm.Allowed {
		result.Error = NewPermissionError(function, ErrToolNotAllowed)
		result.Result = fmt.Sprintf("Tool '%s' is blocked by policy. Enable it to proceed.", function)
		return result
	}
	if perm.RequireConfirmation && !opts.Force {
		result.Error = NewPermissionError(function, ErrToolRequiresConfirmation)
		result.Result = fmt.Sprintf("Tool '%s' requires explicit approval before running.", function)
		return result
	}

	if err := r.getLimiter(function).Allow(); err != nil {
		result.Error = NewPermissionError(function, err)
		result.Result = FormatError(result.Error)
		return result
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := tool.Validate(args); err != nil {
		result.Error = invalidArgs(err)
		result.Result = FormatError(result.Error)
		return result
	}

	if timeout := r.timeouts.TimeoutForTool(function); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := tool.Execute(ctx, args)
	r.logger.Debug().
		Str("tool", function).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("Tool executed")
	if err != nil {
		if apperrors.CodeOf(err) == "" {
			err = NewToolExecutionError(function, "", err)
		}
		result.Error = err
		result.Result = FormatError(err)
		return result
	}

	if !tool.Raw() {
		output, result.Truncated = sanitizeToolOutput(output, r.filters)
	}
	result.Result = output
	return result
}

// ExecuteOpenAIToolCall executes an OpenAI tool call payload.
func (r *Registry) ExecuteOpenAIToolCall(ctx context.Context, call openai.ToolCall) *ToolResult {
	return r.ExecuteOpenAIToolCallWithOptions(ctx, call, ExecuteOptions{})
}

// ExecuteOpenAIToolCallWithOptions executes a tool call with execution options.
func (r *Registry) ExecuteOpenAIToolCallWithOptions(ctx context.Context, call openai.ToolCall, opts ExecuteOptions) *ToolResult {
	name := call.Function.Name
	if name == "" {
		err := invalidArgs(fmt.Errorf("tool call missing function name"))
		return &ToolResult{
			Function: "unknown_tool",
			Error:    err,
			Result:   FormatError(err),
		}
	}
	args := map[string]interface{}{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			err = invalidArgs(err)
			return &ToolResult{
				Function: name,
				Error:    err,
				Result:   FormatError(err),
			}
		}
	}
	return r.ExecuteWithOptions(ctx, name, args, opts)
}

// ToolMessage renders a result as the tool message answering call.
func ToolMessage(call openai.ToolCall, result *ToolResult) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    result.Result,
		Name:       result.Function,
		ToolCallID: call.ID,
	}
}

// AllowTool marks a tool as allowed and optionally keeps confirmation requirements.
func (r *Registry) AllowTool(name string, requireConfirmation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.policy.Denied[name] {
		return
	}
	perm := r.permissions[name]
	perm.Allowed = true
	perm.RequireConfirmation = requireConfirmation
	r.permissions[name] = perm
}

// SetRequireConfirmation toggles per-tool confirmation.
func (r *Registry) SetRequireConfirmation(name string, require bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.RequireConfirmation = require
	r.permissions[name] = perm
}

// GetPermission returns the current permission entry for a tool.
func (r *Registry) GetPermission(name string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if perm, ok := r.permissions[name]; ok {
		return perm
	}
	// Default for unknown tools: blocked and requires confirmation.
	return Permission{Allowed: false, RequireConfirmation: true}
}

// getTool safely retrieves a tool definition.
func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) getLimiter(name string) *toolRateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}
