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
	"sort"
)

// SchemaJSON returns the JSON schema for config.json.
func SchemaJSON() string {
	return configSchemaJSON
}

// ExampleConfigJSON returns a minimal example config derived from the schema.
func ExampleConfigJSON() string {
	return exampleConfigJSON
}

func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	migrateLegacyConfig(raw)
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// migrateLegacyConfig accepts the older "confirm"/"ask" tool lists and the
// "tool_path_whitelist" key as aliases.
func migrateLegacyConfig(raw map[string]interface{}) {
	if _, ok := raw["sandbox_roots"]; !ok {
		if legacy, ok := raw["tool_path_whitelist"]; ok {
			raw["sandbox_roots"] = legacy
			delete(raw, "tool_path_whitelist")
		}
	}

	toolsVal, ok := raw["tools"].(map[string]interface{})
	if !ok {
		return
	}
	if _, ok := toolsVal["require_confirmation"]; ok {
		return
	}
	for _, key := range []string{"confirm", "ask"} {
		if legacy, ok := toolsVal[key].([]interface{}); ok {
			toolsVal["require_confirmation"] = legacy
			delete(toolsVal, key)
			return
		}
	}
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"sandbox_roots": func(v interface{}) error { return validateStringArray(v, prefix+"sandbox_roots") },
		"workdir":       func(v interface{}) error { return validateString(v, prefix+"workdir") },
		"home":          func(v interface{}) error { return validateString(v, prefix+"home") },
		"backend": func(v interface{}) error {
			return validateBackendConfig(v, prefix+"backend.")
		},
		"history_file": func(v interface{}) error {
			return validateString(v, prefix+"history_file")
		},
		"theme_file": func(v interface{}) error {
			return validateString(v, prefix+"theme_file")
		},
		"tools": func(v interface{}) error {
			return validateToolsConfig(v, prefix+"tools.")
		},
		"tool_limits": func(v interface{}) error {
			return validateToolLimits(v, prefix+"tool_limits.")
		},
		"tool_rate_limits": func(v interface{}) error {
			return validateToolRateLimits(v, prefix+"tool_rate_limits.")
		},
		"tool_timeouts": func(v interface{}) error {
			return validateToolTimeouts(v, prefix+"tool_timeouts.")
		},
		"tool_output_filters": func(v interface{}) error {
			return validateToolOutputFilters(v, prefix+"tool_output_filters.")
		},
	}

	return validateSection(raw, allowed, prefix)
}

func validateBackendConfig(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%sbackend must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"kind":            func(v interface{}) error { return validateString(v, prefix+"kind") },
		"shell":           func(v interface{}) error { return validateString(v, prefix+"shell") },
		"timeout_seconds": func(v interface{}) error { return validateNumber(v, prefix+"timeout_seconds") },
		"ssh":             func(v interface{}) error { return validateSSHConfig(v, prefix+"ssh.") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSSHConfig(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%sssh must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"addr":                     func(v interface{}) error { return validateString(v, prefix+"addr") },
		"user":                     func(v interface{}) error { return validateString(v, prefix+"user") },
		"key_file":                 func(v interface{}) error { return validateString(v, prefix+"key_file") },
		"known_hosts":              func(v interface{}) error { return validateString(v, prefix+"known_hosts") },
		"insecure_ignore_host_key": func(v interface{}) error { return validateBool(v, prefix+"insecure_ignore_host_key") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolsConfig(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stools must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"allow":                func(v interface{}) error { return validateStringArray(v, prefix+"allow") },
		"deny":                 func(v interface{}) error { return validateStringArray(v, prefix+"deny") },
		"require_confirmation": func(v interface{}) error { return validateStringArray(v, prefix+"require_confirmation") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_limits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_file_size_bytes": func(v interface{}) error { return validateNumber(v, prefix+"max_file_size_bytes") },
		"max_batch_files":     func(v interface{}) error { return validateNumber(v, prefix+"max_batch_files") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolRateLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_rate_limits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"default_per_minute": func(v interface{}) error { return validateNumber(v, prefix+"default_per_minute") },
		"per_tool":           func(v interface{}) error { return validateStringNumberMap(v, prefix+"per_tool") },
		"cooldown_seconds":   func(v interface{}) error { return validateStringNumberMap(v, prefix+"cooldown_seconds") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolTimeouts(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_timeouts must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"default_seconds":  func(v interface{}) error { return validateNumber(v, prefix+"default_seconds") },
		"per_tool_seconds": func(v interface{}) error { return validateStringNumberMap(v, prefix+"per_tool_seconds") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolOutputFilters(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_output_filters must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_chars":     func(v interface{}) error { return validateNumber(v, prefix+"max_chars") },
		"strip_ansi":    func(v interface{}) error { return validateBool(v, prefix+"strip_ansi") },
		"strip_control": func(v interface{}) error { return validateBool(v, prefix+"strip_control") },
	}
	return validateSection(section, allowed, prefix)
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func validateBool(value interface{}, name string) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", name)
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}

func validateStringNumberMap(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object of number values", name)
	}
	for key, entry := range section {
		if _, ok := entry.(float64); !ok {
			return fmt.Errorf("%s.%s must be a number", name, key)
		}
	}
	return nil
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "shellfs Config",
  "type": "object",
  "required": ["sandbox_roots"],
  "properties": {
    "sandbox_roots": { "type": "array", "items": { "type": "string" }, "minItems": 1 },
    "workdir": { "type": "string" },
    "home": { "type": "string" },
    "history_file": { "type": "string" },
    "theme_file": { "type": "string" },
    "backend": {
      "type": "object",
      "properties": {
        "kind": { "type": "string", "enum": ["host", "ssh"] },
        "shell": { "type": "string" },
        "timeout_seconds": { "type": "number" },
        "ssh": {
          "type": "object",
          "properties": {
            "addr": { "type": "string" },
            "user": { "type": "string" },
            "key_file": { "type": "string" },
            "known_hosts": { "type": "string" },
            "insecure_ignore_host_key": { "type": "boolean" }
          }
        }
      }
    },
    "tools": {
      "type": "object",
      "properties": {
        "allow": { "type": "array", "items": { "type": "string" } },
        "deny": { "type": "array", "items": { "type": "string" } },
        "require_confirmation": { "type": "array", "items": { "type": "string" } }
      }
    },
    "tool_limits": {
      "type": "object",
      "properties": {
        "max_file_size_bytes": { "type": "number" },
        "max_batch_files": { "type": "number" }
      }
    },
    "tool_rate_limits": {
      "type": "object",
      "properties": {
        "default_per_minute": { "type": "number" },
        "per_tool": { "type": "object", "additionalProperties": { "type": "number" } },
        "cooldown_seconds": { "type": "object", "additionalProperties": { "type": "number" } }
      }
    },
    "tool_timeouts": {
      "type": "object",
      "properties": {
        "default_seconds": { "type": "number" },
        "per_tool_seconds": { "type": "object", "additionalProperties": { "type": "number" } }
      }
    },
    "tool_output_filters": {
      "type": "object",
      "properties": {
        "max_chars": { "type": "number" },
        "strip_ansi": { "type": "boolean" },
        "strip_control": { "type": "boolean" }
      }
    }
  }
}`

const exampleConfigJSON = `{
  "sandbox_roots": ["/srv/project"],
  "workdir": "/srv/project",
  "backend": {
    "kind": "ssh",
    "timeout_seconds": 30,
    "ssh": {
      "addr": "build-host:22",
      "user": "agent",
      "key_file": "~/.ssh/id_ed25519",
      "known_hosts": "~/.ssh/known_hosts"
    }
  },
  "tools": {
    "allow": ["read_file", "read_multiple_files", "edit_file", "write_file", "resolve_path"],
    "require_confirmation": ["write_file"]
  }
}`
