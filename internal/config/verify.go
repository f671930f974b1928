package config

import (
	"encoding/json"
	"strings"
)

// ParseVerifyCommands parses a raw verification command list. The raw
// value may be a JSON array of strings, a semicolon-delimited string,
// or a newline-delimited string. Blank entries are dropped.
func ParseVerifyCommands(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var loaded []any
	if err := json.Unmarshal([]byte(raw), &loaded); err == nil {
		var commands []string
		for _, item := range loaded {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					commands = append(commands, s)
				}
			}
		}
		return commands
	}

	var commands []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, ";", "\n"), "\n") {
		if candidate := strings.TrimSpace(line); candidate != "" {
			commands = append(commands, candidate)
		}
	}
	return commands
}

// ResolveVerifyCommands resolves the verification command list by
// precedence: the explicit override, then the configured raw value
// (usually from the environment), then the configured default list.
// Returns nil when no source yields any command; the verify stage
// treats that as a hard failure, never as a skip.
func (c *Config) ResolveVerifyCommands(explicit string) []string {
	if cmds := ParseVerifyCommands(explicit); len(cmds) > 0 {
		return cmds
	}
	if cmds := ParseVerifyCommands(c.Verify.Commands); len(cmds) > 0 {
		return cmds
	}
	var cmds []string
	for _, c := range c.Verify.DefaultCommands {
		if c = strings.TrimSpace(c); c != "" {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
