package models

import "strings"

// Role identifies which agent is responsible for a piece of work.
type Role string

const (
	// RoleArchitect is the planning/review agent (the "claude" owner).
	RoleArchitect Role = "architect"
	// RoleBuilder is the implementation agent (the "codex" owner).
	RoleBuilder Role = "builder"
)

// Owner names used by older task files. Roles are derived from these
// once, at split time, and never re-inferred downstream.
const (
	OwnerArchitect = "claude"
	OwnerBuilder   = "codex"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	return r == RoleArchitect || r == RoleBuilder
}

// Owner returns the legacy owner name for this role.
func (r Role) Owner() string {
	if r == RoleArchitect {
		return OwnerArchitect
	}
	return OwnerBuilder
}

// ResolveRole determines the role for a subtask. Priority:
//  1. the subtask's own role field, if it is exactly architect or builder
//  2. the legacy owner field: claude maps to architect, codex to builder
//  3. builder
func ResolveRole(role, owner string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleArchitect:
		return RoleArchitect
	case RoleBuilder:
		return RoleBuilder
	}
	switch owner {
	case OwnerArchitect:
		return RoleArchitect
	case OwnerBuilder:
		return RoleBuilder
	}
	return RoleBuilder
}
