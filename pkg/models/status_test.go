package models

import "testing"

func TestMergedStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []StageStatus
		want     StageStatus
	}{
		{"failed wins", []StageStatus{StatusDone, StatusFailed, StatusPassed}, StatusFailed},
		{"skipped counts as failed", []StageStatus{StatusDone, StatusSkipped}, StatusFailed},
		{"skipped beats blocked", []StageStatus{StatusBlocked, StatusSkipped}, StatusFailed},
		{"missing status counts as failed", []StageStatus{StatusDone, ""}, StatusFailed},
		{"blocked next", []StageStatus{StatusDone, StatusBlocked}, StatusBlocked},
		{"simulated maps to done", []StageStatus{StatusSimulated, StatusDone}, StatusDone},
		{"passed maps to done", []StageStatus{StatusPassed}, StatusDone},
		{"ready stays ready", []StageStatus{StatusReady, StatusReady}, StatusReady},
		{"all done", []StageStatus{StatusDone, StatusDone}, StatusDone},
		{"empty defaults to done", nil, StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergedStatus(tt.statuses); got != tt.want {
				t.Errorf("MergedStatus(%v) = %s, want %s", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		role  string
		owner string
		want  Role
	}{
		{"architect", "", RoleArchitect},
		{"builder", "", RoleBuilder},
		{"", "claude", RoleArchitect},
		{"", "codex", RoleBuilder},
		{"", "", RoleBuilder},
		{"reviewer", "claude", RoleArchitect},
		{"reviewer", "somebody", RoleBuilder},
	}
	for _, tt := range tests {
		if got := ResolveRole(tt.role, tt.owner); got != tt.want {
			t.Errorf("ResolveRole(%q, %q) = %s, want %s", tt.role, tt.owner, got, tt.want)
		}
	}
}

func TestRoleOwner(t *testing.T) {
	if got := RoleArchitect.Owner(); got != OwnerArchitect {
		t.Errorf("architect owner = %q, want %q", got, OwnerArchitect)
	}
	if got := RoleBuilder.Owner(); got != OwnerBuilder {
		t.Errorf("builder owner = %q, want %q", got, OwnerBuilder)
	}
}
