package models

import "encoding/json"

// InvocationRecord captures one external agent invocation as embedded
// in stage artifacts. Stdout and stderr are capped before embedding.
type InvocationRecord struct {
	// Status is passed, failed, or simulated.
	Status StageStatus `json:"status"`
	// Command is the command line that was executed.
	Command string `json:"command"`
	// ReturnCode is the process exit code (-1 on timeout).
	ReturnCode int `json:"return_code"`
	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`
	// Stderr is the captured standard error.
	Stderr string `json:"stderr"`
	// Attempt is the 1-based attempt number that produced this record.
	Attempt int `json:"attempt,omitempty"`
	// ElapsedMS is the wall-clock duration of the attempt.
	ElapsedMS int64 `json:"elapsed_ms"`
	// PayloadChecksum is the sha256 of the payload sent to the agent.
	PayloadChecksum string `json:"payload_checksum,omitempty"`
}

// ValidationResult is the validate stage's artifact payload.
type ValidationResult struct {
	// WorkID is the pipeline run identifier.
	WorkID string `json:"work_id"`
	// Status is ready when the task passed validation, else blocked.
	Status StageStatus `json:"status"`
	// ValidationErrors lists every contract violation found.
	ValidationErrors []string `json:"validation_errors"`
	// Task is the normalized task.
	Task Task `json:"task"`
}

// PlanResult is the plan stage's artifact payload.
type PlanResult struct {
	// Status is done on success, blocked when the architect invocation
	// failed or its output could not be parsed.
	Status StageStatus `json:"status"`
	// ImplementationContract lists contract statements from the plan.
	ImplementationContract []string `json:"implementation_contract"`
	// TestPlan lists planned verification commands.
	TestPlan []string `json:"test_plan"`
	// OpenQuestions lists unresolved issues raised during planning.
	OpenQuestions []string `json:"open_questions"`
	// Chunks is the 30-90 minute decomposition of the task.
	Chunks []Chunk `json:"chunks"`
	// MachineReadableCriteria is the normalized task-level criteria.
	MachineReadableCriteria []Criterion `json:"machine_readable_criteria"`
	// CLIOutput records the architect invocation.
	CLIOutput *InvocationRecord `json:"cli_output,omitempty"`
}

// CommandResult records one executed shell command.
type CommandResult struct {
	// Command is the command line that was executed.
	Command string `json:"command"`
	// Status is passed or failed.
	Status StageStatus `json:"status"`
	// ReturnCode is the process exit code (-1 on timeout).
	ReturnCode int `json:"return_code"`
	// TimeMS is the wall-clock duration in milliseconds.
	TimeMS int64 `json:"time_ms"`
	// Stdout is the captured standard output, truncated.
	Stdout string `json:"stdout"`
	// Stderr is the captured standard error, truncated.
	Stderr string `json:"stderr"`
}

// ImplementResult is the per-subtask implement artifact payload.
type ImplementResult struct {
	// Status is done, failed, or blocked.
	Status StageStatus `json:"status"`
	// Subtask is the dispatch entry that was implemented.
	Subtask *DispatchEntry `json:"subtask"`
	// Role is the agent role that ran the subtask.
	Role Role `json:"role"`
	// FilesChanged lists files the agent reported changing.
	FilesChanged []string `json:"files_changed"`
	// CommandsExecuted records the agent invocation outcome.
	CommandsExecuted []CommandResult `json:"commands_executed"`
	// FailedTests carries failing test entries from the agent, verbatim.
	FailedTests []json.RawMessage `json:"failed_tests"`
	// Artifacts lists artifact paths the agent reported producing.
	Artifacts []string `json:"artifacts"`
	// CLIOutput records the agent invocation.
	CLIOutput *InvocationRecord `json:"cli_output,omitempty"`
	// OpenQuestions lists unresolved issues from this subtask.
	OpenQuestions []string `json:"open_questions"`
}

// MergeResult is the merged implement artifact payload.
type MergeResult struct {
	// Status is derived from the per-result statuses by MergedStatus,
	// forced to failed when dispatched subtasks are missing.
	Status StageStatus `json:"status"`
	// Count is the number of merged input results.
	Count int `json:"count"`
	// SubtaskResults concatenates every merged input payload.
	SubtaskResults []ImplementResult `json:"subtask_results"`
	// FilesChanged is the deduplicated, sorted union of changed files.
	FilesChanged []string `json:"files_changed"`
	// CommandsExecuted concatenates all executed commands.
	CommandsExecuted []CommandResult `json:"commands_executed"`
	// FailedTests concatenates all failing test entries.
	FailedTests []json.RawMessage `json:"failed_tests"`
	// Artifacts concatenates all reported artifact paths.
	Artifacts []string `json:"artifacts"`
	// OpenQuestions concatenates all open questions.
	OpenQuestions []string `json:"open_questions"`
	// ExpectedSubtasks lists the dispatch manifest's subtask IDs.
	ExpectedSubtasks []string `json:"expected_subtasks"`
	// MissingSubtasks lists dispatched IDs with no merged result.
	MissingSubtasks []string `json:"missing_subtasks"`
}

// VerifyResult is the verify stage's artifact payload.
type VerifyResult struct {
	// Platform is the host platform the commands ran on.
	Platform string `json:"platform"`
	// Status is passed only when every command exited zero.
	Status StageStatus `json:"status"`
	// Commands records every executed verification command.
	Commands []CommandResult `json:"commands"`
	// FailedTests is the subset of commands that failed.
	FailedTests []CommandResult `json:"failed_tests"`
	// Artifacts lists produced artifact paths (the JUnit XML sibling).
	Artifacts []string `json:"artifacts"`
	// OpenQuestions lists the failing commands, or the missing
	// configuration note when no commands could be resolved.
	OpenQuestions []string `json:"open_questions"`
}

// ReviewSummary is one reviewer's verdict inside the review artifact.
type ReviewSummary struct {
	// Status is the reviewer-facing verdict string.
	Status string `json:"status"`
	// Notes carries reviewer notes.
	Notes []string `json:"notes"`
}

// ReviewReferences records which artifacts the review consumed.
type ReviewReferences struct {
	// Plan is the plan artifact path.
	Plan string `json:"plan"`
	// Implement is the merged implement artifact path.
	Implement string `json:"implement"`
	// Verify lists the platforms of the consumed verify artifacts.
	Verify []string `json:"verify"`
}

// ReviewResult is the review stage's artifact payload: the quality gate.
type ReviewResult struct {
	// WorkID is the pipeline run identifier.
	WorkID string `json:"work_id"`
	// Status is ready_for_merge when the gate passes, else blocked.
	Status StageStatus `json:"status"`
	// ArchitectReview summarizes the planning-side verdict.
	ArchitectReview ReviewSummary `json:"architect_review"`
	// BuilderReview summarizes the implementation-side verdict.
	BuilderReview ReviewSummary `json:"builder_review"`
	// ActionRequired lists the gate violations that must be fixed.
	ActionRequired []string `json:"action_required"`
	// OpenQuestions aggregates open questions across plan, implement,
	// and verify, plus the action-required entries.
	OpenQuestions []string `json:"open_questions"`
	// GoNoGo is true when the merge is blocked.
	GoNoGo bool `json:"go_no_go"`
	// References records the consumed artifacts.
	References ReviewReferences `json:"references"`
}

// NextAction is one entry in the retrospective's next plan.
type NextAction struct {
	// Index is the 1-based position in the plan.
	Index int `json:"index"`
	// Type is rework or observe.
	Type string `json:"type"`
	// Title describes the action.
	Title string `json:"title"`
	// Owner is the legacy owner responsible (claude, codex, or both).
	Owner string `json:"owner"`
	// Priority is the action priority.
	Priority string `json:"priority"`
}

// RetrospectSummary aggregates counts for the retrospective.
type RetrospectSummary struct {
	// GoNoGo mirrors the review verdict.
	GoNoGo bool `json:"go_no_go"`
	// IssuesCount is the number of open questions at review time.
	IssuesCount int `json:"issues_count"`
	// NextActionCount is the number of planned follow-up actions.
	NextActionCount int `json:"next_action_count"`
}

// RetrospectEvidence links the retrospective back to its inputs.
type RetrospectEvidence struct {
	// ReviewReference is the review artifact path.
	ReviewReference string `json:"review_reference"`
	// Questions carries the review's open questions.
	Questions []string `json:"questions"`
}

// RetrospectResult is the retrospect stage's artifact payload.
type RetrospectResult struct {
	// WorkID is the pipeline run identifier.
	WorkID string `json:"work_id"`
	// Status is always ready.
	Status StageStatus `json:"status"`
	// Summary aggregates the review outcome.
	Summary RetrospectSummary `json:"summary"`
	// NextPlan lists the derived follow-up actions.
	NextPlan []NextAction `json:"next_plan"`
	// Evidence links back to the review artifact.
	Evidence RetrospectEvidence `json:"evidence"`
}

// StagePayload is the minimal view of any stage artifact: enough to
// drive the review gate and the resume planner without knowing the
// stage-specific payload shape.
type StagePayload struct {
	// Status is the stage status field.
	Status StageStatus `json:"status"`
	// Platform is set on verify artifacts.
	Platform string `json:"platform,omitempty"`
	// OpenQuestions lists the stage's unresolved issues.
	OpenQuestions []string `json:"open_questions,omitempty"`
}
