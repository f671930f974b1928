// Package models defines the task contract, dispatch manifest, and
// stage artifact payload types shared across the pipeline.
package models

// Task is the unit of work driven through the pipeline. A Task is only
// used in its normalized form: NormalizeTask fills defaults, expands
// string subtasks into full specs, and reports contract violations.
type Task struct {
	// TaskID is the unique identifier for this task.
	TaskID string `json:"task_id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Scope describes what the task covers.
	Scope string `json:"scope"`
	// RiskLevel classifies the risk of the change (low, medium, high).
	RiskLevel string `json:"risk_level"`
	// Priority is the scheduling priority of the task.
	Priority string `json:"priority"`
	// Platform lists the target platforms (mac, windows, both).
	Platform []string `json:"platform"`
	// AcceptanceCriteria defines completion criteria for the whole task.
	AcceptanceCriteria []Criterion `json:"acceptance_criteria"`
	// Subtasks is the ordered list of subtask specs.
	Subtasks []SubtaskSpec `json:"subtasks"`
	// PlanVersion tracks the plan revision this task was written against.
	PlanVersion string `json:"plan_version,omitempty"`
}

// SubtaskSpec describes one dispatchable piece of a Task.
type SubtaskSpec struct {
	// SubtaskID is the subtask identifier, auto-derived as
	// {task_id}-S{NN} when the task file omits it.
	SubtaskID string `json:"subtask_id"`
	// Title is the short description of the subtask.
	Title string `json:"title"`
	// Role optionally pins the subtask to architect or builder.
	Role string `json:"role,omitempty"`
	// Owner is the legacy owner field (claude or codex).
	Owner string `json:"owner,omitempty"`
	// Platform lists the target platforms for this subtask.
	Platform []string `json:"platform"`
	// Scope describes what the subtask covers.
	Scope string `json:"scope"`
	// EstimatedMinutes is the effort estimate; zero means unspecified.
	EstimatedMinutes int `json:"estimated_minutes,omitempty"`
	// DependsOn lists subtask IDs that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`
	// FilesAffected lists file globs this subtask touches.
	FilesAffected []string `json:"files_affected,omitempty"`
	// AcceptanceCriteria defines completion criteria for this subtask.
	AcceptanceCriteria []Criterion `json:"acceptance_criteria"`
	// Notes carries free-form annotations from the task author.
	Notes []string `json:"notes,omitempty"`
}

// FindSubtask returns the subtask with the given ID, or nil.
func (t *Task) FindSubtask(subtaskID string) *SubtaskSpec {
	for i := range t.Subtasks {
		if t.Subtasks[i].SubtaskID == subtaskID {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// SubtaskIDs returns the IDs of all subtasks in order.
func (t *Task) SubtaskIDs() []string {
	ids := make([]string, 0, len(t.Subtasks))
	for _, st := range t.Subtasks {
		ids = append(ids, st.SubtaskID)
	}
	return ids
}
