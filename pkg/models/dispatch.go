package models

// DispatchEntry is one subtask's role/owner assignment in the dispatch
// manifest. The role is resolved once at split time; downstream stages
// never re-infer it.
type DispatchEntry struct {
	// SubtaskID identifies the subtask (or plan chunk) to dispatch.
	SubtaskID string `json:"subtask_id"`
	// Title is the short description.
	Title string `json:"title"`
	// Role is the agent role that will implement the subtask.
	Role Role `json:"role"`
	// Owner is the legacy owner name derived from the role.
	Owner string `json:"owner"`
	// Scope describes what the subtask covers.
	Scope string `json:"scope"`
	// EstimatedMinutes is the effort estimate.
	EstimatedMinutes int `json:"estimated_minutes"`
	// DependsOn lists IDs that must complete first.
	DependsOn []string `json:"depends_on"`
	// FilesAffected lists file globs the subtask touches.
	FilesAffected []string `json:"files_affected"`
	// AcceptanceCriteria is the criteria slice for this subtask.
	AcceptanceCriteria []Criterion `json:"acceptance_criteria"`
	// Notes carries annotations from the task author or planner.
	Notes []string `json:"notes"`
	// WorkID is the pipeline run this entry belongs to.
	WorkID string `json:"work_id"`
	// RiskLevel is inherited from the task.
	RiskLevel string `json:"risk_level"`
	// SourceSubtaskID names the original subtask for plan-chunk entries.
	SourceSubtaskID string `json:"source_subtask_id,omitempty"`
}

// MatrixEntry is the compact CI-matrix projection of a dispatch entry.
type MatrixEntry struct {
	// SubtaskID identifies the subtask.
	SubtaskID string `json:"subtask_id"`
	// Role is the assigned agent role.
	Role Role `json:"role"`
	// Owner is the legacy owner name.
	Owner string `json:"owner"`
	// EstimatedMinutes is the effort estimate.
	EstimatedMinutes int `json:"estimated_minutes"`
	// DependsOn lists IDs that must complete first.
	DependsOn []string `json:"depends_on"`
}

// DispatchFromPlan carries the plan fragments the split stage forwards
// to downstream consumers.
type DispatchFromPlan struct {
	// ImplementationContract lists the plan's contract statements.
	ImplementationContract []string `json:"implementation_contract"`
	// TestPlan lists the plan's verification commands.
	TestPlan []string `json:"test_plan"`
}

// DispatchManifest is the split stage's output: the ordered per-subtask
// role/owner assignments that drive both the subtask scheduler and the
// merge completeness check.
type DispatchManifest struct {
	// WorkID is the pipeline run this manifest belongs to.
	WorkID string `json:"work_id"`
	// Status is the manifest status (done on success).
	Status StageStatus `json:"status"`
	// PlanVersion tracks the plan revision.
	PlanVersion string `json:"plan_version"`
	// Subtasks is the ordered list of dispatch entries.
	Subtasks []DispatchEntry `json:"subtasks"`
	// DispatchFromPlan carries forwarded plan fragments.
	DispatchFromPlan DispatchFromPlan `json:"dispatch_from_plan"`
}

// SubtaskIDs returns the IDs of all dispatch entries in order.
func (m *DispatchManifest) SubtaskIDs() []string {
	ids := make([]string, 0, len(m.Subtasks))
	for _, st := range m.Subtasks {
		ids = append(ids, st.SubtaskID)
	}
	return ids
}

// Find returns the dispatch entry with the given subtask ID, or nil.
func (m *DispatchManifest) Find(subtaskID string) *DispatchEntry {
	for i := range m.Subtasks {
		if m.Subtasks[i].SubtaskID == subtaskID {
			return &m.Subtasks[i]
		}
	}
	return nil
}
