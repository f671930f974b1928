package models

// Chunk bounds for plan-stage decomposition, in minutes. Every chunk's
// estimate is clamped into this range; subtasks estimated above the
// maximum are split into multiple chunks.
const (
	ChunkMinMinutes = 30
	ChunkMaxMinutes = 90
)

// Chunk is a plan-stage decomposition unit: a 30-90 minute bucket of
// work with its own slice of acceptance criteria. Chunks are either
// returned by the architect agent directly or synthesized from the
// task's subtasks.
type Chunk struct {
	// ChunkID identifies the chunk, {task_id}-C{NN} when synthesized.
	ChunkID string `json:"chunk_id"`
	// Title is the short description of the chunk.
	Title string `json:"title"`
	// EstimatedMinutes is the clamped effort estimate.
	EstimatedMinutes int `json:"estimated_minutes"`
	// Role is the agent role responsible for the chunk.
	Role Role `json:"role"`
	// DependsOn lists chunk or subtask IDs that must complete first.
	DependsOn []string `json:"depends_on"`
	// Scope describes what the chunk covers.
	Scope string `json:"scope"`
	// FilesAffected lists file globs the chunk touches.
	FilesAffected []string `json:"files_affected"`
	// AcceptanceCriteria is this chunk's machine-readable criteria subset.
	AcceptanceCriteria []Criterion `json:"acceptance_criteria"`
	// SourceSubtaskID names the subtask the chunk was synthesized from.
	SourceSubtaskID string `json:"source_subtask_id,omitempty"`
}

// ClampEstimate clamps a minute estimate into the chunk range.
func ClampEstimate(minutes int) int {
	if minutes < ChunkMinMinutes {
		return ChunkMinMinutes
	}
	if minutes > ChunkMaxMinutes {
		return ChunkMaxMinutes
	}
	return minutes
}
