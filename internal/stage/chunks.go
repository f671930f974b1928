package stage

import (
	"encoding/json"
	"fmt"

	"github.com/tandemhq/tandem/pkg/models"
)

// BuildChunks returns the 30-90 minute implementation chunks for a
// task. If the architect agent returned structured chunks they are
// used as-is; otherwise chunks are synthesized deterministically from
// the task's subtasks, splitting any subtask estimated above 90
// minutes into roughly equal parts.
//
// When a split subtask's acceptance criteria do not divide evenly, the
// last chunk absorbs the remainder; a chunk that would otherwise end
// up with no criteria falls back to the subtask's first criterion.
func BuildChunks(task models.Task, planData map[string]any) []models.Chunk {
	if chunks := chunksFromResult(planData); len(chunks) > 0 {
		return chunks
	}

	var chunks []models.Chunk
	chunkIndex := 0

	for _, subtask := range task.Subtasks {
		est := subtask.EstimatedMinutes
		if est == 0 {
			est = 60
		}
		if est < models.ChunkMinMinutes {
			est = models.ChunkMinMinutes
		}
		role := models.ResolveRole(subtask.Role, subtask.Owner)

		scopeID := subtask.SubtaskID
		if scopeID == "" {
			scopeID = "S00"
		}
		criteria := models.NormalizeCriteria(subtask.AcceptanceCriteria, scopeID)

		if est <= models.ChunkMaxMinutes {
			chunkIndex++
			chunks = append(chunks, models.Chunk{
				ChunkID:            fmt.Sprintf("%s-C%02d", task.TaskID, chunkIndex),
				Title:              orUntitled(subtask.Title),
				EstimatedMinutes:   est,
				Role:               role,
				DependsOn:          subtask.DependsOn,
				Scope:              fallback(subtask.Scope, task.Scope),
				FilesAffected:      subtask.FilesAffected,
				AcceptanceCriteria: criteria,
				SourceSubtaskID:    subtask.SubtaskID,
			})
			continue
		}

		numSplits := (est + models.ChunkMaxMinutes - 1) / models.ChunkMaxMinutes
		perChunk := est / numSplits
		criteriaPer := len(criteria) / numSplits
		if criteriaPer < 1 {
			criteriaPer = 1
		}
		for splitI := 0; splitI < numSplits; splitI++ {
			chunkIndex++

			start := splitI * criteriaPer
			end := start + criteriaPer
			if splitI == numSplits-1 {
				end = len(criteria)
			}
			split := sliceCriteria(criteria, start, end)

			depends := subtask.DependsOn
			if splitI > 0 {
				depends = []string{fmt.Sprintf("%s-C%02d", task.TaskID, chunkIndex-1)}
			}
			chunks = append(chunks, models.Chunk{
				ChunkID:            fmt.Sprintf("%s-C%02d", task.TaskID, chunkIndex),
				Title:              fmt.Sprintf("%s (part %d/%d)", orUntitled(subtask.Title), splitI+1, numSplits),
				EstimatedMinutes:   models.ClampEstimate(perChunk),
				Role:               role,
				DependsOn:          depends,
				Scope:              fallback(subtask.Scope, task.Scope),
				FilesAffected:      subtask.FilesAffected,
				AcceptanceCriteria: split,
				SourceSubtaskID:    subtask.SubtaskID,
			})
		}
	}

	return chunks
}

// chunksFromResult extracts structured chunks from an agent result.
func chunksFromResult(planData map[string]any) []models.Chunk {
	raw, ok := planData["chunks"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var chunks []models.Chunk
	if err := json.Unmarshal(encoded, &chunks); err != nil {
		return nil
	}
	return chunks
}

// sliceCriteria returns criteria[start:end] with bounds clamped,
// falling back to the first criterion when the slice would be empty.
func sliceCriteria(criteria []models.Criterion, start, end int) []models.Criterion {
	if start > len(criteria) {
		start = len(criteria)
	}
	if end > len(criteria) {
		end = len(criteria)
	}
	if start >= end {
		if len(criteria) == 0 {
			return nil
		}
		return criteria[:1]
	}
	return criteria[start:end]
}

func orUntitled(title string) string {
	if title == "" {
		return "untitled"
	}
	return title
}

func fallback(value, alt string) string {
	if value == "" {
		return alt
	}
	return value
}
