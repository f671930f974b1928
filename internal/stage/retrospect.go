package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tandemhq/tandem/pkg/models"
)

// maxReworkItems caps how many action-required entries become rework
// actions in the next plan.
const maxReworkItems = 5

// Retrospect closes a pipeline run by turning the review verdict into
// a follow-up plan. It runs unconditionally (a blocked review produces
// rework actions, a clean one a routine observation), so every run
// ends with a retrospective on record.
//
// Exit codes: 0 on success, 1 when the review artifact is missing or
// unreadable (there is nothing to retrospect without a review).
func Retrospect(workID, reviewPath, outPath string) (int, error) {
	if _, err := os.Stat(reviewPath); err != nil {
		return 1, fmt.Errorf("review artifact required: %w", err)
	}
	var review models.ReviewResult
	if err := ReadArtifact(reviewPath, &review); err != nil {
		return 1, err
	}

	rework := review.ActionRequired
	if len(rework) > maxReworkItems {
		rework = rework[:maxReworkItems]
	}
	nextPlan := make([]models.NextAction, 0, len(rework))
	for i, item := range rework {
		owner := models.OwnerArchitect
		if strings.Contains(strings.ToLower(item), "implementation") {
			owner = models.OwnerBuilder
		}
		nextPlan = append(nextPlan, models.NextAction{
			Index:    i + 1,
			Type:     "rework",
			Title:    item,
			Owner:    owner,
			Priority: "high",
		})
	}
	if len(nextPlan) == 0 && len(review.OpenQuestions) == 0 {
		nextPlan = append(nextPlan, models.NextAction{
			Index:    1,
			Type:     "observe",
			Title:    "No critical issues; run routine quality tuning on next cycle.",
			Owner:    "both",
			Priority: "medium",
		})
	}

	payload := models.RetrospectResult{
		WorkID: workID,
		Status: models.StatusReady,
		Summary: models.RetrospectSummary{
			GoNoGo:          review.GoNoGo,
			IssuesCount:     len(review.OpenQuestions),
			NextActionCount: len(nextPlan),
		},
		NextPlan: nextPlan,
		Evidence: models.RetrospectEvidence{
			ReviewReference: filepath.ToSlash(reviewPath),
			Questions:       orEmpty(review.OpenQuestions),
		},
	}
	if err := WriteArtifact(outPath, "retrospect", workID, payload); err != nil {
		return 1, err
	}
	return 0, nil
}
