package stage

import (
	"fmt"
	"os"

	"github.com/tandemhq/tandem/pkg/models"
)

// Review is the quality gate: it consumes the plan, merged implement,
// and verify artifacts and decides go/no-go for the merge. The gate is
// strict by construction: it blocks exactly when any consumed stage
// is short of its success status or any open question survived the
// pipeline, so a clean review implies every question was resolved.
//
// Missing input artifacts count against the gate rather than being
// skipped. Exit codes: 0 when the gate passes, 2 when it blocks.
func Review(workID, planPath, implementPath string, verifyPaths []string, outPath string) (int, error) {
	plan := readStagePayload(planPath)
	implement := readStagePayload(implementPath)

	var verifies []models.StagePayload
	for _, path := range verifyPaths {
		if _, err := os.Stat(path); err == nil {
			verifies = append(verifies, readStagePayload(path))
		}
	}

	var actionRequired []string
	var verifyQuestions []string
	goNoGo := false

	if plan.Status != models.StatusDone {
		goNoGo = true
		actionRequired = append(actionRequired,
			fmt.Sprintf("Plan phase status is '%s', expected 'done'.", statusOrMissing(plan.Status)))
	}

	implementStatus := implement.Status
	if implementStatus == "" {
		implementStatus = models.StatusBlocked
	}
	if implementStatus != models.StatusDone {
		goNoGo = true
		actionRequired = append(actionRequired,
			fmt.Sprintf("Implementation status is '%s'.", implementStatus))
	}

	for _, verify := range verifies {
		if verify.Status != models.StatusPassed {
			goNoGo = true
			actionRequired = append(actionRequired,
				fmt.Sprintf("Verify status is '%s' on %s (expected 'passed').",
					statusOrMissing(verify.Status), platformOrUnknown(verify.Platform)))
		}
		verifyQuestions = append(verifyQuestions, verify.OpenQuestions...)
	}

	// An open question from any stage blocks the merge even when every
	// stage status looks clean.
	allQuestions := []string{}
	allQuestions = append(allQuestions, verifyQuestions...)
	allQuestions = append(allQuestions, actionRequired...)
	allQuestions = append(allQuestions, plan.OpenQuestions...)
	allQuestions = append(allQuestions, implement.OpenQuestions...)
	if len(allQuestions) > 0 && !goNoGo {
		goNoGo = true
		actionRequired = append(actionRequired,
			fmt.Sprintf("Unresolved open questions: %d item(s).", len(allQuestions)))
	}

	status := models.StatusReadyForMerge
	architect := models.ReviewSummary{Status: "approved", Notes: []string{}}
	if goNoGo {
		status = models.StatusBlocked
		architect.Status = "changes_required"
	}
	if len(actionRequired) > 0 {
		architect.Notes = []string{"Check action_required list in this report."}
	}
	builder := models.ReviewSummary{Status: "needs_revision", Notes: orEmpty(implement.OpenQuestions)}
	if implementStatus == models.StatusDone {
		builder.Status = "implemented"
	}

	verifyPlatforms := []string{}
	for _, verify := range verifies {
		verifyPlatforms = append(verifyPlatforms, platformOrUnknown(verify.Platform))
	}
	payload := models.ReviewResult{
		WorkID:          workID,
		Status:          status,
		ArchitectReview: architect,
		BuilderReview:   builder,
		ActionRequired:  orEmpty(actionRequired),
		OpenQuestions:   allQuestions,
		GoNoGo:          goNoGo,
		References: models.ReviewReferences{
			Plan:      planPath,
			Implement: implementPath,
			Verify:    verifyPlatforms,
		},
	}
	if err := WriteArtifact(outPath, "review", workID, payload); err != nil {
		return 1, err
	}
	if goNoGo {
		return 2, nil
	}
	return 0, nil
}

// readStagePayload reads the minimal status view of an artifact; a
// missing or unreadable file yields the zero payload, which the gate
// treats as a failure of that stage.
func readStagePayload(path string) models.StagePayload {
	var payload models.StagePayload
	if path == "" {
		return payload
	}
	if _, err := os.Stat(path); err != nil {
		return payload
	}
	if err := ReadArtifact(path, &payload); err != nil {
		return models.StagePayload{}
	}
	return payload
}

func statusOrMissing(s models.StageStatus) string {
	if s == "" {
		return "missing"
	}
	return string(s)
}

func platformOrUnknown(p string) string {
	if p == "" {
		return "unknown"
	}
	return p
}
