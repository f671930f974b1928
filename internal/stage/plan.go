package stage

import (
	"context"
	"encoding/json"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/envelope"
	"github.com/tandemhq/tandem/internal/invoke"
	"github.com/tandemhq/tandem/pkg/models"
)

// planRequest is the instruction text sent to the architect agent.
const planRequest = "Plan stage: split to 30-90 min implementation chunks and add machine-readable acceptance criteria. " +
	"Return JSON with 'chunks' array where each chunk has: chunk_id, title, estimated_minutes (30-90), " +
	"role (architect|builder), depends_on (array), scope, files_affected (array), and acceptance_criteria " +
	"(array of {id, description, verify_command, verify_pattern, category})."

// Plan invokes the architect agent to produce an implementation plan
// and writes the plan artifact. When the agent returns no structured
// chunks, a deterministic decomposition is synthesized from the task's
// subtasks so the pipeline can proceed without the agent's cooperation.
//
// Exit codes: 0 when the plan is done, 2 when the task fails validation
// or the plan is blocked. Input and configuration errors return an
// error for the caller to report with exit code 1.
func Plan(ctx context.Context, inv *invoke.Invoker, cfg *config.Config, taskPath, workID, outPath string) (int, error) {
	task, errs, err := LoadTask(taskPath)
	if err != nil {
		return 1, err
	}
	if len(errs) > 0 {
		return 2, nil
	}
	if workID == "" {
		workID = task.TaskID
	}

	invocation, err := inv.Invoke(ctx, models.RoleArchitect, envelope.Request{
		WorkID:  workID,
		Phase:   "plan",
		Task:    &task,
		Request: planRequest,
	})
	if err != nil {
		return 1, err
	}
	planData := invocation.Decode().Result

	status := models.StatusBlocked
	if invocation.Succeeded() {
		status = models.StatusDone
	}

	chunks := BuildChunks(task, planData)
	planCriteria := criteriaFromResult(planData, task.AcceptanceCriteria)

	result := models.PlanResult{
		Status:                  status,
		ImplementationContract:  contractStrings(planCriteria),
		TestPlan:                testPlan(planData, cfg),
		OpenQuestions:           []string{},
		Chunks:                  chunks,
		MachineReadableCriteria: models.NormalizeCriteria(planCriteria, task.TaskID),
		CLIOutput:               invocation.Record(),
	}
	if status != models.StatusDone {
		result.OpenQuestions = append(result.OpenQuestions,
			"Plan phase failed. Fix acceptance criteria or task context before implementation.")
	}
	// An agent that ran for real but produced nothing parseable is a
	// blocker, not a success with an empty plan.
	if len(planData) == 0 && !invocation.Simulated() {
		result.OpenQuestions = append(result.OpenQuestions,
			"CLI output could not be parsed as structured JSON.")
		status = models.StatusBlocked
		result.Status = status
	}
	if len(chunks) == 0 {
		result.OpenQuestions = append(result.OpenQuestions,
			"No implementation chunks could be generated from the task subtasks.")
	}

	if err := WriteArtifact(outPath, models.OwnerArchitect, workID, result); err != nil {
		return 1, err
	}
	if status == models.StatusDone {
		return 0, nil
	}
	return 2, nil
}

// criteriaFromResult prefers acceptance criteria returned by the agent
// over the task's own, falling back to the task when the agent offered
// none or they could not be decoded.
func criteriaFromResult(planData map[string]any, taskCriteria []models.Criterion) []models.Criterion {
	raw, ok := planData["acceptance_criteria"].([]any)
	if !ok || len(raw) == 0 {
		return taskCriteria
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return taskCriteria
	}
	var criteria []models.Criterion
	if err := json.Unmarshal(encoded, &criteria); err != nil {
		return taskCriteria
	}
	return criteria
}

// contractStrings flattens criteria into the implementation contract:
// plain-string criteria verbatim, structured ones by description.
func contractStrings(criteria []models.Criterion) []string {
	contract := make([]string, 0, len(criteria))
	for _, c := range criteria {
		contract = append(contract, c.Text())
	}
	return contract
}

// testPlan takes the agent's test plan when present, else the
// configured verification commands.
func testPlan(planData map[string]any, cfg *config.Config) []string {
	if raw, ok := planData["test_plan"].([]any); ok {
		plan := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				plan = append(plan, s)
			}
		}
		return plan
	}
	return config.ParseVerifyCommands(cfg.Verify.Commands)
}
