// Package envelope implements the JSON contract exchanged with external
// agent processes. The caller writes a Request to the agent's stdin and
// the agent answers with a single Envelope on stdout. Decoding is
// deliberately forgiving: a malformed envelope degrades the caller's
// stage to blocked, it never aborts the pipeline.
package envelope

import (
	"encoding/json"

	"github.com/tandemhq/tandem/pkg/models"
)

// Request is the payload written to an agent's standard input.
type Request struct {
	// WorkID is the pipeline run identifier.
	WorkID string `json:"work_id,omitempty"`
	// Phase names the pipeline stage issuing the request.
	Phase string `json:"phase,omitempty"`
	// TaskID identifies the task being worked on.
	TaskID string `json:"task_id,omitempty"`
	// Task is the full normalized task, when the stage supplies it.
	Task *models.Task `json:"task,omitempty"`
	// Subtask is the dispatch entry for implement-phase requests.
	Subtask *models.DispatchEntry `json:"subtask,omitempty"`
	// FullTask carries the whole task alongside a subtask request.
	FullTask *models.Task `json:"full_task,omitempty"`
	// Request is the instruction text for the agent.
	Request string `json:"request"`
}

// Envelope is the fixed schema wrapping an agent's stdout.
type Envelope struct {
	// Status is passed or failed.
	Status string `json:"status"`
	// ExitCode is the agent's reported exit code.
	ExitCode int `json:"exit_code"`
	// Stdout is the agent's inner output, often itself JSON.
	Stdout string `json:"stdout"`
	// Stderr is the agent's captured error output.
	Stderr string `json:"stderr"`
	// Result is the structured result object, if the agent provided one.
	Result map[string]any `json:"result"`
}

// Decoded is the outcome of parsing an agent's stdout.
type Decoded struct {
	// Envelope is the outer envelope; on parse failure it carries only
	// Status "failed".
	Envelope Envelope
	// Result is the structured result payload, empty when nothing
	// parseable was found.
	Result map[string]any
}

// Empty reports whether decoding produced no structured result.
func (d Decoded) Empty() bool {
	return len(d.Result) == 0
}

// Decode parses agent stdout into the envelope contract. Deviations
// from the contract (non-JSON text, a JSON array, missing keys) yield a
// failed envelope with an empty result rather than an error.
//
// When the outer object carries both "status" and "stdout" keys it is
// treated as a full envelope and its stdout is parsed again for a
// nested result object. A bare JSON object without those keys is
// treated as the result itself.
func Decode(stdout string) Decoded {
	failed := Decoded{Envelope: Envelope{Status: "failed"}, Result: map[string]any{}}
	if stdout == "" {
		return failed
	}

	var outer map[string]any
	if err := json.Unmarshal([]byte(stdout), &outer); err != nil {
		return failed
	}

	_, hasStatus := outer["status"]
	innerText, hasStdout := outer["stdout"].(string)
	if hasStatus && hasStdout {
		env := envelopeFromMap(outer)
		var inner map[string]any
		if err := json.Unmarshal([]byte(innerText), &inner); err == nil {
			if result, ok := inner["result"].(map[string]any); ok {
				return Decoded{Envelope: env, Result: result}
			}
			return Decoded{Envelope: env, Result: inner}
		}
		if result, ok := outer["result"].(map[string]any); ok {
			return Decoded{Envelope: env, Result: result}
		}
		return Decoded{Envelope: env, Result: map[string]any{}}
	}

	if result, ok := outer["result"].(map[string]any); ok {
		return Decoded{Envelope: envelopeFromMap(outer), Result: result}
	}
	return Decoded{Envelope: envelopeFromMap(outer), Result: outer}
}

// envelopeFromMap extracts the known envelope fields from a decoded
// object, ignoring anything extra.
func envelopeFromMap(m map[string]any) Envelope {
	env := Envelope{}
	if s, ok := m["status"].(string); ok {
		env.Status = s
	}
	if f, ok := m["exit_code"].(float64); ok {
		env.ExitCode = int(f)
	}
	if s, ok := m["stdout"].(string); ok {
		env.Stdout = s
	}
	if s, ok := m["stderr"].(string); ok {
		env.Stderr = s
	}
	if r, ok := m["result"].(map[string]any); ok {
		env.Result = r
	}
	return env
}
