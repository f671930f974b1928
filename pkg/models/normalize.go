package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// validPlatforms are the accepted target platform values.
var validPlatforms = map[string]bool{
	"mac":     true,
	"windows": true,
	"both":    true,
}

// rawTask mirrors the task file shape with every field left undecoded,
// so a malformed field degrades to a validation error instead of
// failing the whole parse.
type rawTask struct {
	TaskID             json.RawMessage `json:"task_id"`
	Title              json.RawMessage `json:"title"`
	Scope              json.RawMessage `json:"scope"`
	RiskLevel          json.RawMessage `json:"risk_level"`
	Priority           json.RawMessage `json:"priority"`
	Platform           json.RawMessage `json:"platform"`
	AcceptanceCriteria json.RawMessage `json:"acceptance_criteria"`
	Subtasks           json.RawMessage `json:"subtasks"`
	PlanVersion        json.RawMessage `json:"plan_version"`
}

// NormalizeTask validates and normalizes a raw task document.
// It returns the normalized task together with the list of contract
// violations found. Violations do not abort normalization: every field
// is given a usable fallback so downstream stages can still consume the
// task, with the violations reported in the validation artifact.
//
// An error is returned only when the document is not a JSON object at
// all; that is an input error, not a validation failure.
func NormalizeTask(data []byte) (Task, []string, error) {
	var raw rawTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return Task{}, nil, fmt.Errorf("parse task document: %w", err)
	}

	var errs []string
	task := Task{}

	task.TaskID = decodeString(raw.TaskID)
	if strings.TrimSpace(task.TaskID) == "" {
		errs = append(errs, "missing task_id")
		task.TaskID = "task-unknown"
	}

	for _, field := range []struct {
		name  string
		raw   json.RawMessage
		value *string
	}{
		{"title", raw.Title, &task.Title},
		{"scope", raw.Scope, &task.Scope},
		{"risk_level", raw.RiskLevel, &task.RiskLevel},
		{"priority", raw.Priority, &task.Priority},
	} {
		*field.value = strings.TrimSpace(decodeString(field.raw))
		if *field.value == "" {
			errs = append(errs, "missing "+field.name)
			*field.value = "unknown"
		}
	}

	task.AcceptanceCriteria = decodeCriteria(raw.AcceptanceCriteria)
	if len(task.AcceptanceCriteria) == 0 {
		errs = append(errs, "acceptance_criteria must be a non-empty array")
	}

	task.Platform = normalizePlatforms(decodeStringList(raw.Platform))
	task.PlanVersion = decodeString(raw.PlanVersion)

	subtasks, subErrs := normalizeSubtasks(&task, raw.Subtasks)
	errs = append(errs, subErrs...)
	task.Subtasks = subtasks

	return task, errs, nil
}

// normalizeSubtasks expands the raw subtask list into full specs,
// inheriting missing fields from the task. A single object is tolerated
// (with a violation recorded), and an empty list synthesizes one subtask
// covering the whole task.
func normalizeSubtasks(task *Task, raw json.RawMessage) ([]SubtaskSpec, []string) {
	var errs []string
	var items []json.RawMessage

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			// A bare object is accepted as a one-element list.
			var obj map[string]json.RawMessage
			if json.Unmarshal(raw, &obj) == nil {
				errs = append(errs, "subtasks should be an array")
				items = []json.RawMessage{raw}
			}
		}
	}

	var subtasks []SubtaskSpec
	for index, item := range items {
		n := index + 1

		var title string
		if err := json.Unmarshal(item, &title); err == nil {
			subtasks = append(subtasks, SubtaskSpec{
				SubtaskID:          fmt.Sprintf("%s-S%02d", task.TaskID, n),
				Title:              title,
				Platform:           task.Platform,
				Scope:              task.Scope,
				AcceptanceCriteria: task.AcceptanceCriteria,
			})
			continue
		}

		var spec SubtaskSpec
		if err := json.Unmarshal(item, &spec); err != nil {
			errs = append(errs, fmt.Sprintf("subtask index=%d must be object or string", n))
			continue
		}

		if spec.SubtaskID == "" {
			spec.SubtaskID = fmt.Sprintf("%s-S%02d", task.TaskID, n)
		}
		spec.Title = strings.TrimSpace(spec.Title)
		if spec.Title == "" {
			spec.Title = strings.TrimSpace(task.Title)
		}
		if spec.Title == "" {
			spec.Title = "untitled"
		}
		if len(spec.Platform) == 0 {
			spec.Platform = task.Platform
		} else {
			spec.Platform = normalizePlatforms(spec.Platform)
		}
		spec.Scope = strings.TrimSpace(spec.Scope)
		if spec.Scope == "" {
			spec.Scope = strings.TrimSpace(task.Scope)
		}
		if spec.Scope == "" {
			spec.Scope = "implementation"
		}
		if spec.AcceptanceCriteria == nil {
			spec.AcceptanceCriteria = task.AcceptanceCriteria
		}
		subtasks = append(subtasks, spec)
	}

	if len(subtasks) == 0 {
		subtasks = append(subtasks, SubtaskSpec{
			SubtaskID:          task.TaskID + "-S01",
			Title:              orDefault(task.Title, "untitled"),
			Platform:           task.Platform,
			Scope:              orDefault(task.Scope, "implementation"),
			AcceptanceCriteria: task.AcceptanceCriteria,
		})
	}

	return subtasks, errs
}

// normalizePlatforms lowercases and filters platform values, falling
// back to ["both"] when nothing valid remains.
func normalizePlatforms(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if validPlatforms[v] {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"both"}
	}
	return out
}

// decodeString decodes a scalar JSON value into its string form.
// Numbers and booleans are stringified; everything else is "".
func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

// decodeStringList accepts a single string (optionally comma-separated)
// or a list of scalars.
func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if v := strings.TrimSpace(decodeString(item)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// decodeCriteria parses an acceptance criteria array; any non-array
// value yields nil, which normalization reports as a violation.
func decodeCriteria(raw json.RawMessage) []Criterion {
	if len(raw) == 0 {
		return nil
	}
	var criteria []Criterion
	if err := json.Unmarshal(raw, &criteria); err != nil {
		return nil
	}
	return criteria
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
