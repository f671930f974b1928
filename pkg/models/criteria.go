package models

import (
	"encoding/json"
	"fmt"
)

// Criterion is a single acceptance criterion. Task files may list
// criteria either as plain strings or as structured objects with a
// verification command. A plain-string criterion keeps its original
// shape when marshalled back, so normalizing a task twice produces
// byte-identical output.
type Criterion struct {
	// Raw holds the original text for plain-string criteria.
	Raw string `json:"-"`
	// ID is the criterion identifier (structured form only).
	ID string `json:"id,omitempty"`
	// Description is the human-readable requirement.
	Description string `json:"description,omitempty"`
	// VerifyCommand is the shell command that checks the criterion.
	VerifyCommand string `json:"verify_command,omitempty"`
	// VerifyPattern optionally matches against the command output.
	VerifyPattern string `json:"verify_pattern,omitempty"`
	// Category classifies the criterion (functional, performance, ...).
	Category string `json:"category,omitempty"`
}

// Structured reports whether the criterion carries machine-readable
// verification fields rather than a bare description string.
func (c Criterion) Structured() bool {
	return c.Raw == ""
}

// Text returns the human-readable form of the criterion.
func (c Criterion) Text() string {
	if c.Raw != "" {
		return c.Raw
	}
	return c.Description
}

// UnmarshalJSON accepts either a plain string or a structured object.
// Object keys accepted for the command are "verification" (task contract
// form) and "verify_command"; "type" is an alias for "category".
func (c *Criterion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Criterion{Raw: s}
		return nil
	}
	var obj struct {
		ID            string `json:"id"`
		Description   string `json:"description"`
		Verification  string `json:"verification"`
		VerifyCommand string `json:"verify_command"`
		VerifyPattern string `json:"verify_pattern"`
		Category      string `json:"category"`
		Type          string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Scalar values (numbers, booleans) degrade to their text form
		// rather than failing the surrounding task parse.
		var scalar any
		if err := json.Unmarshal(data, &scalar); err != nil {
			return fmt.Errorf("criterion must be string or object: %w", err)
		}
		*c = Criterion{Raw: fmt.Sprintf("%v", scalar)}
		return nil
	}
	command := obj.Verification
	if command == "" {
		command = obj.VerifyCommand
	}
	category := obj.Category
	if category == "" {
		category = obj.Type
	}
	*c = Criterion{
		ID:            obj.ID,
		Description:   obj.Description,
		VerifyCommand: command,
		VerifyPattern: obj.VerifyPattern,
		Category:      category,
	}
	return nil
}

// MarshalJSON writes plain-string criteria back as strings and
// structured criteria as objects.
func (c Criterion) MarshalJSON() ([]byte, error) {
	if c.Raw != "" {
		return json.Marshal(c.Raw)
	}
	type alias Criterion
	return json.Marshal(alias(c))
}

// NormalizeCriteria converts a mixed criteria list into fully structured
// form. Plain strings get an auto-generated id AC-{scope}-{n} and a
// placeholder verify command; structured entries keep their fields, with
// a default category of "functional".
func NormalizeCriteria(criteria []Criterion, scopeID string) []Criterion {
	out := make([]Criterion, 0, len(criteria))
	for i, c := range criteria {
		if c.Structured() && c.ID != "" {
			normalized := c
			if normalized.VerifyCommand == "" {
				normalized.VerifyCommand = "echo 'manual check required'"
			}
			if normalized.Category == "" {
				normalized.Category = "functional"
			}
			out = append(out, normalized)
			continue
		}
		text := c.Text()
		if text == "" {
			continue
		}
		out = append(out, Criterion{
			ID:            fmt.Sprintf("AC-%s-%d", scopeID, i+1),
			Description:   text,
			VerifyCommand: fmt.Sprintf("echo 'TODO: implement verification for: %s'", text),
			Category:      "functional",
		})
	}
	return out
}
