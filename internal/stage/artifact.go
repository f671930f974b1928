// Package stage implements the seven pipeline stage executors. Each
// executor is a function of its declared inputs plus at most one agent
// invocation, producing a JSON stage artifact and a process exit code:
// 0 for success, 1 for input errors, 2 for logic failures recorded in
// the artifact itself.
package stage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timestampFormat is the UTC timestamp written into artifacts.
const timestampFormat = "2006-01-02T15:04:05Z"

// now is replaceable in tests for deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// WriteArtifact writes a stage artifact: the payload fields plus the
// common envelope (agent, work_id, generated_at, checksum) at the top
// level. The checksum covers the payload only, computed over its
// canonical (key-sorted) JSON form, so re-running a stage on identical
// input yields an identical checksum even though generated_at differs.
func WriteArtifact(path, agent, workID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode artifact payload: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("artifact payload must be an object: %w", err)
	}

	// Marshalling the field map re-serializes with sorted keys, which
	// is the canonical form the checksum is defined over.
	canonical, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("canonicalize artifact payload: %w", err)
	}
	sum := sha256.Sum256(canonical)

	doc := map[string]json.RawMessage{
		"agent":        mustRaw(agent),
		"work_id":      mustRaw(workID),
		"generated_at": mustRaw(now().Format(timestampFormat)),
		"checksum":     mustRaw(hex.EncodeToString(sum[:])),
	}
	// Payload fields win on a name clash, matching the artifact
	// contract: work_id inside a payload is authoritative.
	for k, v := range fields {
		doc[k] = v
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// ReadArtifact reads a stage artifact into v. Artifacts written by
// older runs may nest their payload under a "payload" key; that
// wrapper is unwrapped transparently.
func ReadArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	var probe struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if len(probe.Payload) > 0 && probe.Payload[0] == '{' {
		data = probe.Payload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return nil
}

func mustRaw(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}
