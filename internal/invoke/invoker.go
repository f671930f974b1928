// Package invoke runs external agent commands under the pipeline's
// retry, timeout, and simulation policy. It is the only place a stage
// touches a subprocess for agent work; stages receive the parsed
// outcome and decide their own status from it.
package invoke

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tandemhq/tandem/internal/config"
	"github.com/tandemhq/tandem/internal/envelope"
	"github.com/tandemhq/tandem/internal/exec"
	"github.com/tandemhq/tandem/pkg/models"
)

// ErrNotConfigured indicates no command is configured for the
// requested role and simulation mode is off.
var ErrNotConfigured = errors.New("agent command not configured")

// Output caps applied before an invocation is embedded in an artifact.
const (
	StdoutCap = 6000
	StderrCap = 3000
)

// Invocation is the outcome of one agent invocation, after retries.
type Invocation struct {
	// Status is passed, failed, or simulated.
	Status models.StageStatus
	// Command is the command line that was executed.
	Command string
	// ReturnCode is the final attempt's exit code (-1 on timeout).
	ReturnCode int
	// Stdout is the full captured standard output.
	Stdout string
	// Stderr is the full captured standard error.
	Stderr string
	// Attempt is the attempt number that produced this outcome.
	Attempt int
	// Elapsed is the wall-clock duration of the final attempt.
	Elapsed time.Duration
	// PayloadChecksum is the sha256 of the request payload.
	PayloadChecksum string
}

// Succeeded reports whether the invocation ended in a usable state.
func (inv *Invocation) Succeeded() bool {
	return inv.Status == models.StatusPassed || inv.Status == models.StatusSimulated
}

// Simulated reports whether the invocation was synthesized.
func (inv *Invocation) Simulated() bool {
	return inv.Status == models.StatusSimulated
}

// Decode parses the invocation's stdout against the envelope contract.
func (inv *Invocation) Decode() envelope.Decoded {
	return envelope.Decode(inv.Stdout)
}

// Record converts the invocation into its artifact form, with stdout
// and stderr capped.
func (inv *Invocation) Record() *models.InvocationRecord {
	return &models.InvocationRecord{
		Status:          inv.Status,
		Command:         inv.Command,
		ReturnCode:      inv.ReturnCode,
		Stdout:          truncate(inv.Stdout, StdoutCap),
		Stderr:          truncate(inv.Stderr, StderrCap),
		Attempt:         inv.Attempt,
		ElapsedMS:       inv.Elapsed.Milliseconds(),
		PayloadChecksum: inv.PayloadChecksum,
	}
}

// CommandRecord converts the invocation into a command result entry.
// The invocation status is carried verbatim, so simulated runs stay
// visible in the commands_executed trail.
func (inv *Invocation) CommandRecord() models.CommandResult {
	return models.CommandResult{
		Command:    inv.Command,
		Status:     inv.Status,
		ReturnCode: inv.ReturnCode,
		TimeMS:     inv.Elapsed.Milliseconds(),
		Stdout:     truncate(inv.Stdout, StdoutCap),
		Stderr:     truncate(inv.Stderr, StderrCap),
	}
}

// Invoker runs agent commands with the configured retry policy.
type Invoker struct {
	cfg    *config.Config
	runner exec.CommandRunner

	// sleep is replaceable in tests to avoid real retry delays.
	sleep func(time.Duration)
}

// New creates an Invoker using the given configuration snapshot and
// command runner.
func New(cfg *config.Config, runner exec.CommandRunner) *Invoker {
	return &Invoker{
		cfg:    cfg,
		runner: runner,
		sleep:  time.Sleep,
	}
}

// Invoke resolves the command for the role, writes the request to the
// agent's stdin, and returns the invocation outcome.
//
// Retries happen only on a non-zero exit code or a timeout, up to the
// configured maximum, with the configured sleep between attempts; the
// first zero exit returns immediately. Exhausting retries surfaces the
// last failure as a failed invocation, not as an error: invocation
// failure degrades the stage outcome, it never crashes the pipeline.
func (i *Invoker) Invoke(ctx context.Context, role models.Role, req envelope.Request) (*Invocation, error) {
	command := i.cfg.CommandFor(string(role))
	if command == "" {
		if !i.cfg.Agents.Simulate {
			return nil, fmt.Errorf("%w for role %s: set the %s command or enable simulation mode",
				ErrNotConfigured, role, role)
		}
		return &Invocation{
			Status: models.StatusSimulated,
			Stdout: fmt.Sprintf("[%s] simulation mode", role.Owner()),
		}, nil
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode agent payload: %w", err)
	}
	checksum := sha256Hex(payload)

	maxAttempts := i.cfg.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := i.cfg.Retry.Timeout()

	var last *Invocation
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := i.runner.Run(ctx, command, payload, timeout)
		if err != nil {
			return nil, fmt.Errorf("spawn %s agent: %w", role, err)
		}

		inv := &Invocation{
			Command:         command,
			ReturnCode:      res.ExitCode,
			Stdout:          res.Stdout,
			Stderr:          res.Stderr,
			Attempt:         attempt,
			Elapsed:         res.Elapsed,
			PayloadChecksum: checksum,
		}
		switch {
		case res.TimedOut:
			inv.Status = models.StatusFailed
			inv.Stdout = ""
			inv.Stderr = fmt.Sprintf("Command timed out after %ds", i.cfg.Retry.TimeoutSeconds)
		case res.ExitCode == 0:
			inv.Status = models.StatusPassed
			return inv, nil
		default:
			inv.Status = models.StatusFailed
		}

		last = inv
		if attempt < maxAttempts {
			i.sleep(i.cfg.Retry.Sleep())
		}
	}
	return last, nil
}

// truncate limits s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
