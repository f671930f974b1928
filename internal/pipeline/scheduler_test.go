package pipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tandemhq/tandem/pkg/models"
)

func dispatchEntries(n int) []models.DispatchEntry {
	entries := make([]models.DispatchEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.DispatchEntry{SubtaskID: fmt.Sprintf("T1-S%02d", i+1)})
	}
	return entries
}

func TestRunSubtasks_AllRun(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}

	failures := RunSubtasks(dispatchEntries(9), func(entry models.DispatchEntry) int {
		mu.Lock()
		seen[entry.SubtaskID] = true
		mu.Unlock()
		return 0
	})
	if failures != 0 {
		t.Errorf("failures = %d, want 0", failures)
	}
	if len(seen) != 9 {
		t.Errorf("ran %d subtasks, want 9", len(seen))
	}
}

func TestRunSubtasks_CountsFailuresWithoutStopping(t *testing.T) {
	var mu sync.Mutex
	ran := 0

	failures := RunSubtasks(dispatchEntries(6), func(entry models.DispatchEntry) int {
		mu.Lock()
		ran++
		mu.Unlock()
		if entry.SubtaskID == "T1-S02" || entry.SubtaskID == "T1-S05" {
			return 2
		}
		return 0
	})
	if failures != 2 {
		t.Errorf("failures = %d, want 2", failures)
	}
	// Siblings keep running after a failure.
	if ran != 6 {
		t.Errorf("ran = %d subtasks, want 6", ran)
	}
}

func TestRunSubtasks_Empty(t *testing.T) {
	failures := RunSubtasks(nil, func(models.DispatchEntry) int {
		t.Error("fn must not be called for an empty entry list")
		return 1
	})
	if failures != 0 {
		t.Errorf("failures = %d, want 0", failures)
	}
}
