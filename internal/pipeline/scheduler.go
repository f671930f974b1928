package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/tandemhq/tandem/pkg/models"
)

// maxImplementWorkers caps the implement stage fan-out.
const maxImplementWorkers = 4

// RunSubtasks executes fn for every dispatch entry on a bounded worker
// pool and returns the number of non-zero results. All entries run to
// completion even after a failure, so every per-subtask artifact gets
// written and the merge stage sees the full picture.
func RunSubtasks(entries []models.DispatchEntry, fn func(models.DispatchEntry) int) int {
	if len(entries) == 0 {
		return 0
	}
	workers := maxImplementWorkers
	if len(entries) < workers {
		workers = len(entries)
	}

	debugLog("scheduler: %d subtasks across %d workers", len(entries), workers)

	jobs := make(chan models.DispatchEntry)
	var failures int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if rc := fn(entry); rc != 0 {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}
	for _, entry := range entries {
		jobs <- entry
	}
	close(jobs)
	wg.Wait()

	return int(atomic.LoadInt64(&failures))
}
