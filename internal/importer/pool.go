package importer

import "sync"

// runPool drives n independent work items through fn using a bounded
// worker pool. Items within a phase have no intra-phase dependency (Phase
// A's tasks are mutually independent; Phase B's events are mutually
// independent per §4.6), so order is not preserved on completion, but the
// caller-visible results slice is indexed identically to items so ordering
// of the *input* is always recoverable. This mirrors the teacher's
// channel-plus-WaitGroup worker shape, simplified because there is no
// dependency graph to walk within a phase.
func runPool[T, R any](items []T, workers int, fn func(i int, item T) R) []R {
	results := make([]R, len(items))
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers <= 1 {
		for i, item := range items {
			results[i] = fn(i, item)
		}
		return results
	}

	type job struct {
		idx  int
		item T
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = fn(j.idx, j.item)
			}
		}()
	}
	for i, item := range items {
		jobs <- job{idx: i, item: item}
	}
	close(jobs)
	wg.Wait()
	return results
}
