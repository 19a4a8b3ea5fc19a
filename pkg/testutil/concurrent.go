package testutil

import (
	"errors"
	"sync"

	"attest/pkg/platform/sentinel"
)

// ConcurrentResult buckets the outcomes of RunConcurrent by store sentinel.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	Conflicts int32
	NotFounds int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds
}

// RunConcurrent races n calls of fn and counts how each one ended. Conflicts
// and NotFounds match sentinel.ErrConflict and sentinel.ErrNotFound; every
// other error lands in Errors.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	successes, errs := RunConcurrentCollect(n, fn)
	res := &ConcurrentResult{Successes: successes}
	for _, err := range errs {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			res.Conflicts++
		case errors.Is(err, sentinel.ErrNotFound):
			res.NotFounds++
		default:
			res.Errors++
		}
	}
	return res
}

// RunConcurrentCollect races n calls of fn and returns the success count and
// the errors in completion order. All goroutines are released together so the
// calls overlap as much as the scheduler allows.
func RunConcurrentCollect(n int, fn func(idx int) error) (successes int32, errs []error) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
	)
	for i := range n {
		wg.Go(func() {
			<-start
			err := fn(i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			successes++
		})
	}
	close(start)
	wg.Wait()
	return successes, errs
}
