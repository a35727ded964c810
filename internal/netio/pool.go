package netio

import "sync"

// pool is the bounded "application pool" (spec §5): receive handlers,
// accept filters, and disconnect handlers all run here, never on the
// goroutine that did the non-blocking socket read. size mirrors
// num_threads (default 10).
type pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{sem: make(chan struct{}, size)}
}

// dispatch runs fn on a pool goroutine, blocking the caller only long
// enough to acquire a slot, never for fn's duration.
func (p *pool) dispatch(fn func()) {
	p.wg.Add(1)
	p.sem <- struct{}{}
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		fn()
	}()
}

// wait blocks until every dispatched task has returned. Used during
// shutdown to let in-flight callbacks drain before the process exits.
func (p *pool) wait() {
	p.wg.Wait()
}
