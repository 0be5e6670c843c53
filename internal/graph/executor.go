package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// nodeState tracks a node through execution.
type nodeState struct {
	n        *node
	depCount atomic.Int32
	skipOnce sync.Once
	failed   atomic.Bool
	err      error
}

// Executor runs a graph's nodes concurrently, honoring dependency order.
// A node failure cancels the run, skips everything downstream of it, and
// surfaces as the root cause error.
type Executor struct {
	graph   *Graph
	workers int
}

// NewExecutor returns an executor running at most workers nodes at once.
// workers values below 1 fall back to 1.
func NewExecutor(g *Graph, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{graph: g, workers: workers}
}

// Run executes the whole graph and blocks until every node has completed,
// failed, or been skipped. The returned error wraps the first real failure;
// skipped nodes are symptoms and never become the root cause.
func (e *Executor) Run(ctx context.Context) error {
	if err := e.graph.DetectCycles(); err != nil {
		return err
	}

	e.graph.mu.RLock()
	states := make(map[string]*nodeState, len(e.graph.nodes))
	for id, n := range e.graph.nodes {
		st := &nodeState{n: n}
		st.depCount.Store(int32(len(n.deps)))
		states[id] = st
	}
	e.graph.mu.RUnlock()

	if len(states) == 0 {
		return nil
	}

	readyCh := make(chan *nodeState, len(states))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(states))

	for _, st := range states {
		if st.depCount.Load() == 0 {
			readyCh <- st
		}
	}

	var skipDependents func(st *nodeState, causeID string)
	skipDependents = func(st *nodeState, causeID string) {
		for _, dep := range st.n.dependents {
			depSt := states[dep.id]
			depSt.skipOnce.Do(func() {
				depSt.failed.Store(true)
				depSt.err = &skipError{msg: fmt.Sprintf("skipped due to upstream failure of %q", causeID)}
				wg.Done()
				skipDependents(depSt, causeID)
			})
		}
	}

	worker := func() {
		for st := range readyCh {
			if runCtx.Err() != nil {
				st.skipOnce.Do(func() {
					st.failed.Store(true)
					st.err = runCtx.Err()
					wg.Done()
					// Dependents will never become ready; release them.
					skipDependents(st, st.n.id)
				})
				continue
			}

			var err error
			if st.n.run != nil {
				err = st.n.run(runCtx)
			}
			if err != nil {
				st.failed.Store(true)
				st.err = err
				cancel()
				skipDependents(st, st.n.id)
				wg.Done()
				continue
			}

			for _, dep := range st.n.dependents {
				if states[dep.id].depCount.Add(-1) == 0 {
					readyCh <- states[dep.id]
				}
			}
			wg.Done()
		}
	}

	for i := 0; i < e.workers; i++ {
		go worker()
	}
	wg.Wait()
	close(readyCh)

	var failed []string
	var rootCause error
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := states[id]
		if !st.failed.Load() || st.err == nil {
			continue
		}
		if _, isSkip := st.err.(*skipError); isSkip {
			continue
		}
		if errors.Is(st.err, context.Canceled) || errors.Is(st.err, context.DeadlineExceeded) {
			continue
		}
		failed = append(failed, id)
		if rootCause == nil {
			rootCause = st.err
		}
	}
	if rootCause != nil {
		return fmt.Errorf("graph: execution failed for %v: %w", failed, rootCause)
	}
	return ctx.Err()
}

type skipError struct{ msg string }

func (e *skipError) Error() string { return e.msg }
