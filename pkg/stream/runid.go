package stream

import (
	"context"
	"errors"
	"sync"
)

// ErrNoRunID is returned by RunID.Wait when the stream ended, by any path,
// before a payload carrying a run id was decoded.
var ErrNoRunID = errors.New("stream ended without a run id")

// RunID is a single-assignment cell for the run id of a streamed run.
// It is settled at most once: either resolved by the first decoded payload
// carrying a non-empty content.run_id, or rejected when the stream finishes
// without one. Readers may wait on it from any goroutine.
type RunID struct {
	once sync.Once
	done chan struct{}
	id   string
	err  error
}

func newRunID() *RunID {
	return &RunID{done: make(chan struct{})}
}

// resolve settles the cell with id. Empty ids are ignored. It reports
// whether this call settled the cell.
func (r *RunID) resolve(id string) bool {
	if id == "" {
		return false
	}
	return r.settle(id, nil)
}

// reject settles the cell with err if it is still pending.
func (r *RunID) reject(err error) bool {
	return r.settle("", err)
}

func (r *RunID) settle(id string, err error) bool {
	settled := false
	r.once.Do(func() {
		r.id = id
		r.err = err
		close(r.done)
		settled = true
	})
	return settled
}

// Done is closed once the cell is settled.
func (r *RunID) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the cell is settled or ctx is done.
func (r *RunID) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Peek returns the run id without blocking. ok is false while the cell is
// pending or when it was rejected.
func (r *RunID) Peek() (id string, ok bool) {
	select {
	case <-r.done:
		return r.id, r.err == nil
	default:
		return "", false
	}
}
