package refresh

import (
    "context"
    "sync"
    "time"

    "github.com/yourorg/valuation-api/internal/valuation"
)

// Job recomputes one cached valuation.
type Job struct {
    Key     string
    Request valuation.Request
}

// Refresher runs jobs on a fixed pool, dropping duplicates already queued or
// running and dropping anything that does not fit in the queue.
type Refresher struct {
    ch      chan Job
    inFly   sync.Map // key -> struct{}
    Do      func(ctx context.Context, j Job)
    Timeout time.Duration
    wg      sync.WaitGroup
    mu      sync.RWMutex
    closed  bool
}

func New(capacity int, workerCount int, do func(ctx context.Context, j Job)) *Refresher {
    if capacity <= 0 { capacity = 256 }
    if workerCount <= 0 { workerCount = 2 }
    r := &Refresher{ ch: make(chan Job, capacity), Do: do, Timeout: 30 * time.Second }
    for i := 0; i < workerCount; i++ {
        r.wg.Add(1)
        go r.worker()
    }
    return r
}

// Enqueue reports whether the job was accepted.
func (r *Refresher) Enqueue(j Job) bool {
    r.mu.RLock()
    defer r.mu.RUnlock()
    if r.closed {
        return false
    }
    if _, exists := r.inFly.LoadOrStore(j.Key, struct{}{}); exists {
        return false
    }
    select {
    case r.ch <- j:
        return true
    default:
        r.inFly.Delete(j.Key)
        return false
    }
}

// Close stops accepting work and waits for queued jobs to finish.
func (r *Refresher) Close() {
    r.mu.Lock()
    if !r.closed {
        r.closed = true
        close(r.ch)
    }
    r.mu.Unlock()
    r.wg.Wait()
}

func (r *Refresher) worker() {
    defer r.wg.Done()
    for j := range r.ch {
        // three provider calls at the 9s bound fit inside the default timeout
        ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
        func() {
            defer func() {
                r.inFly.Delete(j.Key)
                cancel()
            }()
            if r.Do != nil { r.Do(ctx, j) }
        }()
    }
}
