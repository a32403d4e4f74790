package auth

import (
	"context"
	"errors"
	"sync"

	"webring/internal/metrics"
)

var ErrPoolClosed = errors.New("password hasher closed")

// Hasher runs Argon2id hashing and verification on a fixed set of worker
// goroutines. Callers block until their job finishes or ctx ends.
type Hasher struct {
	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewHasher(workers int) *Hasher {
	if workers < 1 {
		workers = 1
	}
	h := &Hasher{
		jobs: make(chan func()),
		quit: make(chan struct{}),
	}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go h.work()
	}
	return h
}

func (h *Hasher) work() {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			return
		case job := <-h.jobs:
			job()
		}
	}
}

func (h *Hasher) Hash(ctx context.Context, pw string) (string, error) {
	var out string
	var hashErr error
	if err := h.run(ctx, func() { out, hashErr = HashPassword(pw) }); err != nil {
		return "", err
	}
	return out, hashErr
}

// Verify compares pw with encoded. Malformed hashes surface as
// ErrMalformedHash, a mismatch is (false, nil).
func (h *Hasher) Verify(ctx context.Context, encoded, pw string) (bool, error) {
	var ok bool
	var cmpErr error
	if err := h.run(ctx, func() { ok, cmpErr = ComparePassword(encoded, pw) }); err != nil {
		return false, err
	}
	return ok, cmpErr
}

func (h *Hasher) run(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	job := func() {
		metrics.HashQueueDepth.Dec()
		fn()
		close(done)
	}

	metrics.HashQueueDepth.Inc()
	select {
	case h.jobs <- job:
	case <-ctx.Done():
		metrics.HashQueueDepth.Dec()
		return ctx.Err()
	case <-h.quit:
		metrics.HashQueueDepth.Dec()
		return ErrPoolClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers after their current job and waits for them.
func (h *Hasher) Close() {
	h.once.Do(func() { close(h.quit) })
	h.wg.Wait()
}
