// FilePath: internal/refresh/coordinator.go

// Package refresh keeps per-key query results cached with a small state
// machine (idle, fetching, fresh, stale, error). Each key belongs to a data
// class whose Policy decides when a cached value goes stale and whether a
// background poll refetches it. At most one fetch per key is in flight at a
// time, and completions are applied in request order: a slow old response can
// never overwrite a newer one. Invalidation bumps a generation counter so
// responses from before the invalidation are dropped on arrival.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/internal/errors"
)

// State of one tracked key.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateFresh    State = "fresh"
	StateStale    State = "stale"
	StateError    State = "error"
)

// FetchFunc loads the authoritative value for a key. It must honor ctx
// cancellation.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Snapshot is a point-in-time view of a tracked key.
type Snapshot struct {
	State     State
	Value     interface{}
	Err       error
	FetchedAt time.Time
}

type entry struct {
	class        Class
	pollOverride time.Duration
	fetch        FetchFunc

	value     interface{}
	hasValue  bool
	err       error
	retryable bool
	fetchedAt time.Time

	nextSeq     uint64 // issue counter for fetches
	appliedSeq  uint64 // highest completion applied so far
	inflightSeq uint64 // nonzero while a fetch is running
	gen         uint64 // bumped on invalidate; older responses are dropped
	attemptedAt time.Time
	cancel      context.CancelFunc
}

// Coordinator tracks registered keys and drives their refresh lifecycle.
type Coordinator struct {
	mu       sync.Mutex
	clock    clock.Clock
	policies map[Class]Policy
	entries  map[string]*entry
	stop     chan struct{}
	started  bool
	wg       sync.WaitGroup
}

// NewCoordinator creates a Coordinator with the given policy table. A nil
// policies map falls back to DefaultPolicies. The clock is injected so tests
// can drive time.
func NewCoordinator(policies map[Class]Policy, clk clock.Clock) *Coordinator {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{
		clock:    clk,
		policies: policies,
		entries:  make(map[string]*entry),
	}
}

// Register starts tracking a key. pollOverride, when nonzero, replaces the
// class policy's poll interval for this key only (per-widget refresh
// intervals). Registering an existing key updates its fetch function and
// override but keeps the cached value.
func (c *Coordinator) Register(key string, class Class, pollOverride time.Duration, fetch FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		e.pollOverride = pollOverride
		e.class = class
		return
	}
	c.entries[key] = &entry{class: class, pollOverride: pollOverride, fetch: fetch}
}

// Deregister stops tracking a key and cancels any in-flight fetch for it.
func (c *Coordinator) Deregister(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(c.entries, key)
}

// Get returns the current snapshot of a key. The reported state is computed
// lazily against the clock, so a value crosses fresh to stale without any
// background work happening.
func (c *Coordinator) Get(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		State:     c.stateLocked(e),
		Value:     e.value,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
	}, true
}

func (c *Coordinator) stateLocked(e *entry) State {
	if e.inflightSeq != 0 {
		return StateFetching
	}
	if e.err != nil {
		return StateError
	}
	if !e.hasValue {
		return StateIdle
	}
	if c.clock.Now().Sub(e.fetchedAt) >= c.policyFor(e).StaleTTL {
		return StateStale
	}
	return StateFresh
}

func (c *Coordinator) policyFor(e *entry) Policy {
	p := c.policies[e.class]
	if e.pollOverride > 0 {
		p.PollInterval = e.pollOverride
	}
	return p
}

// EnsureFresh triggers a refetch when the key is idle, stale, or sitting on a
// retryable error. Non-retryable errors (a rejected request) stay until the
// key is invalidated, so a broken query does not hammer the backend.
func (c *Coordinator) EnsureFresh(ctx context.Context, key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	state := c.stateLocked(e)
	retryable := e.retryable
	c.mu.Unlock()
	switch state {
	case StateIdle, StateStale:
		c.Refresh(ctx, key)
	case StateError:
		if retryable {
			c.Refresh(ctx, key)
		}
	}
}

// Refresh starts a fetch for the key unless one is already in flight, in
// which case the call is a no-op. The response is applied only if it is still
// the newest completion for the current generation.
func (c *Coordinator) Refresh(ctx context.Context, key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.inflightSeq != 0 {
		c.mu.Unlock()
		return
	}
	e.nextSeq++
	seq := e.nextSeq
	gen := e.gen
	e.inflightSeq = seq
	e.attemptedAt = c.clock.Now()
	fctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	fetch := e.fetch
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		value, err := fetch(fctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		cur, ok := c.entries[key]
		if !ok || cur != e {
			return
		}
		if e.inflightSeq == seq {
			e.inflightSeq = 0
			e.cancel = nil
		}
		if gen != e.gen {
			// Invalidated while in flight, the response no longer applies.
			return
		}
		if seq <= e.appliedSeq {
			return
		}
		e.appliedSeq = seq
		if err != nil {
			e.err = err
			e.retryable = isRetryable(err)
			return
		}
		e.err = nil
		e.value = value
		e.hasValue = true
		e.fetchedAt = c.clock.Now()
	}()
}

func isRetryable(err error) bool {
	if apiErr, ok := errors.AsAPIError(err); ok {
		return apiErr.Retryable()
	}
	// Unknown error shapes are treated as transient.
	return true
}

// Invalidate marks the key stale, cancels any in-flight fetch, and bumps the
// generation so late responses from before the call are dropped. The cached
// value stays readable until the next fetch replaces it.
func (c *Coordinator) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.inflightSeq = 0
	e.err = nil
	e.fetchedAt = time.Time{}
}

// Mutate performs an optimistic mutation: apply rewrites the cached value
// immediately, mutate talks to the backend. On failure the pre-apply value is
// restored exactly; on success the key is invalidated and refetched so the
// cache converges to the authoritative state. apply must return a new value
// rather than mutating its argument in place.
func (c *Coordinator) Mutate(ctx context.Context, key string, apply func(interface{}) interface{}, mutate func(context.Context) error) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return errors.NewNotFoundError("no tracked data for key "+key, nil)
	}
	prev := e.value
	hadValue := e.hasValue
	gen := e.gen
	if hadValue && apply != nil {
		e.value = apply(e.value)
	}
	c.mu.Unlock()

	if err := mutate(ctx); err != nil {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e && gen == e.gen {
			e.value = prev
			e.hasValue = hadValue
		}
		c.mu.Unlock()
		return err
	}

	c.Invalidate(key)
	c.Refresh(context.Background(), key)
	return nil
}

// Start launches the background poll loop. Each tick refetches keys whose
// class policy asks for polling and whose data has aged past the interval.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	// Fresh channel per run so a coordinator can be restarted after Stop
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := c.clock.Ticker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.pollTick()
			}
		}
	}()
	nuts.L.Debug("[RefreshCoordinator] poll loop started")
}

func (c *Coordinator) pollTick() {
	now := c.clock.Now()
	var due []string
	c.mu.Lock()
	for key, e := range c.entries {
		if e.inflightSeq != 0 {
			continue
		}
		pol := c.policyFor(e)
		switch {
		case e.err != nil:
			// Retry transient failures at poll cadence, or TTL cadence for
			// classes without polling. Rejected requests are never retried
			// automatically.
			if !e.retryable {
				continue
			}
			wait := pol.PollInterval
			if wait <= 0 {
				wait = pol.StaleTTL
			}
			if now.Sub(e.attemptedAt) >= wait {
				due = append(due, key)
			}
		case !e.hasValue:
			due = append(due, key)
		case pol.PollInterval > 0 && now.Sub(e.fetchedAt) >= pol.PollInterval:
			due = append(due, key)
		}
	}
	c.mu.Unlock()

	for _, key := range due {
		c.Refresh(context.Background(), key)
	}
}

// Stop shuts down the poll loop, cancels all in-flight fetches, and waits for
// their goroutines to drain.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.stop)
	for _, e := range c.entries {
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
	}
	c.mu.Unlock()
	c.wg.Wait()
	nuts.L.Debug("[RefreshCoordinator] stopped")
}
