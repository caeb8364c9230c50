package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher writes session transitions to the audit repository off the
// request path. Transitions are sharded by profile so each profile's trail
// is written in order.
type Dispatcher struct {
	workers []chan domain.SessionTransition
	repo    ports.AuditRepository
	log     zerolog.Logger

	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.SessionTransition, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SessionTransition, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain what is queued and
// stop once ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record enqueues t without blocking. A full shard drops the transition.
func (d *Dispatcher) Record(t domain.SessionTransition) {
	select {
	case d.workers[d.shardIndex(t.ProfileID)] <- t:
	default:
		d.dropped.Add(1)
		d.log.Warn().
			Str("profile_id", t.ProfileID).
			Str("kind", string(t.Kind)).
			Msg("audit queue full, transition dropped")
	}
}

// Dropped reports how many transitions were discarded on full shards.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Pending reports the transitions waiting across all shards.
func (d *Dispatcher) Pending() int {
	n := 0
	for _, ch := range d.workers {
		n += len(ch)
	}
	return n
}

// shardIndex maps a profile deterministically to a worker index.
func (d *Dispatcher) shardIndex(profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SessionTransition) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case t := <-ch:
			d.write(context.WithoutCancel(ctx), id, t)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.SessionTransition) {
	for {
		select {
		case t := <-ch:
			d.write(context.Background(), id, t)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, t domain.SessionTransition) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := d.repo.InsertTransition(ctx, &t); err != nil {
		d.log.Error().Err(err).
			Str("profile_id", t.ProfileID).
			Str("kind", string(t.Kind)).
			Int("worker_id", id).
			Msg("audit write failed")
	}
}
