// Package memory keeps credentials in process memory. It suits a single
// gateway instance; use the redis backend when running several.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kavaavi/career-portal/internal/core/ports"
)

// subscriberBuffer bounds pending notifications per subscriber. Notifications
// carry no value, so a full buffer already guarantees a re-read and extra
// ones are dropped.
const subscriberBuffer = 16

type subscriber struct {
	contextID string
	ch        chan ports.CredentialChange
	done      chan struct{}
	once      sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

type slot struct {
	credential string
	expires    time.Time // zero when the backend has no TTL
}

// Option configures a CredentialBackend.
type Option func(*CredentialBackend)

// WithTTL expires a slot ttl after its last write, as the redis backend does.
func WithTTL(ttl time.Duration) Option {
	return func(b *CredentialBackend) { b.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *CredentialBackend) { b.now = now }
}

// CredentialBackend holds one credential slot per profile.
type CredentialBackend struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	slots  map[string]slot
	subs   map[string]map[uint64]*subscriber
	nextID uint64
}

func NewCredentialBackend(opts ...Option) *CredentialBackend {
	b := &CredentialBackend{
		now:   time.Now,
		slots: make(map[string]slot),
		subs:  make(map[string]map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Sweep drops expired slots and reports how many it removed. Expired slots
// already read as absent; sweeping only releases their memory.
func (b *CredentialBackend) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	n := 0
	for profileID, s := range b.slots {
		if s.expired(now) {
			delete(b.slots, profileID)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (b *CredentialBackend) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Sweep()
		}
	}
}

func (s slot) expired(now time.Time) bool {
	return !s.expires.IsZero() && !now.Before(s.expires)
}

// Store returns contextID's view of profileID's slot.
func (b *CredentialBackend) Store(profileID, contextID string) ports.CredentialStore {
	return &credentialStore{backend: b, profileID: profileID, contextID: contextID}
}

func (b *CredentialBackend) get(profileID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[profileID]
	if !ok {
		return "", false
	}
	if s.expired(b.now()) {
		delete(b.slots, profileID)
		return "", false
	}
	return s.credential, true
}

func (b *CredentialBackend) write(profileID, origin, credential string, present bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if present {
		s := slot{credential: credential}
		if b.ttl > 0 {
			s.expires = b.now().Add(b.ttl)
		}
		b.slots[profileID] = s
	} else {
		delete(b.slots, profileID)
	}

	change := ports.CredentialChange{
		ProfileID: profileID,
		Origin:    origin,
		Present:   present,
		At:        b.now().UTC(),
	}
	for _, s := range b.subs[profileID] {
		if origin != "" && s.contextID == origin {
			continue
		}
		select {
		case s.ch <- change:
		default:
		}
	}
}

func (b *CredentialBackend) subscribe(ctx context.Context, profileID, contextID string, fn func(ports.CredentialChange)) func() {
	s := &subscriber{
		contextID: contextID,
		ch:        make(chan ports.CredentialChange, subscriberBuffer),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[profileID] == nil {
		b.subs[profileID] = make(map[uint64]*subscriber)
	}
	b.subs[profileID][id] = s
	b.mu.Unlock()

	go func() {
		defer b.unsubscribe(profileID, id)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case change := <-s.ch:
				fn(change)
			}
		}
	}()

	return s.stop
}

func (b *CredentialBackend) unsubscribe(profileID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[profileID], id)
	if len(b.subs[profileID]) == 0 {
		delete(b.subs, profileID)
	}
}

// Subscribers reports the live subscriptions of a profile.
func (b *CredentialBackend) Subscribers(profileID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[profileID])
}

type credentialStore struct {
	backend   *CredentialBackend
	profileID string
	contextID string
}

func (s *credentialStore) Get(_ context.Context) (string, bool) {
	return s.backend.get(s.profileID)
}

func (s *credentialStore) Set(_ context.Context, credential string) {
	s.backend.write(s.profileID, s.contextID, credential, true)
}

func (s *credentialStore) Clear(_ context.Context) {
	s.backend.write(s.profileID, s.contextID, "", false)
}

func (s *credentialStore) Subscribe(ctx context.Context, fn func(ports.CredentialChange)) func() {
	return s.backend.subscribe(ctx, s.profileID, s.contextID, fn)
}
