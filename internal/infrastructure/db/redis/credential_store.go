package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kavaavi/career-portal/internal/core/ports"
)

// CredentialBackend keeps each profile's credential under its own key and
// announces writes on a per-profile pub/sub channel, so every gateway
// instance can notify the contexts it serves.
//
// Key format:     portal:credential:<profile_id>
// Channel format: portal:credential:<profile_id>:changes
type CredentialBackend struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCredentialBackend wraps client. ttl bounds how long an untouched
// credential survives; zero keeps it until cleared.
func NewCredentialBackend(client *redis.Client, ttl time.Duration, log zerolog.Logger) *CredentialBackend {
	return &CredentialBackend{client: client, ttl: ttl, log: log}
}

func (b *CredentialBackend) Store(profileID, contextID string) ports.CredentialStore {
	return &credentialStore{backend: b, profileID: profileID, contextID: contextID}
}

func (b *CredentialBackend) key(profileID string) string {
	return fmt.Sprintf("portal:credential:%s", profileID)
}

func (b *CredentialBackend) channel(profileID string) string {
	return fmt.Sprintf("portal:credential:%s:changes", profileID)
}

type changeMessage struct {
	Origin  string    `json:"origin"`
	Present bool      `json:"present"`
	At      time.Time `json:"at"`
}

func (b *CredentialBackend) publish(ctx context.Context, profileID, origin string, present bool) {
	payload, err := json.Marshal(changeMessage{Origin: origin, Present: present, At: time.Now().UTC()})
	if err != nil {
		b.log.Error().Err(err).Msg("encode credential change")
		return
	}
	if err := b.client.Publish(ctx, b.channel(profileID), payload).Err(); err != nil {
		b.log.Warn().Err(err).Str("profile_id", profileID).Msg("publish credential change failed")
	}
}

type credentialStore struct {
	backend   *CredentialBackend
	profileID string
	contextID string
}

func (s *credentialStore) Get(ctx context.Context) (string, bool) {
	v, err := s.backend.client.Get(ctx, s.backend.key(s.profileID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.backend.log.Warn().Err(err).Str("profile_id", s.profileID).Msg("credential read failed, treating as absent")
		}
		return "", false
	}
	return v, true
}

func (s *credentialStore) Set(ctx context.Context, credential string) {
	if err := s.backend.client.Set(ctx, s.backend.key(s.profileID), credential, s.backend.ttl).Err(); err != nil {
		s.backend.log.Error().Err(err).Str("profile_id", s.profileID).Msg("credential write failed")
		return
	}
	s.backend.publish(ctx, s.profileID, s.contextID, true)
}

func (s *credentialStore) Clear(ctx context.Context) {
	if err := s.backend.client.Del(ctx, s.backend.key(s.profileID)).Err(); err != nil {
		s.backend.log.Error().Err(err).Str("profile_id", s.profileID).Msg("credential delete failed")
		return
	}
	s.backend.publish(ctx, s.profileID, s.contextID, false)
}

// Subscribe blocks until Redis confirms the subscription, so a write made
// after Subscribe returns is always observed.
func (s *credentialStore) Subscribe(ctx context.Context, fn func(ports.CredentialChange)) func() {
	ps := s.backend.client.Subscribe(ctx, s.backend.channel(s.profileID))
	if _, err := ps.Receive(ctx); err != nil {
		s.backend.log.Error().Err(err).Str("profile_id", s.profileID).Msg("credential subscribe failed")
		_ = ps.Close()
		return func() {}
	}

	var once sync.Once
	stop := func() { once.Do(func() { _ = ps.Close() }) }

	msgs := ps.Channel()
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var cm changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
					s.backend.log.Warn().Err(err).Msg("discarding malformed credential change")
					continue
				}
				if cm.Origin != "" && cm.Origin == s.contextID {
					continue
				}
				fn(ports.CredentialChange{
					ProfileID: s.profileID,
					Origin:    cm.Origin,
					Present:   cm.Present,
					At:        cm.At,
				})
			}
		}
	}()

	return stop
}
