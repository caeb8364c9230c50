package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kavaavi/career-portal/internal/core/domain"
	"github.com/kavaavi/career-portal/internal/core/ports"
)

const auditCollection = "session_transitions"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

// EnsureIndexes creates the lookup index by profile and time.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(auditCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "profile_id", Value: 1}, {Key: "at", Value: -1}},
		Options: options.Index().SetName("profile_at"),
	})
	if err != nil {
		return fmt.Errorf("ensure audit indexes: %w", err)
	}
	return nil
}

type sessionDoc struct {
	Authenticated bool   `bson:"authenticated"`
	Role          string `bson:"role,omitempty"`
	Approved      bool   `bson:"approved"`
}

type transitionDoc struct {
	ProfileID  string     `bson:"profile_id"`
	ContextID  string     `bson:"context_id,omitempty"`
	Kind       string     `bson:"kind"`
	Trigger    string     `bson:"trigger"`
	From       sessionDoc `bson:"from"`
	To         sessionDoc `bson:"to"`
	At         time.Time  `bson:"at"`
	RecordedAt time.Time  `bson:"recorded_at"`
}

func toSessionDoc(s domain.Session) sessionDoc {
	return sessionDoc{
		Authenticated: s.Authenticated,
		Role:          string(s.Role),
		Approved:      s.Approved,
	}
}

// InsertTransition persists a transition to the session_transitions collection.
func (r *AuditRepository) InsertTransition(ctx context.Context, t *domain.SessionTransition) error {
	doc := transitionDoc{
		ProfileID:  t.ProfileID,
		ContextID:  t.ContextID,
		Kind:       string(t.Kind),
		Trigger:    t.Trigger,
		From:       toSessionDoc(t.From),
		To:         toSessionDoc(t.To),
		At:         t.At.UTC(),
		RecordedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}
