// Package mongostore keeps gateway resume state in MongoDB, so a restarted
// process can resume its previous session instead of identifying again.
package mongostore

import (
	"context"
	"time"

	"github.com/cordlink/cordlink/gateway"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is a gateway.ResumeStore backed by one document of a collection.
type Store struct {
	coll *mongo.Collection
	key  string
}

var _ gateway.ResumeStore = (*Store)(nil)

type document struct {
	Key       string    `bson:"_id"`
	SessionID string    `bson:"session_id"`
	Sequence  int64     `bson:"seq"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New creates a store that keeps the state of one session under key. Use a
// different key per token and shard.
func New(coll *mongo.Collection, key string) *Store {
	return &Store{coll: coll, key: key}
}

// LoadResume implements gateway.ResumeStore.
func (s *Store) LoadResume(ctx context.Context) (gateway.ResumeState, error) {
	var doc document

	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: s.key}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return gateway.ResumeState{}, gateway.ErrNoResumeState
		}
		return gateway.ResumeState{}, errors.Wrap(err, "cannot find resume state")
	}

	if doc.SessionID == "" {
		return gateway.ResumeState{}, gateway.ErrNoResumeState
	}

	return gateway.ResumeState{
		SessionID: doc.SessionID,
		Sequence:  doc.Sequence,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// SaveResume implements gateway.ResumeStore.
func (s *Store) SaveResume(ctx context.Context, state gateway.ResumeState) error {
	doc := document{
		Key:       s.key,
		SessionID: state.SessionID,
		Sequence:  state.Sequence,
		UpdatedAt: state.UpdatedAt,
	}

	opts := options.Replace().SetUpsert(true)

	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: s.key}}, doc, opts)
	if err != nil {
		return errors.Wrap(err, "cannot save resume state")
	}

	return nil
}

// ClearResume implements gateway.ResumeStore.
func (s *Store) ClearResume(ctx context.Context) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: s.key}})
	if err != nil {
		return errors.Wrap(err, "cannot clear resume state")
	}
	return nil
}
