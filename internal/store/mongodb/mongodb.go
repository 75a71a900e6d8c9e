// Package mongodb stores the LibraryHub collections in MongoDB. The document
// layout (camelCase fields, ObjectID references) matches the collections the
// original dashboard wrote, so an existing library_management database can be
// served as-is.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aoideee/libraryhub/internal/data"
)

const (
	collBooks      = "books"
	collMembers    = "members"
	collBorrowings = "borrowings"
)

// caseInsensitive compares strings without regard to letter case. It backs the
// unique email index and every sort on a text field.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Store owns one client for the lifetime of the process.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Config holds the connection settings.
type Config struct {
	URI          string
	Database     string
	MaxPoolSize  uint64
	MaxIdleTime  time.Duration
	PingDeadline time.Duration
}

// Open connects, verifies the server answers within cfg.PingDeadline, and
// ensures the indexes the stores rely on exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MaxIdleTime > 0 {
		clientOptions.SetMaxConnIdleTime(cfg.MaxIdleTime)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingDeadline)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collMembers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
			},
		},
		collBorrowings: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "status", Value: 1}}},
		},
		collBooks: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb: create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Models exposes the Store through the data contracts.
func (s *Store) Models() data.Models {
	return data.Models{
		Books:      BookStore{coll: s.db.Collection(collBooks)},
		Members:    MemberStore{coll: s.db.Collection(collMembers)},
		Borrowings: BorrowingStore{coll: s.db.Collection(collBorrowings)},
	}
}

// Close disconnects the client, waiting for in-flight operations until ctx ends.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Only the integration tests call it.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// objectID parses a hex id. A malformed id can never match a document.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func hexID(oid primitive.ObjectID) string {
	if oid.IsZero() {
		return ""
	}
	return oid.Hex()
}

// exists tells a failed conditional update on a missing document apart from
// one whose guard did not hold.
func exists(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID) (bool, error) {
	err := coll.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, err
	}
}

func count(ctx context.Context, coll *mongo.Collection) (int, error) {
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb: count %s: %w", coll.Name(), err)
	}
	return int(n), nil
}
