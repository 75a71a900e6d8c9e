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

	"github.com/aoideee/libraryhub/internal/data"
)

type memberDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	Phone          string             `bson:"phone"`
	Address        string             `bson:"address"`
	MembershipType string             `bson:"membershipType"`
	Status         string             `bson:"status"`
	MembershipDate time.Time          `bson:"membershipDate"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d memberDocument) member() *data.Member {
	return &data.Member{
		ID:             hexID(d.ID),
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		MembershipType: d.MembershipType,
		Status:         d.Status,
		MembershipDate: d.MembershipDate,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// MemberStore implements data.MemberStore over the members collection.
type MemberStore struct {
	coll *mongo.Collection
}

// Insert adds member; the unique email index rejects a taken email.
func (m MemberStore) Insert(ctx context.Context, member *data.Member) error {
	ts := now()
	doc := memberDocument{
		Name:           member.Name,
		Email:          member.Email,
		Phone:          member.Phone,
		Address:        member.Address,
		MembershipType: member.MembershipType,
		Status:         member.Status,
		MembershipDate: member.MembershipDate.UTC().Truncate(time.Millisecond),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return data.ErrDuplicateEmail
		}
		return fmt.Errorf("mongodb: insert member: %w", err)
	}

	member.ID = hexID(res.InsertedID.(primitive.ObjectID))
	member.MembershipDate = doc.MembershipDate
	member.CreatedAt = ts
	member.UpdatedAt = ts
	return nil
}

// Get fetches one member by its hex ObjectID.
func (m MemberStore) Get(ctx context.Context, id string) (*data.Member, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	return m.findOne(ctx, bson.M{"_id": oid})
}

// GetByEmail looks the email up under the case-insensitive collation.
func (m MemberStore) GetByEmail(ctx context.Context, email string) (*data.Member, error) {
	return m.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(caseInsensitive))
}

func (m MemberStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*data.Member, error) {
	var doc memberDocument
	err := m.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("mongodb: get member: %w", err)
	}
	return doc.member(), nil
}

// GetAll runs the filter as one count and one paged find.
func (m MemberStore) GetAll(ctx context.Context, filter data.MemberFilter) ([]*data.Member, data.Metadata, error) {
	query := memberQuery(filter)

	total, err := m.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: count members: %w", err)
	}

	cursor, err := m.coll.Find(ctx, query, findOptions(filter.Filters))
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: find members: %w", err)
	}

	var docs []memberDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: decode members: %w", err)
	}

	members := make([]*data.Member, 0, len(docs))
	for _, doc := range docs {
		members = append(members, doc.member())
	}
	return members, data.CalculateMetadata(int(total), filter.Filters), nil
}

// Update replaces the member fields an administrator can edit.
func (m MemberStore) Update(ctx context.Context, member *data.Member) error {
	oid, ok := objectID(member.ID)
	if !ok {
		return data.ErrRecordNotFound
	}

	ts := now()
	update := bson.M{"$set": bson.M{
		"name":           member.Name,
		"email":          member.Email,
		"phone":          member.Phone,
		"address":        member.Address,
		"membershipType": member.MembershipType,
		"status":         member.Status,
		"updatedAt":      ts,
	}}

	res, err := m.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return data.ErrDuplicateEmail
		}
		return fmt.Errorf("mongodb: update member: %w", err)
	}
	if res.MatchedCount == 0 {
		return data.ErrRecordNotFound
	}

	member.UpdatedAt = ts
	return nil
}

// Delete removes one member document.
func (m MemberStore) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return data.ErrRecordNotFound
	}

	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongodb: delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return data.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of member documents.
func (m MemberStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.coll)
}
