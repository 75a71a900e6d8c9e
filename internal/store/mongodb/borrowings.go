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

type borrowingDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	BookID     primitive.ObjectID `bson:"bookId"`
	MemberID   primitive.ObjectID `bson:"memberId"`
	BookTitle  string             `bson:"bookTitle"`
	MemberName string             `bson:"memberName"`
	BorrowDate time.Time          `bson:"borrowDate"`
	DueDate    time.Time          `bson:"dueDate"`
	ReturnDate *time.Time         `bson:"returnDate,omitempty"`
	Status     string             `bson:"status"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d borrowingDocument) record() *data.BorrowRecord {
	return &data.BorrowRecord{
		ID:         hexID(d.ID),
		BookID:     hexID(d.BookID),
		MemberID:   hexID(d.MemberID),
		BookTitle:  d.BookTitle,
		MemberName: d.MemberName,
		BorrowDate: d.BorrowDate,
		DueDate:    d.DueDate,
		ReturnDate: d.ReturnDate,
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// BorrowingStore implements data.BorrowingStore over the borrowings collection.
type BorrowingStore struct {
	coll *mongo.Collection
}

// Insert adds record to the borrowings collection.
func (m BorrowingStore) Insert(ctx context.Context, record *data.BorrowRecord) error {
	bookID, ok := objectID(record.BookID)
	if !ok {
		return fmt.Errorf("mongodb: insert borrowing: malformed book id %q", record.BookID)
	}
	memberID, ok := objectID(record.MemberID)
	if !ok {
		return fmt.Errorf("mongodb: insert borrowing: malformed member id %q", record.MemberID)
	}

	ts := now()
	doc := borrowingDocument{
		BookID:     bookID,
		MemberID:   memberID,
		BookTitle:  record.BookTitle,
		MemberName: record.MemberName,
		BorrowDate: record.BorrowDate.UTC().Truncate(time.Millisecond),
		DueDate:    record.DueDate.UTC().Truncate(time.Millisecond),
		Status:     record.Status,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongodb: insert borrowing: %w", err)
	}

	record.ID = hexID(res.InsertedID.(primitive.ObjectID))
	record.BorrowDate = doc.BorrowDate
	record.DueDate = doc.DueDate
	record.CreatedAt = ts
	record.UpdatedAt = ts
	return nil
}

// Get fetches one loan by its hex ObjectID.
func (m BorrowingStore) Get(ctx context.Context, id string) (*data.BorrowRecord, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, data.ErrRecordNotFound
	}

	var doc borrowingDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("mongodb: get borrowing: %w", err)
	}
	return doc.record(), nil
}

// GetAll returns the loans matching filter, newest first.
func (m BorrowingStore) GetAll(ctx context.Context, filter data.BorrowingFilter) ([]*data.BorrowRecord, error) {
	query, ok := borrowingQuery(filter)
	if !ok {
		return []*data.BorrowRecord{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := m.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: find borrowings: %w", err)
	}

	var docs []borrowingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode borrowings: %w", err)
	}

	records := make([]*data.BorrowRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.record())
	}
	return records, nil
}

// MarkReturned sets the loan returned in one update guarded on status borrowed.
func (m BorrowingStore) MarkReturned(ctx context.Context, id string, at time.Time) error {
	oid, ok := objectID(id)
	if !ok {
		return data.ErrRecordNotFound
	}

	returnedAt := at.UTC().Truncate(time.Millisecond)
	res, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": data.StatusBorrowed},
		bson.M{"$set": bson.M{
			"status":     data.StatusReturned,
			"returnDate": returnedAt,
			"updatedAt":  returnedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: mark returned: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	found, err := exists(ctx, m.coll, oid)
	if err != nil {
		return fmt.Errorf("mongodb: mark returned: %w", err)
	}
	if !found {
		return data.ErrRecordNotFound
	}
	return data.ErrAlreadyReturned
}

// Count returns the number of loan documents.
func (m BorrowingStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.coll)
}
