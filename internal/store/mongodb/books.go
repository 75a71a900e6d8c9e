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

type bookDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Title             string             `bson:"title"`
	Author            string             `bson:"author"`
	ISBN              string             `bson:"isbn"`
	Category          string             `bson:"category"`
	PublishedYear     int                `bson:"publishedYear"`
	Quantity          int                `bson:"quantity"`
	AvailableQuantity int                `bson:"availableQuantity"`
	Description       string             `bson:"description,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

func (d bookDocument) book() *data.Book {
	return &data.Book{
		ID:                hexID(d.ID),
		Title:             d.Title,
		Author:            d.Author,
		ISBN:              d.ISBN,
		Category:          d.Category,
		PublishedYear:     d.PublishedYear,
		Quantity:          d.Quantity,
		AvailableQuantity: d.AvailableQuantity,
		Description:       d.Description,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// BookStore implements data.BookStore over the books collection.
type BookStore struct {
	coll *mongo.Collection
}

// Insert adds book to the books collection and writes the new ObjectID back.
func (m BookStore) Insert(ctx context.Context, book *data.Book) error {
	ts := now()
	doc := bookDocument{
		Title:             book.Title,
		Author:            book.Author,
		ISBN:              book.ISBN,
		Category:          book.Category,
		PublishedYear:     book.PublishedYear,
		Quantity:          book.Quantity,
		AvailableQuantity: book.AvailableQuantity,
		Description:       book.Description,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongodb: insert book: %w", err)
	}

	book.ID = hexID(res.InsertedID.(primitive.ObjectID))
	book.CreatedAt = ts
	book.UpdatedAt = ts
	return nil
}

// Get fetches one book by its hex ObjectID.
func (m BookStore) Get(ctx context.Context, id string) (*data.Book, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, data.ErrRecordNotFound
	}

	var doc bookDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("mongodb: get book: %w", err)
	}
	return doc.book(), nil
}

// GetAll runs the filter as one count and one paged find.
func (m BookStore) GetAll(ctx context.Context, filter data.BookFilter) ([]*data.Book, data.Metadata, error) {
	query := bookQuery(filter)

	total, err := m.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: count books: %w", err)
	}

	cursor, err := m.coll.Find(ctx, query, findOptions(filter.Filters))
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: find books: %w", err)
	}

	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, data.Metadata{}, fmt.Errorf("mongodb: decode books: %w", err)
	}

	books := make([]*data.Book, 0, len(docs))
	for _, doc := range docs {
		books = append(books, doc.book())
	}
	return books, data.CalculateMetadata(int(total), filter.Filters), nil
}

// Update rewrites book in a single FindOneAndUpdate guarded on previousQuantity.
func (m BookStore) Update(ctx context.Context, book *data.Book, previousQuantity int) error {
	oid, ok := objectID(book.ID)
	if !ok {
		return data.ErrRecordNotFound
	}

	delta := book.Quantity - previousQuantity
	filter := bson.M{
		"_id":               oid,
		"quantity":          previousQuantity,
		"availableQuantity": bson.M{"$gte": -delta},
	}
	update := bson.M{
		"$set": bson.M{
			"title":         book.Title,
			"author":        book.Author,
			"isbn":          book.ISBN,
			"category":      book.Category,
			"publishedYear": book.PublishedYear,
			"quantity":      book.Quantity,
			"description":   book.Description,
			"updatedAt":     now(),
		},
		"$inc": bson.M{"availableQuantity": delta},
	}

	var doc bookDocument
	err := m.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("mongodb: update book: %w", err)
		}
		found, existsErr := exists(ctx, m.coll, oid)
		if existsErr != nil {
			return fmt.Errorf("mongodb: update book: %w", existsErr)
		}
		if !found {
			return data.ErrRecordNotFound
		}
		return data.ErrEditConflict
	}

	*book = *doc.book()
	return nil
}

// Delete removes one book document.
func (m BookStore) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return data.ErrRecordNotFound
	}

	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongodb: delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return data.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of book documents.
func (m BookStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.coll)
}

// ReserveCopy decrements availableQuantity in one update guarded on it being positive.
func (m BookStore) ReserveCopy(ctx context.Context, id string) error {
	return m.adjustCopies(ctx, id, -1,
		bson.M{"availableQuantity": bson.M{"$gt": 0}},
		data.ErrNoCopiesAvailable,
	)
}

// ReleaseCopy increments availableQuantity in one update guarded on it being below quantity.
func (m BookStore) ReleaseCopy(ctx context.Context, id string) error {
	return m.adjustCopies(ctx, id, 1,
		bson.M{"$expr": bson.M{"$lt": bson.A{"$availableQuantity", "$quantity"}}},
		data.ErrInventoryFull,
	)
}

// adjustCopies applies delta to availableQuantity in a single update guarded
// by guard, returning guardErr when the book exists but the guard fails.
func (m BookStore) adjustCopies(ctx context.Context, id string, delta int, guard bson.M, guardErr error) error {
	oid, ok := objectID(id)
	if !ok {
		return data.ErrRecordNotFound
	}

	filter := bson.M{"_id": oid}
	for k, v := range guard {
		filter[k] = v
	}
	update := bson.M{
		"$inc": bson.M{"availableQuantity": delta},
		"$set": bson.M{"updatedAt": now()},
	}

	res, err := m.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb: adjust copies: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	found, err := exists(ctx, m.coll, oid)
	if err != nil {
		return fmt.Errorf("mongodb: adjust copies: %w", err)
	}
	if !found {
		return data.ErrRecordNotFound
	}
	return guardErr
}
