package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aoideee/libraryhub/internal/data"
)

// containsAny matches documents where any of fields contains search,
// ignoring case. The search text is matched literally.
func containsAny(search string, fields ...string) bson.A {
	pattern := regexp.QuoteMeta(search)
	clauses := make(bson.A, 0, len(fields))
	for _, field := range fields {
		clauses = append(clauses, bson.M{field: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return clauses
}

// exactly matches field values equal to value, letter case included, even
// under a case-insensitive collation.
func exactly(value string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(value) + "$"}
}

func bookQuery(f data.BookFilter) bson.M {
	query := bson.M{}
	if f.Search != "" {
		query["$or"] = containsAny(f.Search, "title", "author", "isbn")
	}
	if f.Category != "" {
		query["category"] = exactly(f.Category)
	}
	return query
}

func memberQuery(f data.MemberFilter) bson.M {
	query := bson.M{}
	if f.Search != "" {
		query["$or"] = containsAny(f.Search, "name", "email", "phone")
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	return query
}

// borrowingQuery reports false when an id in the filter is malformed and so
// nothing can match.
func borrowingQuery(f data.BorrowingFilter) (bson.M, bool) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Search != "" {
		query["$or"] = containsAny(f.Search, "bookTitle", "memberName")
	}
	if f.BookID != "" {
		oid, ok := objectID(f.BookID)
		if !ok {
			return nil, false
		}
		query["bookId"] = oid
	}
	if f.MemberID != "" {
		oid, ok := objectID(f.MemberID)
		if !ok {
			return nil, false
		}
		query["memberId"] = oid
	}
	if !f.DueBefore.IsZero() {
		query["dueDate"] = bson.M{"$lt": f.DueBefore}
	}
	return query, true
}

// sortSpec orders by the filter's sort field with _id as the tie breaker.
func sortSpec(f data.Filters) bson.D {
	direction := 1
	if f.SortDescending() {
		direction = -1
	}
	return bson.D{
		{Key: f.SortField(), Value: direction},
		{Key: "_id", Value: direction},
	}
}

// textSortFields are ordered ignoring letter case.
var textSortFields = map[string]bool{"title": true, "author": true, "name": true, "email": true}

func findOptions(f data.Filters) *options.FindOptions {
	opts := options.Find().SetSort(sortSpec(f))
	if textSortFields[f.SortField()] {
		opts.SetCollation(caseInsensitive)
	}
	if limit := f.Limit(); limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(f.Offset()))
	}
	return opts
}
