package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aoideee/libraryhub/internal/data"
)

func Test_ContainsAny_QuotesRegexMetacharacters(t *testing.T) {
	// act
	clauses := containsAny("C++ (2nd ed.)", "title", "author")

	// assert
	require.Len(t, clauses, 2)
	assert.Equal(t, bson.M{"title": bson.M{"$regex": `C\+\+ \(2nd ed\.\)`, "$options": "i"}}, clauses[0])
	assert.Equal(t, bson.M{"author": bson.M{"$regex": `C\+\+ \(2nd ed\.\)`, "$options": "i"}}, clauses[1])
}

func Test_BookQuery_IsEmpty_WhenNoFilterGiven(t *testing.T) {
	assert.Equal(t, bson.M{}, bookQuery(data.BookFilter{}))
}

func Test_BookQuery_CombinesSearchAndCategory(t *testing.T) {
	// act
	query := bookQuery(data.BookFilter{Search: "butler", Category: "Fiction"})

	// assert
	assert.Equal(t, bson.M{"$regex": "^Fiction$"}, query["category"])
	assert.Len(t, query["$or"], 3)
}

func Test_MemberQuery_FiltersOnStatus(t *testing.T) {
	// act
	query := memberQuery(data.MemberFilter{Status: data.MemberInactive})

	// assert
	assert.Equal(t, bson.M{"status": data.MemberInactive}, query)
}

func Test_BorrowingQuery_ConvertsIDs(t *testing.T) {
	// arrange
	bookID := primitive.NewObjectID()
	memberID := primitive.NewObjectID()
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	// act
	query, ok := borrowingQuery(data.BorrowingFilter{
		Status:    data.StatusBorrowed,
		BookID:    bookID.Hex(),
		MemberID:  memberID.Hex(),
		DueBefore: due,
	})

	// assert
	require.True(t, ok)
	assert.Equal(t, data.StatusBorrowed, query["status"])
	assert.Equal(t, bookID, query["bookId"])
	assert.Equal(t, memberID, query["memberId"])
	assert.Equal(t, bson.M{"$lt": due}, query["dueDate"])
}

func Test_BorrowingQuery_MatchesNothing_WhenIDMalformed(t *testing.T) {
	_, ok := borrowingQuery(data.BorrowingFilter{MemberID: "not-an-id"})
	assert.False(t, ok)
}

func Test_SortSpec_BreaksTiesByID(t *testing.T) {
	tests := []struct {
		name string
		sort string
		want bson.D
	}{
		{"ascending_title", "title", bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}},
		{"descending_created", "-createdAt", bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{"unknown_falls_back_to_newest", "bogus", bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := data.Filters{Sort: tc.sort, SortSafeList: data.BookSortSafeList}
			assert.Equal(t, tc.want, sortSpec(f))
		})
	}
}

func Test_FindOptions_SkipsToPage(t *testing.T) {
	// act
	opts := findOptions(data.Filters{Page: 3, PageSize: 10, Sort: "title", SortSafeList: data.BookSortSafeList})

	// assert
	require.NotNil(t, opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, int64(20), *opts.Skip)
}

func Test_FindOptions_ReturnsEverything_WhenPaginationDisabled(t *testing.T) {
	opts := findOptions(data.Filters{Sort: data.DefaultSort, SortSafeList: data.BookSortSafeList})
	assert.Nil(t, opts.Limit)
	assert.Nil(t, opts.Skip)
}

func Test_FindOptions_IgnoresCase_OnlyWhenSortingText(t *testing.T) {
	// act
	byTitle := findOptions(data.Filters{Sort: "-title", SortSafeList: data.BookSortSafeList})
	byYear := findOptions(data.Filters{Sort: "publishedYear", SortSafeList: data.BookSortSafeList})

	// assert
	require.NotNil(t, byTitle.Collation)
	assert.Equal(t, 2, byTitle.Collation.Strength)
	assert.Nil(t, byYear.Collation)
}
