package postgres

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/aoideee/libraryhub/internal/data"
)

// sortColumns maps the JSON field names clients sort by to table columns.
var sortColumns = map[string]string{
	"createdAt":      "created_at",
	"title":          "title",
	"author":         "author",
	"publishedYear":  "published_year",
	"name":           "name",
	"email":          "email",
	"membershipDate": "membership_date",
}

// textSortColumns are ordered ignoring letter case.
var textSortColumns = map[string]bool{"title": true, "author": true, "name": true, "email": true}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsAny matches rows where any of columns contains search, ignoring
// case. LIKE wildcards in search are matched literally.
func containsAny(search string, columns ...string) goqu.Expression {
	pattern := "%" + likeEscaper.Replace(search) + "%"
	clauses := make([]goqu.Expression, 0, len(columns))
	for _, column := range columns {
		clauses = append(clauses, goqu.C(column).ILike(pattern))
	}
	return goqu.Or(clauses...)
}

func bookWhere(f data.BookFilter) []goqu.Expression {
	var where []goqu.Expression
	if f.Search != "" {
		where = append(where, containsAny(f.Search, "title", "author", "isbn"))
	}
	if f.Category != "" {
		where = append(where, goqu.C("category").Eq(f.Category))
	}
	return where
}

func memberWhere(f data.MemberFilter) []goqu.Expression {
	var where []goqu.Expression
	if f.Search != "" {
		where = append(where, containsAny(f.Search, "name", "email", "phone"))
	}
	if f.Status != "" {
		where = append(where, goqu.C("status").Eq(f.Status))
	}
	return where
}

// borrowingWhere reports false when an id in the filter is malformed and so
// nothing can match.
func borrowingWhere(f data.BorrowingFilter) ([]goqu.Expression, bool) {
	var where []goqu.Expression
	if f.Status != "" {
		where = append(where, goqu.C("status").Eq(f.Status))
	}
	if f.Search != "" {
		where = append(where, containsAny(f.Search, "book_title", "member_name"))
	}
	if f.BookID != "" {
		if !validID(f.BookID) {
			return nil, false
		}
		where = append(where, goqu.C("book_id").Eq(f.BookID))
	}
	if f.MemberID != "" {
		if !validID(f.MemberID) {
			return nil, false
		}
		where = append(where, goqu.C("member_id").Eq(f.MemberID))
	}
	if !f.DueBefore.IsZero() {
		where = append(where, goqu.C("due_date").Lt(f.DueBefore))
	}
	return where, true
}

// orderBy sorts by the filter's column with seq as the tie breaker.
func orderBy(f data.Filters) []exp.OrderedExpression {
	column, ok := sortColumns[f.SortField()]
	if !ok {
		column = "created_at"
	}
	var key exp.Orderable = goqu.I(column)
	if textSortColumns[column] {
		key = goqu.Func("lower", goqu.I(column))
	}
	if f.SortDescending() {
		return []exp.OrderedExpression{key.Desc(), goqu.I("seq").Desc()}
	}
	return []exp.OrderedExpression{key.Asc(), goqu.I("seq").Asc()}
}

// selectPage builds a sorted, paginated SELECT of columns from table.
func selectPage(table string, columns []any, where []goqu.Expression, f data.Filters) *goqu.SelectDataset {
	ds := dialect.From(table).Prepared(true).
		Select(columns...).
		Where(where...).
		Order(orderBy(f)...)
	if limit := f.Limit(); limit > 0 {
		ds = ds.Limit(uint(limit)).Offset(uint(f.Offset()))
	}
	return ds
}
