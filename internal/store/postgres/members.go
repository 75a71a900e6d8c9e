package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aoideee/libraryhub/internal/data"
)

var memberColumns = []any{
	"id", "name", "email", "phone", "address", "membership_type",
	"status", "membership_date", "created_at", "updated_at",
}

type memberRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	Address        string    `db:"address"`
	MembershipType string    `db:"membership_type"`
	Status         string    `db:"status"`
	MembershipDate time.Time `db:"membership_date"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r memberRow) member() *data.Member {
	return &data.Member{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		MembershipType: r.MembershipType,
		Status:         r.Status,
		MembershipDate: r.MembershipDate.UTC(),
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

// MemberStore implements data.MemberStore over the members table.
type MemberStore struct {
	db *sqlx.DB
}

// Insert adds a row for member; members_email_key rejects a taken email.
func (m MemberStore) Insert(ctx context.Context, member *data.Member) error {
	ts := now()
	id := uuid.NewString()
	membershipDate := member.MembershipDate.UTC().Truncate(time.Microsecond)

	query, args, err := dialect.Insert(tableMembers).Prepared(true).
		Rows(goqu.Record{
			"id":              id,
			"name":            member.Name,
			"email":           member.Email,
			"phone":           member.Phone,
			"address":         member.Address,
			"membership_type": member.MembershipType,
			"status":          member.Status,
			"membership_date": membershipDate,
			"created_at":      ts,
			"updated_at":      ts,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: insert member: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return data.ErrDuplicateEmail
		}
		return fmt.Errorf("postgres: insert member: %w", err)
	}

	member.ID = id
	member.MembershipDate = membershipDate
	member.CreatedAt = ts
	member.UpdatedAt = ts
	return nil
}

// Get selects one member by id.
func (m MemberStore) Get(ctx context.Context, id string) (*data.Member, error) {
	if !validID(id) {
		return nil, data.ErrRecordNotFound
	}
	return m.getWhere(ctx, goqu.C("id").Eq(id))
}

// GetByEmail matches on lower(email).
func (m MemberStore) GetByEmail(ctx context.Context, email string) (*data.Member, error) {
	return m.getWhere(ctx, goqu.Func("lower", goqu.C("email")).Eq(strings.ToLower(email)))
}

func (m MemberStore) getWhere(ctx context.Context, where goqu.Expression) (*data.Member, error) {
	query, args, err := dialect.From(tableMembers).Prepared(true).
		Select(memberColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: get member: %w", err)
	}

	var row memberRow
	if err := m.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrRecordNotFound
		}
		return nil, fmt.Errorf("postgres: get member: %w", err)
	}
	return row.member(), nil
}

// GetAll selects one page of the members matching filter along with the total.
func (m MemberStore) GetAll(ctx context.Context, filter data.MemberFilter) ([]*data.Member, data.Metadata, error) {
	where := memberWhere(filter)

	total, err := count(ctx, m.db, tableMembers, where...)
	if err != nil {
		return nil, data.Metadata{}, err
	}

	query, args, err := selectPage(tableMembers, memberColumns, where, filter.Filters).ToSQL()
	if err != nil {
		return nil, data.Metadata{}, fmt.Errorf("postgres: list members: %w", err)
	}

	var rows []memberRow
	if err := m.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, data.Metadata{}, fmt.Errorf("postgres: list members: %w", err)
	}

	members := make([]*data.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.member())
	}
	return members, data.CalculateMetadata(total, filter.Filters), nil
}

// Update rewrites the editable member columns.
func (m MemberStore) Update(ctx context.Context, member *data.Member) error {
	if !validID(member.ID) {
		return data.ErrRecordNotFound
	}

	ts := now()
	ds := dialect.Update(tableMembers).Prepared(true).
		Set(goqu.Record{
			"name":            member.Name,
			"email":           member.Email,
			"phone":           member.Phone,
			"address":         member.Address,
			"membership_type": member.MembershipType,
			"status":          member.Status,
			"updated_at":      ts,
		}).
		Where(goqu.C("id").Eq(member.ID))

	updated, err := execGuarded(ctx, m.db, ds)
	if err != nil {
		if isUniqueViolation(err) {
			return data.ErrDuplicateEmail
		}
		return fmt.Errorf("postgres: update member: %w", err)
	}
	if !updated {
		return data.ErrRecordNotFound
	}

	member.UpdatedAt = ts
	return nil
}

// Delete removes one member row.
func (m MemberStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return data.ErrRecordNotFound
	}

	query, args, err := dialect.Delete(tableMembers).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("postgres: delete member: %w", err)
	}

	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete member: %w", err)
	}
	if n == 0 {
		return data.ErrRecordNotFound
	}
	return nil
}

// Count returns the number of member rows.
func (m MemberStore) Count(ctx context.Context) (int, error) {
	return count(ctx, m.db, tableMembers)
}
