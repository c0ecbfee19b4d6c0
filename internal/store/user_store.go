package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// filterColumns is the whitelist of recipient-filter fields. Anything outside
// it is rejected rather than interpolated into SQL.
var filterColumns = map[string]string{
	"is_active": "is_active",
	"role":      "role",
	"username":  "username",
	"email":     "email",
}

const userColumns = `id, pkid, email, username, first_name, last_name, phone_number, is_active, role`

// GetByID loads a user, returning NOT_FOUND when the record vanished.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return u, nil
}

// CountByFilter returns the number of users matching the recipient filter.
func (s *UserStore) CountByFilter(ctx context.Context, filter map[string]interface{}) (int64, error) {
	where, args, err := buildFilterWhere(filter, 0)
	if err != nil {
		return 0, err
	}

	var count int64
	query := `SELECT COUNT(*) FROM users` + where
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users by filter: %w", err)
	}
	return count, nil
}

// StreamByFilter walks the matching users in batches using keyset pagination
// on pkid, so a large population never sits in memory at once. The callback
// runs once per user; its error aborts the stream.
func (s *UserStore) StreamByFilter(ctx context.Context, filter map[string]interface{}, batchSize int, fn func(*models.User) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}

	var cursor int64
	for {
		users, err := s.pageByFilter(ctx, filter, cursor, batchSize)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		for _, u := range users {
			if err := fn(u); err != nil {
				return err
			}
			cursor = u.PkID
		}

		if len(users) < batchSize {
			return nil
		}
	}
}

func (s *UserStore) pageByFilter(ctx context.Context, filter map[string]interface{}, afterPkID int64, limit int) ([]*models.User, error) {
	where, args, err := buildFilterWhere(filter, 2)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users WHERE pkid > $1%s ORDER BY pkid LIMIT $2`,
		strings.Replace(where, " WHERE ", " AND ", 1),
	)
	queryArgs := append([]interface{}{afterPkID, limit}, args...)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("page users by filter: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// buildFilterWhere translates a recipient filter into a WHERE clause. Keys
// are sorted so the generated SQL is deterministic; unknown fields or
// non-primitive values produce INVALID_FILTER.
func buildFilterWhere(filter map[string]interface{}, argOffset int) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		clauses []string
		args    []interface{}
	)
	for _, key := range keys {
		column, ok := filterColumns[key]
		if !ok {
			return "", nil, errors.NewInvalidFilterError(fmt.Sprintf("unknown filter field %q", key))
		}

		value := filter[key]
		switch value.(type) {
		case string, bool, int, int64, float64:
		default:
			return "", nil, errors.NewInvalidFilterError(fmt.Sprintf("filter field %q must be a primitive value", key))
		}

		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argOffset+len(args)))
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.PkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.Active, &u.Role,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
