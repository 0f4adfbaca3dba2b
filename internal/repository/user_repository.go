package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

const uniqueViolation = "23505"

// Predicate maps a column name to the value it must equal.
type Predicate map[string]any

// UserRepository defines persistence access for user profiles.
type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string, activeOnly bool) (*domain.User, error)
	FindBy(ctx context.Context, predicate Predicate) (*domain.User, error)
}

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Columns accepted in a Predicate.
var predicateColumns = map[string]struct{}{
	"user_id":   {},
	"name":      {},
	"email":     {},
	"is_active": {},
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	const query = `
        INSERT INTO "user" (name, email, password)
        VALUES ($1, $2, $3)
        ON CONFLICT DO NOTHING
        RETURNING user_id, is_active`

	user := &domain.User{Name: name, Email: email, PasswordHash: passwordHash}
	err := r.db.QueryRow(ctx, query, name, email, passwordHash).Scan(&user.ID, &user.Active)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		// ON CONFLICT swallowed the insert: nothing was written.
		return nil, apperrors.NewUserNotCreated()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, apperrors.NewUserExists()
	}
	return nil, apperrors.NewUnexpected("error inserting record", err)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string, activeOnly bool) (*domain.User, error) {
	predicate := Predicate{"email": email}
	if activeOnly {
		predicate["is_active"] = true
	}
	return r.FindBy(ctx, predicate)
}

func (r *userRepository) FindBy(ctx context.Context, predicate Predicate) (*domain.User, error) {
	where, args, err := buildWhere(predicate)
	if err != nil {
		return nil, err
	}

	query := `
        SELECT user_id, name, email, password, is_active
        FROM "user" WHERE ` + where + `
        LIMIT 1`

	var user domain.User
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUserNotFound()
		}
		return nil, apperrors.NewUnexpected("error fetching record", err)
	}
	return &user, nil
}

// buildWhere renders the predicate as a conjunction of equalities in column order.
func buildWhere(predicate Predicate) (string, []any, error) {
	if len(predicate) == 0 {
		return "", nil, apperrors.NewValidationError("empty user predicate", nil)
	}
	columns := make([]string, 0, len(predicate))
	for column := range predicate {
		if _, ok := predicateColumns[column]; !ok {
			return "", nil, apperrors.NewValidationError(fmt.Sprintf("unsupported user column %q", column), nil)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		clauses[i] = fmt.Sprintf("%s = $%d", column, i+1)
		args[i] = predicate[column]
	}
	return strings.Join(clauses, " AND "), args, nil
}
