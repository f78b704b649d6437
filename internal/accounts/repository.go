// Package accounts provides read-only access to platform user accounts.
// The intake service never writes this table.
package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courseloop/order-intake/internal/domain"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) ByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.queryOne(ctx, `
		SELECT id, email, full_name
		FROM accounts
		WHERE id = $1
	`, id)
}

// ByEmail matches case-insensitively; the caller passes a normalized email
// but stored addresses may carry their original casing.
func (r *AccountRepository) ByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.queryOne(ctx, `
		SELECT id, email, full_name
		FROM accounts
		WHERE LOWER(TRIM(email)) = $1
	`, email)
}

// ListNamed returns every account with a full name set, the candidate pool
// for fuzzy name matching.
func (r *AccountRepository) ListNamed(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, full_name
		FROM accounts
		WHERE full_name IS NOT NULL AND full_name <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *AccountRepository) queryOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account  domain.Account
		email    sql.NullString
		fullName sql.NullString
	)

	if err := row.Scan(&account.ID, &email, &fullName); err != nil {
		return nil, err
	}

	account.Email = email.String
	account.FullName = fullName.String

	return &account, nil
}
