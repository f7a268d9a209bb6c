package account

import (
	"context"
	"database/sql"
	"errors"

	"social-auth-service/internal/db"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

const accountColumns = `id, username, email, password_hash, email_verified, created_at, updated_at`

type Store struct {
	db *db.DB
}

func NewStore(db *db.DB) *Store {
	return &Store{db: db}
}

// Create inserts a password account. Uniqueness of email and username is
// enforced by the storage indexes, not application checks.
func (s *Store) Create(
	ctx context.Context,
	username string,
	email string,
	passwordHash string,
) (*Account, error) {

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, email_verified)
		VALUES ($1, $2, $3, false)
		RETURNING `+accountColumns+`
	`, username, email, passwordHash)

	acc, err := scanAccount(row)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, "users_email_lower_unique"):
			return nil, ErrEmailTaken
		case db.IsUniqueViolation(err, "users_username_lower_unique"):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return acc, nil
}

func (s *Store) ByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE id = $1
	`, id)

	return handleScan(scanAccount(row))
}

func (s *Store) ByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	return handleScan(scanAccount(row))
}

// Providers lists the external providers linked to an account, ordered
// for stable API responses.
func (s *Store) Providers(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider
		FROM identities
		WHERE user_id = $1
		ORDER BY provider
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return providers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&acc.PasswordHash,
		&acc.EmailVerified,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func handleScan(acc *Account, err error) (*Account, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}
