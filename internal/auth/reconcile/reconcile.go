// Package reconcile maps a normalized provider profile to a local
// account: an existing link wins, then an email match (policy-gated),
// then a brand-new account. The whole decision runs in one transaction
// with the (provider, provider_user_id) unique constraint as the
// ultimate guard against concurrent duplicate logins.
package reconcile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"social-auth-service/internal/auth"
	"social-auth-service/internal/auth/account"
	"social-auth-service/internal/db"
)

// MergePolicy controls whether a provider identity may attach to a
// pre-existing local account purely on a matching email claim. Trusting
// the claim is convenient but merges into password accounts without
// proof the same human controls both, so it is an explicit choice.
type MergePolicy string

const (
	// MergeAlways trusts any provider email claim (original behavior).
	MergeAlways MergePolicy = "always"
	// MergeVerifiedEmail requires the provider itself to assert the
	// email as verified.
	MergeVerifiedEmail MergePolicy = "verified-email"
	// MergeNever disables email merging; unlinked identities always get
	// a fresh account.
	MergeNever MergePolicy = "never"
)

func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case MergeAlways, MergeVerifiedEmail, MergeNever:
		return MergePolicy(s), nil
	}
	return "", fmt.Errorf("unknown email merge policy: %q", s)
}

type Engine struct {
	db     *db.DB
	policy MergePolicy
}

func NewEngine(db *db.DB, policy MergePolicy) *Engine {
	return &Engine{db: db, policy: policy}
}

const (
	accountColumns  = `id, username, email, password_hash, email_verified, created_at, updated_at`
	accountColumnsU = `u.id, u.username, u.email, u.password_hash, u.email_verified, u.created_at, u.updated_at`
)

// Reconcile resolves a profile to an account. Idempotent for a given
// (provider, subject id): the loser of a concurrent duplicate login gets
// a unique violation and re-reads the link the winner created.
func (e *Engine) Reconcile(ctx context.Context, p *auth.Profile) (*account.Account, error) {
	if p == nil || p.SubjectID == "" {
		return nil, errors.New("reconcile: profile missing subject id")
	}

	acc, err := e.reconcileOnce(ctx, p)
	if db.IsUniqueViolation(err, "identities_provider_unique") {
		return e.linkedAccount(ctx, p)
	}
	return acc, err
}

func (e *Engine) reconcileOnce(ctx context.Context, p *auth.Profile) (*account.Account, error) {
	var acc *account.Account

	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Existing link: the dominant path for repeat logins.
		found, err := linkedInTx(ctx, tx, p)
		if err != nil {
			return err
		}
		if found != nil {
			acc = found
			return refreshRawProfile(ctx, tx, p)
		}

		// 2. Email merge into an existing account, when policy allows.
		if e.mergeAllowed(p) {
			found, err = accountByEmailInTx(ctx, tx, p.Email)
			if err != nil {
				return err
			}
			if found != nil {
				acc = found
				return insertLink(ctx, tx, acc.ID, p)
			}
		}

		// 3. Brand-new account.
		acc, err = createAccountInTx(ctx, tx, p)
		if err != nil {
			return err
		}
		return insertLink(ctx, tx, acc.ID, p)
	})

	if err != nil {
		return nil, err
	}
	return acc, nil
}

// linkedAccount re-reads the link after losing the creation race.
func (e *Engine) linkedAccount(ctx context.Context, p *auth.Profile) (*account.Account, error) {
	row := e.db.QueryRowContext(ctx, `
		SELECT `+accountColumnsU+`
		FROM users u
		JOIN identities i ON i.user_id = u.id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`, p.Provider, p.SubjectID)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (e *Engine) mergeAllowed(p *auth.Profile) bool {
	if p.Email == "" {
		return false
	}
	switch e.policy {
	case MergeAlways:
		return true
	case MergeVerifiedEmail:
		return p.EmailVerified
	default:
		return false
	}
}

func linkedInTx(ctx context.Context, tx *sql.Tx, p *auth.Profile) (*account.Account, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+accountColumnsU+`
		FROM users u
		JOIN identities i ON i.user_id = u.id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`, p.Provider, p.SubjectID)

	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return acc, err
}

func accountByEmailInTx(ctx context.Context, tx *sql.Tx, email string) (*account.Account, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)

	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return acc, err
}

func createAccountInTx(ctx context.Context, tx *sql.Tx, p *auth.Profile) (*account.Account, error) {
	username, err := availableUsername(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	email := p.Email
	if email == "" {
		email = fmt.Sprintf("%s_%s@example.invalid", p.Provider, p.SubjectID)
	}

	// Provider-asserted identity counts as proof for the address the
	// provider itself supplied; a synthetic placeholder is never verified.
	row := tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, email_verified)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns+`
	`, username, email, p.Email != "")

	return scanAccount(row)
}

func insertLink(ctx context.Context, tx *sql.Tx, accountID string, p *auth.Profile) error {
	raw, err := rawProfileJSON(p)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id, raw_profile)
		VALUES ($1, $2, $3, $4)
	`, accountID, p.Provider, p.SubjectID, raw)
	return err
}

// Links are immutable apart from the raw profile snapshot, which is
// updated on every repeat login.
func refreshRawProfile(ctx context.Context, tx *sql.Tx, p *auth.Profile) error {
	raw, err := rawProfileJSON(p)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE identities
		SET raw_profile = $3, updated_at = NOW()
		WHERE provider = $1
		  AND provider_user_id = $2
	`, p.Provider, p.SubjectID, raw)
	return err
}

func rawProfileJSON(p *auth.Profile) ([]byte, error) {
	if p.Raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Raw)
}

// availableUsername derives a handle from the profile and disambiguates
// it against existing users with a numeric suffix.
func availableUsername(ctx context.Context, tx *sql.Tx, p *auth.Profile) (string, error) {
	base := UsernameBase(p)
	username := base

	for i := 1; ; i++ {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM users WHERE LOWER(username) = LOWER($1)
			)
		`, username).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, i+1)
	}
}

// UsernameBase lowercases the display name (falling back to the email
// local part, then the subject id) and strips everything outside
// [a-z0-9._-].
func UsernameBase(p *auth.Profile) string {
	source := p.DisplayName
	if source == "" {
		source = p.Email
	}
	if source == "" {
		source = fmt.Sprintf("%s_%s", p.Provider, p.SubjectID)
	}

	source, _, _ = strings.Cut(source, "@")
	source = strings.ToLower(strings.ReplaceAll(source, " ", ""))

	var b strings.Builder
	for _, r := range source {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		subject := p.SubjectID
		if len(subject) > 6 {
			subject = subject[:6]
		}
		return "user_" + subject
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
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
