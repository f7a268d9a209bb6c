// Package verification manages one-time email verification tokens.
package verification

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"social-auth-service/internal/db"
)

// TokenTTL is the window during which an issued token may be consumed.
const TokenTTL = 24 * time.Hour

// ErrTokenNotFound covers unknown, already-used and expired tokens.
// Callers cannot distinguish the three; that keeps the endpoint from
// acting as an oracle for issued tokens.
var ErrTokenNotFound = errors.New("verification token not found")

type Ledger struct {
	db  *db.DB
	now func() time.Time
}

func NewLedger(db *db.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Issue creates a new unused token for an account. Older outstanding
// tokens stay valid; each is independently single-use.
func (l *Ledger) Issue(ctx context.Context, accountID string) (string, error) {
	token := uuid.NewString()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO email_verification_tokens (user_id, token)
		VALUES ($1, $2)
	`, accountID, token)
	if err != nil {
		return "", err
	}

	return token, nil
}

// Consume marks the token used and flips the account's email_verified
// flag in one transaction, so a crash cannot leave a used token pointing
// at an unverified account. Returns the verified account id.
func (l *Ledger) Consume(ctx context.Context, token string) (string, error) {
	var accountID string

	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		cutoff := l.now().Add(-TokenTTL)

		err := tx.QueryRowContext(ctx, `
			UPDATE email_verification_tokens
			SET is_used = true
			WHERE token = $1
			  AND is_used = false
			  AND created_at > $2
			RETURNING user_id
		`, token, cutoff).Scan(&accountID)

		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET email_verified = true, updated_at = NOW()
			WHERE id = $1
		`, accountID)
		return err
	})

	if err != nil {
		return "", err
	}

	return accountID, nil
}
