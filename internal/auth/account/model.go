package account

import (
	"database/sql"
	"time"
)

// Account is a local user account. PasswordHash is NULL for accounts
// created from a social login only.
type Account struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  sql.NullString
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
