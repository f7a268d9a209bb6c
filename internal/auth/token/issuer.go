// Package token issues and validates the stateless session token pair:
// a short-lived access token and a longer-lived refresh token, both
// HS256-signed JWTs carrying the account id as subject.
//
// There is no server-side revocation list. Logout clears the refresh
// cookie client-side; a stolen refresh token stays valid until its
// natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature,
// expired, malformed, or wrong token type. Callers get no finer detail.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the signed contents of both token types.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// Pair is an issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, issuer string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a fresh access/refresh pair for an account.
func (i *Issuer) Issue(accountID string) (Pair, error) {
	access, err := i.sign(accountID, TypeAccess, i.accessTTL)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := i.sign(accountID, TypeRefresh, i.refreshTTL)
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and returns a new access token for
// the same account.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return "", err
	}
	return i.sign(claims.Subject, TypeAccess, i.accessTTL)
}

// Verify parses and validates a token, additionally requiring the
// embedded token_type claim to match wantType.
func (i *Issuer) Verify(tokenString string, wantType string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

func (i *Issuer) sign(accountID string, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
