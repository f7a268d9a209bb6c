// Package attempt keeps the pre-redirect OAuth login state server-side:
// the CSRF state nonce maps to the provider and PKCE verifier for one
// login attempt. Records are short-lived and strictly single-use, and
// the verifier is never sent to the provider before the code exchange
// nor written to logs.
package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL matches the provider-side authorization timeout; an attempt older
// than this cannot complete anyway.
const TTL = 5 * time.Minute

var ErrNotFound = errors.New("login attempt not found")

// Attempt is one in-flight authorization redirect.
type Attempt struct {
	State    string `json:"state"`
	Provider string `json:"provider"`
	Verifier string `json:"verifier"`
}

type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		prefix: "oauth_attempt:",
	}
}

func (s *Store) key(state string) string {
	return s.prefix + state
}

func (s *Store) Create(ctx context.Context, a Attempt) error {
	if a.State == "" || a.Provider == "" || a.Verifier == "" {
		return fmt.Errorf("attempt: missing state, provider or verifier")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("attempt: failed to marshal: %w", err)
	}

	return s.client.Set(ctx, s.key(a.State), data, TTL).Err()
}

// Consume atomically fetches and deletes the attempt for a state nonce.
// A replayed callback finds nothing and fails.
func (s *Store) Consume(ctx context.Context, state string) (*Attempt, error) {
	val, err := s.client.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var a Attempt
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("attempt: failed to unmarshal: %w", err)
	}

	return &a, nil
}
