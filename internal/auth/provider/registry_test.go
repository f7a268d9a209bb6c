package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-auth-service/internal/auth"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string                           { return s.name }
func (s *stubProvider) AuthCodeURL(state, challenge string) string { return "" }
func (s *stubProvider) ExchangeCode(ctx context.Context, code, verifier string) (*Tokens, error) {
	return nil, nil
}
func (s *stubProvider) FetchProfile(ctx context.Context, tokens *Tokens) (*auth.Profile, error) {
	return nil, nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry(&stubProvider{name: "google"}, &stubProvider{name: "github"})

	p, err := registry.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry(&stubProvider{name: "google"})

	_, err := registry.Get("myspace")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
