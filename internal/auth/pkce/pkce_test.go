package pkce

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifier(t *testing.T) {
	verifier, err := GenerateVerifier()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(verifier), 43)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9\-_]+$`), verifier)

	other, err := GenerateVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, verifier, other)
}

func TestChallengeFor(t *testing.T) {
	// Test vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", ChallengeFor(verifier))
}

func TestChallengeForHasNoPadding(t *testing.T) {
	verifier, err := GenerateVerifier()
	require.NoError(t, err)

	challenge := ChallengeFor(verifier)
	assert.Len(t, challenge, 43)
	assert.NotContains(t, challenge, "=")
	assert.NotContains(t, challenge, "+")
	assert.NotContains(t, challenge, "/")
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	require.NoError(t, err)
	assert.Len(t, state, 43)
}
