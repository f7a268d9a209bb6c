package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-auth-service/internal/auth/attempt"
	"social-auth-service/internal/auth/pkce"
	"social-auth-service/internal/auth/service"
	"social-auth-service/internal/logger"
)

// OAuthLogin starts the server-initiated flow: generate state and PKCE
// verifier, park them server-side keyed by the state nonce, redirect to
// the provider. The verifier never reaches the browser or the logs.
func (h *Handler) OAuthLogin(c *gin.Context) {
	providerName := c.Param("provider")

	state, err := pkce.GenerateState()
	if err != nil {
		respondError(c, err)
		return
	}

	verifier, err := pkce.GenerateVerifier()
	if err != nil {
		respondError(c, err)
		return
	}

	authURL, err := h.svc.AuthorizationURL(providerName, state, pkce.ChallengeFor(verifier))
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.attempts.Create(c.Request.Context(), attempt.Attempt{
		State:    state,
		Provider: providerName,
		Verifier: verifier,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback finishes the server-initiated flow. Consuming the
// attempt validates the state nonce and retrieves the verifier in one
// single-use step, so a replayed or forged callback finds nothing.
func (h *Handler) OAuthCallback(c *gin.Context) {
	providerName := c.Param("provider")

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.JSON(http.StatusBadRequest, gin.H{"detail": "provider denied authorization"})
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing state or code"})
		return
	}

	a, err := h.attempts.Consume(c.Request.Context(), state)
	if errors.Is(err, attempt.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid state"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if a.Provider != providerName {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid state"})
		return
	}

	acc, pair, err := h.svc.SocialLogin(c.Request.Context(), providerName, service.SocialLoginInput{
		Code:         code,
		CodeVerifier: a.Verifier,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.tokenResponse(c, acc, pair)
}
