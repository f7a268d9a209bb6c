package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-auth-service/internal/auth/service"
)

type socialLoginRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
}

// SocialLogin handles the client-driven flow: the client did the
// redirect itself and posts the authorization code (with its PKCE
// verifier) or provider credentials it already holds.
func (h *Handler) SocialLogin(c *gin.Context) {
	providerName := c.Param("provider")

	var req socialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	if req.Code == "" && req.AccessToken == "" && req.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "code or provider token required"})
		return
	}

	acc, pair, err := h.svc.SocialLogin(c.Request.Context(), providerName, service.SocialLoginInput{
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
		AccessToken:  req.AccessToken,
		IDToken:      req.IDToken,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.tokenResponse(c, acc, pair)
}
