package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-auth-service/internal/middleware"
	"social-auth-service/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request"})
		return
	}

	acc, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.tokenResponse(c, acc, pair)
}

func (h *Handler) Refresh(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "no refresh token"})
		return
	}

	access, err := h.svc.Refresh(cookie.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

// Logout clears the refresh cookie. Stateless; cannot fail, idempotent.
func (h *Handler) Logout(c *gin.Context) {
	session.ClearRefreshCookie(c.Writer, h.cookieOpts)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	accountID, ok := middleware.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	acc, providers, err := h.svc.Me(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	if providers == nil {
		providers = []string{}
	}

	payload := userPayload(acc)
	payload["providers"] = providers
	c.JSON(http.StatusOK, payload)
}
