package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitepulse/api/internal/models"
	"sitepulse/api/internal/security"
	"sitepulse/api/internal/service"
)

type registerRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Company  string `json:"company" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Company  string `json:"company"`
	Role     string `json:"role"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Company:  user.Company,
		Role:     string(user.Role),
	}
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	// Binding errors carry struct internals; clients get a stable message.
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error",
			"full name, company, a valid email and a password of at least 8 characters are required")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Company:  req.Company,
		Password: req.Password,
	})
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "a valid email and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.authError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	token := c.GetString("access_token")
	if token == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	userVal, exists := c.Get("current_user")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	user, ok := userVal.(models.User)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": toUserResponse(user),
	})
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
	Current   bool      `json:"current"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	userVal, exists := c.Get("current_user")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	user, ok := userVal.(models.User)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	claimsVal, _ := c.Get("access_claims")
	claims, ok := claimsVal.(security.Claims)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	sessions, err := h.sessions.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("list sessions failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse{
			ID:        session.ID,
			IssuedAt:  session.IssuedAt,
			ExpiresAt: session.ExpiresAt,
			Revoked:   session.Revoked,
			Current:   session.ID == claims.SessionID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": resp,
	})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	userVal, exists := c.Get("current_user")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	user, ok := userVal.(models.User)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "session id required")
		return
	}

	claimsVal, _ := c.Get("access_claims")
	claims, ok := claimsVal.(security.Claims)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if claims.SessionID == sessionID {
		respondError(c, http.StatusBadRequest, "validation_error", "use logout to end the current session")
		return
	}

	if err := h.sessions.RevokeByID(c.Request.Context(), user.ID, sessionID); err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("revoke session failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) authError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, service.ErrEmailTaken):
		respondError(c, http.StatusConflict, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	default:
		h.log.Error().Err(err).Msg("auth flow failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
