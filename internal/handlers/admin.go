package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sitepulse/api/internal/models"
	"sitepulse/api/internal/repository"
)

// AdminRevokeUserSessions ends every session of a user in the admin's own
// company, the response to a reported compromise or a password reset done
// out of band. Admins cannot reach accounts outside their company; those
// look like they do not exist.
func (h HandlerSet) AdminRevokeUserSessions(c *gin.Context) {
	adminVal, exists := c.Get("current_user")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	admin, ok := adminVal.(models.User)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	userID := c.Param("id")
	if userID == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "user id required")
		return
	}

	target, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("lookup user failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if target.Company != admin.Company {
		respondError(c, http.StatusNotFound, "not_found", "user not found")
		return
	}

	if err := h.sessions.RevokeAllByUser(c.Request.Context(), target.ID); err != nil {
		h.log.Error().Err(err).Str("user_id", target.ID).Msg("revoke user sessions failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	h.log.Info().
		Str("admin_id", admin.ID).
		Str("user_id", target.ID).
		Msg("all user sessions revoked")

	c.Status(http.StatusNoContent)
}
