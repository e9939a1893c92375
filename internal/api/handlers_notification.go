package api

import (
	"net/http"
	"strconv"

	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
)

const defaultNotificationLimit = 50

// handleListNotifications handles GET /api/notifications?limit=N — the
// authenticated wallet's notifications, newest first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
		return
	}

	limit := defaultNotificationLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 200 {
			respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "limit must be between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	notifications, err := s.notifications.ListByWallet(r.Context(), wallet, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}
