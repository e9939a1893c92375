package api

import (
	"net/http"
	"time"

	"github.com/rent-to-earn/internal/auth"
	apperrors "github.com/rent-to-earn/internal/errors"
)

// handleNonce handles GET /api/auth/nonce?wallet=... — issues a single-use
// challenge and the exact message the wallet must sign.
func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "wallet query parameter is required", nil)
		return
	}
	if !auth.IsValidWallet(wallet) {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "wallet is not a valid public key", nil)
		return
	}
	wallet = auth.NormalizeWallet(wallet)

	nonce, err := s.nonces.Issue(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	message := auth.BuildSignInMessage(s.config.AppURL, wallet, nonce, time.Now(), s.config.MessageTTL)

	respondJSON(w, http.StatusOK, map[string]string{
		"nonce":   nonce,
		"message": message,
	})
}

// handleSignIn handles POST /api/auth/signin — verifies the wallet's
// signature over the challenge message, burns the nonce, and mints a session.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Message == "" || req.Signature == "" {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "message and signature are required", nil)
		return
	}

	parsed, err := auth.ParseSignInMessage(req.Message, time.Now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	// Verify the signature before consuming the nonce so a forged request
	// cannot burn a victim's outstanding challenge.
	if !auth.VerifySignature(req.Message, req.Signature, parsed.Wallet) {
		respondServiceError(w, r, apperrors.NewInvalidSignatureError())
		return
	}

	// Canonical form from here on so sessions, records, and chain reads all
	// agree on the wallet string.
	wallet := auth.NormalizeWallet(parsed.Wallet)

	ok, err := s.nonces.Consume(r.Context(), wallet, parsed.Nonce)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !ok {
		respondServiceError(w, r, apperrors.NewNonceError())
		return
	}

	session, err := s.sessions.Create(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if _, err := s.users.Upsert(r.Context(), wallet); err != nil {
		// Sign-in already succeeded; the wallet registry is advisory.
		s.logger.WithError(err).WithField("wallet", wallet).Warn("Failed to upsert user")
	}

	s.setSessionCookie(w, session.Token, session.ExpiresAt)

	respondJSON(w, http.StatusOK, map[string]string{
		"token":     session.Token,
		"wallet":    session.Wallet,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleSignOut handles POST /api/auth/signout — revokes the presented
// session and clears the cookie. Idempotent: signing out twice succeeds.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r, s.config.CookieName)
	if token != "" {
		if err := s.sessions.Revoke(r.Context(), token); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	s.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
