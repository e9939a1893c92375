package api

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/models"
	"github.com/rent-to-earn/internal/types"
)

// handleCreateCampaign handles POST /api/campaigns — the authenticated wallet
// becomes the sponsor. Amounts arrive as decimal strings; a JSON number would
// silently lose precision past 2^53.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
		return
	}

	var req struct {
		CreatorWallet   string `json:"creatorWallet"`
		AmountLamports  string `json:"amountLamports"`
		DurationSeconds uint64 `json:"durationSeconds"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body", nil)
		return
	}

	amount, ok := new(big.Int).SetString(req.AmountLamports, 10)
	if !ok {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "amountLamports must be a decimal integer string", nil)
		return
	}

	campaign, err := s.ledger.CreateCampaign(r.Context(), wallet, req.CreatorWallet, amount, req.DurationSeconds)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, campaign.View())
}

// handleListCampaigns handles GET /api/campaigns — campaigns the wallet
// participates in, either side.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
		return
	}

	campaigns, err := s.ledger.ListCampaigns(r.Context(), wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	views := make([]*models.CampaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, c.View())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"campaigns": views})
}

// handleGetCampaign handles GET /api/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
		return
	}

	campaign, err := s.ledger.GetCampaign(r.Context(), mux.Vars(r)["id"], wallet)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, campaign.View())
}

// handleMarkDeposited handles POST /api/campaigns/{id}/deposit — the sponsor
// asserts the escrow deposit landed on chain, naming the chain campaign id
// the ledger must verify and bind.
func (s *Server) handleMarkDeposited(w http.ResponseWriter, r *http.Request) {
	wallet, ok := walletFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
		return
	}

	var req struct {
		ChainCampaignID string `json:"chainCampaignId"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid request body", nil)
		return
	}

	chainID, err := strconv.ParseUint(req.ChainCampaignID, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "chainCampaignId must be a decimal integer string", nil)
		return
	}

	campaign, err := s.ledger.RequestTransition(r.Context(), mux.Vars(r)["id"], wallet, types.ActionMarkDeposited, &chainID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, campaign.View())
}

// transitionHandler builds the handler for a bodyless transition endpoint.
func (s *Server) transitionHandler(action types.TransitionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, ok := walletFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
			return
		}

		campaign, err := s.ledger.RequestTransition(r.Context(), mux.Vars(r)["id"], wallet, action, nil)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, campaign.View())
	}
}
