package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yourusername/odd2/internal/geo"
	"github.com/yourusername/odd2/internal/metrics"
	"github.com/yourusername/odd2/internal/models"
	"github.com/yourusername/odd2/internal/service"
)

// historyWindow bounds how far back the published record goes
const (
	historyWindow = 7 * 24 * time.Hour
	historyLimit  = 10
)

// vipSummary is the locked view of the VIP prediction: enough to sell it,
// not enough to bet it
type vipSummary struct {
	MatchCount         int     `json:"match_count"`
	TotalOdds          float64 `json:"total_odds"`
	SuccessProbability float64 `json:"success_probability"`
	Locked             bool    `json:"locked"`
}

// predictionsResponse is the payload of GET /api/predictions
type predictionsResponse struct {
	Free         *models.Prediction   `json:"free"`
	VIP          *models.Prediction   `json:"vip,omitempty"`
	VIPSummary   *vipSummary          `json:"vip_summary,omitempty"`
	HasVIPAccess bool                 `json:"has_vip_access"`
	VIPHistory   []*models.Prediction `json:"vip_history"`
	FreeHistory  []*models.Prediction `json:"free_history"`
	WinRate      *float64             `json:"win_rate,omitempty"`
	Price        interface{}          `json:"vip_price"`
	Currency     string               `json:"currency"`
	Countdown    service.Countdown    `json:"countdown"`
}

// handlePredictions returns the current picks, localized pricing and the
// settled history. The VIP matches are included only with a valid session
// bound to the current VIP prediction.
func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	location := s.locator.Locate(ctx, geo.ClientIP(r))

	resp := predictionsResponse{
		Currency:  location.Currency,
		Price:     s.access.LocalizedPrice(ctx, location.Currency),
		Countdown: service.TimeUntilUpdate(time.Now(), s.location),
	}

	free, err := s.predictions.GetCurrent(ctx, models.PredictionTypeFree)
	if err == nil {
		resp.Free = free
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to load free prediction")
		respondError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	vip, err := s.predictions.GetCurrent(ctx, models.PredictionTypeVIP)
	if err == nil {
		if s.hasVIPAccess(r, vip) {
			resp.VIP = vip
			resp.HasVIPAccess = true
		} else {
			resp.VIPSummary = &vipSummary{
				MatchCount:         len(vip.Matches),
				TotalOdds:          vip.TotalOdds,
				SuccessProbability: vip.SuccessProbability,
				Locked:             true,
			}
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to load VIP prediction")
		respondError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	since := time.Now().UTC().Add(-historyWindow)
	if history, err := s.predictions.GetHistory(ctx, models.PredictionTypeVIP, since, historyLimit); err == nil {
		resp.VIPHistory = history
	}
	if history, err := s.predictions.GetHistory(ctx, models.PredictionTypeFree, since, historyLimit); err == nil {
		resp.FreeHistory = history
	}
	resp.WinRate = winRate(append(resp.VIPHistory, resp.FreeHistory...))

	respondJSON(w, http.StatusOK, resp)
}

// hasVIPAccess checks the session cookie against the current VIP prediction
func (s *Server) hasVIPAccess(r *http.Request, vip *models.Prediction) bool {
	cookie, err := r.Cookie(s.cfg.Server.SessionCookieName)
	if err != nil {
		return false
	}

	session, err := s.access.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return false
	}

	return session.VIPPredictionID != nil && *session.VIPPredictionID == vip.ID
}

// handleCountdown returns the time until the next prediction refresh
func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, service.TimeUntilUpdate(time.Now(), s.location))
}

// handleStatus is a lightweight service status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.predictions.CountByStatus(r.Context())
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "degraded",
			"db_available": false,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"db_available": true,
		"pending":      counts[models.PredictionStatusPending],
	})
}

// initiatePaymentRequest is the body of POST /api/payments. The phone number
// must be E.164, the format Relworx collects against.
type initiatePaymentRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// handleInitiatePayment starts a VIP purchase for the caller's market
func (s *Server) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "valid phone number required, e.g. +256772123456")
		return
	}

	location := s.locator.Locate(r.Context(), geo.ClientIP(r))

	result, err := s.access.StartPurchase(r.Context(), req.PhoneNumber, location.Currency)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no VIP prediction available")
			return
		}
		s.logger.WithError(err).Error("Payment initiation failed")
		respondError(w, http.StatusBadGateway, "payment initiation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"transaction_id": result.TransactionID,
		"message":        result.Message,
	})
}

// webhookPayload is the body Relworx posts on payment completion
type webhookPayload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// handlePaymentWebhook applies a provider callback after verifying its signature
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !s.access.VerifyWebhook(r.Header.Get("X-Signature"), body) {
		metrics.WebhookFailuresTotal.Inc()
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.TransactionID == "" || payload.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	session, err := s.access.HandleCallback(r.Context(), payload.TransactionID, payload.Status)
	if err != nil {
		s.logger.WithError(err).WithField("transaction_id", payload.TransactionID).Error("Webhook processing failed")
		respondError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": session != nil,
	})
}

// handleCheckPayment polls a payment and, once completed, hands the session
// token to the browser as an HttpOnly cookie
func (s *Server) handleCheckPayment(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	record, session, err := s.access.SyncPaymentStatus(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		s.logger.WithError(err).Error("Payment status check failed")
		respondError(w, http.StatusBadGateway, "status check failed")
		return
	}

	if record.IsCompleted() && session != nil {
		s.setSessionCookie(w, session.Token)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(record.Status)})
}

// handleDemoAccess mints VIP access without payment. Registered only in
// development.
func (s *Server) handleDemoAccess(w http.ResponseWriter, r *http.Request) {
	session, err := s.access.CreateDemoAccess(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "demo access failed")
		return
	}

	s.setSessionCookie(w, session.Token)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"expires_at": session.AccessExpiresAt,
	})
}

// handleGenerate triggers an out-of-schedule generation run
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	result, err := s.generator.GenerateAndPersist(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Manual generation failed")
		respondError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"matches_analyzed": result.MatchesAnalyzed,
		"combinations":     result.Combinations,
		"demo":             result.UsedDemoData,
	})
}

// handleAdminStatus reports prediction counts by lifecycle status
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.predictions.CountByStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load counts")
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// setSessionCookie attaches the VIP session token to the response
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Server.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   s.cfg.Server.SessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.IsProduction(),
	})
}

// winRate computes the won share of settled predictions, nil when none settled
func winRate(history []*models.Prediction) *float64 {
	settled, won := 0, 0
	for _, p := range history {
		switch p.Status {
		case models.PredictionStatusWon:
			settled++
			won++
		case models.PredictionStatusLost:
			settled++
		}
	}
	if settled == 0 {
		return nil
	}
	rate := float64(won) / float64(settled)
	return &rate
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
