package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
	"subscription-activation/internal/usecase"
)

type generateRequest struct {
	Plan        string     `json:"plan"`
	Count       int        `json:"count"`
	BatchName   string     `json:"batch_name,omitempty"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type codeResponse struct {
	Code          string     `json:"code"` // grouped XXXX-XXXX-XX
	Plan          string     `json:"plan"`
	IsUsed        bool       `json:"is_used"`
	UsedBy        *string    `json:"used_by,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	EntropyRatio  float64    `json:"entropy_ratio"`
	IsHighEntropy bool       `json:"is_high_entropy"`
}

type batchResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Plan           string     `json:"plan"`
	TotalCodes     int        `json:"total_codes"`
	CodesGenerated int        `json:"codes_generated"`
	CodesUsed      int        `json:"codes_used"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type statsResponse struct {
	TotalAttempts      int     `json:"total_attempts"`
	Collisions         int     `json:"collisions"`
	AvgAttemptsPerCode float64 `json:"avg_attempts_per_code"`
	CollisionRate      float64 `json:"collision_rate"`
	ElapsedMS          int64   `json:"elapsed_ms"`
}

type subscriptionResponse struct {
	UserID        string    `json:"user_id"`
	Plan          string    `json:"plan"`
	TotalDays     int       `json:"total_days"`
	Active        bool      `json:"active"`
	ActivatedAt   time.Time `json:"activated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	DaysRemaining int       `json:"days_remaining"`
}

func toCodeResponse(ac *model.ActivationCode) codeResponse {
	return codeResponse{
		Code:          model.FormatCode(ac.Code),
		Plan:          string(ac.Plan),
		IsUsed:        ac.IsUsed,
		UsedBy:        ac.UsedBy,
		UsedAt:        ac.UsedAt,
		EntropyRatio:  ac.EntropyRatio,
		IsHighEntropy: ac.IsHighEntropy,
	}
}

func toBatchResponse(b *model.CodeBatch) batchResponse {
	return batchResponse{
		ID:             b.ID,
		Name:           b.Name,
		Plan:           string(b.Plan),
		TotalCodes:     b.TotalCodes,
		CodesGenerated: b.CodesGenerated,
		CodesUsed:      b.CodesUsed,
		Status:         string(b.Status),
		ExpiresAt:      b.ExpiresAt,
	}
}

func toSubscriptionResponse(sub *model.Subscription, daysRemaining int) subscriptionResponse {
	return subscriptionResponse{
		UserID:        sub.UserID,
		Plan:          string(sub.Plan),
		TotalDays:     sub.TotalDays,
		Active:        sub.Active,
		ActivatedAt:   sub.ActivatedAt,
		ExpiresAt:     sub.ExpiresAt,
		DaysRemaining: daysRemaining,
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		http.Error(w, "Unknown plan", http.StatusBadRequest)
		return
	}

	res, err := s.genUC.GenerateCodes(r.Context(), usecase.GenerateCodesParams{
		Plan:        plan,
		Count:       req.Count,
		BatchName:   req.BatchName,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	codes := make([]codeResponse, 0, len(res.Codes))
	for _, ac := range res.Codes {
		codes = append(codes, toCodeResponse(ac))
	}
	resp := struct {
		Codes      []codeResponse `json:"codes"`
		Batch      *batchResponse `json:"batch,omitempty"`
		Statistics statsResponse  `json:"statistics"`
	}{
		Codes: codes,
		Statistics: statsResponse{
			TotalAttempts:      res.Stats.TotalAttempts,
			Collisions:         res.Stats.Collisions,
			AvgAttemptsPerCode: res.Stats.AvgAttemptsPerCode,
			CollisionRate:      res.Stats.CollisionRate,
			ElapsedMS:          res.Stats.Elapsed.Milliseconds(),
		},
	}
	if res.Batch != nil {
		b := toBatchResponse(res.Batch)
		resp.Batch = &b
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code   string `json:"code"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.redUC.RedeemCode(r.Context(), req.Code, req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, struct {
		Subscription subscriptionResponse `json:"subscription"`
		Code         codeResponse         `json:"code"`
	}{
		Subscription: toSubscriptionResponse(res.Subscription, res.Subscription.DaysRemaining(now)),
		Code:         toCodeResponse(res.Code),
	})
}

func (s *Server) handleActivateByPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan            string `json:"plan"`
		UserID          string `json:"user_id"`
		PaymentVerified bool   `json:"payment_verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan, err := model.ParsePlan(req.Plan)
	if err != nil {
		http.Error(w, "Unknown plan", http.StatusBadRequest)
		return
	}

	sub, err := s.redUC.ActivateByPayment(r.Context(), plan, req.UserID, req.PaymentVerified)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Subscription subscriptionResponse `json:"subscription"`
	}{toSubscriptionResponse(sub, sub.DaysRemaining(time.Now()))})
}

func (s *Server) handleCreateTrial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.redUC.CreateTrial(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Subscription subscriptionResponse `json:"subscription"`
	}{toSubscriptionResponse(sub, sub.DaysRemaining(time.Now()))})
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	status, err := s.redUC.GetSubscriptionStatus(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(status.Subscription, status.DaysRemaining))
}

func (s *Server) handleBatchDetail(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	detail, err := s.redUC.GetBatchDetail(r.Context(), batchID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	codes := make([]codeResponse, 0, len(detail.Codes))
	for _, ac := range detail.Codes {
		codes = append(codes, toCodeResponse(ac))
	}
	writeJSON(w, http.StatusOK, struct {
		Batch     batchResponse  `json:"batch"`
		Codes     []codeResponse `json:"codes"`
		UsageRate float64        `json:"usage_rate_percent"`
	}{toBatchResponse(detail.Batch), codes, detail.UsageRate})
}

func (s *Server) handleArchiveBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	batch, err := s.genUC.ArchiveBatch(r.Context(), batchID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

// writeError maps the domain taxonomy onto HTTP statuses: input errors to
// 400, conflicts to 409, missing entities to 404, the rest to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var usedErr *domain.CodeAlreadyUsedError
	switch {
	case errors.Is(err, domain.ErrMalformedCode), errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCollisionRisk):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &usedErr):
		writeJSON(w, http.StatusConflict, struct {
			Error  string    `json:"error"`
			UsedBy string    `json:"used_by"`
			UsedAt time.Time `json:"used_at"`
		}{"code already used", usedErr.UsedBy, usedErr.UsedAt})
	case errors.Is(err, domain.ErrCodeAlreadyUsed), errors.Is(err, domain.ErrDuplicateBatchName), errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrBatchNotCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrBatchExpired), errors.Is(err, domain.ErrPaymentNotVerified):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrCodeNotFound), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoActiveSubscription):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
