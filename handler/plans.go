package handler

import (
	"context"
	"net/http"

	"mechanic-assistant/internal/domain"
)

type plansResponse struct {
	Plans []domain.Plan `json:"plans"`
}

func (h *Handler) handlePlans(_ context.Context, _ *request) response {
	return response{status: http.StatusOK, body: plansResponse{Plans: domain.Plans()}}
}
