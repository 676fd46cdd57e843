package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/api/v1/dto"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"
)

// InsightsHandler serves derived views: recommendations, usage stats and
// spending aggregates. All responses are computed on demand.
type InsightsHandler struct {
	subService service.SubscriptionService
	recService service.RecommendationService
}

// NewInsightsHandler creates a new InsightsHandler
func NewInsightsHandler(subService service.SubscriptionService, recService service.RecommendationService) *InsightsHandler {
	return &InsightsHandler{subService: subService, recService: recService}
}

// RegisterRoutes mounts v1 insights routes
func (h *InsightsHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/insights/recommendations", authMw(http.HandlerFunc(h.getRecommendations)))
	mux.Handle("/insights/summary", authMw(http.HandlerFunc(h.getSummary)))
	mux.Handle("/insights/upcoming-bills", authMw(http.HandlerFunc(h.getUpcomingBills)))
	mux.Handle("/insights/usage/", authMw(http.HandlerFunc(h.getUsageStats)))
}

func (h *InsightsHandler) getRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	recs, err := h.recService.GenerateRecommendations(r.Context(), time.Now().UTC())
	if err != nil {
		http.Error(w, "Failed to generate recommendations: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewRecommendationResponseList(recs))
}

func (h *InsightsHandler) getUsageStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/insights/usage/")
	stats, err := h.recService.GetUsageStats(r.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			http.Error(w, "Subscription not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to retrieve usage stats: "+err.Error(), http.StatusInternalServerError)
		return
	}
	resp := dto.UsageStatsResponseDTO{
		SubscriptionID:   stats.SubscriptionID,
		LastOpenDate:     stats.LastOpenDate,
		DaysSinceLastUse: stats.DaysSinceLastUse,
		UsageFrequency:   string(stats.UsageFrequency),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *InsightsHandler) getSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	count, err := h.subService.CountActive(ctx)
	if err != nil {
		http.Error(w, "Failed to compute summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := h.subService.TotalMonthlySpending(ctx)
	if err != nil {
		http.Error(w, "Failed to compute summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	avg, err := h.subService.AverageSubscriptionPrice(ctx)
	if err != nil {
		http.Error(w, "Failed to compute summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	byCategory, err := h.subService.SpendingByCategory(ctx)
	if err != nil {
		http.Error(w, "Failed to compute summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	distribution, err := h.subService.CategoryDistribution(ctx)
	if err != nil {
		http.Error(w, "Failed to compute summary: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.SpendingSummaryDTO{
		ActiveCount:          count,
		TotalMonthlySpending: total.String(),
		AveragePrice:         avg.String(),
		SpendingByCategory:   make(map[string]string, len(byCategory)),
		CategoryDistribution: make(map[string]int, len(distribution)),
	}
	for category, amount := range byCategory {
		resp.SpendingByCategory[string(category)] = amount.String()
	}
	for category, n := range distribution {
		resp.CategoryDistribution[string(category)] = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *InsightsHandler) getUpcomingBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	days := 7 // Default window
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}
	subs, err := h.subService.UpcomingBills(r.Context(), days)
	if err != nil {
		http.Error(w, "Failed to retrieve upcoming bills: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewUpcomingBillList(subs))
}
