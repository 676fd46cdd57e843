package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/manngobeh2006/Subscription-Remover/internal/api/v1/dto"
	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SubscriptionHandler handles subscription lifecycle endpoints
type SubscriptionHandler struct {
	subService service.SubscriptionService
	validate   *validator.Validate
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subService service.SubscriptionService, v *validator.Validate) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService, validate: v}
}

// RegisterRoutes mounts v1 subscription routes
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions", authMw(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/subscriptions/", authMw(http.HandlerFunc(h.handleItem)))
}

func (h *SubscriptionHandler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSubscriptions(w, r)
	case http.MethodPost:
		h.createSubscription(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SubscriptionHandler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/subscriptions/")

	// Collection-level verbs come before the {id} routes.
	switch path {
	case "recent":
		h.recentSubscriptions(w, r)
		return
	case "export":
		h.exportSubscriptions(w, r)
		return
	case "import":
		h.importSubscriptions(w, r)
		return
	case "sync":
		h.syncSubscriptions(w, r)
		return
	case "cancel":
		h.cancelNow(w, r)
		return
	case "schedule-cancel":
		h.scheduleCancellation(w, r)
		return
	case "unschedule-cancel":
		h.unscheduleCancellation(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getSubscription(w, r)
	case http.MethodPut:
		if strings.HasSuffix(path, "/tracking") {
			h.setUsageTracking(w, r)
			return
		}
		h.updateSubscription(w, r)
	case http.MethodPost:
		if strings.HasSuffix(path, "/usage") {
			h.recordUsage(w, r)
			return
		}
		http.NotFound(w, r)
	case http.MethodDelete:
		h.deleteSubscription(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// subscriptionFromCreate maps the create DTO onto a domain subscription.
func subscriptionFromCreate(req *dto.SubscriptionCreateDTO) (*model.Subscription, error) {
	price, err := decimal.NewFromString(req.MonthlyPrice)
	if err != nil {
		return nil, errors.New("invalid monthly_price: " + err.Error())
	}
	totalSpent := decimal.Zero
	if req.TotalSpent != "" {
		if totalSpent, err = decimal.NewFromString(req.TotalSpent); err != nil {
			return nil, errors.New("invalid total_spent: " + err.Error())
		}
	}
	sub := &model.Subscription{
		Name:                 req.Name,
		Description:          req.Description,
		Category:             model.SubscriptionCategory(req.Category),
		MonthlyPrice:         price,
		BillingCycle:         model.BillingCycle(req.BillingCycle),
		NextBillingDate:      req.NextBillingDate,
		WebsiteURL:           req.WebsiteURL,
		CancellationURL:      req.CancellationURL,
		LastUsedDate:         req.LastUsedDate,
		UsageTrackingEnabled: req.UsageTrackingEnabled,
		ReminderFrequency:    model.ReminderFrequency(req.ReminderFrequency),
		TotalSpent:           totalSpent,
		PlatformIdentifier:   req.PlatformIdentifier,
		PackageName:          req.PackageName,
		Notes:                req.Notes,
	}
	return sub, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSubscriptionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrNegativePrice),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidBillingCycle),
		errors.Is(err, service.ErrCancellationInPast):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *SubscriptionHandler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req dto.SubscriptionCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	sub, err := subscriptionFromCreate(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.subService.Create(r.Context(), sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dto.NewSubscriptionResponse(created))
}

// listSubscriptions supports filtering by active state, category, text query
// and price range. The first matching filter wins.
func (h *SubscriptionHandler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		subs []model.Subscription
		err  error
	)
	switch {
	case q.Get("q") != "":
		subs, err = h.subService.Search(r.Context(), q.Get("q"))
	case q.Get("category") != "":
		category, perr := model.ParseSubscriptionCategory(q.Get("category"))
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		subs, err = h.subService.GetByCategory(r.Context(), category)
	case q.Get("min_price") != "" || q.Get("max_price") != "":
		min, max, perr := parsePriceRange(q.Get("min_price"), q.Get("max_price"))
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		subs, err = h.subService.GetByPriceRange(r.Context(), min, max)
	case q.Get("active") == "true":
		subs, err = h.subService.GetAllActive(r.Context())
	default:
		subs, err = h.subService.GetAll(r.Context())
	}
	if err != nil {
		http.Error(w, "Failed to retrieve subscriptions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewSubscriptionResponseList(subs))
}

func parsePriceRange(minStr, maxStr string) (decimal.Decimal, decimal.Decimal, error) {
	min := decimal.Zero
	max := decimal.NewFromInt(1_000_000)
	var err error
	if minStr != "" {
		if min, err = decimal.NewFromString(minStr); err != nil {
			return min, max, errors.New("invalid min_price: " + err.Error())
		}
	}
	if maxStr != "" {
		if max, err = decimal.NewFromString(maxStr); err != nil {
			return min, max, errors.New("invalid max_price: " + err.Error())
		}
	}
	return min, max, nil
}

func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/subscriptions/")
	sub, err := h.subService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/subscriptions/")
	var req dto.SubscriptionUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	sub, err := subscriptionFromCreate(&dto.SubscriptionCreateDTO{
		Name:                 req.Name,
		Description:          req.Description,
		Category:             req.Category,
		MonthlyPrice:         req.MonthlyPrice,
		BillingCycle:         req.BillingCycle,
		NextBillingDate:      req.NextBillingDate,
		WebsiteURL:           req.WebsiteURL,
		CancellationURL:      req.CancellationURL,
		UsageTrackingEnabled: req.UsageTrackingEnabled,
		ReminderFrequency:    req.ReminderFrequency,
		TotalSpent:           req.TotalSpent,
		PlatformIdentifier:   req.PlatformIdentifier,
		PackageName:          req.PackageName,
		Notes:                req.Notes,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub.ID = id
	sub.IsActive = req.IsActive

	updated, err := h.subService.Update(r.Context(), sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewSubscriptionResponse(updated))
}

func (h *SubscriptionHandler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/subscriptions/")
	if err := h.subService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) recentSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	subs, err := h.subService.RecentlyAdded(r.Context())
	if err != nil {
		http.Error(w, "Failed to retrieve subscriptions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.NewSubscriptionResponseList(subs))
}

func (h *SubscriptionHandler) cancelNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	affected, err := h.subService.CancelNow(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.BatchResultDTO{Affected: affected})
}

func (h *SubscriptionHandler) scheduleCancellation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ScheduleCancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	affected, err := h.subService.ScheduleCancellation(r.Context(), req.IDs, req.CancelAt)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.BatchResultDTO{Affected: affected})
}

func (h *SubscriptionHandler) unscheduleCancellation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	affected, err := h.subService.UnscheduleCancellation(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.BatchResultDTO{Affected: affected})
}

func (h *SubscriptionHandler) recordUsage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/subscriptions/"), "/usage")
	var req dto.UsageEventDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.subService.RecordUsage(r.Context(), id, req.LastUsed); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) setUsageTracking(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/subscriptions/"), "/tracking")
	var req dto.UsageTrackingDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.subService.SetUsageTracking(r.Context(), id, req.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) exportSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := h.subService.Export(r.Context())
	if err != nil {
		http.Error(w, "Failed to export subscriptions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ExportResponseDTO{Data: data})
}

func (h *SubscriptionHandler) importSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ImportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	imported, err := h.subService.Import(r.Context(), req.Data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.ImportResultDTO{Imported: imported})
}

func (h *SubscriptionHandler) syncSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.subService.SyncWithCloud(r.Context()); err != nil {
		http.Error(w, "Failed to sync subscriptions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
