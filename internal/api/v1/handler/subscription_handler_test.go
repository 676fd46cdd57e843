package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/api/v1/dto"
	"github.com/manngobeh2006/Subscription-Remover/internal/model"
	"github.com/manngobeh2006/Subscription-Remover/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// stubSubscriptionService overrides only what a test needs; anything else
// panics through the nil embedded interface.
type stubSubscriptionService struct {
	service.SubscriptionService
	getFn func(ctx context.Context, id string) (*model.Subscription, error)
}

func (s *stubSubscriptionService) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return s.getFn(ctx, id)
}

func newTestMux(svc service.SubscriptionService) *http.ServeMux {
	h := NewSubscriptionHandler(svc, validator.New(validator.WithRequiredStructEnabled()))
	mux := http.NewServeMux()
	passthrough := func(next http.Handler) http.Handler { return next }
	h.RegisterRoutes(mux, passthrough)
	return mux
}

func TestGetSubscriptionMissingReturns404(t *testing.T) {
	stub := &stubSubscriptionService{getFn: func(context.Context, string) (*model.Subscription, error) {
		return nil, service.ErrSubscriptionNotFound
	}}
	mux := newTestMux(stub)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/no-such-id", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (body %q)", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestGetSubscriptionStoreFailureReturns500(t *testing.T) {
	stub := &stubSubscriptionService{getFn: func(context.Context, string) (*model.Subscription, error) {
		return nil, errors.New("connection refused")
	}}
	mux := newTestMux(stub)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/some-id", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestGetSubscriptionFound(t *testing.T) {
	sub := &model.Subscription{
		ID:              "sub-1",
		Name:            "Netflix",
		Category:        model.CategoryEntertainment,
		MonthlyPrice:    decimal.RequireFromString("9.99"),
		BillingCycle:    model.CycleMonthly,
		NextBillingDate: time.Now().UTC().AddDate(0, 0, 14),
		IsActive:        true,
	}
	stub := &stubSubscriptionService{getFn: func(_ context.Context, id string) (*model.Subscription, error) {
		if id != sub.ID {
			return nil, service.ErrSubscriptionNotFound
		}
		return sub, nil
	}}
	mux := newTestMux(stub)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got dto.SubscriptionResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != sub.ID || got.Name != sub.Name {
		t.Errorf("response = %+v, want id %q name %q", got, sub.ID, sub.Name)
	}
}
