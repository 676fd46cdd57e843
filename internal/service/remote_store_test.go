package service

import (
	"testing"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/shopspring/decimal"
)

func TestFlattenSubscription(t *testing.T) {
	lastUsed := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	notes := "shared account"
	sub := &model.Subscription{
		ID:              "sub-1",
		Name:            "Netflix",
		Category:        model.CategoryVideoStreaming,
		MonthlyPrice:    decimal.RequireFromString("15.49"),
		BillingCycle:    model.CycleMonthly,
		NextBillingDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		IsActive:        true,
		LastUsedDate:    &lastUsed,
		Notes:           &notes,
		TotalSpent:      decimal.RequireFromString("185.88"),
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC),
	}

	fields := FlattenSubscription(sub)

	if fields["monthly_price"] != "15.49" {
		t.Errorf("monthly_price = %v, want decimal string", fields["monthly_price"])
	}
	if fields["is_active"] != true {
		t.Errorf("is_active = %v, want native bool", fields["is_active"])
	}
	if fields["last_used_date"] != lastUsed.Format(time.RFC3339Nano) {
		t.Errorf("last_used_date = %v, want RFC3339", fields["last_used_date"])
	}
	if fields["notes"] != "shared account" {
		t.Errorf("notes = %v, want dereferenced string", fields["notes"])
	}
	if _, ok := fields["description"]; ok {
		t.Error("nil optional fields must be omitted")
	}
	if _, ok := fields["scheduled_cancellation_date"]; ok {
		t.Error("nil scheduled cancellation must be omitted")
	}
}
