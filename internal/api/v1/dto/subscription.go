package dto

import (
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
)

// SubscriptionCreateDTO is used for incoming create requests. Price fields
// travel as decimal strings so no precision is lost in transit.
type SubscriptionCreateDTO struct {
	Name                 string     `json:"name" validate:"required"`
	Description          *string    `json:"description,omitempty"`
	Category             string     `json:"category" validate:"required"`
	MonthlyPrice         string     `json:"monthly_price" validate:"required"`
	BillingCycle         string     `json:"billing_cycle" validate:"required"`
	NextBillingDate      time.Time  `json:"next_billing_date" validate:"required"`
	WebsiteURL           *string    `json:"website_url,omitempty" validate:"omitempty,url"`
	CancellationURL      *string    `json:"cancellation_url,omitempty" validate:"omitempty,url"`
	LastUsedDate         *time.Time `json:"last_used_date,omitempty"`
	UsageTrackingEnabled bool       `json:"usage_tracking_enabled"`
	ReminderFrequency    string     `json:"reminder_frequency,omitempty"`
	TotalSpent           string     `json:"total_spent,omitempty"`
	PlatformIdentifier   *string    `json:"platform_identifier,omitempty"`
	PackageName          *string    `json:"package_name,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
}

// SubscriptionUpdateDTO is used for incoming update requests. The path id
// wins over any body id. Lifecycle fields are not part of an update:
// scheduling and usage recording have their own endpoints.
type SubscriptionUpdateDTO struct {
	Name                 string    `json:"name" validate:"required"`
	Description          *string   `json:"description,omitempty"`
	Category             string    `json:"category" validate:"required"`
	MonthlyPrice         string    `json:"monthly_price" validate:"required"`
	BillingCycle         string    `json:"billing_cycle" validate:"required"`
	NextBillingDate      time.Time `json:"next_billing_date" validate:"required"`
	WebsiteURL           *string   `json:"website_url,omitempty" validate:"omitempty,url"`
	CancellationURL      *string   `json:"cancellation_url,omitempty" validate:"omitempty,url"`
	IsActive             bool      `json:"is_active"`
	UsageTrackingEnabled bool      `json:"usage_tracking_enabled"`
	ReminderFrequency    string    `json:"reminder_frequency,omitempty"`
	TotalSpent           string    `json:"total_spent,omitempty"`
	PlatformIdentifier   *string   `json:"platform_identifier,omitempty"`
	PackageName          *string   `json:"package_name,omitempty"`
	Notes                *string   `json:"notes,omitempty"`
}

// SubscriptionResponseDTO is returned in API responses
type SubscriptionResponseDTO struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Description           *string    `json:"description,omitempty"`
	Category              string     `json:"category"`
	CategoryDisplayName   string     `json:"category_display_name"`
	MonthlyPrice          string     `json:"monthly_price"`
	MonthlyEquivalent     string     `json:"monthly_equivalent_price"`
	BillingCycle          string     `json:"billing_cycle"`
	NextBillingDate       time.Time  `json:"next_billing_date"`
	WebsiteURL            *string    `json:"website_url,omitempty"`
	CancellationURL       *string    `json:"cancellation_url,omitempty"`
	IsActive              bool       `json:"is_active"`
	LastUsedDate          *time.Time `json:"last_used_date,omitempty"`
	ScheduledCancellation *time.Time `json:"scheduled_cancellation_date,omitempty"`
	UsageTrackingEnabled  bool       `json:"usage_tracking_enabled"`
	ReminderFrequency     string     `json:"reminder_frequency"`
	TotalSpent            string     `json:"total_spent"`
	PlatformIdentifier    *string    `json:"platform_identifier,omitempty"`
	PackageName           *string    `json:"package_name,omitempty"`
	Notes                 *string    `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// NewSubscriptionResponse maps a domain subscription onto the response DTO.
func NewSubscriptionResponse(s *model.Subscription) SubscriptionResponseDTO {
	return SubscriptionResponseDTO{
		ID:                    s.ID,
		Name:                  s.Name,
		Description:           s.Description,
		Category:              string(s.Category),
		CategoryDisplayName:   s.Category.DisplayName(),
		MonthlyPrice:          s.MonthlyPrice.String(),
		MonthlyEquivalent:     s.MonthlyEquivalentPrice().String(),
		BillingCycle:          string(s.BillingCycle),
		NextBillingDate:       s.NextBillingDate,
		WebsiteURL:            s.WebsiteURL,
		CancellationURL:       s.CancellationURL,
		IsActive:              s.IsActive,
		LastUsedDate:          s.LastUsedDate,
		ScheduledCancellation: s.ScheduledCancelDate,
		UsageTrackingEnabled:  s.UsageTrackingEnabled,
		ReminderFrequency:     string(s.ReminderFrequency),
		TotalSpent:            s.TotalSpent.String(),
		PlatformIdentifier:    s.PlatformIdentifier,
		PackageName:           s.PackageName,
		Notes:                 s.Notes,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

// NewSubscriptionResponseList maps a slice of domain subscriptions.
func NewSubscriptionResponseList(subs []model.Subscription) []SubscriptionResponseDTO {
	out := make([]SubscriptionResponseDTO, 0, len(subs))
	for i := range subs {
		out = append(out, NewSubscriptionResponse(&subs[i]))
	}
	return out
}

// CancelRequestDTO carries a batch of subscription ids to cancel now.
type CancelRequestDTO struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// ScheduleCancelRequestDTO schedules a future cancellation for a batch.
type ScheduleCancelRequestDTO struct {
	IDs      []string  `json:"ids" validate:"required,min=1,dive,required"`
	CancelAt time.Time `json:"cancel_at" validate:"required"`
}

// BatchResultDTO reports how many rows a batch operation touched.
type BatchResultDTO struct {
	Affected int64 `json:"affected"`
}

// UsageEventDTO records an explicit usage observation for a subscription.
type UsageEventDTO struct {
	LastUsed time.Time `json:"last_used" validate:"required"`
}

// UsageTrackingDTO toggles telemetry matching for a subscription.
type UsageTrackingDTO struct {
	Enabled bool `json:"enabled"`
}

// ImportRequestDTO carries an exported JSON document to restore.
type ImportRequestDTO struct {
	Data string `json:"data" validate:"required"`
}

// ImportResultDTO reports how many subscriptions an import restored.
type ImportResultDTO struct {
	Imported int `json:"imported"`
}
