package dto

import (
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"
)

// RecommendationResponseDTO is returned per generated recommendation.
type RecommendationResponseDTO struct {
	SubscriptionID     string    `json:"subscription_id"`
	RecommendationType string    `json:"recommendation_type"`
	Reason             string    `json:"reason"`
	PotentialSavings   string    `json:"potential_savings"`
	Confidence         float64   `json:"confidence"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewRecommendationResponseList maps generated recommendations.
func NewRecommendationResponseList(recs []model.SubscriptionRecommendation) []RecommendationResponseDTO {
	out := make([]RecommendationResponseDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationResponseDTO{
			SubscriptionID:     r.SubscriptionID,
			RecommendationType: string(r.RecommendationType),
			Reason:             r.Reason,
			PotentialSavings:   r.PotentialSavings.String(),
			Confidence:         r.Confidence,
			CreatedAt:          r.CreatedAt,
		})
	}
	return out
}

// UsageStatsResponseDTO is the derived usage view for one subscription.
type UsageStatsResponseDTO struct {
	SubscriptionID   string     `json:"subscription_id"`
	LastOpenDate     *time.Time `json:"last_open_date,omitempty"`
	DaysSinceLastUse int        `json:"days_since_last_use"`
	UsageFrequency   string     `json:"usage_frequency"`
}

// SpendingSummaryDTO aggregates active subscription spending.
type SpendingSummaryDTO struct {
	ActiveCount          int               `json:"active_count"`
	TotalMonthlySpending string            `json:"total_monthly_spending"`
	AveragePrice         string            `json:"average_price"`
	SpendingByCategory   map[string]string `json:"spending_by_category"`
	CategoryDistribution map[string]int    `json:"category_distribution"`
}

// UpcomingBillDTO is one subscription due to bill within the query window.
type UpcomingBillDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MonthlyPrice    string    `json:"monthly_price"`
	BillingCycle    string    `json:"billing_cycle"`
	NextBillingDate time.Time `json:"next_billing_date"`
}

// NewUpcomingBillList maps subscriptions due for billing.
func NewUpcomingBillList(subs []model.Subscription) []UpcomingBillDTO {
	out := make([]UpcomingBillDTO, 0, len(subs))
	for i := range subs {
		s := &subs[i]
		out = append(out, UpcomingBillDTO{
			ID:              s.ID,
			Name:            s.Name,
			MonthlyPrice:    s.MonthlyPrice.String(),
			BillingCycle:    string(s.BillingCycle),
			NextBillingDate: s.NextBillingDate,
		})
	}
	return out
}

// ExportResponseDTO wraps the exported JSON document.
type ExportResponseDTO struct {
	Data string `json:"data"`
}
