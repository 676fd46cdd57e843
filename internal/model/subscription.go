package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionCategory classifies a subscription for grouping and display.
type SubscriptionCategory string

const (
	CategoryEntertainment  SubscriptionCategory = "entertainment"
	CategorySocialMedia    SubscriptionCategory = "social_media"
	CategoryProductivity   SubscriptionCategory = "productivity"
	CategoryFitness        SubscriptionCategory = "fitness"
	CategoryNews           SubscriptionCategory = "news"
	CategoryGaming         SubscriptionCategory = "gaming"
	CategoryShopping       SubscriptionCategory = "shopping"
	CategoryMusic          SubscriptionCategory = "music"
	CategoryVideoStreaming SubscriptionCategory = "video_streaming"
	CategoryCloudStorage   SubscriptionCategory = "cloud_storage"
	CategoryDating         SubscriptionCategory = "dating"
	CategoryFoodDelivery   SubscriptionCategory = "food_delivery"
	CategoryMiscellaneous  SubscriptionCategory = "miscellaneous"
)

type categoryInfo struct {
	DisplayName string
	ColorHex    string
}

var categories = map[SubscriptionCategory]categoryInfo{
	CategoryEntertainment:  {"Entertainment", "#8B5CF6"},
	CategorySocialMedia:    {"Social Media", "#EC4899"},
	CategoryProductivity:   {"Productivity", "#3B82F6"},
	CategoryFitness:        {"Fitness & Health", "#10B981"},
	CategoryNews:           {"News & Magazines", "#F59E0B"},
	CategoryGaming:         {"Gaming", "#EF4444"},
	CategoryShopping:       {"Shopping", "#8B5CF6"},
	CategoryMusic:          {"Music", "#06B6D4"},
	CategoryVideoStreaming: {"Video Streaming", "#8B5CF6"},
	CategoryCloudStorage:   {"Cloud Storage", "#6B7280"},
	CategoryDating:         {"Dating", "#EC4899"},
	CategoryFoodDelivery:   {"Food Delivery", "#F59E0B"},
	CategoryMiscellaneous:  {"Miscellaneous", "#6B7280"},
}

// DisplayName returns the human-readable label for the category.
func (c SubscriptionCategory) DisplayName() string {
	if info, ok := categories[c]; ok {
		return info.DisplayName
	}
	return categories[CategoryMiscellaneous].DisplayName
}

// ColorHex returns the UI color tag for the category.
func (c SubscriptionCategory) ColorHex() string {
	if info, ok := categories[c]; ok {
		return info.ColorHex
	}
	return categories[CategoryMiscellaneous].ColorHex
}

// Valid reports whether the category is one of the known variants.
func (c SubscriptionCategory) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseSubscriptionCategory decodes a stored category string. Used at the
// storage adapter edge so an unknown value fails loudly instead of silently
// becoming an empty category.
func ParseSubscriptionCategory(s string) (SubscriptionCategory, error) {
	c := SubscriptionCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown subscription category %q", s)
	}
	return c, nil
}

// BillingCycle is the recurrence period of a subscription's charge.
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleBiannual  BillingCycle = "biannual"
	CycleAnnual    BillingCycle = "annual"
)

// MonthsMultiplier returns the number of months covered by one charge.
// Weekly is the special case and returns 0; use MonthlyEquivalentPrice for
// cross-cycle comparisons instead of this value.
func (b BillingCycle) MonthsMultiplier() int {
	switch b {
	case CycleMonthly:
		return 1
	case CycleQuarterly:
		return 3
	case CycleBiannual:
		return 6
	case CycleAnnual:
		return 12
	default:
		return 0
	}
}

// DisplayName returns the human-readable label for the cycle.
func (b BillingCycle) DisplayName() string {
	switch b {
	case CycleWeekly:
		return "Weekly"
	case CycleMonthly:
		return "Monthly"
	case CycleQuarterly:
		return "Quarterly"
	case CycleBiannual:
		return "Bi-annually"
	case CycleAnnual:
		return "Annually"
	default:
		return string(b)
	}
}

// Valid reports whether the cycle is a known variant.
func (b BillingCycle) Valid() bool {
	switch b {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleBiannual, CycleAnnual:
		return true
	}
	return false
}

// ParseBillingCycle decodes a stored billing cycle string.
func ParseBillingCycle(s string) (BillingCycle, error) {
	b := BillingCycle(s)
	if !b.Valid() {
		return "", fmt.Errorf("unknown billing cycle %q", s)
	}
	return b, nil
}

// ReminderFrequency controls billing reminder cadence. It is independent of
// the unused-subscription notification throttle.
type ReminderFrequency string

const (
	RemindDaily    ReminderFrequency = "daily"
	RemindWeekly   ReminderFrequency = "weekly"
	RemindBiweekly ReminderFrequency = "biweekly"
	RemindMonthly  ReminderFrequency = "monthly"
	RemindNever    ReminderFrequency = "never"
)

// DaysInterval returns the reminder interval in days, -1 for never.
func (r ReminderFrequency) DaysInterval() int {
	switch r {
	case RemindDaily:
		return 1
	case RemindWeekly:
		return 7
	case RemindBiweekly:
		return 14
	case RemindMonthly:
		return 30
	default:
		return -1
	}
}

// Valid reports whether the frequency is a known variant.
func (r ReminderFrequency) Valid() bool {
	switch r {
	case RemindDaily, RemindWeekly, RemindBiweekly, RemindMonthly, RemindNever:
		return true
	}
	return false
}

// ParseReminderFrequency decodes a stored reminder frequency string.
func ParseReminderFrequency(s string) (ReminderFrequency, error) {
	r := ReminderFrequency(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown reminder frequency %q", s)
	}
	return r, nil
}

// Subscription is the central entity: one recurring charge being tracked
// for the user. The reconciliation service is the sole writer.
type Subscription struct {
	ID                   string               `db:"id" json:"id"`
	Name                 string               `db:"name" json:"name"`
	Description          *string              `db:"description" json:"description,omitempty"`
	Category             SubscriptionCategory `db:"category" json:"category"`
	MonthlyPrice         decimal.Decimal      `db:"monthly_price" json:"monthly_price"`
	BillingCycle         BillingCycle         `db:"billing_cycle" json:"billing_cycle"`
	NextBillingDate      time.Time            `db:"next_billing_date" json:"next_billing_date"`
	WebsiteURL           *string              `db:"website_url" json:"website_url,omitempty"`
	CancellationURL      *string              `db:"cancellation_url" json:"cancellation_url,omitempty"`
	IsActive             bool                 `db:"is_active" json:"is_active"`
	LastUsedDate         *time.Time           `db:"last_used_date" json:"last_used_date,omitempty"`
	ScheduledCancelDate  *time.Time           `db:"scheduled_cancellation_date" json:"scheduled_cancellation_date,omitempty"`
	UsageTrackingEnabled bool                 `db:"usage_tracking_enabled" json:"usage_tracking_enabled"`
	ReminderFrequency    ReminderFrequency    `db:"reminder_frequency" json:"reminder_frequency"`
	TotalSpent           decimal.Decimal      `db:"total_spent" json:"total_spent"`
	PlatformIdentifier   *string              `db:"platform_identifier" json:"platform_identifier,omitempty"`
	PackageName          *string              `db:"package_name" json:"package_name,omitempty"`
	Notes                *string              `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `db:"updated_at" json:"updated_at"`
}

// weeksPerMonth is the accepted approximation used to normalize weekly
// prices to a monthly figure.
var weeksPerMonth = decimal.RequireFromString("4.33")

// MonthlyEquivalentPrice normalizes the price to a per-month figure for
// cross-cycle comparison. All arithmetic is exact decimal math; only the
// weekly factor itself is an approximation.
func (s *Subscription) MonthlyEquivalentPrice() decimal.Decimal {
	switch s.BillingCycle {
	case CycleWeekly:
		return s.MonthlyPrice.Mul(weeksPerMonth)
	case CycleQuarterly:
		return s.MonthlyPrice.Div(decimal.NewFromInt(3))
	case CycleBiannual:
		return s.MonthlyPrice.Div(decimal.NewFromInt(6))
	case CycleAnnual:
		return s.MonthlyPrice.Div(decimal.NewFromInt(12))
	default:
		return s.MonthlyPrice
	}
}

// DaysSinceLastUsed returns the whole days between the last-used date and
// now, comparing calendar dates. Returns -1 when the subscription has never
// been seen in use.
func (s *Subscription) DaysSinceLastUsed(now time.Time) int {
	if s.LastUsedDate == nil {
		return -1
	}
	lu := *s.LastUsedDate
	from := time.Date(lu.Year(), lu.Month(), lu.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// IsUnused reports whether the subscription has gone unused past the
// threshold. A subscription that has never been opened only counts once it
// is older than the threshold, so freshly added entries are not penalized.
func (s *Subscription) IsUnused(thresholdDays int, now time.Time) bool {
	if days := s.DaysSinceLastUsed(now); days > thresholdDays {
		return true
	}
	return s.LastUsedDate == nil && s.CreatedAt.Before(now.AddDate(0, 0, -thresholdDays))
}

// UsageFrequency buckets how often a subscription is used.
type UsageFrequency string

const (
	UsageDaily   UsageFrequency = "daily"
	UsageWeekly  UsageFrequency = "weekly"
	UsageMonthly UsageFrequency = "monthly"
	UsageRarely  UsageFrequency = "rarely"
	UsageNever   UsageFrequency = "never"
	UsageUnknown UsageFrequency = "unknown"
)

// UsageFrequencyFor buckets the subscription's recency of use.
func UsageFrequencyFor(s *Subscription, now time.Time) UsageFrequency {
	days := s.DaysSinceLastUsed(now)
	switch {
	case days == -1:
		return UsageUnknown
	case days <= 1:
		return UsageDaily
	case days <= 7:
		return UsageWeekly
	case days <= 30:
		return UsageMonthly
	case days <= 90:
		return UsageRarely
	default:
		return UsageNever
	}
}

// SubscriptionUsage is a derived view of a subscription's activity. It is
// computed on demand and never persisted.
type SubscriptionUsage struct {
	SubscriptionID   string         `json:"subscription_id"`
	LastOpenDate     *time.Time     `json:"last_open_date,omitempty"`
	DaysSinceLastUse int            `json:"days_since_last_use"`
	UsageFrequency   UsageFrequency `json:"usage_frequency"`
}

// RecommendationType tags a recommendation. CancelDuplicate is a reserved
// variant; no detection heuristic produces it yet.
type RecommendationType string

const (
	RecommendCancelUnused    RecommendationType = "cancel_unused"
	RecommendCancelDuplicate RecommendationType = "cancel_duplicate"
	RecommendSwitchPlan      RecommendationType = "switch_plan"
	RecommendPause           RecommendationType = "pause"
	RecommendKeep            RecommendationType = "keep"
)

// SubscriptionRecommendation is ephemeral: emitted per computation cycle and
// consumed immediately, never stored.
type SubscriptionRecommendation struct {
	SubscriptionID     string             `json:"subscription_id"`
	RecommendationType RecommendationType `json:"recommendation_type"`
	Reason             string             `json:"reason"`
	PotentialSavings   decimal.Decimal    `json:"potential_savings"`
	Confidence         float64            `json:"confidence"`
	CreatedAt          time.Time          `json:"created_at"`
}
