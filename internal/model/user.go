package model

import "time"

// User represents the owning user's profile. The engine only reads it for
// preference lookups; it never mutates preferences.
type User struct {
	UserID               string               `db:"user_id" json:"user_id"`
	Name                 string               `db:"name" json:"name"`
	Email                string               `db:"email" json:"email"`
	AvatarURL            string               `db:"avatar_url" json:"avatar_url"`
	NotificationSettings NotificationSettings `db:"notification_settings" json:"notification_settings"`
	Preferences          UserPreferences      `db:"preferences" json:"preferences"`
	CreatedAt            time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time            `db:"updated_at" json:"updated_at"`
}

// NotificationSettings is configuration input for the recommendation and
// notification sweeps.
type NotificationSettings struct {
	EnableUnusedAlerts       bool   `json:"enable_unused_alerts"`
	EnableBillingReminders   bool   `json:"enable_billing_reminders"`
	EnableCancellationAlerts bool   `json:"enable_cancellation_alerts"`
	UnusedThresholdDays      int    `json:"unused_threshold_days"`
	BillingReminderDaysAhead int    `json:"billing_reminder_days_ahead"`
	QuietHoursStart          string `json:"quiet_hours_start"`
	QuietHoursEnd            string `json:"quiet_hours_end"`
	EnableQuietHours         bool   `json:"enable_quiet_hours"`
}

// DefaultNotificationSettings returns the settings applied to a new profile.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EnableUnusedAlerts:       true,
		EnableBillingReminders:   true,
		EnableCancellationAlerts: true,
		UnusedThresholdDays:      30,
		BillingReminderDaysAhead: 3,
		QuietHoursStart:          "22:00",
		QuietHoursEnd:            "08:00",
		EnableQuietHours:         true,
	}
}

// UserPreferences holds display and data preferences.
type UserPreferences struct {
	DefaultCurrency string `json:"default_currency"`
	AutoBackup      bool   `json:"auto_backup"`
}

// DefaultUserPreferences returns the preferences applied to a new profile.
func DefaultUserPreferences() UserPreferences {
	return UserPreferences{
		DefaultCurrency: "USD",
		AutoBackup:      true,
	}
}
