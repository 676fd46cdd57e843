package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/manngobeh2006/Subscription-Remover/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// RemoteStore is the authoritative remote copy of the subscription table,
// keyed by subscription id. Writes to it are mirrored best-effort: the
// reconciliation service never blocks a local mutation on the remote.
type RemoteStore interface {
	Put(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

type s3RemoteStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3RemoteStore mirrors subscriptions as JSON objects in a bucket, one
// object per subscription id.
func NewS3RemoteStore(client *s3.Client, bucket, prefix string) RemoteStore {
	return &s3RemoteStore{client: client, bucket: bucket, prefix: prefix}
}

func (r *s3RemoteStore) key(id string) string {
	return r.prefix + id + ".json"
}

func (r *s3RemoteStore) Put(ctx context.Context, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode remote fields for %s: %w", id, err)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(id)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("mirror subscription %s: %w", id, err)
	}
	return nil
}

func (r *s3RemoteStore) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return fmt.Errorf("delete mirrored subscription %s: %w", id, err)
	}
	return nil
}

// FlattenSubscription encodes a subscription as a flat field map for the
// remote store. Only primitive-serializable values cross this boundary;
// dates and decimals travel as strings.
func FlattenSubscription(s *model.Subscription) map[string]any {
	fields := map[string]any{
		"id":                     s.ID,
		"name":                   s.Name,
		"category":               string(s.Category),
		"monthly_price":          s.MonthlyPrice.String(),
		"billing_cycle":          string(s.BillingCycle),
		"next_billing_date":      s.NextBillingDate.Format("2006-01-02"),
		"is_active":              s.IsActive,
		"usage_tracking_enabled": s.UsageTrackingEnabled,
		"reminder_frequency":     string(s.ReminderFrequency),
		"total_spent":            s.TotalSpent.String(),
		"created_at":             s.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":             s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	putOpt := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	putOpt("description", s.Description)
	putOpt("website_url", s.WebsiteURL)
	putOpt("cancellation_url", s.CancellationURL)
	putOpt("platform_identifier", s.PlatformIdentifier)
	putOpt("package_name", s.PackageName)
	putOpt("notes", s.Notes)
	if s.LastUsedDate != nil {
		fields["last_used_date"] = s.LastUsedDate.UTC().Format(time.RFC3339Nano)
	}
	if s.ScheduledCancelDate != nil {
		fields["scheduled_cancellation_date"] = s.ScheduledCancelDate.UTC().Format(time.RFC3339Nano)
	}
	return fields
}
