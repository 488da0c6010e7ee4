// Package device models third-party device connections and mirrored activities.
package device

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Providers.
const (
	ProviderGarmin = "garmin"
	ProviderStrava = "strava"
)

// Connection is a user's OAuth link to a provider. Tokens are sealed at rest;
// the store never sees plaintext.
type Connection struct {
	ID             int64          `db:"connection_id" json:"connection_id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Provider       string         `db:"provider" json:"provider"`
	ProviderUserID string         `db:"provider_user_id" json:"provider_user_id"`
	AccessToken    string         `db:"access_token" json:"-"`
	RefreshToken   string         `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time     `db:"token_expires_at" json:"-"`
	Scopes         pq.StringArray `db:"scopes" json:"scopes"`
	Active         bool           `db:"is_active" json:"is_active"`
	LastSyncAt     *time.Time     `db:"last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Status is the client-visible view of a provider connection.
type Status struct {
	Provider   string     `json:"provider"`
	Connected  bool       `json:"connected"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Configured bool       `json:"configured"`
}

// Activity is an activity summary mirrored from a provider.
type Activity struct {
	ID              int64           `db:"activity_id" json:"activity_id"`
	ConnectionID    int64           `db:"connection_id" json:"-"`
	UserID          int64           `db:"user_id" json:"user_id"`
	Provider        string          `db:"provider" json:"provider"`
	ExternalID      string          `db:"external_id" json:"external_id"`
	Type            string          `db:"activity_type" json:"activity_type"`
	Name            string          `db:"name" json:"name"`
	StartTime       time.Time       `db:"start_time" json:"start_time"`
	DurationSeconds int             `db:"duration_seconds" json:"duration_seconds"`
	DistanceMeters  *float64        `db:"distance_meters" json:"distance_meters,omitempty"`
	Calories        *int            `db:"calories" json:"calories,omitempty"`
	AvgHeartRate    *int            `db:"avg_heart_rate" json:"avg_heart_rate,omitempty"`
	Raw             json.RawMessage `db:"raw" json:"-"`
	SyncedAt        time.Time       `db:"synced_at" json:"synced_at"`
}

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	Provider string
	Since    *time.Time
	Limit    int
}
