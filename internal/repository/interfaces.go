package repository

import (
	"context"
	"time"
)

// Source records how a prediction's input reached the service.
type Source string

const (
	SourceImage  Source = "image"
	SourceURL    Source = "url"
	SourceWebcam Source = "webcam"
	SourceTensor Source = "tensor"
)

// Prediction is one classified input kept in a user's history.
type Prediction struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Filename       string    `json:"filename,omitempty"`
	StorageKey     string    `json:"storage_key,omitempty"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float32   `json:"confidence"`
	Source         Source    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// Share is a public, expiring link to one prediction.
type Share struct {
	Token        string    `json:"token"`
	PredictionID string    `json:"prediction_id"`
	SharedBy     string    `json:"shared_by"`
	ExpiresAt    time.Time `json:"expires_at"`
	Active       bool      `json:"active"`
}

// Favorite marks one of a user's own predictions as kept. Prediction is
// filled in by AddFavorite and ListFavorites.
type Favorite struct {
	UserID       string      `json:"user_id"`
	PredictionID string      `json:"prediction_id"`
	CreatedAt    time.Time   `json:"created_at"`
	Prediction   *Prediction `json:"prediction,omitempty"`
}

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings are a user's display preferences.
type Settings struct {
	UserID               string    `json:"user_id"`
	Theme                string    `json:"theme"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultSettings is what a user gets before saving any preference.
func DefaultSettings(userID string) *Settings {
	return &Settings{UserID: userID, Theme: ThemeLight, NotificationsEnabled: true}
}

// UsageStats summarises a user's history.
type UsageStats struct {
	UserID            string     `json:"user_id"`
	TranslationsCount int        `json:"translations_count"`
	AverageConfidence float64    `json:"average_confidence"`
	LastTranslationAt *time.Time `json:"last_translation_at,omitempty"`
}

// PredictionRepository stores prediction history, public shares, favorites
// and per-user settings.
type PredictionRepository interface {
	// Save assigns ID and CreatedAt when they are empty.
	Save(ctx context.Context, p *Prediction) error

	Get(ctx context.Context, id string) (*Prediction, error)

	// ListByUser returns the newest predictions first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Prediction, error)

	// Delete removes a prediction owned by userID together with its shares
	// and favorites.
	Delete(ctx context.Context, userID, id string) error

	Stats(ctx context.Context, userID string) (*UsageStats, error)

	CreateShare(ctx context.Context, predictionID, sharedBy string, ttl time.Duration) (*Share, error)

	// ResolveShare returns ErrShareNotFound for unknown, revoked or expired tokens.
	ResolveShare(ctx context.Context, token string) (*Share, *Prediction, error)

	RevokeShare(ctx context.Context, userID, token string) error

	// AddFavorite is idempotent; only the prediction's owner may favorite it.
	AddFavorite(ctx context.Context, userID, predictionID string) (*Favorite, error)

	RemoveFavorite(ctx context.Context, userID, predictionID string) error

	// ListFavorites returns the most recently favorited first.
	ListFavorites(ctx context.Context, userID string) ([]*Favorite, error)

	// GetSettings returns DefaultSettings when the user has saved none.
	GetSettings(ctx context.Context, userID string) (*Settings, error)

	// SaveSettings replaces the user's settings and sets UpdatedAt.
	SaveSettings(ctx context.Context, s *Settings) error

	Close() error
}
