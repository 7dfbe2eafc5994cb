package models

import "time"

// FrameQuality carries lighting and focus hints for one input
type FrameQuality struct {
	Brightness   float64  `json:"brightness"`
	LaplacianVar float64  `json:"laplacian_variance"`
	Warnings     []string `json:"warnings,omitempty"`
}

// PredictionResponse is returned by every /predict endpoint
type PredictionResponse struct {
	ID               string             `json:"id,omitempty"`
	PredictedClass   string             `json:"predicted_class"`
	ClassIndex       int                `json:"class_index"`
	Confidence       float32            `json:"confidence"`
	AllProbabilities map[string]float32 `json:"all_probabilities"`
	Source           string             `json:"source"`
	Filename         string             `json:"filename,omitempty"`
	Quality          *FrameQuality      `json:"quality,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Timestamp        time.Time          `json:"timestamp"`
}

// SpellFrame is the outcome for one frame of a fingerspelling sequence
type SpellFrame struct {
	Index          int           `json:"index"`
	Filename       string        `json:"filename,omitempty"`
	PredictedClass string        `json:"predicted_class,omitempty"`
	Confidence     float32       `json:"confidence,omitempty"`
	Quality        *FrameQuality `json:"quality,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// SpellingScore compares the transcript with the expected text
type SpellingScore struct {
	Expected       string  `json:"expected"`
	EditDistance   int     `json:"edit_distance"`
	CER            float64 `json:"character_error_rate"`
	WER            float64 `json:"word_error_rate"`
	ReferenceWords int     `json:"reference_words"`
	Exact          bool    `json:"exact"`
}

// SpellResponse is returned by /spell
type SpellResponse struct {
	Transcript       string         `json:"transcript"`
	Frames           []SpellFrame   `json:"frames"`
	FailedFrames     int            `json:"failed_frames"`
	Score            *SpellingScore `json:"score,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// HistoryItem is one stored prediction
type HistoryItem struct {
	ID             string    `json:"id"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float32   `json:"confidence"`
	Source         string    `json:"source"`
	Filename       string    `json:"filename,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryResponse lists a user's predictions, newest first
type HistoryResponse struct {
	Predictions []HistoryItem `json:"predictions"`
	Count       int           `json:"count"`
}

// ShareResponse describes a newly created public link
type ShareResponse struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SharedPredictionResponse is what a public link resolves to
type SharedPredictionResponse struct {
	Prediction HistoryItem `json:"prediction"`
	SharedBy   string      `json:"shared_by"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// StatsResponse summarises a user's activity
type StatsResponse struct {
	TranslationsCount int        `json:"translations_count"`
	AverageConfidence float64    `json:"average_confidence"`
	LastTranslationAt *time.Time `json:"last_translation_at,omitempty"`
}

// FavoriteItem is a favorited prediction
type FavoriteItem struct {
	Prediction  HistoryItem `json:"prediction"`
	FavoritedAt time.Time   `json:"favorited_at"`
}

// FavoritesResponse lists a user's favorites, most recent first
type FavoritesResponse struct {
	Favorites []FavoriteItem `json:"favorites"`
	Count     int            `json:"count"`
}

// SettingsResponse holds a user's display preferences
type SettingsResponse struct {
	Theme                string     `json:"theme"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}
