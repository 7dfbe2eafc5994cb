package models

// URLPredictionRequest asks for a remote image to be classified
type URLPredictionRequest struct {
	URL string `json:"url" binding:"required"`
}

// FramePredictionRequest carries a webcam capture as base64 or a data URL
type FramePredictionRequest struct {
	Image string `json:"image" binding:"required"`
}

// TensorPredictionRequest carries an already preprocessed tensor
type TensorPredictionRequest struct {
	Shape []int64   `json:"shape" binding:"required"`
	Data  []float32 `json:"data" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports service and model status
type HealthResponse struct {
	Status       string `json:"status"`
	Classes      int    `json:"classes"`
	InputHeight  int    `json:"input_height"`
	InputWidth   int    `json:"input_width"`
	PoolSize     int    `json:"pool_size"`
	StorageReady bool   `json:"storage_ready"`
}

// LabelsResponse lists the classifier labels in output order
type LabelsResponse struct {
	Labels []string `json:"labels"`
	Count  int      `json:"count"`
}

// FavoriteRequest adds one of the caller's predictions to their favorites
type FavoriteRequest struct {
	PredictionID string `json:"prediction_id" binding:"required"`
}

// SettingsUpdateRequest changes only the fields that are present
type SettingsUpdateRequest struct {
	Theme                *string `json:"theme"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}
