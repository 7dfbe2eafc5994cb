package repository

import "errors"

var (
	// ErrPredictionNotFound indicates the prediction does not exist or belongs to another user
	ErrPredictionNotFound = errors.New("prediction not found")

	// ErrShareNotFound indicates the share token is unknown, revoked or expired
	ErrShareNotFound = errors.New("shared prediction not found")

	// ErrFavoriteNotFound indicates the prediction is not in the user's favorites
	ErrFavoriteNotFound = errors.New("favorite not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
