package service

import (
	"context"
	"errors"

	apperrors "go-sign-recognizer/internal/errors"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/internal/storage"
	"go-sign-recognizer/pkg/models"
)

func requireUser(userID string) error {
	if userID == "" {
		return apperrors.NewUnauthorizedError("User identity is required", nil)
	}
	return nil
}

// repositoryError maps repository sentinels onto application errors
func repositoryError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrPredictionNotFound):
		return apperrors.NewNotFoundError("Prediction not found", err)
	case errors.Is(err, repository.ErrShareNotFound):
		return apperrors.NewNotFoundError("Shared prediction not found or expired", err)
	default:
		return apperrors.NewInternalError("Failed to "+action, err)
	}
}

func toHistoryItem(p *repository.Prediction) models.HistoryItem {
	return models.HistoryItem{
		ID:             p.ID,
		PredictedClass: p.PredictedClass,
		Confidence:     p.Confidence,
		Source:         string(p.Source),
		Filename:       p.Filename,
		CreatedAt:      p.CreatedAt,
	}
}

// History lists the user's predictions, newest first. A limit outside
// 1..historyLimit falls back to historyLimit.
func (s *recognitionService) History(ctx context.Context, userID string, limit int) (*models.HistoryResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	predictions, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, repositoryError(err, "load history")
	}
	resp := &models.HistoryResponse{Predictions: make([]models.HistoryItem, 0, len(predictions))}
	for _, p := range predictions {
		resp.Predictions = append(resp.Predictions, toHistoryItem(p))
	}
	resp.Count = len(resp.Predictions)
	return resp, nil
}

// GetPrediction returns one of the user's predictions
func (s *recognitionService) GetPrediction(ctx context.Context, userID, id string) (*models.HistoryItem, error) {
	p, err := s.ownedPrediction(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	item := toHistoryItem(p)
	return &item, nil
}

// DeletePrediction removes the prediction, its shares and its archived image
func (s *recognitionService) DeletePrediction(ctx context.Context, userID, id string) error {
	p, err := s.ownedPrediction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return repositoryError(err, "delete prediction")
	}
	if p.StorageKey != "" && s.store != nil {
		if err := s.store.Delete(ctx, p.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logger.WithError(err).WithField("storage_key", p.StorageKey).Warn("Failed to delete archived image")
		}
	}
	return nil
}

func (s *recognitionService) ownedPrediction(ctx context.Context, userID, id string) (*repository.Prediction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repositoryError(err, "load prediction")
	}
	// other users' predictions are indistinguishable from missing ones
	if p.UserID != userID {
		return nil, apperrors.NewNotFoundError("Prediction not found", repository.ErrPredictionNotFound)
	}
	return p, nil
}

// Stats summarises the user's history
func (s *recognitionService) Stats(ctx context.Context, userID string) (*models.StatsResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, repositoryError(err, "load statistics")
	}
	return &models.StatsResponse{
		TranslationsCount: stats.TranslationsCount,
		AverageConfidence: stats.AverageConfidence,
		LastTranslationAt: stats.LastTranslationAt,
	}, nil
}

// Share creates a public, expiring link to one of the user's predictions
func (s *recognitionService) Share(ctx context.Context, userID, id string) (*models.ShareResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	share, err := s.repo.CreateShare(ctx, id, userID, s.shareTTL)
	if err != nil {
		return nil, repositoryError(err, "share prediction")
	}
	return &models.ShareResponse{
		Token:     share.Token,
		Path:      "/shared/" + share.Token,
		ExpiresAt: share.ExpiresAt,
	}, nil
}

// ResolveShare returns the prediction behind an active share token
func (s *recognitionService) ResolveShare(ctx context.Context, token string) (*models.SharedPredictionResponse, error) {
	if token == "" {
		return nil, apperrors.NewNotFoundError("Shared prediction not found or expired", nil)
	}
	share, p, err := s.repo.ResolveShare(ctx, token)
	if err != nil {
		return nil, repositoryError(err, "resolve share")
	}
	return &models.SharedPredictionResponse{
		Prediction: toHistoryItem(p),
		SharedBy:   share.SharedBy,
		ExpiresAt:  share.ExpiresAt,
	}, nil
}

// RevokeShare deactivates a share created by the user
func (s *recognitionService) RevokeShare(ctx context.Context, userID, token string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.repo.RevokeShare(ctx, userID, token); err != nil {
		return repositoryError(err, "revoke share")
	}
	return nil
}
