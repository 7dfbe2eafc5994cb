package service

import (
	"context"
	"errors"

	apperrors "go-sign-recognizer/internal/errors"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/pkg/models"
)

func toFavoriteItem(f *repository.Favorite) models.FavoriteItem {
	item := models.FavoriteItem{FavoritedAt: f.CreatedAt}
	if f.Prediction != nil {
		item.Prediction = toHistoryItem(f.Prediction)
	} else {
		item.Prediction.ID = f.PredictionID
	}
	return item
}

// Favorites lists the predictions the user has favorited
func (s *recognitionService) Favorites(ctx context.Context, userID string) (*models.FavoritesResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	favorites, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, repositoryError(err, "load favorites")
	}
	resp := &models.FavoritesResponse{Favorites: make([]models.FavoriteItem, 0, len(favorites))}
	for _, f := range favorites {
		resp.Favorites = append(resp.Favorites, toFavoriteItem(f))
	}
	resp.Count = len(resp.Favorites)
	return resp, nil
}

// AddFavorite favorites one of the user's own predictions. Adding it twice
// is not an error.
func (s *recognitionService) AddFavorite(ctx context.Context, userID, predictionID string) (*models.FavoriteItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if predictionID == "" {
		return nil, apperrors.NewValidationError("prediction_id is required", nil)
	}
	f, err := s.repo.AddFavorite(ctx, userID, predictionID)
	if err != nil {
		return nil, repositoryError(err, "add favorite")
	}
	item := toFavoriteItem(f)
	return &item, nil
}

// RemoveFavorite drops a prediction from the user's favorites
func (s *recognitionService) RemoveFavorite(ctx context.Context, userID, predictionID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.repo.RemoveFavorite(ctx, userID, predictionID); err != nil {
		if errors.Is(err, repository.ErrFavoriteNotFound) {
			return apperrors.NewNotFoundError("Favorite not found", err)
		}
		return repositoryError(err, "remove favorite")
	}
	return nil
}

func toSettingsResponse(s *repository.Settings) *models.SettingsResponse {
	resp := &models.SettingsResponse{Theme: s.Theme, NotificationsEnabled: s.NotificationsEnabled}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}

// Settings returns the user's preferences, or the defaults if none were saved
func (s *recognitionService) Settings(ctx context.Context, userID string) (*models.SettingsResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, repositoryError(err, "load settings")
	}
	return toSettingsResponse(settings), nil
}

// UpdateSettings applies the fields present in req on top of the stored
// settings.
func (s *recognitionService) UpdateSettings(ctx context.Context, userID string, req models.SettingsUpdateRequest) (*models.SettingsResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if req.Theme != nil && *req.Theme != repository.ThemeLight && *req.Theme != repository.ThemeDark {
		return nil, apperrors.NewValidationError("theme must be light or dark", nil)
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, repositoryError(err, "load settings")
	}
	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}
	settings.UserID = userID
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, repositoryError(err, "save settings")
	}
	return toSettingsResponse(settings), nil
}
