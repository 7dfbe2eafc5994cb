package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps history in process memory. It is used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	predictions map[string]*Prediction
	shares      map[string]*Share
	favorites   map[favoriteKey]time.Time
	settings    map[string]Settings
	now         func() time.Time
}

type favoriteKey struct {
	userID, predictionID string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		predictions: make(map[string]*Prediction),
		shares:      make(map[string]*Share),
		favorites:   make(map[favoriteKey]time.Time),
		settings:    make(map[string]Settings),
		now:         time.Now,
	}
}

func (r *MemoryRepository) Save(ctx context.Context, p *Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	stored := *p
	r.predictions[p.ID] = &stored
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predictions[id]
	if !ok {
		return nil, ErrPredictionNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Prediction
	for _, p := range r.predictions {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[id]
	if !ok || p.UserID != userID {
		return ErrPredictionNotFound
	}
	delete(r.predictions, id)
	for token, s := range r.shares {
		if s.PredictionID == id {
			delete(r.shares, token)
		}
	}
	for key := range r.favorites {
		if key.predictionID == id {
			delete(r.favorites, key)
		}
	}
	return nil
}

func (r *MemoryRepository) Stats(ctx context.Context, userID string) (*UsageStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &UsageStats{UserID: userID}
	var sum float64
	for _, p := range r.predictions {
		if p.UserID != userID {
			continue
		}
		stats.TranslationsCount++
		sum += float64(p.Confidence)
		if stats.LastTranslationAt == nil || p.CreatedAt.After(*stats.LastTranslationAt) {
			at := p.CreatedAt
			stats.LastTranslationAt = &at
		}
	}
	if stats.TranslationsCount > 0 {
		stats.AverageConfidence = sum / float64(stats.TranslationsCount)
	}
	return stats, nil
}

func (r *MemoryRepository) CreateShare(ctx context.Context, predictionID, sharedBy string, ttl time.Duration) (*Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[predictionID]
	if !ok || p.UserID != sharedBy {
		return nil, ErrPredictionNotFound
	}
	s := &Share{
		Token:        uuid.NewString(),
		PredictionID: predictionID,
		SharedBy:     sharedBy,
		ExpiresAt:    r.now().UTC().Add(ttl),
		Active:       true,
	}
	r.shares[s.Token] = s
	out := *s
	return &out, nil
}

func (r *MemoryRepository) ResolveShare(ctx context.Context, token string) (*Share, *Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shares[token]
	if !ok || !s.Active || !r.now().Before(s.ExpiresAt) {
		return nil, nil, ErrShareNotFound
	}
	p, ok := r.predictions[s.PredictionID]
	if !ok {
		return nil, nil, ErrShareNotFound
	}
	share, pred := *s, *p
	return &share, &pred, nil
}

func (r *MemoryRepository) RevokeShare(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[token]
	if !ok || !s.Active || s.SharedBy != userID {
		return ErrShareNotFound
	}
	s.Active = false
	return nil
}

func (r *MemoryRepository) AddFavorite(ctx context.Context, userID, predictionID string) (*Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.predictions[predictionID]
	if !ok || p.UserID != userID {
		return nil, ErrPredictionNotFound
	}
	key := favoriteKey{userID, predictionID}
	at, ok := r.favorites[key]
	if !ok {
		at = r.now().UTC()
		r.favorites[key] = at
	}
	pred := *p
	return &Favorite{UserID: userID, PredictionID: predictionID, CreatedAt: at, Prediction: &pred}, nil
}

func (r *MemoryRepository) RemoveFavorite(ctx context.Context, userID, predictionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favoriteKey{userID, predictionID}
	if _, ok := r.favorites[key]; !ok {
		return ErrFavoriteNotFound
	}
	delete(r.favorites, key)
	return nil
}

func (r *MemoryRepository) ListFavorites(ctx context.Context, userID string) ([]*Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Favorite
	for key, at := range r.favorites {
		if key.userID != userID {
			continue
		}
		p, ok := r.predictions[key.predictionID]
		if !ok {
			continue
		}
		pred := *p
		out = append(out, &Favorite{UserID: userID, PredictionID: key.predictionID, CreatedAt: at, Prediction: &pred})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PredictionID > out[j].PredictionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[userID]
	if !ok {
		return DefaultSettings(userID), nil
	}
	return &s, nil
}

func (r *MemoryRepository) SaveSettings(ctx context.Context, s *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.UpdatedAt = r.now().UTC()
	r.settings[s.UserID] = *s
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
