package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

var schema = []string{`
create table if not exists predictions (
  id              text primary key,
  user_id         text not null,
  filename        text not null default '',
  storage_key     text not null default '',
  predicted_class text not null,
  confidence      double precision not null,
  source          text not null,
  created_at      timestamptz not null default now()
)`,
	`create index if not exists predictions_user_created_idx on predictions (user_id, created_at desc)`,
	`
create table if not exists shared_predictions (
  token         text primary key,
  prediction_id text not null references predictions(id) on delete cascade,
  shared_by     text not null,
  expires_at    timestamptz not null,
  active        boolean not null default true,
  created_at    timestamptz not null default now()
)`,
	`
create table if not exists favorites (
  user_id       text not null,
  prediction_id text not null references predictions(id) on delete cascade,
  created_at    timestamptz not null default now(),
  primary key (user_id, prediction_id)
)`,
	`
create table if not exists user_settings (
  user_id               text primary key,
  theme                 text not null default 'light',
  notifications_enabled boolean not null default true,
  created_at            timestamptz not null default now(),
  updated_at            timestamptz not null default now()
)`,
}

// PostgresRepository stores history through database/sql with the pgx driver.
type PostgresRepository struct {
	DB *sql.DB
}

// NewPostgresRepository opens dsn, checks connectivity and applies the schema.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	r := &PostgresRepository{DB: db}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, p *Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	const q = `
insert into predictions (id, user_id, filename, storage_key, predicted_class, confidence, source, created_at)
values ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.DB.ExecContext(ctx, q,
		p.ID, p.UserID, p.Filename, p.StorageKey, p.PredictedClass,
		float64(p.Confidence), string(p.Source), p.CreatedAt)
	return err
}

const predictionColumns = `id, user_id, filename, storage_key, predicted_class, confidence, source, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*Prediction, error) {
	var (
		p          Prediction
		confidence float64
		source     string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Filename, &p.StorageKey, &p.PredictedClass,
		&confidence, &source, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Confidence = float32(confidence)
	p.Source = Source(source)
	return &p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Prediction, error) {
	row := r.DB.QueryRowContext(ctx, `select `+predictionColumns+` from predictions where id = $1`, id)
	p, err := scanPrediction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPredictionNotFound
	}
	return p, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Prediction, error) {
	const q = `select ` + predictionColumns + ` from predictions
where user_id = $1
order by created_at desc, id desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, `delete from predictions where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrPredictionNotFound
	}
	return nil
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (*UsageStats, error) {
	const q = `
select count(*), coalesce(avg(confidence), 0), max(created_at)
from predictions
where user_id = $1`
	var (
		stats = &UsageStats{UserID: userID}
		last  sql.NullTime
	)
	if err := r.DB.QueryRowContext(ctx, q, userID).Scan(&stats.TranslationsCount, &stats.AverageConfidence, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		at := last.Time
		stats.LastTranslationAt = &at
	}
	return stats, nil
}

func (r *PostgresRepository) CreateShare(ctx context.Context, predictionID, sharedBy string, ttl time.Duration) (*Share, error) {
	s := &Share{
		Token:        uuid.NewString(),
		PredictionID: predictionID,
		SharedBy:     sharedBy,
		ExpiresAt:    time.Now().UTC().Add(ttl),
		Active:       true,
	}
	// The insert only happens when the prediction belongs to sharedBy.
	const q = `
insert into shared_predictions (token, prediction_id, shared_by, expires_at, active)
select $1::text, id, $3::text, $4::timestamptz, true from predictions where id = $2 and user_id = $3`
	res, err := r.DB.ExecContext(ctx, q, s.Token, predictionID, sharedBy, s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return nil, ErrPredictionNotFound
	}
	return s, nil
}

func (r *PostgresRepository) ResolveShare(ctx context.Context, token string) (*Share, *Prediction, error) {
	const q = `
select s.token, s.prediction_id, s.shared_by, s.expires_at, s.active,
       p.id, p.user_id, p.filename, p.storage_key, p.predicted_class, p.confidence, p.source, p.created_at
from shared_predictions s
join predictions p on p.id = s.prediction_id
where s.token = $1 and s.active and s.expires_at > now()`
	var (
		s          Share
		p          Prediction
		confidence float64
		source     string
	)
	err := r.DB.QueryRowContext(ctx, q, token).Scan(
		&s.Token, &s.PredictionID, &s.SharedBy, &s.ExpiresAt, &s.Active,
		&p.ID, &p.UserID, &p.Filename, &p.StorageKey, &p.PredictedClass, &confidence, &source, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrShareNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	p.Confidence = float32(confidence)
	p.Source = Source(source)
	return &s, &p, nil
}

func (r *PostgresRepository) RevokeShare(ctx context.Context, userID, token string) error {
	const q = `update shared_predictions set active = false where token = $1 and shared_by = $2 and active`
	res, err := r.DB.ExecContext(ctx, q, token, userID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrShareNotFound
	}
	return nil
}

func (r *PostgresRepository) AddFavorite(ctx context.Context, userID, predictionID string) (*Favorite, error) {
	const q = `
insert into favorites (user_id, prediction_id, created_at)
select $1::text, id, $3::timestamptz from predictions where id = $2 and user_id = $1
on conflict (user_id, prediction_id) do nothing`
	if _, err := r.DB.ExecContext(ctx, q, userID, predictionID, time.Now().UTC()); err != nil {
		return nil, err
	}

	const sel = `select f.created_at, ` + joinedPredictionColumns + `
from favorites f
join predictions p on p.id = f.prediction_id
where f.user_id = $1 and f.prediction_id = $2`
	f, err := scanFavorite(r.DB.QueryRowContext(ctx, sel, userID, predictionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPredictionNotFound
	}
	return f, err
}

func (r *PostgresRepository) RemoveFavorite(ctx context.Context, userID, predictionID string) error {
	res, err := r.DB.ExecContext(ctx, `delete from favorites where user_id = $1 and prediction_id = $2`, userID, predictionID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

func (r *PostgresRepository) ListFavorites(ctx context.Context, userID string) ([]*Favorite, error) {
	const q = `select f.created_at, ` + joinedPredictionColumns + `
from favorites f
join predictions p on p.id = f.prediction_id
where f.user_id = $1
order by f.created_at desc, f.prediction_id desc`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const joinedPredictionColumns = `p.id, p.user_id, p.filename, p.storage_key, p.predicted_class, p.confidence, p.source, p.created_at`

func scanFavorite(row rowScanner) (*Favorite, error) {
	var (
		f          Favorite
		p          Prediction
		confidence float64
		source     string
	)
	if err := row.Scan(&f.CreatedAt, &p.ID, &p.UserID, &p.Filename, &p.StorageKey, &p.PredictedClass,
		&confidence, &source, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Confidence = float32(confidence)
	p.Source = Source(source)
	f.UserID = p.UserID
	f.PredictionID = p.ID
	f.Prediction = &p
	return &f, nil
}

func (r *PostgresRepository) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	const q = `select theme, notifications_enabled, updated_at from user_settings where user_id = $1`
	s := Settings{UserID: userID}
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(&s.Theme, &s.NotificationsEnabled, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) SaveSettings(ctx context.Context, s *Settings) error {
	s.UpdatedAt = time.Now().UTC()
	const q = `
insert into user_settings (user_id, theme, notifications_enabled, updated_at)
values ($1, $2, $3, $4)
on conflict (user_id) do update
set theme = excluded.theme,
    notifications_enabled = excluded.notifications_enabled,
    updated_at = excluded.updated_at`
	_, err := r.DB.ExecContext(ctx, q, s.UserID, s.Theme, s.NotificationsEnabled, s.UpdatedAt)
	return err
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}
