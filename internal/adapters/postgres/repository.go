// Package postgres provides a PostgreSQL-backed implementation of the user repository port.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

var _ ports.UserRepository = (*Repository)(nil)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS moods (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text_content TEXT NOT NULL,
	user_rating SMALLINT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	lat DOUBLE PRECISION NOT NULL,
	lng DOUBLE PRECISION NOT NULL,
	weather_condition TEXT NOT NULL DEFAULT 'Unknown',
	temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
	clouds DOUBLE PRECISION NOT NULL DEFAULT 0,
	wind_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
	humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
	pressure DOUBLE PRECISION NOT NULL DEFAULT 0,
	picture TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_moods_created_at ON moods(created_at);
CREATE INDEX IF NOT EXISTS idx_moods_user_id ON moods(user_id);
`

const moodColumns = `m.id, m.user_id, m.text_content, m.user_rating, m.score, m.lat, m.lng,
	m.weather_condition, m.temperature, m.clouds, m.wind_speed, m.humidity, m.pressure,
	m.picture, m.created_at, m.updated_at`

// Repository stores users and moods in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, applies the schema and returns a Repository.
func Open(ctx context.Context, dsn string, maxConns int) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: database URL is required")
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping: %w", err)
	}

	r := NewRepository(pool)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewRepository wraps an existing pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migration failed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, created_at, updated_at FROM users WHERE email = $1", email,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.NotFound("user not found")
		}
		return domain.User{}, fmt.Errorf("postgres: failed to load user: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+moodColumns+" FROM moods m WHERE m.user_id = $1 ORDER BY m.created_at ASC", u.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: failed to load moods: %w", err)
	}
	defer rows.Close()

	u.Moods = []domain.Mood{}
	for rows.Next() {
		var m domain.Mood
		if err := scanMood(rows, &m); err != nil {
			return domain.User{}, err
		}
		u.Moods = append(u.Moods, m)
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, fmt.Errorf("postgres: failed to iterate moods: %w", err)
	}
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO users (id, email, created_at, updated_at) VALUES ($1, $2, $3, $4)",
		u.ID, u.Email, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return domain.User{}, domain.Conflict("user already exists")
		}
		return domain.User{}, fmt.Errorf("postgres: failed to create user: %w", err)
	}
	u.Moods = []domain.Mood{}
	return u, nil
}

func (r *Repository) AppendMood(ctx context.Context, userID string, m domain.Mood) (domain.Mood, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Mood{}, fmt.Errorf("postgres: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m.UserID = userID
	var picture *string
	if m.Picture != "" {
		picture = &m.Picture
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO moods (
			id, user_id, text_content, user_rating, score, lat, lng,
			weather_condition, temperature, clouds, wind_speed, humidity, pressure,
			picture, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		m.ID, m.UserID, m.TextContent, m.UserRating, m.Score, m.Location.Lat, m.Location.Lng,
		m.Weather.Condition, m.Weather.TemperatureC, m.Weather.CloudCover, m.Weather.WindSpeed,
		m.Weather.Humidity, m.Weather.Pressure, picture, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return domain.Mood{}, domain.NotFound("user not found")
		case codeUniqueViolation:
			return domain.Mood{}, domain.Conflict("mood already exists")
		}
		return domain.Mood{}, fmt.Errorf("postgres: failed to save mood: %w", err)
	}

	if _, err := tx.Exec(ctx, "UPDATE users SET updated_at = $1 WHERE id = $2", m.CreatedAt, userID); err != nil {
		return domain.Mood{}, fmt.Errorf("postgres: failed to touch user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Mood{}, fmt.Errorf("postgres: transaction commit failed: %w", err)
	}
	return m, nil
}

func (r *Repository) MoodsBetween(ctx context.Context, start, end time.Time) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.email, u.created_at, u.updated_at, `+moodColumns+`
		FROM moods m
		JOIN users u ON u.id = m.user_id
		WHERE m.created_at >= $1 AND m.created_at < $2
		ORDER BY u.email ASC, m.created_at DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query moods: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var m domain.Mood
		if err := scanMood(rows, &m, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if n := len(users); n == 0 || users[n-1].ID != m.UserID {
			u.ID = m.UserID
			users = append(users, u)
		}
		last := &users[len(users)-1]
		last.Moods = append(last.Moods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate moods: %w", err)
	}
	return users, nil
}

func scanMood(row pgx.Row, m *domain.Mood, lead ...any) error {
	var picture *string
	dest := append(lead,
		&m.ID, &m.UserID, &m.TextContent, &m.UserRating, &m.Score,
		&m.Location.Lat, &m.Location.Lng,
		&m.Weather.Condition, &m.Weather.TemperatureC, &m.Weather.CloudCover,
		&m.Weather.WindSpeed, &m.Weather.Humidity, &m.Weather.Pressure,
		&picture, &m.CreatedAt, &m.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("postgres: failed to scan mood: %w", err)
	}
	if picture != nil {
		m.Picture = *picture
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
