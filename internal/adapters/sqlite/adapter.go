// Package sqlite provides a SQLite-backed implementation of the user repository port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

var _ ports.UserRepository = (*Adapter)(nil)

// Adapter implements the repository port for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	// A single connection keeps ":memory:" databases and the foreign_keys pragma
	// consistent across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	var created, updated int64
	row := a.db.QueryRowContext(ctx, "SELECT id, email, created_at, updated_at FROM users WHERE email = ?", email)
	if err := row.Scan(&u.ID, &u.Email, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.NotFound("user not found")
		}
		return domain.User{}, fmt.Errorf("sqlite: failed to load user: %w", err)
	}
	u.CreatedAt = fromUnixNano(created)
	u.UpdatedAt = fromUnixNano(updated)

	rows, err := a.db.QueryContext(ctx, "SELECT "+moodColumns+" FROM moods WHERE user_id = ? ORDER BY created_at ASC", u.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: failed to load moods: %w", err)
	}
	defer rows.Close()

	u.Moods = []domain.Mood{}
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return domain.User{}, err
		}
		u.Moods = append(u.Moods, m)
	}
	if err := rows.Err(); err != nil {
		return domain.User{}, fmt.Errorf("sqlite: failed to iterate moods: %w", err)
	}
	return u, nil
}

func (a *Adapter) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO users (id, email, created_at, updated_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.CreatedAt.UnixNano(), u.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) || isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return domain.User{}, domain.Conflict("user already exists")
		}
		return domain.User{}, fmt.Errorf("sqlite: failed to create user: %w", err)
	}
	u.Moods = []domain.Mood{}
	return u, nil
}

func (a *Adapter) AppendMood(ctx context.Context, userID string, m domain.Mood) (domain.Mood, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mood{}, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m.UserID = userID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO moods (
			id, user_id, text_content, user_rating, score, lat, lng,
			weather_condition, temperature, clouds, wind_speed, humidity, pressure,
			picture, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.UserID, m.TextContent, m.UserRating, m.Score, m.Location.Lat, m.Location.Lng,
		m.Weather.Condition, m.Weather.TemperatureC, m.Weather.CloudCover, m.Weather.WindSpeed,
		m.Weather.Humidity, m.Weather.Pressure, nullString(m.Picture),
		m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return domain.Mood{}, domain.NotFound("user not found")
		}
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return domain.Mood{}, domain.Conflict("mood already exists")
		}
		return domain.Mood{}, fmt.Errorf("sqlite: failed to save mood: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET updated_at = ? WHERE id = ?", m.CreatedAt.UnixNano(), userID); err != nil {
		return domain.Mood{}, fmt.Errorf("sqlite: failed to touch user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Mood{}, fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	return m, nil
}

func (a *Adapter) MoodsBetween(ctx context.Context, start, end time.Time) ([]domain.User, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT u.email, u.created_at, u.updated_at, `+prefixed("m", moodColumns)+`
		FROM moods m
		JOIN users u ON u.id = m.user_id
		WHERE m.created_at >= ? AND m.created_at < ?
		ORDER BY u.email ASC, m.created_at DESC
	`, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query moods: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var email string
		var created, updated int64
		var m domain.Mood
		if err := scanMoodInto(rows, &m, &email, &created, &updated); err != nil {
			return nil, err
		}
		if n := len(users); n == 0 || users[n-1].ID != m.UserID {
			users = append(users, domain.User{
				ID:        m.UserID,
				Email:     email,
				CreatedAt: fromUnixNano(created),
				UpdatedAt: fromUnixNano(updated),
			})
		}
		last := &users[len(users)-1]
		last.Moods = append(last.Moods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate moods: %w", err)
	}
	return users, nil
}

const moodColumns = "id, user_id, text_content, user_rating, score, lat, lng, weather_condition, temperature, clouds, wind_speed, humidity, pressure, picture, created_at, updated_at"

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMood(s scanner) (domain.Mood, error) {
	var m domain.Mood
	err := scanMoodInto(s, &m)
	return m, err
}

// scanMoodInto scans leading columns into lead, then the mood columns into m.
func scanMoodInto(s scanner, m *domain.Mood, lead ...any) error {
	var picture sql.NullString
	var created, updated int64
	dest := append(lead,
		&m.ID,
		&m.UserID,
		&m.TextContent,
		&m.UserRating,
		&m.Score,
		&m.Location.Lat,
		&m.Location.Lng,
		&m.Weather.Condition,
		&m.Weather.TemperatureC,
		&m.Weather.CloudCover,
		&m.Weather.WindSpeed,
		&m.Weather.Humidity,
		&m.Weather.Pressure,
		&picture,
		&created,
		&updated,
	)
	if err := s.Scan(dest...); err != nil {
		return fmt.Errorf("sqlite: failed to scan mood: %w", err)
	}
	if picture.Valid {
		m.Picture = picture.String
	}
	m.CreatedAt = fromUnixNano(created)
	m.UpdatedAt = fromUnixNano(updated)
	return nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

func (a *Adapter) migrate() error {
	query := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS moods (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		text_content TEXT NOT NULL,
		user_rating INTEGER NOT NULL,
		score REAL NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		weather_condition TEXT NOT NULL DEFAULT 'Unknown',
		temperature REAL NOT NULL DEFAULT 0,
		wind_speed REAL NOT NULL DEFAULT 0,
		humidity REAL NOT NULL DEFAULT 0,
		pressure REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_moods_created_at ON moods(created_at);
	CREATE INDEX IF NOT EXISTS idx_moods_user_id ON moods(user_id);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first schema revision.
	for _, stmt := range []string{
		"ALTER TABLE moods ADD COLUMN clouds REAL NOT NULL DEFAULT 0",
		"ALTER TABLE moods ADD COLUMN picture TEXT",
	} {
		if _, err := a.db.Exec(stmt); err != nil {
			if !isDuplicateColumnError(err) {
				return err
			}
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
