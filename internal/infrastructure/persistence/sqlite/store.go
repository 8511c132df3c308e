// Package sqlite persists pipeline snapshots: rule settings, viewer
// restrictions, grants, voice preferences and platform credentials.
// The pipeline treats every write as fire-and-forget; callers log
// failures and keep going.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chatvoice/internal/domain"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS restrictions (
	user_id TEXT PRIMARY KEY,
	muted INTEGER NOT NULL DEFAULT 0,
	mute_expires_at TIMESTAMP,
	cooldown_gap_seconds INTEGER NOT NULL DEFAULT 0,
	cooldown_expires_at TIMESTAMP,
	last_spoken_at TIMESTAMP,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS grants (
	user_id TEXT NOT NULL,
	source TEXT NOT NULL,
	expires_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, source)
);

CREATE TABLE IF NOT EXISTS voice_preferences (
	user_id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	voice TEXT NOT NULL,
	pitch REAL NOT NULL DEFAULT 0,
	speed REAL NOT NULL DEFAULT 1,
	volume REAL NOT NULL DEFAULT 1,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	platform TEXT NOT NULL,
	role TEXT NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	expires_at TIMESTAMP,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (platform, role)
);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// --- settings ---

func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	const stmt = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;`

	if _, err := s.db.ExecContext(ctx, stmt, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: save setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadSetting(ctx context.Context, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ? LIMIT 1;`, key)

	var value sql.NullString
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("sqlite: load setting %s: %w", key, err)
	}
	return value.String, nil
}

// --- restrictions ---

func (s *Store) SaveRestriction(ctx context.Context, r domain.ViewerRestriction) error {
	const stmt = `
INSERT INTO restrictions (user_id, muted, mute_expires_at, cooldown_gap_seconds, cooldown_expires_at, last_spoken_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	muted=excluded.muted,
	mute_expires_at=excluded.mute_expires_at,
	cooldown_gap_seconds=excluded.cooldown_gap_seconds,
	cooldown_expires_at=excluded.cooldown_expires_at,
	last_spoken_at=excluded.last_spoken_at,
	updated_at=excluded.updated_at;`

	_, err := s.db.ExecContext(ctx, stmt,
		r.UserID,
		boolToInt(r.Muted),
		nullTimePtr(r.MuteExpiresAt),
		int(r.CooldownGap/time.Second),
		nullTimePtr(r.CooldownExpiresAt),
		nullTimePtr(r.LastSpokenAt),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save restriction: %w", err)
	}
	return nil
}

func (s *Store) DeleteRestriction(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM restrictions WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("sqlite: delete restriction: %w", err)
	}
	return nil
}

func (s *Store) Restrictions(ctx context.Context) ([]domain.ViewerRestriction, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, muted, mute_expires_at, cooldown_gap_seconds, cooldown_expires_at, last_spoken_at
FROM restrictions;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list restrictions: %w", err)
	}
	defer rows.Close()

	var out []domain.ViewerRestriction
	for rows.Next() {
		var r domain.ViewerRestriction
		var muted int
		var gapSeconds int
		var muteExp, cdExp, lastSpoken sql.NullTime
		if err := rows.Scan(&r.UserID, &muted, &muteExp, &gapSeconds, &cdExp, &lastSpoken); err != nil {
			return nil, fmt.Errorf("sqlite: scan restriction: %w", err)
		}
		r.Muted = muted != 0
		r.CooldownGap = time.Duration(gapSeconds) * time.Second
		r.MuteExpiresAt = timePtr(muteExp)
		r.CooldownExpiresAt = timePtr(cdExp)
		r.LastSpokenAt = timePtr(lastSpoken)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- grants ---

func (s *Store) SaveGrant(ctx context.Context, g domain.AccessGrant) error {
	const stmt = `
INSERT INTO grants (user_id, source, expires_at, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, source) DO UPDATE SET expires_at=excluded.expires_at;`

	_, err := s.db.ExecContext(ctx, stmt, g.UserID, string(g.Source), nullTimePtr(g.ExpiresAt), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: save grant: %w", err)
	}
	return nil
}

func (s *Store) DeleteGrants(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM grants WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("sqlite: delete grants: %w", err)
	}
	return nil
}

func (s *Store) Grants(ctx context.Context) ([]domain.AccessGrant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, source, expires_at FROM grants;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list grants: %w", err)
	}
	defer rows.Close()

	var out []domain.AccessGrant
	for rows.Next() {
		var g domain.AccessGrant
		var source string
		var expires sql.NullTime
		if err := rows.Scan(&g.UserID, &source, &expires); err != nil {
			return nil, fmt.Errorf("sqlite: scan grant: %w", err)
		}
		g.Source = domain.GrantSource(source)
		g.ExpiresAt = timePtr(expires)
		out = append(out, g)
	}
	return out, rows.Err()
}

// --- voice preferences ---

func (s *Store) SavePreference(ctx context.Context, p domain.VoicePreference) error {
	const stmt = `
INSERT INTO voice_preferences (user_id, provider, voice, pitch, speed, volume, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	provider=excluded.provider,
	voice=excluded.voice,
	pitch=excluded.pitch,
	speed=excluded.speed,
	volume=excluded.volume,
	updated_at=excluded.updated_at;`

	_, err := s.db.ExecContext(ctx, stmt, p.UserID, p.ProviderID, p.VoiceID, p.Pitch, p.Speed, p.Volume, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: save preference: %w", err)
	}
	return nil
}

func (s *Store) Preferences(ctx context.Context) ([]domain.VoicePreference, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, provider, voice, pitch, speed, volume FROM voice_preferences;`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list preferences: %w", err)
	}
	defer rows.Close()

	var out []domain.VoicePreference
	for rows.Next() {
		var p domain.VoicePreference
		if err := rows.Scan(&p.UserID, &p.ProviderID, &p.VoiceID, &p.Pitch, &p.Speed, &p.Volume); err != nil {
			return nil, fmt.Errorf("sqlite: scan preference: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- credentials ---

func (s *Store) SaveCredential(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return fmt.Errorf("sqlite: nil credential")
	}

	now := time.Now().UTC()
	if cred.UpdatedAt.IsZero() {
		cred.UpdatedAt = now
	}

	const stmt = `
INSERT INTO credentials (platform, role, access_token, refresh_token, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(platform, role) DO UPDATE SET
	access_token=excluded.access_token,
	refresh_token=excluded.refresh_token,
	expires_at=excluded.expires_at,
	updated_at=excluded.updated_at;`

	_, err := s.db.ExecContext(ctx, stmt,
		string(cred.Platform), cred.Role, cred.AccessToken, cred.RefreshToken,
		nullTime(cred.ExpiresAt), cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save credential: %w", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, platform domain.Platform, role string) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT access_token, refresh_token, expires_at, updated_at
FROM credentials WHERE platform = ? AND role = ? LIMIT 1;`, string(platform), role)

	var accessToken, refreshToken sql.NullString
	var expiresAt, updatedAt sql.NullTime

	if err := row.Scan(&accessToken, &refreshToken, &expiresAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get credential: %w", err)
	}

	return &domain.Credential{
		Platform:     platform,
		Role:         role,
		AccessToken:  accessToken.String,
		RefreshToken: refreshToken.String,
		ExpiresAt:    expiresAt.Time,
		UpdatedAt:    updatedAt.Time,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
