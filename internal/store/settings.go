package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetSetting returns a stored setting, or "" when it is not set.
func GetSetting(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	return value, nil
}

// InitSetting stores value under key unless the key already has a value, and
// returns whichever value ends up stored. INSERT OR IGNORE + re-SELECT keeps
// concurrent starters from disagreeing.
func InitSetting(ctx context.Context, q Querier, key, value string) (string, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", key, err)
	}
	return GetSetting(ctx, q, key)
}

// GetJWTSecret returns the token signing secret, generating and storing one
// on first use.
func GetJWTSecret(ctx context.Context, q Querier) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return InitSetting(ctx, q, "jwt_secret", hex.EncodeToString(buf))
}
