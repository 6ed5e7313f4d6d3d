package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// FCMTokens reads and writes the fcm_tokens table
type FCMTokens struct {
	DB *sqlx.DB
}

// Register stores a token, moving it to userID if it already exists
func (t FCMTokens) Register(ctx context.Context, userID, role, token, deviceType string) error {
	now := time.Now().Unix()
	_, err := t.DB.ExecContext(ctx, `
		INSERT INTO fcm_tokens (user_id, role, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			role = EXCLUDED.role,
			device_type = EXCLUDED.device_type,
			updated_at = EXCLUDED.updated_at
	`, userID, role, token, deviceType, now)
	if err != nil {
		return fmt.Errorf("failed to register FCM token: %w", err)
	}
	return nil
}

// AdminTokens returns every token registered by an admin
func (t FCMTokens) AdminTokens(ctx context.Context) ([]string, error) {
	tokens := []string{}
	if err := t.DB.SelectContext(ctx, &tokens, `SELECT token FROM fcm_tokens WHERE role = 'admin'`); err != nil {
		return nil, fmt.Errorf("failed to load admin tokens: %w", err)
	}
	return tokens, nil
}
