// Package settings persists per-user ledger credentials and defaults.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/m3rciful/ledgerbot/core/logger"
)

// ErrNotConfigured is returned when a user has no saved ledger connection.
var ErrNotConfigured = errors.New("ledger connection is not configured")

// UserSettings holds one user's ledger connection and defaults.
type UserSettings struct {
	UserID             int64          `db:"user_id"`
	BaseURL            string         `db:"base_url"`
	Token              string         `db:"token"`
	DefaultAccountID   sql.NullString `db:"default_account_id"`
	DefaultAccountName sql.NullString `db:"default_account_name"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// Configured reports whether the connection fields are filled in.
func (s *UserSettings) Configured() bool {
	return s != nil && s.BaseURL != "" && s.Token != ""
}

// HasDefaultAccount reports whether a fast-path account is chosen.
func (s *UserSettings) HasDefaultAccount() bool {
	return s != nil && s.DefaultAccountID.Valid && s.DefaultAccountID.String != ""
}

// Store reads and writes user settings in Postgres.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Get returns the settings row for a user. ErrNotConfigured when absent.
func (st *Store) Get(ctx context.Context, userID int64) (*UserSettings, error) {
	var row UserSettings
	err := st.db.GetContext(ctx, &row,
		`SELECT user_id, base_url, token, default_account_id, default_account_name, created_at, updated_at
		   FROM user_settings WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("settings get: %w", err)
	}
	return &row, nil
}

// Upsert stores the ledger connection for a user, creating the row if needed.
// Changing the connection resets the default account since account ids are
// scoped to a ledger instance.
func (st *Store) Upsert(ctx context.Context, userID int64, baseURL, token string) error {
	_, err := st.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, base_url, token)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		   base_url = EXCLUDED.base_url,
		   token = EXCLUDED.token,
		   default_account_id = NULL,
		   default_account_name = NULL,
		   updated_at = now()`,
		userID, baseURL, token)
	if err != nil {
		return fmt.Errorf("settings upsert: %w", err)
	}
	logger.SVCSettings.Info("connection saved",
		slog.String("event", "settings.upsert"),
		slog.Int64("user_id", userID),
	)
	return nil
}

// SetDefaultAccount records the account used for fast-path withdrawals.
func (st *Store) SetDefaultAccount(ctx context.Context, userID int64, accountID, accountName string) error {
	res, err := st.db.ExecContext(ctx,
		`UPDATE user_settings
		    SET default_account_id = $2, default_account_name = $3, updated_at = now()
		  WHERE user_id = $1`,
		userID, accountID, accountName)
	if err != nil {
		return fmt.Errorf("settings set default account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotConfigured
	}
	logger.SVCSettings.Info("default account set",
		slog.String("event", "settings.default_account"),
		slog.Int64("user_id", userID),
		slog.String("account_id", accountID),
	)
	return nil
}

// ClearDefaultAccount removes the fast-path account.
func (st *Store) ClearDefaultAccount(ctx context.Context, userID int64) error {
	_, err := st.db.ExecContext(ctx,
		`UPDATE user_settings
		    SET default_account_id = NULL, default_account_name = NULL, updated_at = now()
		  WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("settings clear default account: %w", err)
	}
	return nil
}
