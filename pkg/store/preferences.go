package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orchestrator/pkg/apperrors"
)

// Preference is one (user, template) -> {enabled, usage_count,
// last_used_at} row, per §3's "User template preference".
type Preference struct {
	UserID       string
	TemplateName string
	Enabled      bool
	UsageCount   int
	LastUsedAt   *time.Time
}

// PreferenceStore is the read-mostly-but-row-updated store for
// per-user template preferences. Invariant enforced by the schema's
// primary key: at most one record per (user, template) pair.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

func NewPreferenceStore(pool *pgxpool.Pool) *PreferenceStore {
	return &PreferenceStore{pool: pool}
}

// Get returns the preference row for (user, template), or ok=false
// when absent — absence is meaningful (see registry default-enabled
// rule) and is not itself an error.
func (s *PreferenceStore) Get(ctx context.Context, userID, templateName string) (Preference, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, template_name, enabled, usage_count, last_used_at
		FROM user_template_preferences WHERE user_id = $1 AND template_name = $2`,
		userID, templateName)

	var p Preference
	err := row.Scan(&p.UserID, &p.TemplateName, &p.Enabled, &p.UsageCount, &p.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preference{}, false, nil
	}
	if err != nil {
		return Preference{}, false, fmt.Errorf("loading preference: %w", err)
	}
	return p, true, nil
}

// ListForUser returns every preference row a user has ever set
// (enabled or disabled).
func (s *PreferenceStore) ListForUser(ctx context.Context, userID string) ([]Preference, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, template_name, enabled, usage_count, last_used_at
		FROM user_template_preferences WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer rows.Close()

	var out []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.UserID, &p.TemplateName, &p.Enabled, &p.UsageCount, &p.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetEnabled toggles a preference. Calling it twice in a row with the
// same value is idempotent (§8 invariant: toggle(x) then toggle(y) is
// equivalent to toggle(y) alone, since this is a plain upsert, not an
// append-only log).
func (s *PreferenceStore) SetEnabled(ctx context.Context, userID, templateName string, enabled bool) error {
	if userID == "" || templateName == "" {
		return apperrors.NewValidationError("user_template", "user id and template name are required", nil)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_template_preferences (user_id, template_name, enabled, usage_count)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id, template_name) DO UPDATE SET enabled = EXCLUDED.enabled
	`, userID, templateName, enabled)
	if err != nil {
		return fmt.Errorf("setting preference: %w", err)
	}
	return nil
}

// IncrementUsage bumps usage_count and last_used_at for (user,
// template) by one, used after every successful non-core agent
// invocation (§4.4, "Usage tracking").
func (s *PreferenceStore) IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_template_preferences (user_id, template_name, enabled, usage_count, last_used_at)
		VALUES ($1, $2, true, 1, $3)
		ON CONFLICT (user_id, template_name) DO UPDATE SET
			usage_count = user_template_preferences.usage_count + 1,
			last_used_at = EXCLUDED.last_used_at
	`, userID, templateName, at)
	if err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return nil
}
