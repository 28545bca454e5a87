package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"orchestrator/pkg/models"
)

// UsageStore persists per-invocation usage records. Writes are
// at-least-once per §5; duplicates are acceptable and deduplicated
// downstream, so this is a plain insert with no idempotency key.
type UsageStore struct {
	pool *pgxpool.Pool
}

func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// Insert records one usage row and returns its assigned ID.
func (s *UsageStore) Insert(ctx context.Context, r models.UsageRecord) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO model_usage
			(user_id, chat_id, model, provider, prompt_tokens, completion_tokens,
			 total_tokens, query_size, response_size, cost, latency_ms, streaming, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, r.User, r.Chat, r.Model, r.Provider, r.PromptTokens, r.CompletionTokens,
		r.TotalTokens, r.QuerySize, r.ResponseSize, r.Cost, r.LatencyMS, r.Streaming, r.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting usage record: %w", err)
	}
	return id, nil
}
