package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orchestrator/pkg/apperrors"
	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
)

// TemplateStore is the read-mostly store for agent templates,
// grounded on the teacher's AgentRegistry/SubAgentRegistry read shape
// but backed by Postgres rows instead of a static config map.
type TemplateStore struct {
	pool *pgxpool.Pool
}

// NewTemplateStore wraps pool for template access.
func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

const templateColumns = `name, display_name, description, prompt_template, category, variant, base_agent, premium, active`

func scanTemplate(row pgx.Row) (models.AgentTemplate, error) {
	var t models.AgentTemplate
	var category, variant string
	err := row.Scan(&t.Name, &t.DisplayName, &t.Description, &t.PromptTemplate, &category, &variant, &t.BaseAgent, &t.Premium, &t.Active)
	t.Category = config.Category(category)
	t.Variant = config.Variant(variant)
	return t, err
}

// Get returns the active-or-not template by name.
func (s *TemplateStore) Get(ctx context.Context, name string) (models.AgentTemplate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM agent_templates WHERE name = $1`, name)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AgentTemplate{}, apperrors.ErrNotFound
	}
	if err != nil {
		return models.AgentTemplate{}, fmt.Errorf("loading template %q: %w", name, err)
	}
	return t, nil
}

// ListActive returns every active template, in undefined order.
func (s *TemplateStore) ListActive(ctx context.Context) ([]models.AgentTemplate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+templateColumns+` FROM agent_templates WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("listing active templates: %w", err)
	}
	defer rows.Close()

	var out []models.AgentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a template definition, used by the seed
// loader and by template-management callers outside this spec's core.
func (s *TemplateStore) Upsert(ctx context.Context, t models.AgentTemplate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_templates (`+templateColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			prompt_template = EXCLUDED.prompt_template,
			category = EXCLUDED.category,
			variant = EXCLUDED.variant,
			base_agent = EXCLUDED.base_agent,
			premium = EXCLUDED.premium,
			active = EXCLUDED.active
	`, t.Name, t.DisplayName, t.Description, t.PromptTemplate, string(t.Category), string(t.Variant), t.BaseAgent, t.Premium, t.Active)
	if err != nil {
		return fmt.Errorf("upserting template %q: %w", t.Name, err)
	}
	return nil
}
