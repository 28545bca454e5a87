// Package registry implements the Agent Registry: it loads agent
// signatures from the template store and resolves which are available
// to a given user, per spec §4.1.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
	"orchestrator/pkg/store"
)

// TemplateLister is the subset of store.TemplateStore the registry
// needs; a narrow interface so tests can supply an in-memory fake
// without a database.
type TemplateLister interface {
	ListActive(ctx context.Context) ([]models.AgentTemplate, error)
	Get(ctx context.Context, name string) (models.AgentTemplate, error)
}

// PreferenceAccessor is the subset of store.PreferenceStore the
// registry needs: resolving per-user enablement (Get), and applying
// and re-normalizing a bulk preference toggle (ListForUser,
// SetEnabled).
type PreferenceAccessor interface {
	Get(ctx context.Context, userID, templateName string) (store.Preference, bool, error)
	ListForUser(ctx context.Context, userID string) ([]store.Preference, error)
	SetEnabled(ctx context.Context, userID, templateName string, enabled bool) error
}

// Registry resolves the three views described in §4.1.
type Registry struct {
	templates   TemplateLister
	preferences PreferenceAccessor
	log         *slog.Logger
}

// New builds a Registry over the given template and preference
// stores.
func New(templates TemplateLister, preferences PreferenceAccessor) *Registry {
	return &Registry{templates: templates, preferences: preferences, log: slog.Default()}
}

// fallbackTemplates is returned when the template store errors; the
// four core agents as bare (inactive-flag-irrelevant) definitions so
// the individual/planner views still resolve to *something* (§4.1,
// "Failure semantics").
func fallbackTemplates() []models.AgentTemplate {
	out := make([]models.AgentTemplate, 0, len(config.CoreAgentNames))
	for _, name := range config.CoreAgentNames {
		out = append(out, models.AgentTemplate{
			Name:    name,
			Variant: config.VariantBoth,
			Active:  true,
		})
	}
	return out
}

func (r *Registry) listActive(ctx context.Context) []models.AgentTemplate {
	templates, err := r.templates.ListActive(ctx)
	if err != nil {
		r.log.Warn("template store error, falling back to core agents", "error", err)
		return fallbackTemplates()
	}
	return templates
}

// IndividualAgents returns every active template with
// variant in {individual, both}, regardless of any user's
// preferences — the @agent mode never consults preferences (open
// question #1, preserved).
func (r *Registry) IndividualAgents(ctx context.Context) []models.Signature {
	var out []models.Signature
	for _, t := range r.listActive(ctx) {
		if !t.Active || !t.Variant.UsableIndividual() {
			continue
		}
		out = append(out, models.BuildSignature(t, true))
	}
	return out
}

// defaultEnabled implements the §4.1 "Default-enabled rule": the four
// core names (and their planner_-prefixed counterparts) default to
// enabled in the absence of a preference row; everything else
// defaults to disabled.
func defaultEnabled(templateName string) bool {
	if config.IsCoreAgent(templateName) {
		return true
	}
	if strings.HasPrefix(templateName, "planner_") && config.IsCoreAgent(strings.TrimPrefix(templateName, "planner_")) {
		return true
	}
	return false
}

func (r *Registry) isEnabledForUser(ctx context.Context, userID, templateName string) (enabled bool, usageCount int, lastUsed *int64) {
	pref, ok, err := r.preferences.Get(ctx, userID, templateName)
	if err != nil || !ok {
		return defaultEnabled(templateName), 0, nil
	}
	var ts *int64
	if pref.LastUsedAt != nil {
		unix := pref.LastUsedAt.Unix()
		ts = &unix
	}
	return pref.Enabled, pref.UsageCount, ts
}

type plannerCandidate struct {
	sig        models.Signature
	usageCount int
	lastUsed   int64
}

// PlannerAgents returns every active template with variant in
// {planner, both} enabled for userID, capped to the top
// config.PlannerCap by (usage_count desc, last_used_at desc).
func (r *Registry) PlannerAgents(ctx context.Context, userID string) []models.Signature {
	var candidates []plannerCandidate
	for _, t := range r.listActive(ctx) {
		if !t.Active || !t.Variant.UsablePlanner() {
			continue
		}
		enabled, usageCount, lastUsed := r.isEnabledForUser(ctx, userID, t.Name)
		if !enabled {
			continue
		}
		var lu int64
		if lastUsed != nil {
			lu = *lastUsed
		}
		candidates = append(candidates, plannerCandidate{
			sig:        models.BuildSignature(t, true),
			usageCount: usageCount,
			lastUsed:   lu,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].usageCount != candidates[j].usageCount {
			return candidates[i].usageCount > candidates[j].usageCount
		}
		return candidates[i].lastUsed > candidates[j].lastUsed
	})

	return capTop10(candidates)
}

// capTop10 truncates candidates, already sorted by (usage_count desc,
// last_used_at desc), to the top config.PlannerCap. PlannerAgents uses
// it as a read-time view; SetPreferences uses the same ordering to
// decide which enabled rows to write back to disabled (§4.1, "the
// 10-template planner cap is enforced at registry load time and again
// at bulk-toggle time").
func capTop10(candidates []plannerCandidate) []models.Signature {
	if len(candidates) > config.PlannerCap {
		candidates = candidates[:config.PlannerCap]
	}
	out := make([]models.Signature, len(candidates))
	for i, c := range candidates {
		out[i] = c.sig
	}
	return out
}

// SetPreferences applies a bulk (template_name -> enabled) toggle for
// userID, then re-enforces the planner cap at write time: if more
// than config.PlannerCap templates end up enabled for planner use,
// the overflow beyond the top config.PlannerCap by (usage_count desc,
// last_used_at desc) is explicitly disabled. This is the write-time
// half of the cap; PlannerAgents is the read-time half.
func (r *Registry) SetPreferences(ctx context.Context, userID string, updates map[string]bool) error {
	for name, enabled := range updates {
		if err := r.preferences.SetEnabled(ctx, userID, name, enabled); err != nil {
			return err
		}
	}
	return r.enforceCapAtWriteTime(ctx, userID)
}

func (r *Registry) enforceCapAtWriteTime(ctx context.Context, userID string) error {
	var candidates []plannerCandidate
	for _, t := range r.listActive(ctx) {
		if !t.Active || !t.Variant.UsablePlanner() {
			continue
		}
		enabled, usageCount, lastUsed := r.isEnabledForUser(ctx, userID, t.Name)
		if !enabled {
			continue
		}
		var lu int64
		if lastUsed != nil {
			lu = *lastUsed
		}
		candidates = append(candidates, plannerCandidate{
			sig:        models.BuildSignature(t, true),
			usageCount: usageCount,
			lastUsed:   lu,
		})
	}
	if len(candidates) <= config.PlannerCap {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].usageCount != candidates[j].usageCount {
			return candidates[i].usageCount > candidates[j].usageCount
		}
		return candidates[i].lastUsed > candidates[j].lastUsed
	})

	for _, overflow := range candidates[config.PlannerCap:] {
		if err := r.preferences.SetEnabled(ctx, userID, overflow.sig.AgentName, false); err != nil {
			return err
		}
	}
	return nil
}

// AllAgentNames returns the union of core agent names and active
// template names, excluding the basic QA sentinel.
func (r *Registry) AllAgentNames(ctx context.Context) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name == config.BasicQAAgentName || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range config.CoreAgentNames {
		add(name)
	}
	for _, t := range r.listActive(ctx) {
		if t.Active {
			add(t.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Signature resolves a single template by name into its derived
// signature, used by the Individual/Planned executors for per-step
// input-field lookups. Falls back to a permissive signature for the
// basic_qa_agent sentinel, which has no stored template row.
func (r *Registry) Signature(ctx context.Context, name string) (models.Signature, bool) {
	if name == config.BasicQAAgentName {
		return models.Signature{
			AgentName: name,
			Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset, models.FieldPlanInstructions},
			Outputs:   []models.FieldName{models.FieldAnswer},
		}, true
	}
	t, err := r.templates.Get(ctx, name)
	if err != nil {
		return models.Signature{}, false
	}
	return models.BuildSignature(t, true), true
}
