package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
	"orchestrator/pkg/store"
)

type fakeTemplates struct {
	templates []models.AgentTemplate
	listErr   error
}

func (f *fakeTemplates) ListActive(ctx context.Context) ([]models.AgentTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.templates, nil
}

func (f *fakeTemplates) Get(ctx context.Context, name string) (models.AgentTemplate, error) {
	for _, t := range f.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return models.AgentTemplate{}, errors.New("not found")
}

type fakePreferences struct {
	prefs map[string]store.Preference
}

func (f *fakePreferences) Get(ctx context.Context, userID, templateName string) (store.Preference, bool, error) {
	p, ok := f.prefs[userID+"/"+templateName]
	return p, ok, nil
}

func (f *fakePreferences) ListForUser(ctx context.Context, userID string) ([]store.Preference, error) {
	var out []store.Preference
	prefix := userID + "/"
	for key, p := range f.prefs {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePreferences) SetEnabled(ctx context.Context, userID, templateName string, enabled bool) error {
	if f.prefs == nil {
		f.prefs = map[string]store.Preference{}
	}
	key := userID + "/" + templateName
	p := f.prefs[key]
	p.UserID, p.TemplateName, p.Enabled = userID, templateName, enabled
	f.prefs[key] = p
	return nil
}

func coreTemplates() []models.AgentTemplate {
	return []models.AgentTemplate{
		{Name: "preprocessing_agent", Variant: config.VariantBoth, Active: true},
		{Name: "statistical_analytics_agent", Variant: config.VariantBoth, Active: true},
		{Name: "sk_learn_agent", Variant: config.VariantBoth, Active: true},
		{Name: "data_viz_agent", Variant: config.VariantBoth, Active: true, Category: config.CategoryDataVisualization},
	}
}

func TestIndividualAgents_IgnoresUserPreferences(t *testing.T) {
	templates := &fakeTemplates{templates: append(coreTemplates(), models.AgentTemplate{
		Name: "premium_helper", Variant: config.VariantIndividual, Active: true,
	})}
	// IndividualAgents takes no user ID and never consults the
	// PreferenceAccessor; the non-core premium_helper is listed even
	// though no preference row enables it.
	prefs := &fakePreferences{}
	r := New(templates, prefs)

	sigs := r.IndividualAgents(context.Background())
	names := map[string]bool{}
	for _, s := range sigs {
		names[s.AgentName] = true
	}
	assert.True(t, names["preprocessing_agent"])
	assert.True(t, names["premium_helper"])
}

func TestPlannerAgents_DefaultEnabledAndCap(t *testing.T) {
	t.Run("core agents default enabled with no preference row", func(t *testing.T) {
		templates := &fakeTemplates{templates: coreTemplates()}
		r := New(templates, &fakePreferences{prefs: map[string]store.Preference{}})

		sigs := r.PlannerAgents(context.Background(), "u1")
		assert.Len(t, sigs, 4)
	})

	t.Run("non-core agent defaults disabled", func(t *testing.T) {
		templates := &fakeTemplates{templates: append(coreTemplates(), models.AgentTemplate{
			Name: "extra_agent", Variant: config.VariantPlanner, Active: true,
		})}
		r := New(templates, &fakePreferences{prefs: map[string]store.Preference{}})

		sigs := r.PlannerAgents(context.Background(), "u1")
		for _, s := range sigs {
			assert.NotEqual(t, "extra_agent", s.AgentName)
		}
	})

	t.Run("11th enabled template is capped out by usage_count/last_used_at ordering", func(t *testing.T) {
		var templates []models.AgentTemplate
		prefs := map[string]store.Preference{}
		now := time.Now()
		for i := 0; i < 11; i++ {
			name := rune('a' + i)
			tname := "agent_" + string(name)
			templates = append(templates, models.AgentTemplate{Name: tname, Variant: config.VariantPlanner, Active: true})
			used := now.Add(time.Duration(i) * time.Minute)
			prefs["u1/"+tname] = store.Preference{Enabled: true, UsageCount: i, LastUsedAt: &used}
		}
		r := New(&fakeTemplates{templates: templates}, &fakePreferences{prefs: prefs})

		sigs := r.PlannerAgents(context.Background(), "u1")
		require.Len(t, sigs, config.PlannerCap)
		// highest usage_count (agent_k, i=10) must be included; lowest
		// (agent_a, i=0) must be excluded.
		names := map[string]bool{}
		for _, s := range sigs {
			names[s.AgentName] = true
		}
		assert.True(t, names["agent_k"])
		assert.False(t, names["agent_a"])
	})

	t.Run("store error falls back to core agents", func(t *testing.T) {
		templates := &fakeTemplates{listErr: errors.New("db down")}
		r := New(templates, &fakePreferences{prefs: map[string]store.Preference{}})

		sigs := r.PlannerAgents(context.Background(), "u1")
		assert.Len(t, sigs, len(config.CoreAgentNames))
	})
}

func TestSetPreferences_BulkToggleReenforcesCapAtWriteTime(t *testing.T) {
	var templates []models.AgentTemplate
	prefs := map[string]store.Preference{}
	now := time.Now()
	updates := map[string]bool{}
	for i := 0; i < 11; i++ {
		tname := "agent_" + string(rune('a'+i))
		templates = append(templates, models.AgentTemplate{Name: tname, Variant: config.VariantPlanner, Active: true})
		used := now.Add(time.Duration(i) * time.Minute)
		prefs["u1/"+tname] = store.Preference{Enabled: false, UsageCount: i, LastUsedAt: &used}
		updates[tname] = true
	}
	r := New(&fakeTemplates{templates: templates}, &fakePreferences{prefs: prefs})

	err := r.SetPreferences(context.Background(), "u1", updates)
	require.NoError(t, err)

	sigs := r.PlannerAgents(context.Background(), "u1")
	require.Len(t, sigs, config.PlannerCap)

	enabled := map[string]bool{}
	for _, s := range sigs {
		enabled[s.AgentName] = true
	}
	assert.True(t, enabled["agent_k"], "highest usage_count must survive the write-time cap")
	assert.False(t, enabled["agent_a"], "lowest usage_count must be disabled by the write-time cap")
}

func TestRegistry_Signature(t *testing.T) {
	t.Run("basic_qa_agent resolves without a stored template", func(t *testing.T) {
		r := New(&fakeTemplates{}, &fakePreferences{})
		sig, ok := r.Signature(context.Background(), config.BasicQAAgentName)
		require.True(t, ok)
		assert.Equal(t, []models.FieldName{models.FieldAnswer}, sig.Outputs)
	})

	t.Run("unknown agent resolves to ok=false", func(t *testing.T) {
		r := New(&fakeTemplates{}, &fakePreferences{})
		_, ok := r.Signature(context.Background(), "no_such_agent")
		assert.False(t, ok)
	})
}

func TestAllAgentNames_ExcludesSentinel(t *testing.T) {
	templates := &fakeTemplates{templates: coreTemplates()}
	r := New(templates, &fakePreferences{})
	names := r.AllAgentNames(context.Background())
	for _, n := range names {
		assert.NotEqual(t, config.BasicQAAgentName, n)
	}
	assert.Contains(t, names, "preprocessing_agent")
}
