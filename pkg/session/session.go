// Package session implements the Session Manager: per-session state
// binding a dataset, user/chat identity, model configuration, and a
// cached deep analyzer (§4.6).
package session

import (
	"context"
	"sync"

	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/retriever"
)

// DeepAnalyzer is the narrow capability the Session Manager caches.
// pkg/deepanalysis.Analyzer satisfies this interface; the Manager
// never imports pkg/deepanalysis, and pkg/deepanalysis does not import
// this package either; cmd/orchestrator wires the two together.
type DeepAnalyzer interface {
	Stream(ctx context.Context, goal string) (<-chan models.DeepAnalysisEvent, error)
}

// DeepAnalyzerFactory builds a DeepAnalyzer scoped to one user's
// enabled planner agents, with the documented fallback to the four
// core agents already applied by the caller (§4.6).
type DeepAnalyzerFactory func(userID string, enabledAgents []string) DeepAnalyzer

// PlannerAgentNamesFunc resolves a user's planner-visible agent names,
// so the Session Manager can build a DeepAnalyzer without importing
// the registry package directly.
type PlannerAgentNamesFunc func(ctx context.Context, userID string) []string

// Session is a single client's bound state. All mutation happens
// through the Manager, which serializes access per session ID.
type Session struct {
	SessionID string
	UserID    string
	ChatID    string

	CurrentDataset *models.Dataset
	Retrievers     retriever.Set
	ModelConfig    llm.Config

	deepAnalyzer       DeepAnalyzer
	deepAnalyzerUserID string

	CurrentDeepAnalysisID string
}

// Manager owns all session state in memory, grounded directly on the
// teacher's pkg/session/manager.go map+RWMutex shape.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	plannerAgents   PlannerAgentNamesFunc
	analyzerFactory DeepAnalyzerFactory
}

// NewManager builds a Manager. plannerAgents and analyzerFactory may
// be nil if the caller never invokes GetDeepAnalyzer.
func NewManager(plannerAgents PlannerAgentNamesFunc, analyzerFactory DeepAnalyzerFactory) *Manager {
	return &Manager{
		sessions:        make(map[string]*Session),
		plannerAgents:   plannerAgents,
		analyzerFactory: analyzerFactory,
	}
}

// Get lazily materializes session state on first reference, per
// §4.6's "Lazily materialize" responsibility.
func (m *Manager) Get(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := &Session{SessionID: sessionID}
	m.sessions[sessionID] = s
	return s
}

// UpdateDataset replaces current_dataset and rebuilds the retrievers.
func (m *Manager) UpdateDataset(sessionID string, dataset *models.Dataset, rebuild retriever.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(sessionID)
	s.CurrentDataset = dataset
	s.Retrievers = rebuild
}

// SetUser updates the user/chat binding and invalidates any cached
// deep analyzer whose bound user no longer matches.
func (m *Manager) SetUser(sessionID, userID, chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getLocked(sessionID)
	s.UserID = userID
	s.ChatID = chatID
	if s.deepAnalyzer != nil && s.deepAnalyzerUserID != userID {
		s.deepAnalyzer = nil
		s.deepAnalyzerUserID = ""
	}
}

// GetDeepAnalyzer returns sessionID's cached analyzer, or constructs
// one by querying the Agent Registry (via plannerAgents) for the
// session's current user's planner-enabled agents, falling back to
// the four core agents when that list is empty.
func (m *Manager) GetDeepAnalyzer(ctx context.Context, sessionID string) DeepAnalyzer {
	m.mu.Lock()
	s := m.getLocked(sessionID)
	if s.deepAnalyzer != nil {
		m.mu.Unlock()
		return s.deepAnalyzer
	}
	userID := s.UserID
	m.mu.Unlock()

	// plannerAgents/analyzerFactory may hit the database; never call
	// them while holding mu, or one slow lookup serializes every other
	// session in the process.
	var names []string
	if m.plannerAgents != nil {
		names = m.plannerAgents(ctx, userID)
	}
	if len(names) == 0 {
		names = coreAgentFallback()
	}
	analyzer := m.analyzerFactory(userID, names)

	m.mu.Lock()
	defer m.mu.Unlock()
	s = m.getLocked(sessionID)
	if s.deepAnalyzer != nil && s.deepAnalyzerUserID == userID {
		return s.deepAnalyzer
	}
	s.deepAnalyzer = analyzer
	s.deepAnalyzerUserID = userID
	return s.deepAnalyzer
}

// ClearSession drops all transient state for sessionID.
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func coreAgentFallback() []string {
	out := make([]string, len(config.CoreAgentNames))
	copy(out, config.CoreAgentNames)
	return out
}

func (m *Manager) getLocked(sessionID string) *Session {
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &Session{SessionID: sessionID}
		m.sessions[sessionID] = s
	}
	return s
}
