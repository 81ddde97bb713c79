// Package preference persists the small amount of client-side state that
// survives a restart: the last active budget and user-saved templates.
package preference

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ActiveBudgetKey is the single durable key holding the last active budget id.
const ActiveBudgetKey = "activeBudgetId"

var ErrTemplateNotFound = errors.New("template not found")

type (
	// Store remembers which budget was active when the client last ran.
	Store interface {
		PreferredBudgetID(ctx context.Context) (string, error)
		SetPreferredBudgetID(ctx context.Context, id string) error
		ClearPreferredBudgetID(ctx context.Context) error
	}

	// SavedTemplate is a user-saved category layout, stored as an opaque
	// YAML/JSON document so the store does not depend on template types.
	SavedTemplate struct {
		ID          string
		Name        string
		Description string
		Payload     []byte
		CreatedAt   time.Time
	}

	// TemplateStore persists user-saved templates.
	TemplateStore interface {
		ListTemplates(ctx context.Context) ([]SavedTemplate, error)
		SaveTemplate(ctx context.Context, t SavedTemplate) error
		DeleteTemplate(ctx context.Context, id string) error
	}
)

// Memory is an in-process Store and TemplateStore.
type Memory struct {
	mu        sync.RWMutex
	values    map[string]string
	templates []SavedTemplate
}

var (
	_ Store         = (*Memory)(nil)
	_ TemplateStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) PreferredBudgetID(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[ActiveBudgetKey], nil
}

func (m *Memory) SetPreferredBudgetID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[ActiveBudgetKey] = id
	return nil
}

func (m *Memory) ClearPreferredBudgetID(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, ActiveBudgetKey)
	return nil
}

func (m *Memory) ListTemplates(_ context.Context) ([]SavedTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SavedTemplate, len(m.templates))
	copy(out, m.templates)
	return out, nil
}

// SaveTemplate inserts t or replaces the template with the same id.
func (m *Memory) SaveTemplate(_ context.Context, t SavedTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		if m.templates[i].ID == t.ID {
			m.templates[i] = t
			return nil
		}
	}
	m.templates = append(m.templates, t)
	return nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.templates {
		if m.templates[i].ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return ErrTemplateNotFound
}
