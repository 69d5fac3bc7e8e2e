package store

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/r2d8-reddit-bot/internal/domain"
)

// memory is an in-process Store used by tests and --store=memory runs.
type memory struct {
	mu sync.RWMutex

	comments map[string]struct{}
	aliases  []domain.Alias
	byAlias  map[string]string // aliasKey -> canonical
	admins   map[string]struct{}
	ignored  map[string]struct{}
}

func NewMemory(seed Seed) Store {
	m := &memory{
		comments: make(map[string]struct{}),
		byAlias:  make(map[string]string),
		admins:   make(map[string]struct{}),
		ignored:  make(map[string]struct{}),
	}
	for _, a := range seed.Aliases {
		_, _ = m.AddAlias(context.Background(), a.Alias, a.CanonicalName)
	}
	for _, id := range seed.Admins {
		if strings.TrimSpace(id) != "" {
			m.admins[strings.TrimSpace(id)] = struct{}{}
		}
	}
	return m
}

func (m *memory) Close() error { return nil }

func (m *memory) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.comments[id]
	return ok, nil
}

func (m *memory) Record(ctx context.Context, id string) error {
	m.mu.Lock()
	m.comments[id] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *memory) Forget(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.comments, id)
	m.mu.Unlock()
	return nil
}

func (m *memory) AddAlias(ctx context.Context, alias, canonical string) (bool, error) {
	alias, canonical = strings.TrimSpace(alias), strings.TrimSpace(canonical)
	if alias == "" || canonical == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := aliasKey(alias)
	if _, exists := m.byAlias[key]; exists {
		return false, nil
	}
	m.byAlias[key] = canonical
	m.aliases = append(m.aliases, domain.Alias{Alias: alias, CanonicalName: canonical})
	return true, nil
}

func (m *memory) CanonicalName(ctx context.Context, alias string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byAlias[aliasKey(alias)]
	return name, ok, nil
}

func (m *memory) Aliases(ctx context.Context) ([]domain.Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Alias(nil), m.aliases...), nil
}

func (m *memory) IsAdmin(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.admins[id]
	return ok, nil
}

func (m *memory) IsIgnored(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ignored[id]
	return ok, nil
}

func (m *memory) AddAdmin(ctx context.Context, id string) error {
	m.mu.Lock()
	m.admins[strings.TrimSpace(id)] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *memory) Ignore(ctx context.Context, id string) error {
	m.mu.Lock()
	m.ignored[strings.TrimSpace(id)] = struct{}{}
	m.mu.Unlock()
	return nil
}
