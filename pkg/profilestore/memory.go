package profilestore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// MemoryStore keeps profiles in memory. Profiles are deep-copied on the way
// in and out, so callers cannot mutate stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*voiceprint.Profile
	backups  map[string]*voiceprint.Profile
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*voiceprint.Profile),
		backups:  make(map[string]*voiceprint.Profile),
	}
}

func (m *MemoryStore) Load(_ context.Context, user string) (*voiceprint.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[user]
	if !ok {
		return nil, notFound(user)
	}
	return clone(p), nil
}

func (m *MemoryStore) Save(_ context.Context, user string, p *voiceprint.Profile) error {
	if err := checkUser(user); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.profiles[user]; ok {
		m.backups[user] = old
	}
	m.profiles[user] = clone(p)
	return nil
}

func (m *MemoryStore) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.profiles))
	for u := range m.profiles {
		users = append(users, u)
	}
	slices.Sort(users)
	return users, nil
}

func (m *MemoryStore) LoadBackup(_ context.Context, user string) (*voiceprint.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.backups[user]
	if !ok {
		return nil, notFound(user)
	}
	return clone(p), nil
}

func (m *MemoryStore) Close() error { return nil }

func clone(p *voiceprint.Profile) *voiceprint.Profile {
	c := *p
	c.Scalars = maps.Clone(p.Scalars)
	c.Vectors = make(map[string]voiceprint.VectorStat, len(p.Vectors))
	for k, v := range p.Vectors {
		c.Vectors[k] = voiceprint.VectorStat{
			Mean:   slices.Clone(v.Mean),
			Std:    slices.Clone(v.Std),
			Median: slices.Clone(v.Median),
		}
	}
	c.Transcripts = slices.Clone(p.Transcripts)
	return &c
}

var _ Store = (*MemoryStore)(nil)
