package salon

import (
	"context"
	"sync"

	"github.com/dannytrann/pearly-nail-salon-next/internal/availability"
)

// ConfigStore is the subset of Store the salon handlers and settings need.
type ConfigStore interface {
	Get(ctx context.Context, salonID string) (*Config, error)
	Set(ctx context.Context, cfg *Config) error
}

var _ ConfigStore = (*Store)(nil)

// SettingsProvider builds engine settings from the stored salon config on
// every request, so admin edits apply without a restart.
type SettingsProvider struct {
	store   ConfigStore
	salonID string
	base    availability.Settings
}

var _ availability.SettingsSource = (*SettingsProvider)(nil)

// NewSettingsProvider keeps the process-level knobs from base and overlays
// hours and location from the salon config.
func NewSettingsProvider(store ConfigStore, salonID string, base availability.Settings) *SettingsProvider {
	return &SettingsProvider{store: store, salonID: salonID, base: base}
}

// AvailabilitySettings implements availability.SettingsSource.
func (p *SettingsProvider) AvailabilitySettings(ctx context.Context) (availability.Settings, error) {
	cfg, err := p.store.Get(ctx, p.salonID)
	if err != nil {
		return availability.Settings{}, err
	}
	hours, err := cfg.WeeklyHours()
	if err != nil {
		return availability.Settings{}, err
	}
	s := p.base
	s.Hours = hours
	s.Location = cfg.Location()
	return s, nil
}

// MemoryStore keeps salon configs in process memory. It backs local runs
// without Redis; edits are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]Config
}

var _ ConfigStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]Config)}
}

// Get returns a copy of the stored config, or the default.
func (m *MemoryStore) Get(ctx context.Context, salonID string) (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[salonID]
	if !ok {
		return DefaultConfig(salonID), nil
	}
	return &cfg, nil
}

// Set stores a copy of cfg.
func (m *MemoryStore) Set(ctx context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.SalonID] = *cfg
	return nil
}
