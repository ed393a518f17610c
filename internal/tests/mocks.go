package tests

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"freight/internal/domain"
	"freight/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Counters for verification
	UpdateCallCount int32

	// Error injection
	UpdateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetWithStops(ctx context.Context, id string) (*domain.Trip, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

// GetTrip returns the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// ──────────────────────────────────────────────
// MOCK TRIP EVENT REPOSITORY
// ──────────────────────────────────────────────

// MockTripEventRepository is a mock implementation of TripEventRepository.
// It enforces the same (trip, type, recorded-at) uniqueness the real table
// does, so dedup behavior is exercised faithfully.
type MockTripEventRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.TripEvent

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockTripEventRepository creates a new mock trip event repository.
func NewMockTripEventRepository() *MockTripEventRepository {
	return &MockTripEventRepository{
		events: make(map[string]*domain.TripEvent),
	}
}

func eventKey(tripID string, eventType domain.EventType, recordedAt time.Time) string {
	return fmt.Sprintf("%s|%s|%d", tripID, eventType, recordedAt.Unix())
}

func (m *MockTripEventRepository) CreateIfAbsent(ctx context.Context, event *domain.TripEvent) (bool, *domain.TripEvent, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return false, nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := eventKey(event.TripID, event.Type, event.RecordedAt)
	if existing, ok := m.events[key]; ok {
		copy := *existing
		return false, &copy, nil
	}

	copy := *event
	m.events[key] = &copy
	return true, event, nil
}

func (m *MockTripEventRepository) FindByKey(ctx context.Context, tripID string, eventType domain.EventType, recordedAt time.Time) (*domain.TripEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	event, ok := m.events[eventKey(tripID, eventType, recordedAt)]
	if !ok {
		return nil, nil
	}
	copy := *event
	return &copy, nil
}

func (m *MockTripEventRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.TripEvent
	for _, e := range m.events {
		if e.TripID == tripID {
			copy := *e
			events = append(events, &copy)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].RecordedAt.Before(events[j].RecordedAt)
	})
	return events, nil
}

func (m *MockTripEventRepository) CountByType(ctx context.Context, tripID string) (map[domain.EventType]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.EventType]int)
	for _, e := range m.events {
		if e.TripID == tripID {
			counts[e.Type]++
		}
	}
	return counts, nil
}

// CountEvents returns the number of stored events for a trip.
func (m *MockTripEventRepository) CountEvents(tripID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.events {
		if e.TripID == tripID {
			n++
		}
	}
	return n
}

// ──────────────────────────────────────────────
// MOCK RATE SETTING REPOSITORY
// ──────────────────────────────────────────────

// MockRateSettingRepository is a mock implementation of RateSettingRepository.
type MockRateSettingRepository struct {
	mu       sync.RWMutex
	settings map[string]float64
}

// NewMockRateSettingRepository creates a new mock rate setting repository.
func NewMockRateSettingRepository() *MockRateSettingRepository {
	return &MockRateSettingRepository{
		settings: make(map[string]float64),
	}
}

// SetRate seeds a rate setting.
func (m *MockRateSettingRepository) SetRate(key, category string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[category+"|"+key] = value
}

func (m *MockRateSettingRepository) Lookup(ctx context.Context, key, category string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.settings[category+"|"+key]
	return value, ok, nil
}

// ──────────────────────────────────────────────
// MOCK RATE TEMPLATE REPOSITORY
// ──────────────────────────────────────────────

// MockRateTemplateRepository is a mock implementation of RateTemplateRepository.
type MockRateTemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.RateTemplate
}

// NewMockRateTemplateRepository creates a new mock rate template repository.
func NewMockRateTemplateRepository() *MockRateTemplateRepository {
	return &MockRateTemplateRepository{
		templates: make(map[string]*domain.RateTemplate),
	}
}

// AddTemplate seeds a rate template.
func (m *MockRateTemplateRepository) AddTemplate(tmpl *domain.RateTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.ID] = tmpl
}

func (m *MockRateTemplateRepository) GetByID(ctx context.Context, id string) (*domain.RateTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tmpl, ok := m.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *tmpl
	return &copy, nil
}

// Ensure mocks satisfy the repository interfaces.
var (
	_ repository.TripRepository         = (*MockTripRepository)(nil)
	_ repository.TripEventRepository    = (*MockTripEventRepository)(nil)
	_ repository.RateSettingRepository  = (*MockRateSettingRepository)(nil)
	_ repository.RateTemplateRepository = (*MockRateTemplateRepository)(nil)
)
