package repository

import (
	"context"
	"sync"
	"time"

	"salonbook/internal/models"
)

// MemoryScheduleCache is the in-process fallback used when redis is missing
// or down. Entries expire lazily on read.
type MemoryScheduleCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	index      map[string]map[string]struct{}
	rateLimits sync.Map
	ttl        time.Duration
}

type memoryEntry struct {
	schedule  *models.DaySchedule
	expiresAt time.Time
}

func NewMemoryScheduleCache(ttl time.Duration) *MemoryScheduleCache {
	if ttl <= 0 {
		ttl = models.ScheduleCacheTTLSeconds * time.Second
	}
	return &MemoryScheduleCache{
		entries: make(map[string]*memoryEntry),
		index:   make(map[string]map[string]struct{}),
		ttl:     ttl,
	}
}

func (m *MemoryScheduleCache) Get(_ context.Context, key string) (*models.DaySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	return entry.schedule, nil
}

func (m *MemoryScheduleCache) Set(_ context.Context, employeeID, date, key string, schedule *models.DaySchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &memoryEntry{schedule: schedule, expiresAt: time.Now().Add(m.ttl)}

	idx := indexKey(employeeID, date)
	if m.index[idx] == nil {
		m.index[idx] = make(map[string]struct{})
	}
	m.index[idx][key] = struct{}{}
	return nil
}

func (m *MemoryScheduleCache) InvalidateDay(_ context.Context, employeeID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := indexKey(employeeID, date)
	for key := range m.index[idx] {
		delete(m.entries, key)
	}
	delete(m.index, idx)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (m *MemoryScheduleCache) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := m.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	m.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
