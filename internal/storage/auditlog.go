package storage

import (
	"sync"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

// MemoryLog records emergency-request lifecycle changes in memory. The log
// is strictly write-behind: dispatch never reads it back, so a cold start
// still begins from empty in-memory state.
type MemoryLog struct {
	mu       sync.RWMutex
	requests map[string]models.EmergencyRequest
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{requests: make(map[string]models.EmergencyRequest)}
}

func (m *MemoryLog) SaveRequest(r *models.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryLog) UpdateRequest(r *models.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = *r
	return nil
}

func (m *MemoryLog) Get(id string) (models.EmergencyRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok
}
