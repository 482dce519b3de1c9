package missions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory mission store for demo/development mode.
type MemoryStore struct {
	missions    map[string]*Mission
	order       []string // mission ids in insertion order
	assignments map[string]*UserMission
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory mission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		missions:    make(map[string]*Mission),
		assignments: make(map[string]*UserMission),
	}
}

func (m *MemoryStore) InsertMission(ctx context.Context, mi *Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *mi
	m.missions[mi.ID] = &cp
	m.order = append(m.order, mi.ID)
	return nil
}

func (m *MemoryStore) GetMission(ctx context.Context, id string) (*Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mi, ok := m.missions[id]
	if !ok {
		return nil, ErrMissionNotFound
	}
	cp := *mi
	return &cp, nil
}

func (m *MemoryStore) ListActiveMissions(ctx context.Context, typ MissionType, now time.Time) ([]*Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Mission
	for _, id := range m.order {
		mi := m.missions[id]
		if mi.Type == typ && mi.WindowCovers(now) {
			cp := *mi
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertAssignment(ctx context.Context, um *UserMission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *um
	m.assignments[um.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateAssignment(ctx context.Context, um *UserMission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assignments[um.ID]; !ok {
		return ErrNoActiveAssignment
	}
	cp := *um
	m.assignments[um.ID] = &cp
	return nil
}

func (m *MemoryStore) ActiveAssignments(ctx context.Context, userID string) ([]*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Assignment
	for _, um := range m.assignments {
		if um.UserID == userID && um.Status.Active() {
			out = append(out, m.joinLocked(um))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserMission.CreatedAt.Before(out[j].UserMission.CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) ActiveAssignment(ctx context.Context, userID, missionID string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, um := range m.assignments {
		if um.UserID == userID && um.MissionID == missionID && um.Status.Active() {
			return m.joinLocked(um), nil
		}
	}
	return nil, ErrNoActiveAssignment
}

func (m *MemoryStore) LatestAssignment(ctx context.Context, userID, missionID string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *UserMission
	for _, um := range m.assignments {
		if um.UserID == userID && um.MissionID == missionID {
			if latest == nil || um.CreatedAt.After(latest.CreatedAt) {
				latest = um
			}
		}
	}
	if latest == nil {
		return nil, ErrNoActiveAssignment
	}
	return m.joinLocked(latest), nil
}

func (m *MemoryStore) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, um := range m.assignments {
		if !um.Status.Active() {
			continue
		}
		mi, ok := m.missions[um.MissionID]
		if ok && mi.ActiveTo.Before(now) {
			um.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) joinLocked(um *UserMission) *Assignment {
	umc := *um
	a := &Assignment{UserMission: &umc}
	if mi, ok := m.missions[um.MissionID]; ok {
		mic := *mi
		a.Mission = &mic
	}
	return a
}
