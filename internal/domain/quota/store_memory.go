package quota

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore — леджер в памяти: мьютекс на пользователя вместо строчной
// блокировки БД. Используется в тестах и годится для одиночного процесса.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[int64]*memoryRow
}

type memoryRow struct {
	mu sync.Mutex
	q  UserQuota
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*memoryRow)}
}

func (s *MemoryStore) row(userID int64) *memoryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[userID]
	if !ok {
		r = &memoryRow{q: UserQuota{UserID: userID}}
		s.rows[userID] = r
	}
	return r
}

func (s *MemoryStore) Update(ctx context.Context, userID int64, fn func(q *UserQuota) error) (*UserQuota, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.row(userID)
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.q
	if err := fn(&q); err != nil {
		return nil, err
	}
	r.q = q
	out := q
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID int64) (*UserQuota, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	r, ok := s.rows[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.q
	return &q, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]UserQuota, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]UserQuota, 0, len(s.rows))
	for _, r := range s.rows {
		r.mu.Lock()
		out = append(out, r.q)
		r.mu.Unlock()
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
