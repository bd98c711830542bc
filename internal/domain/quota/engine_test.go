package quota

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrin/searchbot/internal/domain/plans"
)

type stubCatalog struct{ m map[string]*plans.Plan }

func (s stubCatalog) Get(_ context.Context, code string) (*plans.Plan, error) {
	p, ok := s.m[code]
	if !ok {
		return nil, plans.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{m: map[string]*plans.Plan{
		"free":    {Code: "free", Title: "Free", DailyLimit: 5, IsActive: true},
		"premium": {Code: "premium", Title: "Premium", DailyLimit: 100, IsActive: true},
		"legacy":  {Code: "legacy", Title: "Legacy", DailyLimit: 7, IsActive: false},
	}}
}

func testEngine(store Store, cat Catalog) *Engine {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(store, cat, log, time.UTC, "free", 5)
	e.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestConsumeScenario(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	// free: лимит 5, remaining убывает 4..0
	for want := 4; want >= 0; want-- {
		res, err := e.Consume(ctx, 1001)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
	}

	res, err := e.Consume(ctx, 1001)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// смена тарифа сбрасывает счётчик
	s, err := e.AssignPlan(ctx, 1001, "premium")
	require.NoError(t, err)
	assert.Equal(t, "premium", s.PlanCode)
	assert.Equal(t, 0, s.UsedToday)
	assert.Equal(t, 100, s.RemainingToday)

	res, err = e.Consume(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 99, res.Remaining)
}

func TestConsumeConcurrent(t *testing.T) {
	ctx := context.Background()
	cat := stubCatalog{m: map[string]*plans.Plan{
		"ten": {Code: "ten", Title: "Ten", DailyLimit: 10, IsActive: true},
	}}
	e := testEngine(NewMemoryStore(), cat)

	_, err := e.AssignPlan(ctx, 42, "ten")
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	results := make([]Result, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Consume(ctx, 42)
		}(i)
	}
	wg.Wait()

	allowed := 0
	for i, r := range results {
		require.NoError(t, errs[i])
		if r.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)

	q, err := e.store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 10, q.UsedToday, "счётчик не должен превышать лимит")
}

func TestRolloverResetsAfterAnyGap(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	for i := 0; i < 5; i++ {
		_, err := e.Consume(ctx, 7)
		require.NoError(t, err)
	}
	res, err := e.Consume(ctx, 7)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// прошло три дня: счётчик начинается заново, без накопления
	e.now = func() time.Time { return time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC) }
	res, err = e.Consume(ctx, 7)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)

	q, err := e.store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-02", q.LastReset.Format("2006-01-02"))
}

func TestRolloverIdempotent(t *testing.T) {
	e := testEngine(NewMemoryStore(), testCatalog())
	q := UserQuota{UserID: 1, UsedToday: 3, LastReset: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)}

	e.rollover(&q, e.today())
	require.Equal(t, 0, q.UsedToday)
	first := q

	e.rollover(&q, e.today())
	assert.Equal(t, first, q)
}

func TestAssignPlanValidation(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	_, err := e.AssignPlan(ctx, 1, "nope")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// выключенный тариф назначать нельзя
	_, err = e.AssignPlan(ctx, 1, "legacy")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// неудачная попытка не создаёт и не меняет строку
	q, err := e.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestAssignSamePlanResets(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	_, err := e.AssignPlan(ctx, 5, "free")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.Consume(ctx, 5)
		require.NoError(t, err)
	}

	s, err := e.AssignPlan(ctx, 5, "free")
	require.NoError(t, err)
	assert.Equal(t, 0, s.UsedToday)
	assert.Equal(t, 5, s.RemainingToday)
}

func TestDeactivatedPlanStillHonored(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	e := testEngine(NewMemoryStore(), cat)

	_, err := e.AssignPlan(ctx, 9, "premium")
	require.NoError(t, err)

	// тариф выключили после назначения: лимит продолжает действовать
	cat.m["premium"].IsActive = false
	res, err := e.Consume(ctx, 9)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 99, res.Remaining)
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	for i := 0; i < 2; i++ {
		_, err := e.Consume(ctx, 3)
		require.NoError(t, err)
	}

	// наступил новый день: снапшот показывает сброс, но строку не трогает
	e.now = func() time.Time { return time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC) }
	s, err := e.Snapshot(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.UsedToday)
	assert.Equal(t, 5, s.RemainingToday)
	assert.Equal(t, "2026-08-30", s.LastResetDate)

	q, err := e.store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, q.UsedToday, "чистое чтение не должно писать")
}

func TestSnapshotMissingRow(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	s, err := e.Snapshot(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, "free", s.PlanCode)
	assert.Equal(t, "Free", s.PlanTitle)
	assert.Equal(t, 5, s.DailyLimit)
	assert.Equal(t, 5, s.RemainingToday)
	assert.Empty(t, s.LastResetDate)
}

func TestListSnapshots(t *testing.T) {
	ctx := context.Background()
	e := testEngine(NewMemoryStore(), testCatalog())

	_, err := e.Consume(ctx, 1) // дефолтный тариф
	require.NoError(t, err)
	_, err = e.AssignPlan(ctx, 2, "premium")
	require.NoError(t, err)

	snaps, err := e.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(1), snaps[0].UserID)
	assert.Equal(t, "free", snaps[0].PlanCode)
	assert.Equal(t, 1, snaps[0].UsedToday)
	assert.Equal(t, "premium", snaps[1].PlanCode)
	assert.Equal(t, 100, snaps[1].RemainingToday)
}

// flakyStore имитирует занятую строку: первые n вызовов Update падают с ErrConflict.
type flakyStore struct {
	*MemoryStore
	mu    sync.Mutex
	fails int
}

func (s *flakyStore) Update(ctx context.Context, userID int64, fn func(q *UserQuota) error) (*UserQuota, error) {
	s.mu.Lock()
	if s.fails > 0 {
		s.fails--
		s.mu.Unlock()
		return nil, ErrConflict
	}
	s.mu.Unlock()
	return s.MemoryStore.Update(ctx, userID, fn)
}

func TestConsumeRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), fails: 2}
	e := testEngine(store, testCatalog())

	res, err := e.Consume(ctx, 77)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestConsumeSurfacesConflictAfterRetries(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: NewMemoryStore(), fails: 100}
	e := testEngine(store, testCatalog())

	_, err := e.Consume(ctx, 77)
	assert.ErrorIs(t, err, ErrConflict)
}
