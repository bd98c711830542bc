package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ostrin/searchbot/internal/domain/plans"
	"github.com/ostrin/searchbot/internal/infra/metrics"
)

// Catalog — то, что движку нужно от каталога тарифов.
type Catalog interface {
	Get(ctx context.Context, code string) (*plans.Plan, error)
}

// Engine считает дневные лимиты поиска: Consume / AssignPlan / Snapshot.
// Вся работа со строкой пользователя идёт через Store под её блокировкой.
type Engine struct {
	store Store
	plans Catalog
	log   *slog.Logger
	loc   *time.Location
	now   func() time.Time

	defaultCode  string
	defaultLimit int
}

func NewEngine(store Store, catalog Catalog, log *slog.Logger, loc *time.Location, defaultCode string, defaultLimit int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		store:        store,
		plans:        catalog,
		log:          log,
		loc:          loc,
		now:          time.Now,
		defaultCode:  defaultCode,
		defaultLimit: defaultLimit,
	}
}

// today — календарная дата в часовом поясе бота, нормализованная к полуночи UTC.
func (e *Engine) today() time.Time {
	y, m, d := e.now().In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// rollover сбрасывает счётчик, если хранимая дата не сегодняшняя.
// Идемпотентен: повторное применение ничего не меняет.
func (e *Engine) rollover(q *UserQuota, today time.Time) {
	if !sameDay(q.LastReset, today) {
		q.UsedToday = 0
		q.LastReset = today
	}
}

// limitFor возвращает дневной лимит для кода тарифа из леджера.
// Деактивированный тариф продолжает действовать со своим лимитом;
// nil или неразрешимый код трактуется как дефолтный тариф.
func (e *Engine) limitFor(ctx context.Context, code *string) (int, error) {
	if code == nil {
		return e.defaultLimit, nil
	}
	p, err := e.plans.Get(ctx, *code)
	if errors.Is(err, plans.ErrNotFound) {
		e.log.Warn("ledger references unknown plan, falling back to default",
			"plan_code", *code)
		return e.defaultLimit, nil
	}
	if err != nil {
		return 0, err
	}
	return p.DailyLimit, nil
}

// Consume списывает одну попытку поиска. Denied — штатный исход, не ошибка.
func (e *Engine) Consume(ctx context.Context, userID int64) (Result, error) {
	var res Result
	err := e.withRetry(ctx, func(ctx context.Context) error {
		_, err := e.store.Update(ctx, userID, func(q *UserQuota) error {
			e.rollover(q, e.today())
			limit, err := e.limitFor(ctx, q.PlanCode)
			if err != nil {
				return err
			}
			if q.UsedToday < limit {
				q.UsedToday++
				res = Result{Allowed: true, Remaining: limit - q.UsedToday}
			} else {
				res = Result{Allowed: false, Remaining: 0}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}
	if res.Allowed {
		metrics.ConsumeTotal.WithLabelValues("allowed").Inc()
	} else {
		metrics.ConsumeTotal.WithLabelValues("denied").Inc()
	}
	return res, nil
}

// AssignPlan назначает пользователю активный тариф и сбрасывает счётчик —
// в том числе при повторном назначении того же кода.
// Возвращает свежий снапшот, чтобы админке не нужен был второй запрос.
func (e *Engine) AssignPlan(ctx context.Context, userID int64, code string) (*Snapshot, error) {
	p, err := e.plans.Get(ctx, code)
	if errors.Is(err, plans.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPlanNotFound
	}

	var q *UserQuota
	err = e.withRetry(ctx, func(ctx context.Context) error {
		var uerr error
		q, uerr = e.store.Update(ctx, userID, func(row *UserQuota) error {
			c := code
			row.PlanCode = &c
			row.UsedToday = 0
			row.LastReset = e.today()
			return nil
		})
		return uerr
	})
	if err != nil {
		return nil, err
	}
	metrics.PlanAssignTotal.Inc()
	e.log.Info("plan assigned", "user_id", userID, "plan_code", code)

	s := e.project(*q, p)
	return &s, nil
}

// Snapshot — чтение без записи: rollover применяется только к возвращаемым
// значениям, строка не меняется. Отсутствующая строка — не ошибка,
// пользователь считается на дефолтном тарифе.
func (e *Engine) Snapshot(ctx context.Context, userID int64) (*Snapshot, error) {
	q, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		s := e.defaultSnapshot(ctx, userID)
		return &s, nil
	}
	s, err := e.projectResolved(ctx, *q)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSnapshots — проекция по всем известным пользователям для админки.
func (e *Engine) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}

	cache := map[string]*plans.Plan{}
	out := make([]Snapshot, 0, len(rows))
	for _, q := range rows {
		if q.PlanCode == nil {
			out = append(out, e.project(q, e.defaultPlan(ctx)))
			continue
		}
		p, ok := cache[*q.PlanCode]
		if !ok {
			p, err = e.plans.Get(ctx, *q.PlanCode)
			if errors.Is(err, plans.ErrNotFound) {
				p = nil
			} else if err != nil {
				return nil, err
			}
			cache[*q.PlanCode] = p
		}
		if p == nil {
			out = append(out, e.project(q, e.defaultPlan(ctx)))
			continue
		}
		out = append(out, e.project(q, p))
	}
	return out, nil
}

// project строит снапшот c тем же rollover-расчётом, что и Consume, но без записи.
func (e *Engine) project(q UserQuota, p *plans.Plan) Snapshot {
	used := q.UsedToday
	if !sameDay(q.LastReset, e.today()) {
		used = 0
	}
	s := Snapshot{
		UserID:     q.UserID,
		PlanCode:   p.Code,
		PlanTitle:  p.Title,
		DailyLimit: p.DailyLimit,
		UsedToday:  used,
	}
	s.RemainingToday = p.Remaining(used)
	if !q.LastReset.IsZero() {
		s.LastResetDate = q.LastReset.UTC().Format("2006-01-02")
	}
	return s
}

func (e *Engine) projectResolved(ctx context.Context, q UserQuota) (Snapshot, error) {
	if q.PlanCode == nil {
		return e.project(q, e.defaultPlan(ctx)), nil
	}
	p, err := e.plans.Get(ctx, *q.PlanCode)
	if errors.Is(err, plans.ErrNotFound) {
		return e.project(q, e.defaultPlan(ctx)), nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return e.project(q, p), nil
}

// defaultPlan — синтетический тариф для пользователей без назначенного:
// берём строку каталога, если дефолтный код в нём есть, иначе конфиг.
func (e *Engine) defaultPlan(ctx context.Context) *plans.Plan {
	if p, err := e.plans.Get(ctx, e.defaultCode); err == nil {
		return p
	}
	return &plans.Plan{
		Code:       e.defaultCode,
		Title:      e.defaultCode,
		DailyLimit: e.defaultLimit,
	}
}

func (e *Engine) defaultSnapshot(ctx context.Context, userID int64) Snapshot {
	p := e.defaultPlan(ctx)
	return Snapshot{
		UserID:         userID,
		PlanCode:       p.Code,
		PlanTitle:      p.Title,
		DailyLimit:     p.DailyLimit,
		UsedToday:      0,
		RemainingToday: p.DailyLimit,
	}
}

// withRetry ретраит только ErrConflict: ограниченный fibonacci-бэкофф,
// валидационные ошибки уходят наружу сразу.
func (e *Engine) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrConflict) {
			metrics.ConflictRetries.Inc()
			e.log.Debug("ledger row busy, retrying", "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}
