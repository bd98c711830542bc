package quota

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPlanNotFound — попытка назначить несуществующий или выключенный тариф.
	ErrPlanNotFound = errors.New("quota: plan not found")
	// ErrConflict — строка занята дольше lock-таймаута; временная ошибка, ретраится.
	ErrConflict = errors.New("quota: concurrent update conflict")
)

// UserQuota — строка леджера: текущий тариф и счётчик за сегодня.
// PlanCode == nil означает дефолтный тариф из конфига.
type UserQuota struct {
	UserID    int64
	PlanCode  *string
	UsedToday int
	LastReset time.Time // календарная дата, полночь UTC
}

// Result — исход одной попытки поиска.
type Result struct {
	Allowed   bool
	Remaining int
}

// Snapshot — проекция для админки (аналог v_user_search_plans).
type Snapshot struct {
	UserID         int64     `json:"user_id"`
	PlanCode       string    `json:"plan_code"`
	PlanTitle      string    `json:"plan_title"`
	DailyLimit     int       `json:"plan_daily_limit"`
	UsedToday      int       `json:"used_today"`
	RemainingToday int       `json:"remaining_today"`
	LastResetDate  string    `json:"last_reset_date"` // YYYY-MM-DD, пусто если строки ещё нет
}

// Store хранит строки леджера. Update обязан сериализовать
// read-modify-write по одному пользователю; разные пользователи независимы.
type Store interface {
	// Update выполняет fn под эксклюзивной блокировкой строки пользователя,
	// создавая её лениво. Ошибка fn откатывает запись.
	Update(ctx context.Context, userID int64, fn func(q *UserQuota) error) (*UserQuota, error)

	// Get возвращает строку без блокировки; (nil, nil) если строки ещё нет.
	Get(ctx context.Context, userID int64) (*UserQuota, error)

	// List возвращает все строки леджера.
	List(ctx context.Context) ([]UserQuota, error)
}
