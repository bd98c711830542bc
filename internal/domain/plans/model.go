package plans

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	UnitDays   = "days"
	UnitMonths = "months"
)

var (
	ErrNotFound   = errors.New("plans: not found")
	ErrTitleTaken = errors.New("plans: title already exists")
	ErrInvalid    = errors.New("plans: invalid plan")
)

type Plan struct {
	Code          string
	Title         string
	DailyLimit    int
	DescriptionRU string
	DescriptionEN string
	DescriptionES string
	Price         float64
	DurationValue int
	DurationUnit  string // "days" | "months"
	LabelRU       string
	LabelEN       string
	LabelES       string
	SortOrder     int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Plan) Remaining(used int) int {
	if used >= p.DailyLimit {
		return 0
	}
	return p.DailyLimit - used
}

// Validate проверяет поля перед сохранением (код генерируется отдельно).
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalid)
	}
	if p.DailyLimit < 0 {
		return fmt.Errorf("%w: daily limit must be >= 0, got %d", ErrInvalid, p.DailyLimit)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0, got %v", ErrInvalid, p.Price)
	}
	if p.DurationValue < 1 {
		return fmt.Errorf("%w: duration value must be >= 1, got %d", ErrInvalid, p.DurationValue)
	}
	if p.DurationUnit != UnitDays && p.DurationUnit != UnitMonths {
		return fmt.Errorf("%w: unknown duration unit %q", ErrInvalid, p.DurationUnit)
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// CodeBase строит базу кода из названия: строчные латинские буквы и цифры,
// всё остальное схлопывается в "_".
func CodeBase(title string) string {
	base := strings.ToLower(title)
	base = nonSlug.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "plan"
	}
	return base
}
