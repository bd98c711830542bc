package plans

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ db *pgxpool.Pool }

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

const planCols = `code,title,daily_limit,description_ru,description_en,description_es,
	price,duration_value,duration_unit,duration_label_ru,duration_label_en,duration_label_es,
	sort_order,is_active,created_at,updated_at`

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	if err := row.Scan(
		&p.Code, &p.Title, &p.DailyLimit,
		&p.DescriptionRU, &p.DescriptionEN, &p.DescriptionES,
		&p.Price, &p.DurationValue, &p.DurationUnit,
		&p.LabelRU, &p.LabelEN, &p.LabelES,
		&p.SortOrder, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create валидирует план, генерирует уникальный code из названия и сохраняет.
func (r *Repo) Create(ctx context.Context, p Plan) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	taken, err := r.titleTaken(ctx, p.Title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTitleTaken
	}

	code, err := r.uniqueCode(ctx, CodeBase(p.Title))
	if err != nil {
		return nil, err
	}
	p.Code = code
	p.LabelRU, p.LabelEN, p.LabelES = DurationLabels(p.DurationValue, p.DurationUnit)
	p.IsActive = true

	q := `
		INSERT INTO search_plans
			(code,title,daily_limit,description_ru,description_en,description_es,
			 price,duration_value,duration_unit,duration_label_ru,duration_label_en,duration_label_es,
			 sort_order,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,TRUE)
		RETURNING ` + planCols
	row := r.db.QueryRow(ctx, q,
		p.Code, p.Title, p.DailyLimit,
		p.DescriptionRU, p.DescriptionEN, p.DescriptionES,
		p.Price, p.DurationValue, p.DurationUnit,
		p.LabelRU, p.LabelEN, p.LabelES,
		p.SortOrder,
	)
	return scanPlan(row)
}

// Update перезаписывает поля плана; уникальность названия проверяется без учёта самого плана.
func (r *Repo) Update(ctx context.Context, code string, p Plan) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	taken, err := r.titleTaken(ctx, p.Title, code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrTitleTaken
	}

	p.LabelRU, p.LabelEN, p.LabelES = DurationLabels(p.DurationValue, p.DurationUnit)

	q := `
		UPDATE search_plans SET
			title=$2, daily_limit=$3,
			description_ru=$4, description_en=$5, description_es=$6,
			price=$7, duration_value=$8, duration_unit=$9,
			duration_label_ru=$10, duration_label_en=$11, duration_label_es=$12,
			sort_order=$13, is_active=$14, updated_at=NOW()
		WHERE code=$1
		RETURNING ` + planCols
	row := r.db.QueryRow(ctx, q,
		code, p.Title, p.DailyLimit,
		p.DescriptionRU, p.DescriptionEN, p.DescriptionES,
		p.Price, p.DurationValue, p.DurationUnit,
		p.LabelRU, p.LabelEN, p.LabelES,
		p.SortOrder, p.IsActive,
	)
	out, err := scanPlan(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return out, err
}

// Get возвращает план независимо от is_active: деактивированный тариф
// должен оставаться разрешимым для старых записей леджера.
func (r *Repo) Get(ctx context.Context, code string) (*Plan, error) {
	q := `SELECT ` + planCols + ` FROM search_plans WHERE code=$1`
	p, err := scanPlan(r.db.QueryRow(ctx, q, code))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *Repo) ListActive(ctx context.Context) ([]Plan, error) {
	return r.list(ctx, true)
}

func (r *Repo) List(ctx context.Context) ([]Plan, error) {
	return r.list(ctx, false)
}

func (r *Repo) list(ctx context.Context, onlyActive bool) ([]Plan, error) {
	q := `SELECT ` + planCols + ` FROM search_plans`
	if onlyActive {
		q += ` WHERE is_active=TRUE`
	}
	q += ` ORDER BY sort_order, price, daily_limit, code`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Deactivate скрывает план из каталога; жёсткого удаления нет.
func (r *Repo) Deactivate(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_plans SET is_active=FALSE, updated_at=NOW() WHERE code=$1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) titleTaken(ctx context.Context, title, excludeCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM search_plans WHERE title=$1 AND code<>$2)`,
		title, excludeCode,
	).Scan(&exists)
	return exists, err
}

// uniqueCode подбирает свободный code: base, base_1, base_2, ...
func (r *Repo) uniqueCode(ctx context.Context, base string) (string, error) {
	code := base
	for suffix := 1; ; suffix++ {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM search_plans WHERE code=$1)`, code,
		).Scan(&exists); err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		code = fmt.Sprintf("%s_%d", base, suffix)
	}
}
