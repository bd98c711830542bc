package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore — леджер поверх Postgres. Взаимное исключение по пользователю
// обеспечивается SELECT ... FOR UPDATE внутри транзакции.
type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Update(ctx context.Context, userID int64, fn func(q *UserQuota) error) (*UserQuota, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// ленивое создание: used_today=0, last_reset_date в прошлом,
	// чтобы первый Consume сам выполнил rollover
	if _, err := tx.Exec(ctx,
		`INSERT INTO user_quotas (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, classify(err)
	}

	row := tx.QueryRow(ctx, `
		SELECT user_id, plan_code, used_today, last_reset_date
		FROM user_quotas WHERE user_id=$1 FOR UPDATE`, userID)
	var q UserQuota
	if err := row.Scan(&q.UserID, &q.PlanCode, &q.UsedToday, &q.LastReset); err != nil {
		return nil, classify(err)
	}

	if err := fn(&q); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE user_quotas
		SET plan_code=$2, used_today=$3, last_reset_date=$4, updated_at=NOW()
		WHERE user_id=$1`,
		q.UserID, q.PlanCode, q.UsedToday, q.LastReset,
	); err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return &q, nil
}

func (s *PGStore) Get(ctx context.Context, userID int64) (*UserQuota, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, plan_code, used_today, last_reset_date
		FROM user_quotas WHERE user_id=$1`, userID)
	var q UserQuota
	if err := row.Scan(&q.UserID, &q.PlanCode, &q.UsedToday, &q.LastReset); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (s *PGStore) List(ctx context.Context) ([]UserQuota, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, plan_code, used_today, last_reset_date
		FROM user_quotas ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserQuota
	for rows.Next() {
		var q UserQuota
		if err := rows.Scan(&q.UserID, &q.PlanCode, &q.UsedToday, &q.LastReset); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// classify помечает lock-таймауты и serialization failures как ErrConflict,
// чтобы движок мог их ретраить.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Code)
		}
	}
	return err
}
