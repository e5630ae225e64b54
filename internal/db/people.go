package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

var ErrNotFound = errors.New("not found")

const personCols = `id, name, email, telegram_id, role, is_active, created_at`

func scanPerson(row interface{ Scan(...any) error }) (*models.Person, error) {
	var p models.Person
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.TelegramID, &p.Role, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPerson inserts a person or updates the row with the same id. An
// explicit id also advances the id sequence past it, so later inserts
// without an id do not collide.
func UpsertPerson(ctx context.Context, q Querier, p models.Person) (*models.Person, error) {
	if p.ID == 0 {
		return scanPerson(q.QueryRowContext(ctx, `
			INSERT INTO people (name, email, telegram_id, role, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+personCols,
			p.Name, p.Email, p.TelegramID, string(p.Role), p.IsActive))
	}
	out, err := scanPerson(q.QueryRowContext(ctx, `
		INSERT INTO people (id, name, email, telegram_id, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, telegram_id = EXCLUDED.telegram_id,
		    role = EXCLUDED.role, is_active = EXCLUDED.is_active
		RETURNING `+personCols,
		p.ID, p.Name, p.Email, p.TelegramID, string(p.Role), p.IsActive))
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, `
		SELECT setval('people_id_seq', GREATEST($1::bigint, last_value)) FROM people_id_seq`, out.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func GetPerson(ctx context.Context, q Querier, id int64) (*models.Person, error) {
	p, err := scanPerson(q.QueryRowContext(ctx, `SELECT `+personCols+` FROM people WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func SetPersonActive(ctx context.Context, q Querier, id int64, active bool) error {
	res, err := q.ExecContext(ctx, `UPDATE people SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}
