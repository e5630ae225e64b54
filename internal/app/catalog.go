package app

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func (s *Service) CreateCriterion(ctx context.Context, actor models.Actor, c models.Criterion) (*models.Criterion, error) {
	const op = "create_criterion"
	if err := kpi.Require(actor, models.SuperAdmin); err != nil {
		return nil, err
	}
	if err := kpi.ValidateStruct(c); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.CreateCriterion(ctx, s.db, c)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, kpi.Errorf(kpi.Conflict, "criteria key %q already exists", c.Key)
		}
		return nil, s.fail(op, err)
	}
	s.logger(ctx).Info("criterion created", zap.Int64("criteria_id", out.ID), zap.String("key", out.Key))
	return out, nil
}

// UpdateCriterion edits name, scale and description. The key may only
// change while no criteria set references the criterion.
func (s *Service) UpdateCriterion(ctx context.Context, actor models.Actor, c models.Criterion) (*models.Criterion, error) {
	const op = "update_criterion"
	if err := kpi.Require(actor, models.SuperAdmin); err != nil {
		return nil, err
	}
	if err := kpi.ValidateStruct(c); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out *models.Criterion
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := db.GetCriterionForUpdate(ctx, tx, c.ID)
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "criteria %d not found", c.ID)
		}
		if err != nil {
			return err
		}
		if cur.Key != c.Key {
			used, err := db.CriterionInUse(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if used {
				return kpi.Errorf(kpi.Conflict, "criteria key %q is in use and cannot change", cur.Key)
			}
		}
		out, err = db.UpdateCriterion(ctx, tx, c)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, kpi.Errorf(kpi.Conflict, "criteria key %q already exists", c.Key)
		}
		return nil, s.fail(op, err)
	}
	return out, nil
}

// DeleteCriterion is blocked while any criteria-set item references it.
func (s *Service) DeleteCriterion(ctx context.Context, actor models.Actor, id int64) error {
	const op = "delete_criterion"
	if err := kpi.Require(actor, models.SuperAdmin); err != nil {
		return err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := db.GetCriterionForUpdate(ctx, tx, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return kpi.Errorf(kpi.NotFound, "criteria %d not found", id)
			}
			return err
		}
		used, err := db.CriterionInUse(ctx, tx, id)
		if err != nil {
			return err
		}
		if used {
			return kpi.Errorf(kpi.Conflict, "criteria %d is referenced by a criteria set", id)
		}
		return db.DeleteCriterion(ctx, tx, id)
	})
	if err != nil {
		return s.fail(op, err)
	}
	s.logger(ctx).Info("criterion deleted", zap.Int64("criteria_id", id))
	return nil
}

func (s *Service) ListCriteria(ctx context.Context) ([]models.Criterion, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	out, err := db.ListCriteria(ctx, s.db)
	if err != nil {
		return nil, s.fail("list_criteria", err)
	}
	return out, nil
}
