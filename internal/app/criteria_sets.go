package app

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// GetActiveCriteriaSet returns nil without error when the subject was never
// configured.
func (s *Service) GetActiveCriteriaSet(ctx context.Context, subjectID int64) (*models.CriteriaSet, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	set, err := db.ActiveCriteriaSet(ctx, s.db, subjectID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get_active_criteria_set", err)
	}
	return set, nil
}

// CriteriaSetByID loads a pinned version, e.g. the one a past submission
// was scored against.
func (s *Service) CriteriaSetByID(ctx context.Context, id int64) (*models.CriteriaSet, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	set, err := db.CriteriaSetByID(ctx, s.db, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "criteria set %d not found", id)
	}
	if err != nil {
		return nil, s.fail("criteria_set_by_id", err)
	}
	return set, nil
}

func (s *Service) CriteriaSetHistory(ctx context.Context, subjectID int64) ([]models.CriteriaSet, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.CriteriaSetHistory(ctx, s.db, subjectID)
	if err != nil {
		return nil, s.fail("criteria_set_history", err)
	}
	return out, nil
}

// ReplaceCriteriaSet validates items and atomically supersedes the
// subject's current set with a new version.
func (s *Service) ReplaceCriteriaSet(ctx context.Context, actor models.Actor, subjectID int64, items []models.CriteriaSetItemInput) (*models.CriteriaSet, error) {
	const op = "replace_criteria_set"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if _, err := db.GetPerson(ctx, s.db, subjectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, kpi.Errorf(kpi.NotFound, "subject %d not found", subjectID)
		}
		return nil, s.fail(op, err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.CriteriaID)
	}
	known, err := db.CriteriaDefaults(ctx, s.db, ids)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if errs := kpi.ValidateSetItems(items, known); len(errs) > 0 {
		return nil, kpi.Invalid("invalid criteria set", errs...)
	}

	resolved := make([]models.CriteriaSetItemInput, len(items))
	for i, it := range items {
		if it.ScaleMax == 0 {
			it.ScaleMax = known[it.CriteriaID]
		}
		resolved[i] = it
	}

	var out *models.CriteriaSet
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		out, err = db.ReplaceCriteriaSet(ctx, tx, subjectID, actor.ID, resolved, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	metrics.CriteriaReplacements.Inc()
	s.logger(ctx).Info("criteria set replaced",
		zap.Int64("subject_id", subjectID), zap.Int("version", out.Version), zap.Int("items", len(out.Items)))
	return out, nil
}
