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

type FundTransition struct {
	EntryID      int64
	To           models.FundStatus
	ActualAmount *int64
	Note         *string
}

// TransitionFundEntry moves an entry through its settlement workflow.
func (s *Service) TransitionFundEntry(ctx context.Context, actor models.Actor, req FundTransition) (*models.FundLogEntry, error) {
	const op = "transition_fund_entry"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.FundLogEntry
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := db.GetFundEntryForUpdate(ctx, tx, req.EntryID)
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "fund entry %d not found", req.EntryID)
		}
		if err != nil {
			return err
		}
		now := s.clock.Now()
		next, err := kpi.Transition(*cur, kpi.TransitionRequest{
			To:           req.To,
			ActualAmount: req.ActualAmount,
			Note:         req.Note,
			By:           actor.ID,
			At:           now,
		})
		if err != nil {
			return err
		}
		if err := db.SaveFundEntry(ctx, tx, next, now); err != nil {
			return err
		}
		next.UpdatedAt = now
		out = next
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	metrics.FundTransitions.WithLabelValues(string(out.EntryType), string(out.Status)).Inc()
	s.logger(ctx).Info("fund entry transitioned",
		zap.Int64("entry_id", out.ID),
		zap.String("entry_type", string(out.EntryType)),
		zap.String("status", string(out.Status)),
		zap.Int64("by", actor.ID))
	return &out, nil
}

// DeleteFundEntry removes the entry permanently.
func (s *Service) DeleteFundEntry(ctx context.Context, actor models.Actor, id int64) error {
	if err := kpi.Require(actor, models.SuperAdmin); err != nil {
		return err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := db.DeleteFundEntry(ctx, s.db, id)
	if errors.Is(err, db.ErrNotFound) {
		return kpi.Errorf(kpi.NotFound, "fund entry %d not found", id)
	}
	if err != nil {
		return s.fail("delete_fund_entry", err)
	}
	s.logger(ctx).Warn("fund entry deleted", zap.Int64("entry_id", id), zap.Int64("by", actor.ID))
	return nil
}

func (s *Service) GetFundEntry(ctx context.Context, id int64) (*models.FundLogEntry, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	e, err := db.GetFundEntry(ctx, s.db, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "fund entry %d not found", id)
	}
	if err != nil {
		return nil, s.fail("get_fund_entry", err)
	}
	return e, nil
}

// FundEntryFor returns the result's entry of type t, or nil when none
// exists.
func (s *Service) FundEntryFor(ctx context.Context, resultID int64, t models.FundEntryType) (*models.FundLogEntry, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	e, err := db.FundEntryFor(ctx, s.db, resultID, t)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("fund_entry_for", err)
	}
	return e, nil
}

func (s *Service) ListFundEntries(ctx context.Context, monthKey string) ([]models.FundLogEntry, error) {
	if _, _, err := s.clock.MonthRange(monthKey); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.ListFundEntries(ctx, s.db, monthKey)
	if err != nil {
		return nil, s.fail("list_fund_entries", err)
	}
	return out, nil
}
