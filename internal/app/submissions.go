package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

type SubmitRequest struct {
	WeekKey   string
	MarkerID  int64
	SubjectID int64
	Scores    []models.RawScore
	Comment   *string
}

// SubmitScores upserts the marker's submission for (week, subject) and
// recomputes the subject's weekly result in the same transaction.
func (s *Service) SubmitScores(ctx context.Context, actor models.Actor, req SubmitRequest) (*models.Submission, error) {
	const op = "submit_scores"
	if err := kpi.RequireMarker(actor, req.MarkerID); err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	friday, err := s.clock.ParseWeekKey(req.WeekKey)
	if err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if friday.After(s.clock.CurrentWeek()) {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, kpi.Errorf(kpi.InvalidInput, "week %s has not started", req.WeekKey)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out *models.Submission
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		week, err := db.EnsureWeek(ctx, tx, req.WeekKey)
		if err != nil {
			return err
		}
		if s.clock.IsLocked(*week) {
			return kpi.Errorf(kpi.Forbidden, "week %s is locked", req.WeekKey)
		}
		active, err := db.IsAssignmentActive(ctx, tx, req.MarkerID, req.SubjectID)
		if err != nil {
			return err
		}
		if !active {
			return kpi.Errorf(kpi.Forbidden, "marker %d is not assigned to subject %d", req.MarkerID, req.SubjectID)
		}
		set, err := db.ActiveCriteriaSet(ctx, tx, req.SubjectID)
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "no active criteria set for subject %d", req.SubjectID)
		}
		if err != nil {
			return err
		}

		items := kpi.ItemsFromSet(*set)
		if res := kpi.Validate(items, req.Scores); !res.Valid {
			return kpi.Invalid("invalid scores", res.Errors...)
		}
		total := kpi.Score(items, req.Scores)

		if err := db.LockWeeklyResult(ctx, tx, req.SubjectID, week.ID); err != nil {
			return err
		}
		sub, err := db.UpsertSubmission(ctx, tx, models.Submission{
			WeekID:        week.ID,
			MarkerID:      req.MarkerID,
			SubjectID:     req.SubjectID,
			CriteriaSetID: set.ID,
			TotalScore:    total,
			Comment:       req.Comment,
			SubmittedAt:   s.clock.Now(),
		})
		if err != nil {
			return err
		}

		snapshot := make(map[int64]kpi.ScoreItem, len(items))
		for _, it := range items {
			snapshot[it.CriteriaID] = it
		}
		rows := make([]models.SubmissionItem, 0, len(req.Scores))
		for _, r := range req.Scores {
			it := snapshot[r.CriteriaID]
			rows = append(rows, models.SubmissionItem{
				CriteriaID: r.CriteriaID,
				ScoreRaw:   r.ScoreRaw,
				Weight:     it.Weight,
				ScaleMax:   it.ScaleMax,
			})
		}
		if sub.Items, err = db.ReplaceSubmissionItems(ctx, tx, sub.ID, rows); err != nil {
			return err
		}
		if err := s.recomputeWeekly(ctx, tx, req.SubjectID, week.ID); err != nil {
			return fmt.Errorf("recompute weekly: %w", err)
		}
		out = sub
		return nil
	})
	if err != nil {
		metrics.Submissions.WithLabelValues(submitOutcome(err)).Inc()
		return nil, s.fail(op, err)
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	metrics.SubmissionScore.Observe(out.TotalScore)
	s.logger(ctx).Info("submission stored",
		zap.String("week", req.WeekKey),
		zap.Int64("marker_id", req.MarkerID),
		zap.Int64("subject_id", req.SubjectID),
		zap.Int64("criteria_set_id", out.CriteriaSetID),
		zap.Float64("total", out.TotalScore))
	return out, nil
}

func submitOutcome(err error) string {
	switch kpi.KindOf(err) {
	case kpi.Forbidden:
		return "forbidden"
	case kpi.InvalidInput:
		return "invalid"
	case kpi.NotFound:
		return "no_criteria"
	default:
		return "error"
	}
}

// recomputeWeekly expects the weekly_results row to be locked by tx.
func (s *Service) recomputeWeekly(ctx context.Context, tx *sql.Tx, subjectID, weekID int64) error {
	totals, err := db.SubmissionTotals(ctx, tx, subjectID, weekID)
	if err != nil {
		return err
	}
	markers, err := db.ActiveMarkerIDs(ctx, tx, subjectID)
	if err != nil {
		return err
	}

	sum := 0.0
	for _, t := range totals {
		sum += t
	}
	avg := 0.0
	if len(totals) > 0 {
		avg = kpi.Round2(sum / float64(len(totals)))
	}
	complete := len(markers) > 0
	for _, m := range markers {
		if _, ok := totals[m]; !ok {
			complete = false
			break
		}
	}
	return db.SaveWeeklyResult(ctx, tx, models.WeeklyResult{
		SubjectID:       subjectID,
		WeekID:          weekID,
		AverageScore:    avg,
		SubmissionCount: len(totals),
		IsComplete:      complete,
		ComputedAt:      s.clock.Now(),
	})
}

func (s *Service) GetSubmission(ctx context.Context, weekKey string, markerID, subjectID int64) (*models.Submission, error) {
	if _, err := s.clock.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	week, err := db.GetWeekByKey(ctx, s.db, weekKey)
	if err == nil {
		var sub *models.Submission
		sub, err = db.GetSubmission(ctx, s.db, week.ID, markerID, subjectID)
		if err == nil {
			return sub, nil
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "no submission for week %s marker %d subject %d", weekKey, markerID, subjectID)
	}
	return nil, s.fail("get_submission", err)
}

func (s *Service) GetWeeklyResult(ctx context.Context, weekKey string, subjectID int64) (*models.WeeklyResult, error) {
	if _, err := s.clock.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	week, err := db.GetWeekByKey(ctx, s.db, weekKey)
	if err == nil {
		var r *models.WeeklyResult
		r, err = db.GetWeeklyResult(ctx, s.db, subjectID, week.ID)
		if err == nil {
			return r, nil
		}
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "no weekly result for week %s subject %d", weekKey, subjectID)
	}
	return nil, s.fail("get_weekly_result", err)
}

// WeeklyResultsFor returns the subject's scored weeks among weekKeys.
func (s *Service) WeeklyResultsFor(ctx context.Context, subjectID int64, weekKeys []string) ([]models.WeeklyResult, error) {
	for _, k := range weekKeys {
		if _, err := s.clock.ParseWeekKey(k); err != nil {
			return nil, err
		}
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.WeeklyResultsForWeeks(ctx, s.db, subjectID, weekKeys)
	if err != nil {
		return nil, s.fail("weekly_results_for", err)
	}
	return out, nil
}
