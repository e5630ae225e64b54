package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// UpsertPerson mirrors a person from the external directory.
func (s *Service) UpsertPerson(ctx context.Context, actor models.Actor, p models.Person) (*models.Person, error) {
	const op = "upsert_person"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	if err := kpi.ValidateStruct(p); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.UpsertPerson(ctx, s.db, p)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return out, nil
}

// SetPersonActive freezes or resumes future writes for a person; history
// is untouched.
func (s *Service) SetPersonActive(ctx context.Context, actor models.Actor, personID int64, active bool) error {
	const op = "set_person_active"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if err := db.SetPersonActive(ctx, s.db, personID, active); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "person %d not found", personID)
		}
		return s.fail(op, err)
	}
	s.logger(ctx).Info("person activity changed", zap.Int64("person_id", personID), zap.Bool("active", active))
	return nil
}

func (s *Service) CreateAssignment(ctx context.Context, actor models.Actor, markerID, subjectID int64) (*models.Assignment, error) {
	const op = "create_assignment"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	a := models.Assignment{MarkerID: markerID, SubjectID: subjectID, CreatedBy: actor.ID}
	if err := kpi.ValidateStruct(a); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	for _, id := range []int64{markerID, subjectID} {
		if _, err := db.GetPerson(ctx, s.db, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, kpi.Errorf(kpi.NotFound, "person %d not found", id)
			}
			return nil, s.fail(op, err)
		}
	}
	out, err := db.CreateAssignment(ctx, s.db, a)
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.logger(ctx).Info("assignment active",
		zap.Int64("assignment_id", out.ID), zap.Int64("marker_id", markerID), zap.Int64("subject_id", subjectID))
	return out, nil
}

// SetAssignmentActive soft-deactivates or reactivates an assignment.
// Assignments are never deleted.
func (s *Service) SetAssignmentActive(ctx context.Context, actor models.Actor, assignmentID int64, active bool) (*models.Assignment, error) {
	const op = "set_assignment_active"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.SetAssignmentActive(ctx, s.db, assignmentID, active)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, kpi.Errorf(kpi.NotFound, "assignment %d not found", assignmentID)
		}
		return nil, s.fail(op, err)
	}
	return out, nil
}

func (s *Service) ActiveMarkersFor(ctx context.Context, subjectID int64) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ids, err := db.ActiveMarkerIDs(ctx, s.db, subjectID)
	if err != nil {
		return nil, s.fail("active_markers", err)
	}
	return ids, nil
}

func (s *Service) SubjectsWithActiveAssignments(ctx context.Context) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ids, err := db.SubjectsWithActiveAssignments(ctx, s.db)
	if err != nil {
		return nil, s.fail("active_subjects", err)
	}
	return ids, nil
}
