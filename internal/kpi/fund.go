package kpi

import (
	"fmt"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// settledStatus is the only non-DUE status each entry type may reach.
var settledStatus = map[models.FundEntryType]models.FundStatus{
	models.EntryFine:  models.FundCollected,
	models.EntryBonus: models.FundPaid,
}

// TransitionRequest carries the caller-supplied parts of a status change.
type TransitionRequest struct {
	To           models.FundStatus
	ActualAmount *int64
	Note         *string
	By           int64
	At           time.Time
}

// Transition returns the entry after applying req, or InvalidInput.
// FINE settles as COLLECTED at the expected amount; BONUS settles as PAID
// with an explicit positive amount. Returning to DUE clears the settlement.
func Transition(e models.FundLogEntry, req TransitionRequest) (models.FundLogEntry, error) {
	settled, ok := settledStatus[e.EntryType]
	if !ok {
		return e, Invalid("unknown entry type", fmt.Sprintf("entry_type %q", e.EntryType))
	}
	if req.Note != nil {
		e.Note = req.Note
	}
	switch req.To {
	case models.FundDue:
		e.Status = models.FundDue
		e.ActualAmount = nil
		e.MarkedBy = nil
		e.MarkedAt = nil
		return e, nil
	case settled:
	default:
		return e, Invalid("transition not allowed",
			fmt.Sprintf("%s entry cannot move to %s", e.EntryType, req.To))
	}

	var amount int64
	switch e.EntryType {
	case models.EntryFine:
		amount = e.ExpectedAmount
	case models.EntryBonus:
		if req.ActualAmount == nil || *req.ActualAmount <= 0 {
			return e, Invalid("transition not allowed", "actual_amount must be > 0 to mark a bonus PAID")
		}
		amount = *req.ActualAmount
	}
	by, at := req.By, req.At
	e.Status = settled
	e.ActualAmount = &amount
	e.MarkedBy = &by
	e.MarkedAt = &at
	return e, nil
}
