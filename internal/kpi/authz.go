package kpi

import "github.com/ahsandevhub/wetrain-kpi/internal/models"

// Require checks that the actor is identified and holds at least min.
func Require(a models.Actor, min models.Role) error {
	if a.ID == 0 || !a.Role.Valid() {
		return Errorf(Unauthorized, "no identity")
	}
	if a.Role.Rank() < min.Rank() {
		return Errorf(Forbidden, "role %s required", min)
	}
	return nil
}

// RequireMarker allows the marker themselves or an administrator.
func RequireMarker(a models.Actor, markerID int64) error {
	if err := Require(a, models.Employee); err != nil {
		return err
	}
	if a.ID != markerID && a.Role.Rank() < models.Admin.Rank() {
		return Errorf(Forbidden, "cannot submit on behalf of marker %d", markerID)
	}
	return nil
}
