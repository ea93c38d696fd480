package service

import (
	"context"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/internal/repo/postgres"
)

// ConflictChecker decides whether a proposed stay collides with an existing
// non-cancelled reservation on the same cottage. It is the authoritative
// check: the calendar the guest saw is only a hint and is never trusted.
type ConflictChecker struct {
	reservations postgres.ReservationsRepo
}

func NewConflictChecker(reservations postgres.ReservationsRepo) *ConflictChecker {
	return &ConflictChecker{reservations: reservations}
}

// Check reports whether stay overlaps any non-cancelled reservation on the
// cottage, excluding excludeID (the reservation being edited, "" for creates).
//
// The store narrows candidates to check_in < stay.CheckOut; the full
// half-open overlap test runs here against the fetched rows. A fetch failure
// propagates as an error — it must never read as "no conflict", or confirmed
// reservations could end up overlapping.
func (c *ConflictChecker) Check(ctx context.Context, cottageID string, stay domain.Stay, excludeID string) (bool, error) {
	candidates, err := c.reservations.ListOverlapCandidates(ctx, cottageID, stay.CheckOut, excludeID)
	if err != nil {
		return false, err
	}

	for i := range candidates {
		if stay.Overlaps(candidates[i].Stay()) {
			return true, nil
		}
	}
	return false, nil
}
