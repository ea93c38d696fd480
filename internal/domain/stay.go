package domain

import "time"

const nightLength = 24 * time.Hour

// Stay is a half-open date range [CheckIn, CheckOut): the check-in day is
// occupied, the check-out day is free for the next guest.
type Stay struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Overlaps reports whether two half-open ranges intersect. Touching ranges
// (s.CheckOut == o.CheckIn) do not overlap, so back-to-back stays are legal.
func (s Stay) Overlaps(o Stay) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

// Nights returns the number of nights in the stay, the ceiling of the
// duration in whole days. A stay that is not an exact multiple of 24h still
// counts the partial day as a night.
func (s Stay) Nights() int {
	d := s.CheckOut.Sub(s.CheckIn)
	if d <= 0 {
		return 0
	}
	nights := int(d / nightLength)
	if d%nightLength != 0 {
		nights++
	}
	return nights
}
