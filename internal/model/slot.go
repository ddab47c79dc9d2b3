package model

// Slot is one contended seat within a round.  Slots are versioned per
// round: starting a new round creates a fresh record for every seat code
// and never reuses records from earlier rounds.  A slot starts with no
// owner and no counter; both are set together by the first accepted claim
// and only ever replaced by a claim carrying a strictly higher counter.
type Slot struct {
	ID      uint64  `json:"id,omitempty"` // booking.id
	Round   string  `json:"round"`        // booking.round
	Seat    string  `json:"seat"`         // booking.seat
	Owner   *string `json:"owner"`        // booking.owner, NULL until claimed
	Counter *int64  `json:"counter"`      // booking.counter, NULL until claimed
}

// Claimed reports whether the slot currently has an owner.
func (s Slot) Claimed() bool { return s.Owner != nil }
