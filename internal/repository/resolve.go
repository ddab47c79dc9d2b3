package repository

import (
	"github.com/varokas/db-trends/internal/model"
)

// slotState is the observed state of one seat at resolution time. A nil
// entry in the snapshot means the seat does not exist in the round;
// owner/counter are nil while the seat is unclaimed.
type slotState struct {
	owner   *string
	counter *int64
}

// slotWrite is the final winning state to persist for one seat after a
// batch has been resolved. Only seats whose state actually changed
// produce a write.
type slotWrite struct {
	seat    string
	owner   string
	counter int64
}

// resolveClaims applies the claim resolution rule to a batch of claims
// against a snapshot of seat state. Claims are applied in batch order and
// each accepted claim updates the snapshot, so a later claim in the same
// batch can out-bid an earlier one that just won. The rule per claim:
//
//	seat missing from snapshot            -> rejected SEAT_NOT_FOUND
//	counter unset or bid > counter        -> accepted, slot taken over
//	otherwise (bid <= counter)            -> rejected BID_TOO_LOW
//
// Equal bids lose: strict inequality is required to take a seat, which
// makes re-submitting an already-applied claim a harmless rejection.
//
// It returns one result per claim plus the deduplicated list of winning
// writes, ordered by first win. The snapshot map is mutated in place.
func resolveClaims(round string, snapshot map[string]*slotState, claims []model.Claim) ([]model.ClaimResult, []slotWrite) {
	results := make([]model.ClaimResult, 0, len(claims))
	writeIdx := make(map[string]int)
	writes := make([]slotWrite, 0, len(claims))

	for _, c := range claims {
		st := snapshot[c.Seat]
		if st == nil {
			results = append(results, model.ClaimResult{
				Round:      round,
				Seat:       c.Seat,
				NewCounter: c.Counter,
				Error:      model.RejectSeatNotFound,
			})
			continue
		}

		if st.counter == nil || c.Counter > *st.counter {
			results = append(results, model.ClaimResult{
				Round:      round,
				Seat:       c.Seat,
				Owner:      c.Owner,
				Counter:    st.counter,
				NewCounter: c.Counter,
			})
			owner := c.Owner
			counter := c.Counter
			st.owner = &owner
			st.counter = &counter

			w := slotWrite{seat: c.Seat, owner: c.Owner, counter: c.Counter}
			if i, ok := writeIdx[c.Seat]; ok {
				writes[i] = w
			} else {
				writeIdx[c.Seat] = len(writes)
				writes = append(writes, w)
			}
			continue
		}

		res := model.ClaimResult{
			Round:      round,
			Seat:       c.Seat,
			Counter:    st.counter,
			NewCounter: c.Counter,
			Error:      model.RejectBidTooLow,
		}
		if st.owner != nil {
			res.Owner = *st.owner
		}
		results = append(results, res)
	}
	return results, writes
}

// distinctSeats returns the seat codes referenced by a batch, first
// occurrence order, duplicates removed.
func distinctSeats(claims []model.Claim) []string {
	seen := make(map[string]bool, len(claims))
	seats := make([]string, 0, len(claims))
	for _, c := range claims {
		if !seen[c.Seat] {
			seen[c.Seat] = true
			seats = append(seats, c.Seat)
		}
	}
	return seats
}
