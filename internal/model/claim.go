package model

// Rejection reasons reported in ClaimResult.Error.  Losing a seat to a
// higher bid is an expected outcome of the game, not a failure of the
// call, so these travel inside the per-claim result rather than as Go
// errors.
const (
	RejectBidTooLow    = "BID_TOO_LOW"
	RejectSeatNotFound = "SEAT_NOT_FOUND"
)

// Claim is a claimant's proposed bid for one seat in the current round.
// Claims are not persisted; only the effect of a winning claim is kept,
// as the slot's new (owner, counter) pair.
type Claim struct {
	Seat    string `json:"seat"`    // seat code being claimed
	Owner   string `json:"owner"`   // claimant identity
	Counter int64  `json:"counter"` // proposed bid; must strictly exceed the stored counter to win
}

// ClaimResult reports the outcome of resolving a single claim.  When the
// claim won, Owner and NewCounter describe the new slot state and Counter
// holds the counter that was displaced (nil for a previously unclaimed
// seat).  When the claim lost, Error names the reason and Owner/Counter
// describe who currently holds the seat and at what bid.
type ClaimResult struct {
	Round      string `json:"round"`
	Seat       string `json:"seat"`
	Owner      string `json:"owner,omitempty"`
	Counter    *int64 `json:"counter"`
	NewCounter int64  `json:"newCounter"`
	Error      string `json:"error,omitempty"`
}

// Accepted reports whether the claim won its seat.
func (r ClaimResult) Accepted() bool { return r.Error == "" }
