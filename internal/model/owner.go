package model

// OwnerTotal is one leaderboard row: a claimant together with the
// aggregate of the slots they currently hold in a round.  Depending on
// configuration the total is either the sum of the counters of their
// slots or simply the number of slots held.  Rows are derived on every
// query by scanning current ownership; they are never stored.
type OwnerTotal struct {
	Owner string `json:"owner"`  // claimant identity
	Total int64  `json:"counts"` // SUM(counter) or COUNT(counter), per config
}
