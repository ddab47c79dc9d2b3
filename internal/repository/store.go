package repository

import (
	"context"

	"github.com/varokas/db-trends/internal/model"
)

// TotalMode selects how Owners aggregates a claimant's slots into a
// leaderboard total. The two historical variants are summing the stored
// counters (total bid volume) and counting the owned seats. Sum is the
// default; the mode is fixed at store construction.
type TotalMode string

const (
	TotalSum   TotalMode = "sum"
	TotalCount TotalMode = "count"
)

// ParseTotalMode maps a configuration string onto a TotalMode, falling
// back to TotalSum for anything unrecognized.
func ParseTotalMode(s string) TotalMode {
	if TotalMode(s) == TotalCount {
		return TotalCount
	}
	return TotalSum
}

// SlotStore is the storage contract behind the claim resolution engine.
// Both implementations resolve claims with the same decision rule (see
// resolveClaims); they differ in the consistency they can promise:
//
//   - MySQLStore locks the referenced rows for the duration of one
//     MakeBookings call, so concurrent batches touching the same seat
//     serialize and lost updates are impossible.
//   - RedisStore reads a snapshot, resolves in memory and writes back
//     without locks. Two concurrent batches whose read phases interleave
//     with each other's writes can both win the same seat. Callers that
//     need strict fairness must use the MySQL store.
//
// Every method takes a context; blocking work is cancelled when the
// caller abandons the request.
type SlotStore interface {
	// NewRound creates one unclaimed slot per seat code under roundID and
	// publishes roundID as the current round. The publish happens last, so
	// claims racing against a previous round never touch the new slots.
	NewRound(ctx context.Context, roundID string, seatCodes []string) error

	// CurrentRound returns the id of the active round, or ErrNoActiveRound
	// when no round has ever been started.
	CurrentRound(ctx context.Context) (string, error)

	// MakeBookings resolves a batch of claims against the given round and
	// returns one result per claim, in input order. Losing a seat is
	// reported inside the result, never as an error.
	MakeBookings(ctx context.Context, round string, claims []model.Claim) ([]model.ClaimResult, error)

	// Bookings returns every slot of the round, claimed or not.
	Bookings(ctx context.Context, round string) ([]model.Slot, error)

	// Booked returns only the slots of the round that have an owner.
	Booked(ctx context.Context, round string) ([]model.Slot, error)

	// Owners returns the leaderboard for the round: one row per claimant
	// holding at least one slot, ordered by descending total. Ties keep
	// the order in which claimants were first seen during the scan.
	Owners(ctx context.Context, round string) ([]model.OwnerTotal, error)
}
