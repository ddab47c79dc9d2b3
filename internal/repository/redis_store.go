package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/varokas/db-trends/internal/model"
)

// DefaultBatchSize is the number of keys sent per network call when the
// Redis store reads or writes slots in bulk. It mirrors the batch limits
// of hosted key-value stores (20-25 items per request) so the access
// pattern stays portable.
const DefaultBatchSize = 25

const currentRoundKey = "round:current"

// RedisStore implements SlotStore over Redis, which offers per-key atomic
// writes but no multi-key transactions. A MakeBookings call batch-reads
// the referenced slots, resolves the claims in memory against that
// snapshot, then batch-writes only the winners.
//
// This is deliberately weaker than MySQLStore: two concurrent batches
// whose read phases interleave with each other's write phases can both
// win the same seat. Correctness here rests on the read-write window
// being short and per-seat contention being rare; callers that need
// strict fairness must use the MySQL store.
type RedisStore struct {
	rdb       *redis.Client
	totals    TotalMode
	batchSize int
}

// NewRedisStore returns a RedisStore using the given client. batchSize
// caps the keys per MGET/pipeline call; values below one fall back to
// DefaultBatchSize.
func NewRedisStore(rdb *redis.Client, totals TotalMode, batchSize int) *RedisStore {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &RedisStore{rdb: rdb, totals: totals, batchSize: batchSize}
}

// slotValue is the JSON document stored per slot key. An unclaimed slot
// is the empty document; owner and counter appear together once the
// first claim is accepted.
type slotValue struct {
	Owner   *string `json:"owner,omitempty"`
	Counter *int64  `json:"counter,omitempty"`
}

func slotKey(round, seat string) string { return "slot:" + round + ":" + seat }
func roundSlotsKey(round string) string { return "slots:" + round }

// NewRound writes one empty slot document per seat code, records the
// seat codes in the round's index set, and publishes the round pointer
// last. The pointer flips only after every slot write succeeded, so a
// reader that sees the new round always finds its slots.
func (s *RedisStore) NewRound(ctx context.Context, roundID string, seatCodes []string) error {
	for _, chunk := range chunkStrings(seatCodes, s.batchSize) {
		pipe := s.rdb.Pipeline()
		members := make([]interface{}, 0, len(chunk))
		for _, code := range chunk {
			pipe.Set(ctx, slotKey(roundID, code), "{}", 0)
			members = append(members, code)
		}
		pipe.SAdd(ctx, roundSlotsKey(roundID), members...)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("create slots: %w", err)
		}
	}
	if err := s.rdb.Set(ctx, currentRoundKey, roundID, 0).Err(); err != nil {
		return fmt.Errorf("publish round: %w", err)
	}
	return nil
}

// CurrentRound reads the round pointer.
func (s *RedisStore) CurrentRound(ctx context.Context) (string, error) {
	round, err := s.rdb.Get(ctx, currentRoundKey).Result()
	if err == redis.Nil {
		return "", ErrNoActiveRound
	}
	if err != nil {
		return "", err
	}
	return round, nil
}

// MakeBookings resolves the batch against a snapshot read in chunked
// MGET calls, then writes the winners back in chunked pipelines. Claims
// for seats that do not exist in the round are rejected per claim with
// SEAT_NOT_FOUND; with no row locks there is nothing to gain from
// failing the rest of the batch.
//
// Write chunks are independent: when a chunk fails, chunks already
// applied stand and the remaining seats are reported in a
// PartialWriteError alongside the results, so the caller can retry just
// the failed subset. Cancellation stops issuing further chunks;
// chunks already sent are not recalled.
func (s *RedisStore) MakeBookings(ctx context.Context, round string, claims []model.Claim) ([]model.ClaimResult, error) {
	seats := distinctSeats(claims)
	snapshot := make(map[string]*slotState, len(seats))

	for _, chunk := range chunkStrings(seats, s.batchSize) {
		keys := make([]string, len(chunk))
		for i, seat := range chunk {
			keys[i] = slotKey(round, seat)
		}
		vals, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("read slots: %w", err)
		}
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue // key absent: seat does not exist in this round
			}
			var sv slotValue
			if err := json.Unmarshal([]byte(raw), &sv); err != nil {
				return nil, fmt.Errorf("decode slot %s: %w", chunk[i], err)
			}
			snapshot[chunk[i]] = &slotState{owner: sv.Owner, counter: sv.Counter}
		}
	}

	results, writes := resolveClaims(round, snapshot, claims)

	var failed []string
	var firstErr error
	chunks := chunkWrites(writes, s.batchSize)
	for ci, chunk := range chunks {
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			for _, rest := range chunks[ci:] {
				for _, w := range rest {
					failed = append(failed, w.seat)
				}
			}
			break
		}
		pipe := s.rdb.Pipeline()
		for _, w := range chunk {
			owner, counter := w.owner, w.counter
			body, err := json.Marshal(slotValue{Owner: &owner, Counter: &counter})
			if err != nil {
				return nil, err
			}
			pipe.Set(ctx, slotKey(round, w.seat), string(body), 0)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			for _, w := range chunk {
				failed = append(failed, w.seat)
			}
		}
	}
	if len(failed) > 0 {
		return results, &PartialWriteError{Failed: failed, Err: firstErr}
	}
	return results, nil
}

// Bookings returns every slot of the round ordered by seat code.
func (s *RedisStore) Bookings(ctx context.Context, round string) ([]model.Slot, error) {
	return s.scanSlots(ctx, round, false)
}

// Booked returns only the slots of the round that have an owner.
func (s *RedisStore) Booked(ctx context.Context, round string) ([]model.Slot, error) {
	return s.scanSlots(ctx, round, true)
}

func (s *RedisStore) scanSlots(ctx context.Context, round string, claimedOnly bool) ([]model.Slot, error) {
	seats, err := s.rdb.SMembers(ctx, roundSlotsKey(round)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(seats)

	slots := make([]model.Slot, 0, len(seats))
	for _, chunk := range chunkStrings(seats, s.batchSize) {
		keys := make([]string, len(chunk))
		for i, seat := range chunk {
			keys[i] = slotKey(round, seat)
		}
		vals, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("read slots: %w", err)
		}
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue // slot deleted out from under the index set
			}
			var sv slotValue
			if err := json.Unmarshal([]byte(raw), &sv); err != nil {
				return nil, fmt.Errorf("decode slot %s: %w", chunk[i], err)
			}
			if claimedOnly && sv.Owner == nil {
				continue
			}
			slots = append(slots, model.Slot{
				Round:   round,
				Seat:    chunk[i],
				Owner:   sv.Owner,
				Counter: sv.Counter,
			})
		}
	}
	return slots, nil
}

// Owners aggregates current ownership in memory. The scan walks seats in
// code order, so ties in the total keep the order in which claimants
// were first seen, matching the stable ordering of the SQL path.
func (s *RedisStore) Owners(ctx context.Context, round string) ([]model.OwnerTotal, error) {
	slots, err := s.Booked(ctx, round)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64)
	order := make([]string, 0)
	for _, sl := range slots {
		owner := *sl.Owner
		if _, seen := totals[owner]; !seen {
			order = append(order, owner)
		}
		if s.totals == TotalCount {
			totals[owner]++
		} else if sl.Counter != nil {
			totals[owner] += *sl.Counter
		}
	}
	owners := make([]model.OwnerTotal, 0, len(order))
	for _, o := range order {
		owners = append(owners, model.OwnerTotal{Owner: o, Total: totals[o]})
	}
	sort.SliceStable(owners, func(i, j int) bool { return owners[i].Total > owners[j].Total })
	return owners, nil
}

// chunkStrings splits items into consecutive chunks of at most size.
func chunkStrings(items []string, size int) [][]string {
	if size < 1 {
		size = DefaultBatchSize
	}
	var chunks [][]string
	for len(items) > 0 {
		n := size
		if len(items) < n {
			n = len(items)
		}
		chunks = append(chunks, items[:n])
		items = items[n:]
	}
	return chunks
}

// chunkWrites splits writes into consecutive chunks of at most size.
func chunkWrites(writes []slotWrite, size int) [][]slotWrite {
	if size < 1 {
		size = DefaultBatchSize
	}
	var chunks [][]slotWrite
	for len(writes) > 0 {
		n := size
		if len(writes) < n {
			n = len(writes)
		}
		chunks = append(chunks, writes[:n])
		writes = writes[n:]
	}
	return chunks
}
