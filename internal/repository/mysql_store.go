package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/varokas/db-trends/internal/model"
)

// MySQLStore implements SlotStore on top of MySQL. One MakeBookings call
// runs inside a single transaction that locks exactly the rows of the
// referenced seats with SELECT ... FOR UPDATE, so two concurrent batches
// touching the same seat serialize and neither can act on stale state.
// Batches over disjoint seat sets do not block each other.
type MySQLStore struct {
	db        *sql.DB
	totals    TotalMode
	txTimeout time.Duration
}

// NewMySQLStore returns a MySQLStore bound to the given database. The
// timeout bounds every MakeBookings transaction so that an abandoned
// request cannot keep row locks alive; zero disables the bound.
func NewMySQLStore(db *sql.DB, totals TotalMode, txTimeout time.Duration) *MySQLStore {
	return &MySQLStore{db: db, totals: totals, txTimeout: txTimeout}
}

// execute runs fn inside a transaction. Any error from fn rolls back
// every write made so far; on success the transaction is committed. The
// connection is drawn from the pool per call and released on every exit
// path.
func (s *MySQLStore) execute(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// NewRound inserts one unclaimed booking row per seat code and publishes
// the round pointer, all in one transaction. The pointer write and the
// slot inserts commit together, so observers never see a current round
// whose slots are missing.
func (s *MySQLStore) NewRound(ctx context.Context, roundID string, seatCodes []string) error {
	return s.execute(ctx, func(tx *sql.Tx) error {
		if len(seatCodes) > 0 {
			query := `INSERT INTO booking (round, seat) VALUES `
			args := make([]interface{}, 0, len(seatCodes)*2)
			for i, code := range seatCodes {
				if i > 0 {
					query += ","
				}
				query += "(?, ?)"
				args = append(args, roundID, code)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert slots: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `REPLACE INTO config (k, v) VALUES ('round', ?)`, roundID); err != nil {
			return fmt.Errorf("publish round: %w", err)
		}
		return nil
	})
}

// CurrentRound reads the round pointer from the config table.
func (s *MySQLStore) CurrentRound(ctx context.Context) (string, error) {
	var round string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM config WHERE k = 'round'`).Scan(&round)
	if err == sql.ErrNoRows {
		return "", ErrNoActiveRound
	}
	if err != nil {
		return "", err
	}
	return round, nil
}

// MakeBookings resolves the batch inside one transaction. The existence
// check is all-or-nothing: if any referenced seat is missing from the
// round, the whole batch fails with ErrSeatNotFound and no write
// survives. Bid-related rejections are normal per-claim results and never
// abort the batch.
func (s *MySQLStore) MakeBookings(ctx context.Context, round string, claims []model.Claim) ([]model.ClaimResult, error) {
	if len(claims) == 0 {
		return []model.ClaimResult{}, nil
	}
	seats := distinctSeats(claims)
	var results []model.ClaimResult

	err := s.execute(ctx, func(tx *sql.Tx) error {
		placeholders := make([]string, len(seats))
		args := make([]interface{}, 0, len(seats)+1)
		args = append(args, round)
		for i, seat := range seats {
			placeholders[i] = "?"
			args = append(args, seat)
		}
		q := `SELECT seat, owner, counter FROM booking WHERE round = ? AND seat IN (` +
			strings.Join(placeholders, ",") + `) FOR UPDATE`

		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("lock slots: %w", err)
		}
		snapshot := make(map[string]*slotState, len(seats))
		for rows.Next() {
			var seat string
			var owner sql.NullString
			var counter sql.NullInt64
			if err := rows.Scan(&seat, &owner, &counter); err != nil {
				rows.Close()
				return err
			}
			st := &slotState{}
			if owner.Valid {
				o := owner.String
				st.owner = &o
			}
			if counter.Valid {
				n := counter.Int64
				st.counter = &n
			}
			snapshot[seat] = st
		}
		// A scan aborted mid-iteration leaves the snapshot short; that is
		// an infrastructure failure, not evidence the seats are missing.
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("lock slots: %w", err)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		var missing []string
		for _, seat := range seats {
			if snapshot[seat] == nil {
				missing = append(missing, seat)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: round %s, seats %s", ErrSeatNotFound, round, strings.Join(missing, ","))
		}

		var writes []slotWrite
		results, writes = resolveClaims(round, snapshot, claims)
		for _, w := range writes {
			if _, err := tx.ExecContext(ctx,
				`UPDATE booking SET owner = ?, counter = ? WHERE round = ? AND seat = ?`,
				w.owner, w.counter, round, w.seat,
			); err != nil {
				return fmt.Errorf("update slot %s: %w", w.seat, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Bookings returns every slot of the round ordered by seat code.
func (s *MySQLStore) Bookings(ctx context.Context, round string) ([]model.Slot, error) {
	const q = `SELECT id, round, seat, owner, counter FROM booking WHERE round = ? ORDER BY seat`
	return s.querySlots(ctx, q, round)
}

// Booked returns only the slots of the round that have an owner.
func (s *MySQLStore) Booked(ctx context.Context, round string) ([]model.Slot, error) {
	const q = `SELECT id, round, seat, owner, counter FROM booking WHERE round = ? AND owner IS NOT NULL ORDER BY seat`
	return s.querySlots(ctx, q, round)
}

func (s *MySQLStore) querySlots(ctx context.Context, query, round string) ([]model.Slot, error) {
	rows, err := s.db.QueryContext(ctx, query, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		var sl model.Slot
		var owner sql.NullString
		var counter sql.NullInt64
		if err := rows.Scan(&sl.ID, &sl.Round, &sl.Seat, &owner, &counter); err != nil {
			return nil, err
		}
		if owner.Valid {
			o := owner.String
			sl.Owner = &o
		}
		if counter.Valid {
			n := counter.Int64
			sl.Counter = &n
		}
		slots = append(slots, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Owners aggregates current ownership into leaderboard rows. The
// aggregation runs without locking and may race ahead of or behind a
// concurrent accepted claim; it reflects some recent state, not a
// point-in-time snapshot.
func (s *MySQLStore) Owners(ctx context.Context, round string) ([]model.OwnerTotal, error) {
	agg := "SUM(counter)"
	if s.totals == TotalCount {
		agg = "COUNT(counter)"
	}
	q := `SELECT ` + agg + ` AS counts, owner FROM booking WHERE round = ? AND owner IS NOT NULL GROUP BY owner ORDER BY ` + agg + ` DESC`
	rows, err := s.db.QueryContext(ctx, q, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	owners := make([]model.OwnerTotal, 0)
	for rows.Next() {
		var ot model.OwnerTotal
		if err := rows.Scan(&ot.Total, &ot.Owner); err != nil {
			return nil, err
		}
		owners = append(owners, ot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}
