package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varokas/db-trends/internal/model"
)

const (
	lockQuery    = `SELECT seat, owner, counter FROM booking WHERE round = ? AND seat IN (?,?) FOR UPDATE`
	updateQuery  = `UPDATE booking SET owner = ?, counter = ? WHERE round = ? AND seat = ?`
	currentQuery = `SELECT v FROM config WHERE k = 'round'`
)

func newTestMySQLStore(t *testing.T, totals TotalMode) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db, totals, 0), mock
}

// TestMySQLStore_CurrentRound covers both the present and absent round
// pointer.
func TestMySQLStore_CurrentRound(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)

	mock.ExpectQuery(regexp.QuoteMeta(currentQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("r1"))
	round, err := s.CurrentRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", round)

	mock.ExpectQuery(regexp.QuoteMeta(currentQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"v"}))
	_, err = s.CurrentRound(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveRound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_MakeBookings verifies the full transactional protocol:
// lock the referenced rows, resolve, write only the winners, commit.
func TestMySQLStore_MakeBookings(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("r1", "A0000", "A0001").
		WillReturnRows(sqlmock.NewRows([]string{"seat", "owner", "counter"}).
			AddRow("A0000", nil, nil).
			AddRow("A0001", "carol", int64(9)))
	// A0000 is won by alice; bob's bid on A0001 loses, so only one UPDATE.
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs("alice", int64(3), "r1", "A0000").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	results, err := s.MakeBookings(context.Background(), "r1", []model.Claim{
		{Seat: "A0000", Owner: "alice", Counter: 3},
		{Seat: "A0001", Owner: "bob", Counter: 4},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Accepted())
	assert.Equal(t, model.RejectBidTooLow, results[1].Error)
	assert.Equal(t, "carol", results[1].Owner)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_MakeBookings_MissingSeat verifies the all-or-nothing
// existence check: one missing seat fails the whole batch inside the
// transaction and nothing is written.
func TestMySQLStore_MakeBookings_MissingSeat(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("r1", "A0000", "Z9999").
		WillReturnRows(sqlmock.NewRows([]string{"seat", "owner", "counter"}).
			AddRow("A0000", nil, nil))
	mock.ExpectRollback()

	_, err := s.MakeBookings(context.Background(), "r1", []model.Claim{
		{Seat: "A0000", Owner: "alice", Counter: 3},
		{Seat: "Z9999", Owner: "alice", Counter: 3},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSeatNotFound)
	assert.Contains(t, err.Error(), "Z9999")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_MakeBookings_ScanErrorIsNotSeatNotFound verifies that a
// read failure mid-scan surfaces as the underlying error, not as a
// missing-seat rejection: a snapshot left short by an aborted iteration
// says nothing about whether the seats exist.
func TestMySQLStore_MakeBookings_ScanErrorIsNotSeatNotFound(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)
	boom := errors.New("connection lost mid-scan")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("r1", "A0000", "A0001").
		WillReturnRows(sqlmock.NewRows([]string{"seat", "owner", "counter"}).
			AddRow("A0000", nil, nil).
			AddRow("A0001", nil, nil).
			RowError(1, boom))
	mock.ExpectRollback()

	_, err := s.MakeBookings(context.Background(), "r1", []model.Claim{
		{Seat: "A0000", Owner: "alice", Counter: 3},
		{Seat: "A0001", Owner: "alice", Counter: 4},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSeatNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_MakeBookings_RollbackOnWriteError verifies that a write
// failure mid-batch rolls the transaction back so no partial acceptance
// survives.
func TestMySQLStore_MakeBookings_RollbackOnWriteError(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)
	boom := errors.New("connection lost")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockQuery)).
		WithArgs("r1", "A0000", "A0001").
		WillReturnRows(sqlmock.NewRows([]string{"seat", "owner", "counter"}).
			AddRow("A0000", nil, nil).
			AddRow("A0001", nil, nil))
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs("alice", int64(3), "r1", "A0000").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(updateQuery)).
		WithArgs("alice", int64(4), "r1", "A0001").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := s.MakeBookings(context.Background(), "r1", []model.Claim{
		{Seat: "A0000", Owner: "alice", Counter: 3},
		{Seat: "A0001", Owner: "alice", Counter: 4},
	})
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_NewRound verifies that the slot inserts and the round
// pointer publish commit in one transaction, slots first.
func TestMySQLStore_NewRound(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO booking (round, seat) VALUES (?, ?),(?, ?)`)).
		WithArgs("r1", "A0000", "r1", "A0001").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`REPLACE INTO config (k, v) VALUES ('round', ?)`)).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.NewRound(context.Background(), "r1", []string{"A0000", "A0001"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_Owners verifies that the configured mode picks the SQL
// aggregate.
func TestMySQLStore_Owners(t *testing.T) {
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"counts", "owner"}).
			AddRow(int64(7), "bob").
			AddRow(int64(5), "alice")
	}

	sum, mock := newTestMySQLStore(t, TotalSum)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT SUM(counter) AS counts, owner FROM booking`)).
		WithArgs("r1").
		WillReturnRows(rows())
	owners, err := sum.Owners(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, []model.OwnerTotal{{Owner: "bob", Total: 7}, {Owner: "alice", Total: 5}}, owners)
	assert.NoError(t, mock.ExpectationsWereMet())

	count, mock := newTestMySQLStore(t, TotalCount)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(counter) AS counts, owner FROM booking`)).
		WithArgs("r1").
		WillReturnRows(rows())
	_, err = count.Owners(context.Background(), "r1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestMySQLStore_Bookings verifies slot scanning including NULL
// owner/counter handling.
func TestMySQLStore_Bookings(t *testing.T) {
	s, mock := newTestMySQLStore(t, TotalSum)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, round, seat, owner, counter FROM booking WHERE round = ? ORDER BY seat`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "round", "seat", "owner", "counter"}).
			AddRow(int64(1), "r1", "A0000", "alice", int64(3)).
			AddRow(int64(2), "r1", "A0001", nil, nil))

	slots, err := s.Bookings(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.NotNil(t, slots[0].Owner)
	assert.Equal(t, "alice", *slots[0].Owner)
	assert.Nil(t, slots[1].Owner)
	assert.Nil(t, slots[1].Counter)

	assert.NoError(t, mock.ExpectationsWereMet())
}
