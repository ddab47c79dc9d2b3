// Package repository implements the seat claim resolution engine over two
// storage backends: a transactional MySQL store and a batch-consistency
// Redis store. The sentinel errors defined here are reused across both
// implementations so that higher layers such as handlers can distinguish
// between different failure scenarios. For example, ErrNoActiveRound
// indicates that no round has ever been started, while ErrSeatNotFound
// signals that a claim referenced a seat that does not exist in the
// targeted round.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoActiveRound is returned when an operation needs the current round
// but none has been started yet. Handlers should translate this into an
// HTTP 404 response.
var ErrNoActiveRound = errors.New("no active round")

// ErrSeatNotFound is returned when a claim batch references one or more
// seats that do not exist in the targeted round. On the MySQL store this
// fails the whole batch before any write is issued. Handlers should
// translate this into an HTTP 400 response.
var ErrSeatNotFound = errors.New("seat not found")

// PartialWriteError reports that a batch write on the Redis store applied
// some chunks but not others. Chunks written before the failure are not
// rolled back; the caller should retry the claims for the listed seats.
// Retrying is safe because counters are monotone, so re-submitting an
// already-applied claim is rejected rather than double-applied.
type PartialWriteError struct {
	Failed []string // seat codes whose writes were not applied
	Err    error    // first underlying write error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %d seats not applied (%s): %v",
		len(e.Failed), strings.Join(e.Failed, ","), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
