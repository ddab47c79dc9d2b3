// Package queue defines message payloads exchanged over the message broker.
package queue

// AcceptedClaim is one winning claim inside a ClaimsAcceptedEvent.
type AcceptedClaim struct {
	Seat       string `json:"seat"`
	Owner      string `json:"owner"`
	NewCounter int64  `json:"new_counter"`
}

// ClaimsAcceptedEvent is published after a booking batch resolves with at
// least one accepted claim. It carries enough information for downstream
// consumers to log or feed analytics without querying the slot store.
// Rejected claims are not included; losing is not an event.
type ClaimsAcceptedEvent struct {
	Round      string          `json:"round"`
	Claims     []AcceptedClaim `json:"claims"`
	ResolvedAt string          `json:"resolved_at"`
}

// RoundStartedEvent is published when a new round is created and its
// round id has been made current.
type RoundStartedEvent struct {
	Round     string `json:"round"`
	Seats     int    `json:"seats"`
	StartedAt string `json:"started_at"`
}
