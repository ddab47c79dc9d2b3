package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/varokas/db-trends/internal/model"
	"github.com/varokas/db-trends/internal/queue"
	"github.com/varokas/db-trends/internal/repository"
	queue_publisher "github.com/varokas/db-trends/internal/service"
)

// BookingHandler exposes the claim engine over HTTP. Every operation
// resolves the current round first; claims are always made against the
// round that was current when the request arrived, so a round change
// mid-flight rejects stale claims instead of applying them to the new
// round's slots. The handler is storage-agnostic: it talks only to the
// SlotStore interface and does not know which adapter is behind it.
type BookingHandler struct {
	Store        repository.SlotStore // slot storage backend, selected at startup
	PublishEvent bool                 // when true, accepted claims are announced on the broker
}

// NewBookingHandler constructs a BookingHandler around the given store.
func NewBookingHandler(store repository.SlotStore, publishEvents bool) *BookingHandler {
	if store == nil {
		panic("nil store passed to NewBookingHandler")
	}
	return &BookingHandler{Store: store, PublishEvent: publishEvents}
}

// GetBookings handles GET /api/booking. It returns every slot of the
// current round, claimed or not, for the seat grid UI to render.
func (h *BookingHandler) GetBookings(c echo.Context) error {
	ctx := c.Request().Context()
	round, err := h.Store.CurrentRound(ctx)
	if err != nil {
		return storeError(c, err)
	}
	slots, err := h.Store.Bookings(ctx, round)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

// GetBooked handles GET /api/booking/booked. It returns only the slots
// of the current round that have an owner.
func (h *BookingHandler) GetBooked(c echo.Context) error {
	ctx := c.Request().Context()
	round, err := h.Store.CurrentRound(ctx)
	if err != nil {
		return storeError(c, err)
	}
	slots, err := h.Store.Booked(ctx, round)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

// GetOwners handles GET /api/booking/owners. It returns the leaderboard
// of the current round, recomputed from current ownership on every call.
func (h *BookingHandler) GetOwners(c echo.Context) error {
	ctx := c.Request().Context()
	round, err := h.Store.CurrentRound(ctx)
	if err != nil {
		return storeError(c, err)
	}
	owners, err := h.Store.Owners(ctx, round)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, owners)
}

// MakeBooking handles POST /api/makeBooking: a single claim. The body is
// one {seat, owner, counter} object. A claim that lost on its bid is
// returned with a 400 status and the rejection details so a plain client
// can tell at a glance that it did not get the seat.
func (h *BookingHandler) MakeBooking(c echo.Context) error {
	var claim model.Claim
	if err := c.Bind(&claim); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.resolve(c, []model.Claim{claim}, true)
}

// MakeBookings handles POST /api/makeBookings: a batch of claims. The
// response always carries one result per claim in input order; rejected
// claims are normal results, not errors, so a batch where every claim
// lost still returns 200.
func (h *BookingHandler) MakeBookings(c echo.Context) error {
	var claims []model.Claim
	if err := c.Bind(&claims); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.resolve(c, claims, false)
}

// resolve runs a claim batch against the current round, publishes
// accepted claims to the broker and writes the HTTP response. In single
// mode the response is the lone result, with a 400 status when it lost.
func (h *BookingHandler) resolve(c echo.Context, claims []model.Claim, single bool) error {
	if len(claims) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty claim batch"})
	}
	for _, cl := range claims {
		if cl.Seat == "" || cl.Owner == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "claims require seat and owner"})
		}
	}

	ctx := c.Request().Context()
	round, err := h.Store.CurrentRound(ctx)
	if err != nil {
		return storeError(c, err)
	}

	results, err := h.Store.MakeBookings(ctx, round, claims)
	if err != nil {
		var pw *repository.PartialWriteError
		if errors.As(err, &pw) {
			// Some chunks were applied and stand; report the seats whose
			// writes are unconfirmed so the caller can retry just those.
			// Acceptances on the failed seats were never persisted, so
			// they must not be announced either.
			h.announce(round, results, pw.Failed)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error":        "partial write, retry the listed seats",
				"failed_seats": pw.Failed,
				"results":      results,
			})
		}
		return storeError(c, err)
	}
	h.announce(round, results, nil)

	if single {
		if !results[0].Accepted() {
			return c.JSON(http.StatusBadRequest, results[0])
		}
		return c.JSON(http.StatusOK, results[0])
	}
	return c.JSON(http.StatusOK, results)
}

// announce publishes accepted claims in the background. Publishing is
// best-effort; a broker outage must not fail a booking that already
// committed. Seats in failedSeats are skipped: their acceptance was
// resolved but never persisted.
func (h *BookingHandler) announce(round string, results []model.ClaimResult, failedSeats []string) {
	if !h.PublishEvent {
		return
	}
	accepted := acceptedForAnnounce(results, failedSeats)
	if len(accepted) == 0 {
		return
	}
	ev := queue.ClaimsAcceptedEvent{
		Round:      round,
		Claims:     accepted,
		ResolvedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishClaimsAccepted(ctx, ev)
	}()
}

// acceptedForAnnounce converts the accepted results into event claims,
// dropping any seat whose write did not reach the store.
func acceptedForAnnounce(results []model.ClaimResult, failedSeats []string) []queue.AcceptedClaim {
	failed := make(map[string]bool, len(failedSeats))
	for _, seat := range failedSeats {
		failed[seat] = true
	}
	accepted := make([]queue.AcceptedClaim, 0, len(results))
	for _, r := range results {
		if !r.Accepted() || failed[r.Seat] {
			continue
		}
		accepted = append(accepted, queue.AcceptedClaim{
			Seat:       r.Seat,
			Owner:      r.Owner,
			NewCounter: r.NewCounter,
		})
	}
	return accepted
}

// storeError translates engine errors into HTTP responses. Precondition
// errors map to client-visible statuses; anything else is a storage
// failure the caller can only retry.
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNoActiveRound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active round"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("storage error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
}
