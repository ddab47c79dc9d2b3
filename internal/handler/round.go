package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/varokas/db-trends/internal/queue"
	"github.com/varokas/db-trends/internal/repository"
	queue_publisher "github.com/varokas/db-trends/internal/service"
	"github.com/varokas/db-trends/internal/utils"
)

// RoundHandler provisions rounds: it generates the seat grid, creates the
// slots and publishes the new round id as current. Claims already in
// flight against the previous round either complete against the old
// slots or are rejected; they can never land on the new round because
// slot identity is (round, seat) and the new round id is unknown to them.
type RoundHandler struct {
	Store        repository.SlotStore
	DefaultRows  int // grid rows when the request omits them
	DefaultCols  int // grid columns when the request omits them
	PublishEvent bool
}

// NewRoundHandler constructs a RoundHandler. Non-positive defaults fall
// back to a 10x10 grid.
func NewRoundHandler(store repository.SlotStore, rows, cols int, publishEvents bool) *RoundHandler {
	if store == nil {
		panic("nil store passed to NewRoundHandler")
	}
	if rows < 1 {
		rows = 10
	}
	if cols < 1 {
		cols = 10
	}
	return &RoundHandler{Store: store, DefaultRows: rows, DefaultCols: cols, PublishEvent: publishEvents}
}

// NewRound handles POST /api/newRound. The optional body {rows, cols}
// overrides the configured grid size. It responds with the fresh round
// id and the number of seats created.
func (h *RoundHandler) NewRound(c echo.Context) error {
	var body struct {
		Rows int `json:"rows"`
		Cols int `json:"cols"`
	}
	// Body is optional; ignore bind errors from an empty payload.
	_ = c.Bind(&body)

	rows := h.DefaultRows
	cols := h.DefaultCols
	if body.Rows > 0 {
		rows = body.Rows
	}
	if body.Cols > 0 {
		cols = body.Cols
	}

	codes := utils.SeatCodes(rows, cols)
	roundID := utils.NewRoundID()

	if err := h.Store.NewRound(c.Request().Context(), roundID, codes); err != nil {
		return storeError(c, err)
	}

	if h.PublishEvent {
		ev := queue.RoundStartedEvent{
			Round:     roundID,
			Seats:     len(codes),
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishRoundStarted(ctx, ev)
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{"roundId": roundID, "seats": len(codes)})
}
