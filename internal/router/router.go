package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/varokas/db-trends/internal/config"
	"github.com/varokas/db-trends/internal/handler"
	"github.com/varokas/db-trends/internal/middleware"
)

// RegisterRoutes registers the health check on the provided Echo
// instance.  This endpoint can be used by load balancers or monitoring
// systems to verify that the service is up and running.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking registers the claim engine's API surface under /api.
// The read endpoints are polled continuously by the seat grid UI, so
// they sit behind the Redis response cache; claim submission sits behind
// the rate limiter instead.  Both middlewares degrade to pass-through
// when rdb is nil.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, r *handler.RoundHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Read side: current round state, claimed slots and the leaderboard.
	e.GET("/api/booking", b.GetBookings, cache)
	e.GET("/api/booking/booked", b.GetBooked, cache)
	e.GET("/api/booking/owners", b.GetOwners, cache)

	// Write side: single claim, claim batch, round provisioning.
	e.POST("/api/makeBooking", b.MakeBooking, limit)
	e.POST("/api/makeBookings", b.MakeBookings, limit)
	e.POST("/api/newRound", r.NewRound)
}
