package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/varokas/db-trends/internal/config"
	"github.com/varokas/db-trends/internal/database"
	"github.com/varokas/db-trends/internal/handler"
	"github.com/varokas/db-trends/internal/queue"
	"github.com/varokas/db-trends/internal/repository"
	"github.com/varokas/db-trends/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	totals := repository.ParseTotalMode(cfg.OwnersTotal)
	rdb := config.NewRedisClient()

	var store repository.SlotStore
	switch cfg.StoreType {
	case "redis":
		if rdb == nil {
			log.Fatal("STORE_TYPE=redis but redis is unreachable")
		}
		store = repository.NewRedisStore(rdb, totals, cfg.RedisBatchSize)
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql connect: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("mysql schema: %v", err)
		}
		cancel()
		store = repository.NewMySQLStore(db, totals, cfg.BookingTimeout)
	}

	booking := handler.NewBookingHandler(store, true)
	rounds := handler.NewRoundHandler(store, cfg.DefaultRows, cfg.DefaultCols, true)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterBooking(e, booking, rounds, rdb)

	// The consumer tails claims.accepted into logs/claims.log. It keeps
	// reconnecting on its own; the server does not depend on it.
	go func() {
		if err := queue.StartClaimsConsumer(); err != nil {
			log.Printf("claims consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s totals=%s)", addr, cfg.Env, cfg.StoreType, totals)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
