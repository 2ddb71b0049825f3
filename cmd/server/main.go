package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/doorlist/event-admission/internal/cache"
	"github.com/doorlist/event-admission/internal/config"
	"github.com/doorlist/event-admission/internal/database"
	"github.com/doorlist/event-admission/internal/geofence"
	"github.com/doorlist/event-admission/internal/handler"
	"github.com/doorlist/event-admission/internal/ledger"
	"github.com/doorlist/event-admission/internal/middleware"
	"github.com/doorlist/event-admission/internal/queue"
	"github.com/doorlist/event-admission/internal/realtime"
	"github.com/doorlist/event-admission/internal/repository"
	"github.com/doorlist/event-admission/internal/router"
	queuepublisher "github.com/doorlist/event-admission/internal/service"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: without it the bus, cache and rate limiter all
	// degrade to no-ops and the ledgers keep working.
	rdb := config.NewRedisClient()

	eventRepo := repository.NewEventRepo(db)
	membershipRepo := repository.NewMembershipRepo(db)
	admissionRepo := repository.NewAdmissionRepo(db)
	checkinRepo := repository.NewCheckinRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	rtCfg := config.LoadRealtimeConfig()
	bus := realtime.NewBus(rdb, realtime.Options{
		ReconnectBase: rtCfg.ReconnectBase,
		MaxReconnects: rtCfg.MaxReconnects,
	})
	audit := queuepublisher.New()

	gate := ledger.NewGate(membershipRepo)
	admissions := ledger.NewAdmissionLedger(admissionRepo, eventRepo, gate, bus, audit)
	checkins := ledger.NewCheckinLedger(checkinRepo, admissionRepo, eventRepo, gate, bus, audit)

	gfCfg := config.LoadGeofenceConfig()
	guestCache := cache.NewGuestList(rdb, gfCfg.CacheTTL)
	guestCache.StartInvalidator(context.Background())

	monitor := geofence.NewMonitor(geofence.Config{
		ExitRadiusMeters:  gfCfg.ExitRadiusMeters,
		MinOutsideSamples: gfCfg.MinOutsideSamples,
		MinOutsideDwell:   gfCfg.MinOutsideDwell,
	}, eventRepo, checkins)

	go queue.StartAuditConsumer()
	go queue.StartPositionConsumer(monitor.IngestRaw)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)

	scanLimit := middleware.NewScanLimiter(config.LoadScanLimitConfig(), rdb)
	router.RegisterAdmission(e,
		handler.NewEventHandler(eventRepo),
		handler.NewAdmissionHandler(admissions, guestCache),
		handler.NewCheckinHandler(checkins),
		cfg.JWTSecret, scanLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
