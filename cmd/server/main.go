package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-ticket-reservation/internal/config"
	"github.com/iliyamo/bus-ticket-reservation/internal/database"
	"github.com/iliyamo/bus-ticket-reservation/internal/handler"
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware"
	"github.com/iliyamo/bus-ticket-reservation/internal/repository"
	"github.com/iliyamo/bus-ticket-reservation/internal/router"
	"github.com/iliyamo/bus-ticket-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	employees := repository.NewEmployeeRepo(db)
	routes := repository.NewRouteRepo(db)
	buses := repository.NewBusRepo(db)
	trips := repository.NewTripRepo(db)
	bookings := repository.NewBookingRepo(db)

	// The coordinator owns every seat ledger mutation.
	coordinator := service.NewReservationCoordinator(db, trips, bookings, buses)

	// Handlers.
	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	userHandler := handler.NewUserHandler(users)
	employeeHandler := handler.NewEmployeeHandler(employees)
	routeHandler := handler.NewRouteHandler(routes)
	busHandler := handler.NewBusHandler(buses)
	tripHandler := handler.NewTripHandler(trips, buses, routes, employees, coordinator)
	bookingHandler := handler.NewBookingHandler(coordinator, bookings, trips, routes)

	e := echo.New()

	// Redis backs rate limiting and the read cache.  A nil client
	// disables both; the API itself keeps working.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and caching disabled")
	}
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		rlCfg := config.LoadRateLimitConfig()
		if rlCfg.Enabled {
			e.Use(middleware.NewTokenBucket(rlCfg, rdb))
		}
		cacheCfg := config.LoadCacheConfig()
		if cacheCfg.Enabled {
			cacheMW = middleware.NewRedisCache(cacheCfg, rdb)
		}
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret)
	router.RegisterTrips(e, tripHandler, cfg.JWTSecret, cacheMW)
	router.RegisterFleet(e, busHandler, routeHandler, employeeHandler, cfg.JWTSecret, cacheMW)
	router.RegisterUsers(e, userHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
