// README: Entry point; loads config, wires module services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"courier/internal/config"
	"courier/internal/docs"
	"courier/internal/events"
	httptransport "courier/internal/http"
	"courier/internal/infra"
	"courier/internal/maps"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/trip"
	"courier/internal/modules/wallet"
	"courier/internal/notify"
	"courier/internal/orders"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error("postgres connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		conn, ch, err := infra.NewRabbit(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Error("rabbitmq connect", "err", err)
			os.Exit(1)
		}
		defer conn.Close()
		defer ch.Close()
		publisher = events.NewRabbitPublisher(ch, cfg.AMQP.Exchange)
	}

	var distance trip.DistanceEstimator
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Error("maps client", "err", err)
			os.Exit(1)
		}
		distance = rs
	}

	var notifier trip.AssignmentNotifier
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := notify.NewFCM(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Error("firebase init", "err", err)
			os.Exit(1)
		}
		notifier = fcm
	}

	storage, err := docs.NewStorage(cfg.Docs.Dir)
	if err != nil {
		log.Error("document storage", "err", err)
		os.Exit(1)
	}

	orderClient := orders.NewClient(
		cfg.OrderService.BaseURL,
		cfg.OrderService.Timeout,
		cfg.OrderService.BreakerTrips,
		cfg.OrderService.BreakerReset,
		log,
	)

	driverStore := driver.NewStore(pool)
	tripStore := trip.NewStore(pool)
	driverSvc := driver.NewService(driverStore, tripStore, publisher, log)

	walletSvc := wallet.NewService(pool, publisher, log)

	tripSvc := trip.NewService(pool, tripStore, driverStore, orderClient, walletSvc, distance, notifier, publisher, log)

	locationStore := location.NewStore(pool, redisClient)
	locationSvc := location.NewService(locationStore, cfg.Nearby.DefaultRadiusKm, cfg.Nearby.MaxResults, log)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Drivers:   driverSvc,
		Wallets:   walletSvc,
		Trips:     tripSvc,
		Locations: locationSvc,
		Documents: storage,
		JWTSecret: cfg.Auth.JWTSecret,
		Log:       log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server", "err", err)
		os.Exit(1)
	}
}
