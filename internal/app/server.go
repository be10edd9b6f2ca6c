// Package app wires configuration, storage, messaging and HTTP into the
// runnable processes started from cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/building-management/internal/cache"
	"github.com/iliyamo/building-management/internal/config"
	"github.com/iliyamo/building-management/internal/database"
	"github.com/iliyamo/building-management/internal/handler"
	"github.com/iliyamo/building-management/internal/middleware"
	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
	"github.com/iliyamo/building-management/internal/router"
	"github.com/iliyamo/building-management/internal/service"
	"github.com/iliyamo/building-management/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

// RunServer starts the HTTP API and blocks until ctx is cancelled or the
// listener fails.  In-flight requests get shutdownTimeout to finish.
func RunServer(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		LockWaitTimeout: cfg.DBLockWaitSec,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and calendar cache disabled", zap.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitMQURL, log)
		defer pub.Close()
		events = pub
	}

	rooms := repository.NewRoomRepo(db)
	reservations := repository.NewReservationRepo(db)
	projectors := repository.NewProjectorRepo(db)
	calendar := cache.NewCalendar(cfg.Calendar, rdb)

	roomSvc := service.NewRoomService(rooms, projectors, calendar, events)
	occupancySvc := service.NewOccupancyService(rooms, events)
	reservationSvc := service.NewReservationService(rooms, reservations, calendar, events)

	e := router.New(log)
	router.RegisterRoutes(e, router.Handlers{
		Health:       handler.Health(db),
		Rooms:        handler.NewRoomHandler(roomSvc, cfg.OperationTimeout),
		Occupancy:    handler.NewOccupancyHandler(occupancySvc, cfg.OperationTimeout),
		Reservations: handler.NewReservationHandler(reservationSvc, cfg.OperationTimeout),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
