package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking-engine/internal/booking"
	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/hold"
	"github.com/iliyamo/cinema-booking-engine/internal/logging"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/router"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logging.Init(cfg.Env)
	log := logrus.NewEntry(logrus.StandardLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	st, err := openStore(ctx, cfg, clk)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer st.Close()

	holds := hold.NewManager(st.Inventory, clk, hold.WithDefaultTTL(cfg.HoldTTL), hold.WithLogger(log))
	engine := pricing.NewEngine(st.Prices, st.Promotions)
	opts := []booking.Option{booking.WithLogger(log)}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, booking.WithPublisher(service.NewPublisher(cfg.RabbitMQURL)))
	}
	committer := booking.NewCommitter(holds, engine, st.UnitOfWork, opts...)
	sweeper := hold.NewSweeper(st.Inventory, clk, cfg.SweepInterval, log)

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		log.WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.CorrelationID(logrus.StandardLogger()))
	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(st.Inventory, engine, clk), middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterCustomer(e, handler.NewCustomerHandler(holds, committer, st.Bookings), cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, rdb))
	router.RegisterOwner(e, handler.NewOwnerHandler(st.Inventory, holds), cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogPath, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.Store}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}
