package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busticket/internal/cache"
	intconfig "busticket/internal/config"
	"busticket/internal/events"
	router "busticket/internal/http"
	"busticket/internal/http/handlers"
	"busticket/internal/repositories"
	"busticket/internal/repositories/memory"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	ledger    services.LedgerStore
	bookings  services.BookingStore
	schedules services.ScheduleStore
	fleet     services.FleetStore
}

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := handlers.Handler{TrustBodyUserID: env.JWTSecret == ""}
	var st stores
	if env.DBDriver == intconfig.DriverMemory {
		mem := memory.New()
		st = stores{ledger: mem, bookings: mem, schedules: mem, fleet: mem}
		log.Println("using in-memory store")
	} else {
		db, dialect, err := intconfig.OpenDB(ctx, env)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		h.DB, h.Dialect = db, dialect
		st = stores{
			ledger:    repositories.SeatLedgerRepo{DB: db, Dialect: dialect},
			bookings:  repositories.BookingRepo{DB: db, Dialect: dialect},
			schedules: repositories.ScheduleRepo{DB: db, Dialect: dialect},
			fleet:     repositories.BusRepo{DB: db, Dialect: dialect},
		}
	}

	ledger := services.SeatLedger{
		Store:     st.ledger,
		Schedules: st.schedules,
		Events:    events.Discard{},
		Hold:      env.SeatHold,
	}
	if env.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, env.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		ledger.Cache = cache.NewSeatMap(rdb, env.SeatMapCacheTTL)
	}
	if env.AMQPURL != "" {
		pub, err := events.NewPublisher(env.AMQPURL, env.AMQPExchange)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		ledger.Events = pub
	}

	h.Ledger = ledger
	h.Bookings = services.BookingService{
		Store:    st.bookings,
		Ledger:   ledger,
		Payments: services.ApprovingGateway{},
		Events:   ledger.Events,
	}
	h.Schedules = services.ScheduleService{
		Store:              st.schedules,
		Fleet:              st.fleet,
		UpperDeckSurcharge: env.UpperDeckSurchargeCents,
	}
	h.Fleet = services.FleetService{Store: st.fleet}

	r := router.NewRouter(env, &h)
	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return services.Sweeper{Ledger: ledger, Interval: env.SweepInterval}.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server stopped with error: %v", err)
		return
	}
	log.Println("server stopped cleanly.")
}
