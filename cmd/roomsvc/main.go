package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/zefirior/tastify-services/configs"
	nats "github.com/zefirior/tastify-services/internal/nats"
	"github.com/zefirior/tastify-services/internal/roomsvc/catalog"
	roomconfig "github.com/zefirior/tastify-services/internal/roomsvc/config"
	"github.com/zefirior/tastify-services/internal/roomsvc/db"
	"github.com/zefirior/tastify-services/internal/roomsvc/game"
	handlers "github.com/zefirior/tastify-services/internal/roomsvc/handlers"
	"github.com/zefirior/tastify-services/internal/roomsvc/jobs"
	"github.com/zefirior/tastify-services/internal/roomsvc/notify"
	"github.com/zefirior/tastify-services/internal/roomsvc/service"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

const SERVICE_NAME = "room"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	config.CreateUniqueInstance(SERVICE_NAME)

	// pg connection
	dbpool, err := db.Connect(context.Background(), os.Getenv("POSTGRES_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	if err := db.Migrate(context.Background(), dbpool); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	cfg := roomconfig.Load()

	games := game.NewRegistry(cfg.DefaultGameType)
	if err := games.Register(game.NewGuessNumber(cfg.MinTargetNumber, cfg.MaxTargetNumber, cfg.HostPlays)); err != nil {
		log.Fatalf("Invalid game registry: %v", err)
	}
	if err := games.Register(game.NewSuggestTrack()); err != nil {
		log.Fatalf("Invalid game registry: %v", err)
	}
	if err := games.Validate(); err != nil {
		log.Fatalf("Invalid game registry: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	repo := store.NewRepository(dbpool)
	notifier := notify.NewNotifier(n.Conn)
	roomService := service.NewRoomService(repo, cfg, games, notifier)

	// Background jobs, advisory locked so extra instances stay idle
	runner := jobs.NewRunner(dbpool,
		jobs.NewRoundTimerJob(roomService, repo, cfg.TimerInterval),
		jobs.NewRoundAdvanceJob(roomService, repo, cfg.AdvanceInterval),
		jobs.NewRoomCleanupJob(roomService, repo, cfg.InactivityLimit, cfg.CleanupInterval),
	)

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	runner.Start(jobCtx)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(roomService, catalog.NewHTTPClient())
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("ROOM_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	stopJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
