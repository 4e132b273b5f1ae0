// Package server assembles the HTTP service from its configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"videothingy/council-highlights/config"
	"videothingy/council-highlights/handlers"
	"videothingy/council-highlights/internal/db"
	"videothingy/council-highlights/internal/metrics"
	"videothingy/council-highlights/internal/notify"
	"videothingy/council-highlights/internal/session"
	"videothingy/council-highlights/internal/tasks"
	"videothingy/council-highlights/internal/worker"
	"videothingy/council-highlights/middleware"
	"videothingy/council-highlights/utils"
)

const redisPingTimeout = 3 * time.Second

// Server is the wired service.
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	app        *fiber.App
	sessions   *session.Manager
	dispatcher *worker.Dispatcher
	redis      *redis.Client
}

// New connects to Supabase (and Redis when configured) and builds the fiber
// app. The worker pool is started by Run.
func New(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	supabase, err := config.NewSupabaseClient(cfg.Supabase)
	if err != nil {
		return nil, err
	}
	store := db.NewStore(supabase, logger)
	return NewWithStore(cfg, logger, store)
}

// NewWithStore builds the service over an already constructed store.
func NewWithStore(cfg *config.Config, logger *logrus.Logger, store *db.Store) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: session.NewManager(),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewSessionCollector(s.sessions),
	)
	recorder, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	sink, err := s.connectRedis()
	if err != nil {
		return nil, err
	}

	s.dispatcher = worker.NewDispatcher(worker.Options{
		MaxWorkers:   cfg.Workers.Count,
		JobQueueSize: cfg.Workers.QueueSize,
		Logger:       logger,
		Observer:     recorder,
	})
	client := tasks.NewClient(cfg.TaskService.URL, cfg.TaskService.APIKey, cfg.TaskService.Timeout)
	renderer := tasks.NewRenderer(client, store, s.dispatcher, logger)

	h := handlers.NewApplicationHandler(handlers.Deps{
		Store:          store,
		Sessions:       s.sessions,
		Renderer:       renderer,
		Logger:         logger,
		Observer:       recorder,
		Redis:          sink,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Settings: handlers.Settings{
			ExtractTimeout:    cfg.Editing.ExtractTimeout,
			NotificationQueue: cfg.Editing.NotificationQueue,
			Playback:          cfg.PlaybackConfig(),
		},
	})

	s.app = fiber.New(fiber.Config{
		AppName:               "council-highlights",
		ErrorHandler:          utils.ErrorHandler,
		DisableStartupMessage: true,
	})
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	s.app.Use(middleware.RequestLogger(logger))
	h.RegisterRoutes(s.app)
	return s, nil
}

// connectRedis returns the notification sink publishing to Redis, or nil when
// no Redis URL is configured. An unreachable server is logged, not fatal.
func (s *Server) connectRedis() (*notify.RedisSink, error) {
	if s.cfg.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(s.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	s.redis = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		s.logger.WithError(err).Warn("Redis not reachable, notifications will not be published until it is")
	} else {
		s.logger.WithField("channel", s.cfg.Redis.Channel).Info("Publishing notifications to Redis")
	}
	return notify.NewRedisSink(s.redis, s.cfg.Redis.Channel, s.logger), nil
}

// App returns the fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the worker pool and the session sweeper, then serves HTTP until
// ctx is done or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.dispatcher.Run()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sessions.RunSweeper(sweepCtx, s.cfg.Editing.SweepInterval, s.cfg.Editing.SessionTTL, s.logger)

	addr := ":" + s.cfg.Server.Port
	listenErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Starting highlights service")
		listenErr <- s.app.Listen(addr)
	}()

	var err error
	select {
	case err = <-listenErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("listening on %s: %w", addr, err)
		}
	case <-ctx.Done():
		s.logger.Info("Shutting down highlights service")
		if shutdownErr := s.app.ShutdownWithTimeout(s.cfg.Server.ShutdownTimeout); shutdownErr != nil {
			s.logger.WithError(shutdownErr).Error("HTTP shutdown did not complete")
		}
	}

	s.dispatcher.Stop()
	if s.redis != nil {
		if closeErr := s.redis.Close(); closeErr != nil {
			s.logger.WithError(closeErr).Warn("Closing Redis client failed")
		}
	}
	return err
}
