// Package server assembles the HTTP surface and the ingestion pipeline:
// database pool plus migrations, the Kafka consumer feeding the staging
// processor, and the echo server carrying the API routes. Dependency
// injection for route handlers is configured by the embedding binary.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/stagedrecord"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/routes/fuzzycache"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/matchrun"
	"github.com/Ramsey-B/clover/pkg/routes/validation"
	"github.com/Ramsey-B/clover/pkg/startup"
)

// Version is stamped at build time.
var Version = "dev"

// Server owns the process lifecycle.
type Server struct {
	cfg     *config.Config
	logger  ectologger.Logger
	echo    *echo.Echo
	startup *startup.Startup
	checker *health.Checker

	db       *sqlx.DB
	producer *kafka.Producer
	consumer *kafka.Consumer
}

// New builds the server and registers its startup dependencies. Nothing
// connects or listens until Run is called.
func New(cfg *config.Config, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	api := e.Group("/api/v1")
	matchrun.Register(api.Group("/match-runs"))
	fuzzycache.Register(api.Group("/fuzzy-cache"))
	validation.Register(api.Group("/matching"))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		echo:    e,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	s.startup.AddDependency(&databaseDependency{server: s})
	if cfg.KafkaConsumerEnabled {
		s.startup.AddDependency(&consumerDependency{server: s})
	}
	s.startup.AddDependency(&httpDependency{server: s})

	return s
}

// Run starts every dependency in order. It returns once everything is up;
// the HTTP listener keeps serving in the background until Shutdown.
func (s *Server) Run(ctx context.Context) error {
	return s.startup.Start(ctx)
}

// Shutdown stops the dependencies in reverse order.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.startup.Stop(ctx)
}

type databaseDependency struct {
	server *Server
}

func (d *databaseDependency) GetName() string { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	s := d.server

	db, err := database.Connect(s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.db = db

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	migrations := database.NewMigrationService(s.logger, &database.MigrationConfig{
		MigrationFolderPath: s.cfg.DatabaseMigrationFolderPath,
		Version:             uint(s.cfg.DatabaseMigrationVersion),
		Force:               s.cfg.DatabaseMigrationForce,
		AutoRollback:        s.cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(s.cfg.DatabaseName, driver)
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.server.db == nil {
		return nil
	}
	return d.server.db.Close()
}

type consumerDependency struct {
	server *Server
}

func (d *consumerDependency) GetName() string { return "consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"database"} }

func (d *consumerDependency) Start(ctx context.Context) error {
	s := d.server

	s.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      s.cfg.KafkaBrokers,
		Topic:        s.cfg.KafkaOutputTopic,
		BatchSize:    s.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(s.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: s.cfg.KafkaRequiredAcks,
		Compression:  s.cfg.KafkaCompression,
	}, s.logger)

	emitter := events.NewEmitter(s.producer, s.logger)
	recordRepo := stagedrecord.NewRepository(database.NewDatabaseInstance(s.db, s.logger), s.logger)
	proc := processor.NewProcessor(s.logger, recordRepo, emitter)

	s.consumer = kafka.NewConsumer(*s.cfg, s.logger, proc.ProcessMessage)
	return s.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(ctx context.Context) error {
	s := d.server
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			return err
		}
	}
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

type httpDependency struct {
	server *Server
}

func (d *httpDependency) GetName() string { return "http" }

func (d *httpDependency) DependsOn() []string {
	if d.server.cfg.KafkaConsumerEnabled {
		return []string{"database", "consumer"}
	}
	return []string{"database"}
}

func (d *httpDependency) Start(ctx context.Context) error {
	s := d.server

	var consumerHealth interface{ Health() bool }
	if s.consumer != nil {
		consumerHealth = s.consumer
	}
	s.checker = health.NewChecker(s.db, consumerHealth, Version)
	s.checker.RegisterRoutes(s.echo)
	s.checker.SetReady(true)

	go func() {
		addr := ":" + strconv.Itoa(s.cfg.Port)
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *httpDependency) Stop(ctx context.Context) error {
	if d.server.checker != nil {
		d.server.checker.SetReady(false)
	}
	return d.server.echo.Shutdown(ctx)
}
