package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
	entityrepo "github.com/Ramsey-B/fern/internal/repositories/entity"
	mappingconfigrepo "github.com/Ramsey-B/fern/internal/repositories/mappingconfig"
	stagedfilerepo "github.com/Ramsey-B/fern/internal/repositories/stagedfile"
	templaterepo "github.com/Ramsey-B/fern/internal/repositories/template"
	mappingconfigsvc "github.com/Ramsey-B/fern/internal/services/mappingconfig"
	sessionsvc "github.com/Ramsey-B/fern/internal/services/session"
	suggestionsvc "github.com/Ramsey-B/fern/internal/services/suggestion"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	datasetroutes "github.com/Ramsey-B/fern/pkg/routes/dataset"
	entityroutes "github.com/Ramsey-B/fern/pkg/routes/entity"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	mappingroutes "github.com/Ramsey-B/fern/pkg/routes/mapping"
	suggestionroutes "github.com/Ramsey-B/fern/pkg/routes/suggestion"
	templateroutes "github.com/Ramsey-B/fern/pkg/routes/template"
	"github.com/Ramsey-B/fern/pkg/startup"
	suggestionpkg "github.com/Ramsey-B/fern/pkg/suggestion"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Errorf("failed to bind config: %w", err))
	}

	logger := newLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("failed to initialize tracing")
		} else {
			defer shutdown(context.Background())
		}
	}

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build application")
		os.Exit(1)
	}

	kit := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	kit.AddDependency(app.databaseDependency())
	kit.AddDependency(app.migrationDependency())
	kit.AddDependency(app.redisDependency())
	kit.AddDependency(app.kafkaDependency())
	kit.AddDependency(app.httpDependency())

	if err := kit.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}
	app.checker.SetReady(true)
	logger.WithField("port", cfg.Port).Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	app.checker.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := kit.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown did not complete cleanly")
		os.Exit(1)
	}
}

// app holds every wired component. Construction is eager so that a missing
// dependency fails at boot, not on the first request.
type app struct {
	cfg      config.Config
	logger   ectologger.Logger
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	saver    *mappingconfigsvc.DebouncedSaver
	checker  *health.Checker
	echo     *echo.Echo

	consumerHandler kafka.MessageHandler
}

func buildApp(ctx context.Context, cfg config.Config, logger ectologger.Logger) (*app, error) {
	db, err := database.Connect(database.ConnectConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	producerConfig := kafka.DefaultProducerConfig()
	producerConfig.Brokers = cfg.KafkaBrokers
	producerConfig.Topic = cfg.KafkaEventTopic
	producerConfig.BatchSize = cfg.KafkaBatchSize
	producerConfig.BatchTimeout = time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond
	producerConfig.RequiredAcks = cfg.KafkaRequiredAcks
	producerConfig.Compression = cfg.KafkaCompression
	producer, err := kafka.NewProducer(producerConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	configRepo := mappingconfigrepo.NewRepository(db, logger)
	templateRepo := templaterepo.NewRepository(db, logger)
	entityRepo := entityrepo.NewRepository(db, logger)
	stagedFileRepo := stagedfilerepo.NewRepository(redisClient, cfg.StagedFileTTL, logger)

	sessions := sessionsvc.NewManager(templateRepo, entityRepo, logger)
	service := mappingconfigsvc.NewService(configRepo, templateRepo, stagedFileRepo, sessions, producer, logger)
	saver := mappingconfigsvc.NewDebouncedSaver(service, time.Duration(cfg.SaveDebounceMs)*time.Millisecond, logger)
	importer := suggestionpkg.NewImporter(logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumerConfig := kafka.DefaultConsumerConfig()
		consumerConfig.Brokers = cfg.KafkaBrokers
		consumerConfig.Topic = cfg.KafkaSuggestionTopic
		consumerConfig.GroupID = cfg.KafkaConsumerGroup
		consumer, err = kafka.NewConsumer(consumerConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
		}
	}

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, fmt.Errorf("failed to create DI container: %w", err)
	}
	if err := registerDependencies(container, sessions, service, saver, importer, configRepo, templateRepo, entityRepo, stagedFileRepo); err != nil {
		return nil, err
	}

	checker := health.NewChecker(db, redisClient, version)
	e := newEcho(cfg, logger, checker)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		producer: producer,
		consumer: consumer,
		saver:    saver,
		checker:  checker,
		echo:     e,
	}

	if consumer != nil {
		handler := suggestionsvc.NewHandler(sessions, importer, saver, service, logger)
		a.consumerHandler = handler.Handle
	}

	return a, nil
}

func registerDependencies(
	container ectocontainer.DIContainer,
	sessions *sessionsvc.Manager,
	service *mappingconfigsvc.Service,
	saver *mappingconfigsvc.DebouncedSaver,
	importer *suggestionpkg.Importer,
	configRepo mappingconfigrepo.MappingConfigRepository,
	templateRepo templaterepo.TemplateRepository,
	entityRepo entityrepo.EntityRepository,
	stagedFileRepo stagedfilerepo.StagedFileRepository,
) error {
	if err := ectoinject.RegisterInstance[*sessionsvc.Manager](container, sessions); err != nil {
		return fmt.Errorf("failed to register session manager: %w", err)
	}
	if err := ectoinject.RegisterInstance[*mappingconfigsvc.Service](container, service); err != nil {
		return fmt.Errorf("failed to register mapping config service: %w", err)
	}
	if err := ectoinject.RegisterInstance[*mappingconfigsvc.DebouncedSaver](container, saver); err != nil {
		return fmt.Errorf("failed to register debounced saver: %w", err)
	}
	if err := ectoinject.RegisterInstance[*suggestionpkg.Importer](container, importer); err != nil {
		return fmt.Errorf("failed to register suggestion importer: %w", err)
	}
	if err := ectoinject.RegisterInstance[mappingconfigrepo.MappingConfigRepository](container, configRepo); err != nil {
		return fmt.Errorf("failed to register mapping config repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[templaterepo.TemplateRepository](container, templateRepo); err != nil {
		return fmt.Errorf("failed to register template repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[entityrepo.EntityRepository](container, entityRepo); err != nil {
		return fmt.Errorf("failed to register entity repository: %w", err)
	}
	if err := ectoinject.RegisterInstance[stagedfilerepo.StagedFileRepository](container, stagedFileRepo); err != nil {
		return fmt.Errorf("failed to register staged file repository: %w", err)
	}
	return nil
}

func newEcho(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	if !cfg.AuthEnabled {
		e.Use(middleware.TestAuth())
	}
	e.Use(middleware.Logger(logger))
	e.Use(diMiddleware())
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	templateroutes.Register(v1.Group("/templates"))

	company := v1.Group("/companies/:companyId")
	entityroutes.Register(company.Group("/entities"))
	datasetroutes.Register(company.Group("/files"))
	mappingroutes.Register(company.Group("/mappings/:statementType"))
	mappingroutes.RegisterRestore(company)
	suggestionroutes.Register(company.Group("/suggestions"))

	return e
}

// defaultContainerID is the ID NewDIDefaultContainer registers itself under.
const defaultContainerID = "default"

// diMiddleware puts the default DI container scope on the request context so
// that handlers can resolve dependencies with ectoinject.GetContext.
func diMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), defaultContainerID)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapConfig := zap.NewProductionConfig()
		if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
		zapLogger, _ = zapConfig.Build()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))
	return provider.Shutdown, nil
}
