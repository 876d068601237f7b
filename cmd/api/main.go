package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tiagodcc/ikts/internal/api"
	"github.com/tiagodcc/ikts/internal/api/handlers"
	"github.com/tiagodcc/ikts/internal/application"
	"github.com/tiagodcc/ikts/internal/config"
	"github.com/tiagodcc/ikts/internal/domain"
	"github.com/tiagodcc/ikts/internal/infrastructure/indicator"
	mongoRepo "github.com/tiagodcc/ikts/internal/infrastructure/mongodb"
	"github.com/tiagodcc/ikts/internal/infrastructure/store"
	"github.com/tiagodcc/ikts/pkg/cloudevents"
	"github.com/tiagodcc/ikts/pkg/kafka"
	"github.com/tiagodcc/ikts/pkg/logging"
	"github.com/tiagodcc/ikts/pkg/metrics"
	"github.com/tiagodcc/ikts/pkg/middleware"
	"github.com/tiagodcc/ikts/pkg/mongodb"
	"github.com/tiagodcc/ikts/pkg/outbox"
	outboxMongo "github.com/tiagodcc/ikts/pkg/outbox/mongodb"
	"github.com/tiagodcc/ikts/pkg/tracing"
)

const serviceName = "cutplan-api"

// Storage backends selectable through STORAGE_BACKEND
const (
	backendFile    = "file"
	backendMongoDB = "mongodb"
)

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), loadConfig(), appDependencies{}, signalCh); err != nil {
		os.Exit(1)
	}
}

type tracerProvider interface {
	Shutdown(ctx context.Context) error
}

type mongoClient interface {
	Database() *mongo.Database
	Close(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

type outboxPublisher interface {
	Start(ctx context.Context) error
	Stop() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// repositories is one storage backend's set of repositories
type repositories struct {
	rails      domain.RailRepository
	plans      domain.PlanRepository
	workOrders domain.WorkOrderRepository
}

type appDependencies struct {
	initTracing             func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error)
	newMetrics              func(cfg *metrics.Config) *metrics.Metrics
	loadPlannerSettings     func(path string) (domain.PlannerSettings, error)
	openFileStore           func(dir string, m *metrics.Metrics, logger *logging.Logger) (repositories, error)
	newMongoClient          func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error)
	newMongoRepositories    func(db *mongo.Database, factory *cloudevents.EventFactory, m *metrics.Metrics) repositories
	newOutboxRepository     func(db *mongo.Database) outbox.Repository
	newKafkaProducer        func(cfg *kafka.Config) *kafka.Producer
	newInstrumentedProducer func(p *kafka.Producer, m *metrics.Metrics, logger *logging.Logger) *kafka.InstrumentedProducer
	closeInstrumentedProd   func(p *kafka.InstrumentedProducer) error
	newOutboxPublisher      func(repo outbox.Repository, producer *kafka.InstrumentedProducer, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher
	newNotifier             func(baseURL string, m *metrics.Metrics, logger *logging.Logger) domain.RemainderNotifier
	newHTTPServer           func(addr string, handler http.Handler) httpServer
}

func defaultDependencies() appDependencies {
	return appDependencies{
		initTracing: func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
			return tracing.Initialize(ctx, cfg)
		},
		newMetrics:          metrics.New,
		loadPlannerSettings: config.LoadPlannerSettings,
		openFileStore:       openFileStore,
		newMongoClient: func(ctx context.Context, cfg *mongodb.Config) (mongoClient, error) {
			return mongodb.NewClient(ctx, cfg)
		},
		newMongoRepositories: func(db *mongo.Database, factory *cloudevents.EventFactory, m *metrics.Metrics) repositories {
			return repositories{
				rails:      mongoRepo.NewRailRepository(db, factory, m),
				plans:      mongoRepo.NewPlanRepository(db, m),
				workOrders: mongoRepo.NewWorkOrderRepository(db, factory, m),
			}
		},
		newOutboxRepository: func(db *mongo.Database) outbox.Repository {
			return outboxMongo.NewOutboxRepository(db)
		},
		newKafkaProducer: kafka.NewProducer,
		newInstrumentedProducer: func(p *kafka.Producer, m *metrics.Metrics, logger *logging.Logger) *kafka.InstrumentedProducer {
			return kafka.NewInstrumentedProducer(p, m, logger)
		},
		closeInstrumentedProd: func(p *kafka.InstrumentedProducer) error { return p.Close() },
		newOutboxPublisher: func(repo outbox.Repository, producer *kafka.InstrumentedProducer, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
			return outbox.NewPublisher(repo, producer, logger, m, cfg)
		},
		newNotifier: indicator.New,
		newHTTPServer: func(addr string, handler http.Handler) httpServer {
			return &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
		},
	}
}

func (d appDependencies) withDefaults() appDependencies {
	def := defaultDependencies()
	if d.initTracing == nil {
		d.initTracing = def.initTracing
	}
	if d.newMetrics == nil {
		d.newMetrics = def.newMetrics
	}
	if d.loadPlannerSettings == nil {
		d.loadPlannerSettings = def.loadPlannerSettings
	}
	if d.openFileStore == nil {
		d.openFileStore = def.openFileStore
	}
	if d.newMongoClient == nil {
		d.newMongoClient = def.newMongoClient
	}
	if d.newMongoRepositories == nil {
		d.newMongoRepositories = def.newMongoRepositories
	}
	if d.newOutboxRepository == nil {
		d.newOutboxRepository = def.newOutboxRepository
	}
	if d.newKafkaProducer == nil {
		d.newKafkaProducer = def.newKafkaProducer
	}
	if d.newInstrumentedProducer == nil {
		d.newInstrumentedProducer = def.newInstrumentedProducer
	}
	if d.closeInstrumentedProd == nil {
		d.closeInstrumentedProd = def.closeInstrumentedProd
	}
	if d.newOutboxPublisher == nil {
		d.newOutboxPublisher = def.newOutboxPublisher
	}
	if d.newNotifier == nil {
		d.newNotifier = def.newNotifier
	}
	if d.newHTTPServer == nil {
		d.newHTTPServer = def.newHTTPServer
	}
	return d
}

// openFileStore loads the JSON file backend from dir
func openFileStore(dir string, m *metrics.Metrics, logger *logging.Logger) (repositories, error) {
	persister, err := store.NewFilePersister(dir)
	if err != nil {
		return repositories{}, err
	}
	s, err := store.Open(persister, logger)
	if err != nil {
		return repositories{}, err
	}
	return repositories{
		rails:      store.NewRailRepository(s.Rails, m, logger),
		plans:      store.NewPlanRepository(s.Plans, m),
		workOrders: store.NewWorkOrderRepository(s.WorkOrders, m, logger),
	}, nil
}

func run(ctx context.Context, cfg *Config, deps appDependencies, signalCh <-chan os.Signal) error {
	deps = deps.withDefaults()
	if cfg == nil {
		cfg = loadConfig()
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting cutplan API", "backend", cfg.StorageBackend)

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"

	tp, err := deps.initTracing(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := deps.newMetrics(metrics.DefaultConfig(serviceName))

	settings, err := deps.loadPlannerSettings(cfg.PlannerConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to load planner settings", "path", cfg.PlannerConfig)
		return fmt.Errorf("failed to load planner settings: %w", err)
	}
	logger.Info("Planner settings loaded",
		"minUsableLength", settings.MinUsableLength,
		"standardLengths", settings.StandardLengths,
	)

	var repos repositories
	ready := func() error { return nil }

	switch cfg.StorageBackend {
	case backendFile:
		repos, err = deps.openFileStore(cfg.DataDir, m, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to open file store", "dir", cfg.DataDir)
			return fmt.Errorf("failed to open file store: %w", err)
		}
		ready = func() error {
			_, err := os.Stat(cfg.DataDir)
			return err
		}
		logger.Info("File store opened", "dir", cfg.DataDir)

	case backendMongoDB:
		client, err := deps.newMongoClient(ctx, cfg.MongoDB)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			return fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		defer client.Close(ctx)
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

		db := client.Database()
		repos = deps.newMongoRepositories(db, cloudevents.NewEventFactory("/"+serviceName), m)
		ready = func() error { return client.HealthCheck(ctx) }

		if cfg.Kafka != nil {
			producer := deps.newInstrumentedProducer(deps.newKafkaProducer(cfg.Kafka), m, logger)
			if producer != nil {
				defer func() {
					_ = deps.closeInstrumentedProd(producer)
				}()
			}
			logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

			publisher := deps.newOutboxPublisher(deps.newOutboxRepository(db), producer, logger, m, outbox.DefaultPublisherConfig())
			if err := publisher.Start(ctx); err != nil {
				logger.WithError(err).Error("Failed to start outbox publisher")
				return fmt.Errorf("failed to start outbox publisher: %w", err)
			}
			defer func() {
				_ = publisher.Stop()
			}()
			logger.Info("Outbox publisher started")
		}

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	notifier := deps.newNotifier(cfg.IndicatorURL, m, logger)
	inventory := application.NewInventoryApplicationService(repos.rails, notifier, m, logger)
	plans := application.NewPlanApplicationService(repos.plans, inventory, settings, m, logger)
	workOrders := application.NewWorkOrderApplicationService(repos.workOrders, plans, inventory, settings, m, logger)
	transfer := application.NewTransferApplicationService(plans, inventory, logger)

	router, err := newRouter(routerConfig{
		logger:            logger,
		metrics:           m,
		openAPIValidation: cfg.OpenAPIValidation,
		corsOrigins:       cfg.CORSAllowedOrigins,
		ready:             ready,
		rails:             handlers.NewRailHandlers(inventory, transfer, logger),
		plans:             handlers.NewPlanHandlers(plans, transfer, logger),
		workOrders:        handlers.NewWorkOrderHandlers(workOrders, logger),
	})
	if err != nil {
		logger.WithError(err).Error("Failed to build router")
		return err
	}

	srv := deps.newHTTPServer(cfg.ServerAddr, router)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	if signalCh == nil {
		signalCh = make(chan os.Signal, 1)
	}
	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if pending, ok := notifier.(interface{ Wait() }); ok {
		pending.Wait()
	}

	logger.Info("Server stopped")
	return nil
}

type routeRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type routerConfig struct {
	logger            *logging.Logger
	metrics           *metrics.Metrics
	openAPIValidation bool
	corsOrigins       []string
	ready             func() error
	rails             routeRegistrar
	plans             routeRegistrar
	workOrders        routeRegistrar
}

func newRouter(cfg routerConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(cors.New(corsConfig(cfg.corsOrigins)))
	middleware.Setup(router, middleware.DefaultConfig(serviceName, cfg.logger.Logger))
	router.Use(middleware.MetricsMiddleware(cfg.metrics))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	if cfg.openAPIValidation {
		validator, err := api.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
		}
		router.Use(middleware.OpenAPIValidation(validator))
		cfg.logger.Info("OpenAPI request validation enabled")
	}

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, cfg.ready))
	router.GET("/metrics", middleware.MetricsEndpoint(cfg.metrics))

	apiV1 := router.Group("/api/v1")
	cfg.rails.RegisterRoutes(apiV1)
	cfg.plans.RegisterRoutes(apiV1)
	cfg.workOrders.RegisterRoutes(apiV1)

	return router, nil
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	StorageBackend    string
	DataDir           string
	MongoDB           *mongodb.Config
	Kafka             *kafka.Config
	IndicatorURL      string
	OpenAPIValidation bool
	PlannerConfig     string

	// CORSAllowedOrigins is empty when every origin is allowed
	CORSAllowedOrigins []string
}

func loadConfig() *Config {
	cfg := &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		StorageBackend: getEnv("STORAGE_BACKEND", backendFile),
		DataDir:        getEnv("DATA_DIR", "./data"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "cutplan"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    50,
			MinPoolSize:    2,
		},
		IndicatorURL:      getEnv("INDICATOR_URL", ""),
		OpenAPIValidation: getEnv("OPENAPI_VALIDATION", "true") == "true",
		PlannerConfig:     getEnv("PLANNER_CONFIG", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}

	if brokers := splitList(getEnv("KAFKA_BROKERS", "")); len(brokers) > 0 {
		cfg.Kafka = kafka.DefaultConfig()
		cfg.Kafka.Brokers = brokers
		cfg.Kafka.ClientID = serviceName
	}
	return cfg
}

// corsConfig lets browser clients send and read the request identity and
// operator headers
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			middleware.HeaderRequestID, middleware.HeaderCorrelationID, middleware.HeaderOperator,
		},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderCorrelationID},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
