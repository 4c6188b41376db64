package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companydir/internal/company/config"
	"github.com/gartstein/companydir/internal/company/controller"
	"github.com/gartstein/companydir/internal/company/db"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/handlers"
	"github.com/gartstein/companydir/internal/company/memory"
	"github.com/gartstein/companydir/internal/company/mongodb"
	"github.com/gartstein/companydir/internal/company/seed"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

var (
	version = "dev"
	cli     struct {
		Config   string `help:"Path to the YAML config file." default:"internal/company/config/config.yaml" env:"COMPANY_CONFIG"`
		Store    string `help:"Override the configured store (memory, mongo, postgres)."`
		HTTPPort int    `help:"Override the configured HTTP port." name:"http-port"`
		Version  kong.VersionFlag
	}
)

type eventProducer interface {
	controller.EventProducer
	Close()
}

func main() {
	kong.Parse(&cli,
		kong.Description("Company directory server."),
		kong.Vars{"version": version},
	)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if cfg.Source != "" {
		logger.Info("Loaded configuration", zap.String("path", cfg.Source))
	} else {
		logger.Warn("Config file not found, using defaults", zap.String("path", cli.Config))
	}

	ctx := context.Background()

	repo, err := connectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.String("store", string(cfg.Store)), zap.Error(err))
	}

	producer := initProducer(cfg, logger)
	companySvc := controller.NewCompanyService(repo, producer, logger)

	if cfg.Seed {
		if _, err := seed.Seed(ctx, companySvc, logger); err != nil {
			logger.Error("failed to seed sample data", zap.Error(err))
		}
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	companyHandler := handlers.NewCompanyHandler(companySvc, logger)
	if err := server.RegisterHTTPHandler(companyHandler, cfg.CORSAllowedOrigins); err != nil {
		logger.Fatal("Failed to register HTTP handler", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)

	producer.Close()
	if err := repo.Close(); err != nil {
		logger.Error("failed to close store", zap.Error(err))
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Store != "" {
		cfg.Store = config.StoreKind(cli.Store)
	}
	if cli.HTTPPort != 0 {
		cfg.HTTPPort = cli.HTTPPort
	}
	return cfg, cfg.Validate()
}

// connectStore opens the configured backend, retrying external stores with
// exponential backoff. Giving up is fatal for the caller.
func connectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (controller.Repository, error) {
	if cfg.Store == config.StoreMemory {
		logger.Info("Using in-memory store")
		return memory.NewStore(), nil
	}

	var repo controller.Repository
	operation := func() error {
		var err error
		repo, err = openStore(ctx, cfg)
		if err != nil {
			logger.Warn("store connection attempt failed", zap.String("store", string(cfg.Store)), zap.Error(err))
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.ConnectRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	logger.Info("Connected to store", zap.String("store", string(cfg.Store)))
	return repo, nil
}

func openStore(ctx context.Context, cfg *config.Config) (controller.Repository, error) {
	switch cfg.Store {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := mongodb.Connect(connectCtx, mongodb.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		repo, err := db.NewRepository(initDatabase(cfg))
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// initDatabase maps the postgres section onto the repository config.
func initDatabase(cfg *config.Config) *db.Config {
	return &db.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
	}
}

// initProducer returns a Kafka producer when brokers are configured. Events
// are auxiliary, so an unreachable broker disables them instead of stopping
// the service.
func initProducer(cfg *config.Config, logger *zap.Logger) eventProducer {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NopProducer{}
	}
	producer, err := events.NewProducer(cfg.Kafka.Brokers, logger, cfg.Kafka.Topic)
	if err != nil {
		logger.Error("failed to initialize Kafka producer, change events disabled", zap.Error(err))
		return events.NopProducer{}
	}
	return producer
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
