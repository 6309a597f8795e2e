package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/internal/httpapi"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/metrics"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/notify"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/odds"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/oplog"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/settlement"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/store/pgstore"
	"github.com/MarkoPoloResearchLab/wagerbook/internal/trigger"
	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL   = "database-url"
	flagListenAddr    = "listen-addr"
	flagMetricsAddr   = "metrics-addr"
	flagKafkaBrokers  = "kafka-brokers"
	flagKafkaTopic    = "kafka-topic"
	flagRedisAddr     = "redis-addr"
	flagWebhookURL    = "webhook-url"
	flagOrigins       = "allowed-origins"
	flagStoreBackend  = "store-backend"
	configDatabaseURL = "database_url"
	configListenAddr  = "listen_addr"
	configMetricsAddr = "metrics_addr"
	configKafka       = "kafka_brokers"
	configKafkaTopic  = "kafka_topic"
	configRedisAddr   = "redis_addr"
	configWebhookURL  = "webhook_url"
	configOrigins     = "allowed_origins"
	configBackend     = "store_backend"

	defaultDatabaseURL = "sqlite:///tmp/wagerbook.db"
	defaultListenAddr  = ":8080"
	defaultMetricsAddr = ":9090"
	defaultKafkaTopic  = "event_completed"

	backendGorm = "gorm"
	backendPgx  = "pgx"
)

type runtimeConfig struct {
	DatabaseURL    string
	ListenAddr     string
	MetricsAddr    string
	KafkaBrokers   string
	KafkaTopic     string
	RedisAddr      string
	WebhookURL     string
	AllowedOrigins []string
	StoreBackend   string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wagerd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "wagerd",
		Short:         "Betting ledger and settlement engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL or sqlite connection string")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP API listen address")
	cmd.Flags().String(flagMetricsAddr, defaultMetricsAddr, "metrics/health listen address")
	cmd.Flags().String(flagKafkaBrokers, "", "kafka brokers for the event-completed topic (empty disables the consumer)")
	cmd.Flags().String(flagKafkaTopic, defaultKafkaTopic, "kafka topic carrying event completions")
	cmd.Flags().String(flagRedisAddr, "", "redis address of the odds feed cache (empty disables placement against live odds)")
	cmd.Flags().String(flagWebhookURL, "", "chat gateway webhook for settlement notifications (empty logs instead)")
	cmd.Flags().StringSlice(flagOrigins, nil, "allowed CORS origins")
	cmd.Flags().String(flagStoreBackend, backendGorm, "persistence backend: gorm or pgx (pgx requires a postgres database url)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configDatabaseURL: "DATABASE_URL",
		configListenAddr:  "LISTEN_ADDR",
		configMetricsAddr: "METRICS_ADDR",
		configKafka:       "KAFKA_BROKERS",
		configKafkaTopic:  "KAFKA_TOPIC",
		configRedisAddr:   "REDIS_ADDR",
		configWebhookURL:  "CHAT_WEBHOOK_URL",
		configOrigins:     "ALLOWED_ORIGINS",
		configBackend:     "STORE_BACKEND",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}
	flags := map[string]string{
		configDatabaseURL: flagDatabaseURL,
		configListenAddr:  flagListenAddr,
		configMetricsAddr: flagMetricsAddr,
		configKafka:       flagKafkaBrokers,
		configKafkaTopic:  flagKafkaTopic,
		configRedisAddr:   flagRedisAddr,
		configWebhookURL:  flagWebhookURL,
		configOrigins:     flagOrigins,
		configBackend:     flagStoreBackend,
	}
	for key, flag := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg.DatabaseURL = viper.GetString(configDatabaseURL)
	cfg.ListenAddr = viper.GetString(configListenAddr)
	cfg.MetricsAddr = viper.GetString(configMetricsAddr)
	cfg.KafkaBrokers = viper.GetString(configKafka)
	cfg.KafkaTopic = viper.GetString(configKafkaTopic)
	cfg.RedisAddr = viper.GetString(configRedisAddr)
	cfg.WebhookURL = viper.GetString(configWebhookURL)
	cfg.AllowedOrigins = viper.GetStringSlice(configOrigins)
	cfg.StoreBackend = viper.GetString(configBackend)

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = defaultKafkaTopic
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = backendGorm
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, healthFn, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	oddsSource, err := buildOddsSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	clock := func() int64 { return time.Now().UTC().Unix() }
	service, err := wager.NewService(store, oddsSource, clock, wager.WithOperationLogger(oplog.New(logger)))
	if err != nil {
		return fmt.Errorf("wager service init: %w", err)
	}

	var notifier settlement.Notifier = notify.NewLogNotifier(logger)
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL)
	}
	dispatcher, err := settlement.New(service, notifier, logger)
	if err != nil {
		return fmt.Errorf("dispatcher init: %w", err)
	}
	defer dispatcher.Wait()

	metricsServer := metrics.StartServer(cfg.MetricsAddr, healthFn)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if cfg.KafkaBrokers != "" {
		consumer := trigger.NewConsumer(trigger.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic), dispatcher, logger)
		defer func() { _ = consumer.Close() }()
		go func() {
			if runErr := consumer.Run(ctx); runErr != nil {
				logger.Error("trigger consumer stopped", zap.Error(runErr))
			}
		}()
		logger.Info("event completion consumer started",
			zap.String("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	api := httpapi.New(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, service, dispatcher, logger)
	return api.Run(ctx)
}

func buildOddsSource(ctx context.Context, cfg *runtimeConfig, logger *zap.Logger) (wager.OddsSource, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("no odds feed configured; placements will fail odds lookup")
		return odds.NewStaticSource(nil), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return odds.NewRedisSource(client), nil
}

// buildStore opens the persistence backend. The schema is always managed
// through the gorm migration path; the pgx backend then talks to it over a
// raw pgxpool connection.
func buildStore(ctx context.Context, cfg *runtimeConfig) (wager.Store, metrics.HealthFunc, func() error, error) {
	switch cfg.StoreBackend {
	case backendGorm:
		gormDB, cleanup, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := gormstore.Migrate(gormDB); err != nil {
			_ = cleanup()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			_ = cleanup()
			return nil, nil, nil, err
		}
		healthFn := func(healthCtx context.Context) error {
			return sqlDB.PingContext(healthCtx)
		}
		return gormstore.New(gormDB), healthFn, cleanup, nil
	case backendPgx:
		driver, _, err := resolveDriver(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if driver != "postgres" {
			return nil, nil, nil, fmt.Errorf("store backend %q requires a postgres database url", backendPgx)
		}
		gormDB, closeGorm, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := gormstore.Migrate(gormDB); err != nil {
			_ = closeGorm()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if err := closeGorm(); err != nil {
			return nil, nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("pgx ping: %w", err)
		}
		healthFn := func(healthCtx context.Context) error {
			return pool.Ping(healthCtx)
		}
		cleanup := func() error {
			pool.Close()
			return nil
		}
		return pgstore.New(pool), healthFn, cleanup, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *gorm.DB
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{})
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = "wagerbook.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return "sqlite", sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return "sqlite", sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}
