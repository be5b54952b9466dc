// @title           Asset Uploader API
// @version         1.0.0
// @description     Issues signed upload and download URLs for binary assets and tracks each asset from creation to verified upload.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"asset-uploader/internal/config"
	"asset-uploader/internal/database"
	"asset-uploader/internal/handlers"
	"asset-uploader/internal/logger"
	"asset-uploader/internal/server"
	"asset-uploader/internal/services"
	"asset-uploader/internal/storage"
	"asset-uploader/internal/supabase"
)

// objectStore is an asset object backend that can also report its own health.
type objectStore interface {
	services.ObjectStore
	Health(ctx context.Context, bucket string) error
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB(db, log)

	if cfg.RunMigrations {
		migrator, err := database.NewMigrator(db, log)
		if err != nil {
			return fmt.Errorf("initialize migrator: %w", err)
		}
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		log.Info().Msg("migrations completed successfully")
	}

	objects, err := newObjectStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}

	records := database.NewAssetStore(db)
	assetService := services.NewAssetService(records, objects, cfg.AssetBucket, log)
	assetsHandler := handlers.NewAssetsHandler(assetService, cfg.UploadExpires, cfg.DownloadExpires, log)

	srv := server.New(cfg, log, assetsHandler,
		handlers.DependencyCheck{Name: "database", Check: records.Ping},
		handlers.DependencyCheck{Name: "object_store", Check: func(ctx context.Context) error {
			return objects.Health(ctx, cfg.AssetBucket)
		}},
	)

	log.Info().
		Str("storage_backend", cfg.StorageBackend).
		Str("bucket", cfg.AssetBucket).
		Msg("asset uploader starting")
	return srv.Run(ctx)
}

func newObjectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (objectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendSupabase:
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return nil, err
		}
		return supabase.NewStorageClient(client, log), nil
	default:
		s3Storage, err := storage.NewS3Storage(ctx, storage.S3Config{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKeyID:  cfg.S3AccessKeyID,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		}, log)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	}
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("close database")
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
