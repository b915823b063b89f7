package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/romariotrain/visa-docs/internal/config"
	"github.com/romariotrain/visa-docs/internal/media/httpapi"
	"github.com/romariotrain/visa-docs/internal/media/repository"
	"github.com/romariotrain/visa-docs/internal/media/service"
	"github.com/romariotrain/visa-docs/internal/storage/disk"
	"github.com/romariotrain/visa-docs/internal/storage/postgres"
	"github.com/romariotrain/visa-docs/internal/storage/s3"
)

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	repo, closeRepo, err := openRecordStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	blobs, files, err := openBlobStore(cfg)
	if err != nil {
		return err
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := service.New(repo, blobs, log)
	h := httpapi.New(svc, httpapi.UploadRules{
		AllowedTypes:  cfg.Media.AllowedFileTypes,
		MaxFileSizeMB: cfg.Media.MaxFileSizeMB,
	}, log)
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Storage:        files,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTP.Addr).
			Str("record_store", cfg.RecordStore).
			Str("blob_driver", cfg.Blob.Driver).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}

func openRecordStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.MediaRepository, func(), error) {
	if cfg.RecordStore == config.RecordStoreMemory {
		log.Warn().Msg("using in-memory record store, records are lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, log); err != nil {
			return nil, nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	db, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	return postgres.NewMediaRepo(db, postgres.NewOutboxRepo(db)), closer(db, log), nil
}

func closer(db *sqlx.DB, log zerolog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("db close")
		}
	}
}

// openBlobStore returns the store and, for local disk, the handler that serves
// its files under /storage.
func openBlobStore(cfg *config.Config) (repository.BlobStore, http.Handler, error) {
	switch cfg.Blob.Driver {
	case config.BlobDriverS3:
		store, err := s3.New(s3.Config{
			Endpoint:  cfg.Blob.S3.Endpoint,
			Region:    cfg.Blob.S3.Region,
			Bucket:    cfg.Blob.S3.Bucket,
			AccessKey: cfg.Blob.S3.AccessKey,
			SecretKey: cfg.Blob.S3.SecretKey,
			UseSSL:    cfg.Blob.S3.UseSSL,
			PublicURL: cfg.Blob.S3.PublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 blob store: %w", err)
		}
		return store, nil, nil
	default:
		store, err := disk.New(cfg.Blob.Disk.Root, cfg.HTTP.PublicURL)
		if err != nil {
			return nil, nil, fmt.Errorf("disk blob store: %w", err)
		}
		return store, store.Handler(), nil
	}
}
