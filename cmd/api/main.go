//	@title			Simplrflow API
//	@version		1.0
//	@description	Image datasets with thumbnails, object storage and geometric annotations.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/simplrflow/service/internal/annotation"
	"github.com/simplrflow/service/internal/config"
	"github.com/simplrflow/service/internal/dataset"
	"github.com/simplrflow/service/internal/db"
	"github.com/simplrflow/service/internal/image"
	"github.com/simplrflow/service/internal/imaging"
	"github.com/simplrflow/service/internal/logger"
	appMiddleware "github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/storage"
	"github.com/simplrflow/service/internal/user"

	_ "github.com/simplrflow/service/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if !cfg.EnvFileLoaded {
		log.Debug("no .env file found, using process environment")
	}
	if cfg.IsProduction() && cfg.JWTSecret == "change_me_in_production" {
		log.Fatal("JWT_SECRET must be set in production")
	}

	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.Fatal("database migration failed", "error", err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, log)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer pool.Close()

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("object storage init failed", "error", err)
	}

	// Wire dependencies: repository → service → handler
	userSvc := user.NewService(user.NewRepository(pool), log)
	userHandler := user.NewHandler(userSvc, log)

	datasetSvc := dataset.NewService(dataset.NewRepository(pool), store, log)
	datasetHandler := dataset.NewHandler(datasetSvc, log)

	imageSvc := image.NewService(
		image.NewRepository(pool),
		store,
		imaging.NewDeriver(cfg.ThumbnailWidth, cfg.ThumbnailHeight, cfg.ThumbnailQuality),
		image.Options{
			MaxUploadSize: cfg.MaxUploadSize,
			AllowedTypes:  cfg.AllowedImageTypes,
			PresignTTL:    cfg.PresignTTL,
			Concurrency:   cfg.UploadConcurrency,
		},
		log,
	)
	imageHandler := image.NewHandler(imageSvc, cfg.MaxUploadSize, log)

	annotationSvc := annotation.NewService(annotation.NewRepository(pool), log)
	annotationHandler := annotation.NewHandler(annotationSvc, log)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
		r.Use(user.RequireUser(userSvc))

		r.Get("/users/me", userHandler.GetMe)

		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", datasetHandler.Create)
			r.Get("/", datasetHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", datasetHandler.Get)
				r.Put("/", datasetHandler.Update)
				r.Delete("/", datasetHandler.Delete)
				r.Post("/images", imageHandler.Upload)
				r.Get("/images", imageHandler.List)
			})
		})

		r.Route("/images/{id}", func(r chi.Router) {
			r.Get("/", imageHandler.Get)
			r.Delete("/", imageHandler.Delete)
			r.Get("/url", imageHandler.URL)
			r.Get("/annotations", annotationHandler.ListByImage)
		})

		r.Route("/annotations", func(r chi.Router) {
			r.Post("/", annotationHandler.Create)
			r.Get("/{id}", annotationHandler.Get)
			r.Put("/{id}", annotationHandler.Update)
			r.Delete("/{id}", annotationHandler.Delete)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.AppEnv, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		return
	}
	log.Info("server stopped")
}

// newStorage builds the object store chain: driver, bounded retries, then the optional
// Redis presign cache.
func newStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Storage, error) {
	var base storage.Storage
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory object storage, objects are lost on restart")
		base = storage.NewMemoryStorage(cfg.StorageBucket)
	case "minio":
		s, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			Region:    cfg.StorageRegion,
			UseSSL:    cfg.StorageUseSSL,
		}, log)
		if err != nil {
			return nil, err
		}
		base = s
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	var store storage.Storage = storage.NewRetryStorage(base, cfg.StorageRetryAttempts, log)
	if cfg.RedisURL == "" {
		return store, nil
	}

	rdb, err := storage.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("presign cache: %w", err)
	}
	log.Info("presigned URL cache enabled")
	return storage.NewCachedPresigner(store, rdb, log), nil
}
