package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/config"
	"github.com/maclay/research-assistant/backend/internal/docs"
	"github.com/maclay/research-assistant/backend/internal/links"
	"github.com/maclay/research-assistant/backend/internal/llm"
	"github.com/maclay/research-assistant/backend/internal/pipeline"
	"github.com/maclay/research-assistant/backend/internal/research"
	"github.com/maclay/research-assistant/backend/internal/session"
	"github.com/maclay/research-assistant/backend/internal/store"
	"github.com/maclay/research-assistant/backend/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		logger.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	sessions := session.NewStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		logger.Fatal("minio connect", zap.Error(err))
	}

	// ── Model client and pipeline ────────────────────────────
	model := llm.NewHFClient(cfg.HFAPIURL, cfg.HFModel, cfg.HFAPIToken, logger)
	source := docs.NewDirSource(cfg.DataDir, logger)
	checker := links.NewChecker(cfg.BaseURL, logger)
	enhancer := links.NewEnhancer(model, logger)

	registry := ws.NewRegistry(logger)
	wsHandler := ws.NewHandler(registry, logger)

	factory := func(sink pipeline.Sink) *pipeline.Processor {
		return pipeline.NewProcessor(model, source, checker, enhancer, sink, logger)
	}
	researchHandler := research.NewHandler(pgStore, mongoStore, minioStore, registry, factory, cfg.HFModel, logger)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Progress channel and its polling fallback
	r.Get("/ws/{clientID}", wsHandler.Serve)
	r.Get("/status/{clientID}", researchHandler.Status)

	// Local reference documents
	fileServer := http.StripPrefix("/data/", http.FileServer(http.Dir(cfg.DataDir)))
	r.Get("/data/*", fileServer.ServeHTTP)

	// Research routes (session scoped)
	r.Route("/api", func(r chi.Router) {
		r.Use(session.Ensure(sessions))
		r.Post("/research", researchHandler.Create)
		r.Get("/reports", researchHandler.List)
		r.Get("/reports/{id}", researchHandler.Get)
		r.Delete("/reports/{id}", researchHandler.Delete)
		r.Get("/reports/{id}/download", researchHandler.Download)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		logger.Info("backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
