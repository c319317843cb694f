package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"artlink/backend/internal/graph"
	"artlink/backend/internal/search"
	"artlink/backend/internal/server"
	"artlink/backend/internal/store"
	"artlink/backend/pkg/config"
	"artlink/backend/pkg/logger"
)

func main() {
	// Load configuration first so the logger knows the environment
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting annotation API server...")

	ctx := context.Background()
	st, err := store.NewNeo4jStore(ctx, store.Neo4jConfig{
		URI:         cfg.Neo4jURI,
		Username:    cfg.Neo4jUser,
		Password:    cfg.Neo4jPassword,
		Database:    cfg.Neo4jDatabase,
		MaxPoolSize: cfg.Neo4jMaxPoolSize,
		TimeoutSecs: cfg.Neo4jTimeoutSecs,
	})
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer st.Close(context.Background())

	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure graph schema", zap.Error(err))
	}

	repo := graph.NewRepository(st)

	var searchClient *search.Client
	if cfg.SearchServiceURL != "" {
		searchClient = search.NewClient(cfg.SearchServiceURL, 30*time.Second)
	}

	var events *server.EventLog
	if cfg.AnnotationLogFile != "" {
		events = server.NewEventLog(cfg.AnnotationLogFile)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(cfg, repo, searchClient, events).Router(),
	}

	group, gctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			log.Info("Shutting down server...")
		case <-gctx.Done():
			return gctx.Err()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		return
	}
	log.Info("Server exited")
}
