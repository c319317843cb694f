// Seed bootstraps a fresh database: schema constraints, an initial user
// and, optionally, a demo collection with a few works so the UI has
// something to show.
package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"artlink/backend/internal/graph"
	"artlink/backend/internal/store"
	"artlink/backend/pkg/config"
	apperrors "artlink/backend/pkg/errors"
	"artlink/backend/pkg/logger"
)

func main() {
	username := flag.String("username", "admin", "Username for the initial user")
	password := flag.String("password", "", "Password for the initial user (required)")
	level := flag.Int("level", 2, "Authorization level for the initial user")
	demo := flag.Bool("demo", false, "Also create a demo collection with sample works")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	if *password == "" {
		log.Fatal("A password is required (-password)")
	}

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

	log.Info("Creating constraints...")
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure graph schema", zap.Error(err))
	}

	repo := graph.NewRepository(st)

	user, err := repo.CreateUser(ctx, *username, *password, *level)
	switch {
	case apperrors.IsConflict(err):
		log.Info("User already exists, skipping", zap.String("username", *username))
	case err != nil:
		log.Fatal("Failed to create user", zap.Error(err))
	default:
		log.Info("User created",
			zap.String("username", user.Username),
			zap.Int("authorization_level", user.AuthorizationLevel),
		)
	}

	if *demo {
		if err := seedDemo(ctx, repo, log); err != nil {
			log.Fatal("Failed to seed demo data", zap.Error(err))
		}
	}

	log.Info("Seeding completed")
}

func seedDemo(ctx context.Context, repo *graph.Repository, log *zap.Logger) error {
	coll, err := repo.CreateCollection(ctx, "http://example.org/collection/demo", "Demo collection", "Sample data for local development", nil)
	if err != nil {
		return err
	}

	for i := 0; i < 5; i++ {
		_, err := repo.CreateWork(ctx, graph.WorkInput{
			URI:    fmt.Sprintf("http://example.org/work/demo-%d", i),
			Title:  fmt.Sprintf("Demo work %d", i),
			Author: "Unknown",
			Images: []graph.ImageInput{
				{IIIFURL: fmt.Sprintf("https://iiif.example.org/demo/%d/full", i), Width: 1200, Height: 900},
			},
		}, coll)
		if apperrors.IsConflict(err) {
			log.Info("Demo work already present, skipping", zap.Int("index", i))
			continue
		}
		if err != nil {
			return err
		}
	}

	log.Info("Demo collection seeded", zap.String("collection", coll.UID))
	return nil
}
