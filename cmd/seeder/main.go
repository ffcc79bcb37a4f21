package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/xaenox/chatseed/internal/generator"
	"github.com/xaenox/chatseed/internal/reconciler"
	"github.com/xaenox/chatseed/internal/storage"
	"github.com/xaenox/chatseed/internal/taxonomy"
	"github.com/xaenox/chatseed/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger = logger.With(zap.String("run_id", uuid.NewString()))

	switch os.Args[1] {
	case "generate":
		runGenerate(logger, os.Args[2:])
	case "reconcile":
		runReconcile(logger, os.Args[2:])
	case "reset":
		runReset(logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: seeder <command> [flags]

Commands:
  generate   load taxonomies and generate synthetic data
  reconcile  repair internal-user and display flags
  reset      drop and recreate the schema (requires -force)`)
}

func runGenerate(logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	locale := fs.String("locale", "", "override generator locale (en or ja)")
	fs.Parse(args)

	cfg, store := setup(logger, *configPath)
	defer store.Close()

	if *locale != "" {
		cfg.Generator.Locale = *locale
	}

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	loader := taxonomy.NewLoader(store, taxonomy.Locale(cfg.Generator.Locale), logger)
	if err := loader.LoadAll(ctx); err != nil {
		logger.Fatal("Failed to load taxonomies", zap.Error(err))
	}

	gen := generator.New(store, generator.Config{
		Locale:          taxonomy.Locale(cfg.Generator.Locale),
		Organizations:   cfg.Generator.Organizations,
		Personnel:       cfg.Generator.Personnel,
		Users:           cfg.Generator.Users,
		Conversations:   cfg.Generator.Conversations,
		Tags:            cfg.Generator.Tags,
		MessageTags:     cfg.Generator.MessageTags,
		MinMessagePairs: cfg.Generator.MinMessagePairs,
		MaxMessagePairs: cfg.Generator.MaxMessagePairs,
		BatchSize:       cfg.Generator.BatchSize,
		RetryCeiling:    cfg.Generator.RetryCeiling,
	}, logger)

	if _, err := gen.GenerateAll(ctx); err != nil {
		logger.Fatal("Generation failed", zap.Error(err))
	}
}

func runReconcile(logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, store := setup(logger, *configPath)
	defer store.Close()

	rec := reconciler.New(store, cfg.Reconciler.PageSize, logger)
	if _, err := rec.Run(context.Background()); err != nil {
		logger.Fatal("Reconciliation failed", zap.Error(err))
	}
}

func runReset(logger *zap.Logger, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to config file")
	force := fs.Bool("force", false, "confirm dropping all tables")
	fs.Parse(args)

	_, store := setup(logger, *configPath)
	defer store.Close()

	if !*force {
		logger.Fatal("Refusing to drop tables without -force")
	}
	if err := store.Reset(context.Background()); err != nil {
		logger.Fatal("Reset failed", zap.Error(err))
	}
	logger.Info("Schema reset")
}

func setup(logger *zap.Logger, configPath string) (*config.Config, storage.Storage) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	return cfg, store
}
