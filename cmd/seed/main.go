package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"
)

func main() {
	util.LoadEnv()
	bootstrap.InitLogger("seed")
	defer logger.Sync()
	cfg := bootstrap.LoadConfig()

	file := flag.String("file", "data/reference.yaml", "YAML file with soils, nutrients and crops")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("Could not open reference data", "file", *file, "err", err)
	}
	data, err := store.LoadReferenceData(f)
	f.Close()
	if err != nil {
		logger.Fatal("Could not load reference data", "file", *file, "err", err)
	}

	storage, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}
	defer storage.Close(context.Background())

	if err := storage.SeedReferenceData(ctx, data); err != nil {
		logger.Error("Seeding failed", "err", err)
		return
	}

	logger.Info("Reference data seeded",
		"soils", len(data.Soils),
		"nutrients", len(data.Nutrients),
		"crops", len(data.Crops),
	)
}
