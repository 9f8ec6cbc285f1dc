package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/OFFIS-RIT/cropgraph/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/config"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/telemetry"
	"github.com/OFFIS-RIT/cropgraph/backend/internal/util"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/ai"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
	loaderio "github.com/OFFIS-RIT/cropgraph/backend/pkg/loader/io"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/query"
	"github.com/OFFIS-RIT/cropgraph/backend/pkg/store"
)

const s3Scheme = "s3://"

func main() {
	util.LoadEnv()
	bootstrap.InitLogger("ingest")
	defer logger.Sync()
	cfg := bootstrap.LoadConfig()

	source := flag.String("source", cfg.DocsDir, "directory of .txt files or s3://bucket/prefix")
	question := flag.String("query", "", "answer a question from the graph instead of ingesting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Init(ctx, telemetry.Config{ServiceName: "cropgraph-ingest"})
	defer shutdownTracing(context.Background())

	aiClient, err := bootstrap.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	storage, err := bootstrap.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to connect to Neo4j", "err", err)
	}

	var code int
	if *question != "" {
		code = runQuery(ctx, aiClient, storage, *question)
	} else {
		code = runIngest(ctx, cfg, aiClient, storage, *source)
	}

	if err := storage.Close(context.Background()); err != nil {
		logger.Error("Failed to close Neo4j driver", "err", err)
	}
	if code != 0 {
		logger.Sync()
		os.Exit(code)
	}
}

func runIngest(ctx context.Context, cfg *config.Config, aiClient ai.GraphAIClient, storage store.GraphStorage, source string) int {
	lister, root, err := newLister(ctx, cfg, source)
	if err != nil {
		logger.Error("Could not open document source", "source", source, "err", err)
		return 1
	}

	files, err := lister.ListGraphFiles(ctx, root)
	if err != nil {
		logger.Error("Could not list documents", "source", source, "err", err)
		return 1
	}
	fmt.Printf("Found %d documents\n", len(files))

	gc, err := graph.NewGraphClient(graph.NewGraphClientParams{
		AIClient:  aiClient,
		Storage:   storage,
		MaxChars:  cfg.ExtractMaxChars,
		MaxTokens: cfg.AI.ExtractMaxTokens,
	})
	if err != nil {
		logger.Error("Could not create graph client", "err", err)
		return 1
	}

	ok := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	report, err := gc.ProcessDocuments(ctx, files, func(i, total int, res graph.IngestResult, err error) {
		var state string
		switch res.State {
		case graph.StateUpserted:
			state = ok(res.State)
		case graph.StateExtractionFailed:
			state = warn(res.State)
		default:
			state = bad(res.State)
		}
		fmt.Printf("[%d/%d] %s %s", i+1, total, res.Source, state)
		if res.State == graph.StateUpserted {
			fmt.Printf(" (%d entities, %d relations", res.Entities, res.Relations)
			if res.Dropped > 0 {
				fmt.Printf(", %s", warn(fmt.Sprintf("%d dropped", res.Dropped)))
			}
			fmt.Print(")")
		}
		fmt.Println()
	})

	color.New(color.Bold).Println("\nSummary")
	fmt.Printf("  documents:         %d\n", report.Total)
	fmt.Printf("  upserted:          %s\n", ok(report.Upserted))
	fmt.Printf("  extraction failed: %s\n", warn(report.ExtractionFailed))
	fmt.Printf("  failed:            %s\n", bad(report.Failed))
	fmt.Printf("  dropped relations: %d\n", report.DroppedRelations)
	fmt.Printf("  duration:          %s\n", report.Duration.Round(time.Millisecond))

	if err != nil {
		logger.Warn("Ingestion interrupted", "err", err)
		return 130
	}
	if report.Failed > 0 {
		return 1
	}
	return 0
}

// newLister picks the bucket source for s3:// URLs and the local
// filesystem otherwise. root is the directory or key prefix to list.
func newLister(ctx context.Context, cfg *config.Config, source string) (loader.GraphFileLister, string, error) {
	rest, isS3 := strings.CutPrefix(source, s3Scheme)
	if !isS3 {
		return loaderio.NewIOGraphFileLoader(), source, nil
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, "", fmt.Errorf("no bucket in %q", source)
	}
	s3cfg := cfg.S3
	s3cfg.Bucket = bucket
	l, err := bootstrap.NewS3Loader(ctx, s3cfg)
	if err != nil {
		return nil, "", err
	}
	return l, prefix, nil
}

func runQuery(ctx context.Context, aiClient ai.GraphAIClient, storage store.GraphStorage, question string) int {
	trace := query.NewQueryTrace()
	qc, err := query.NewQueryClient(aiClient, storage, query.WithTracer(trace))
	if err != nil {
		logger.Error("Could not create query client", "err", err)
		return 1
	}

	res, err := qc.GraphRAG(ctx, question)
	snap := trace.Snapshot()
	logger.Debug("Query trace",
		"nutrient", snap.Nutrient,
		"crops", snap.Crops,
		"llm_calls", snap.LLMCalls,
		"errors", snap.Errors,
	)
	if err != nil {
		logger.Error("Query failed", "err", err)
		return 1
	}

	color.New(color.Bold).Println("GRAPH CONTEXT:")
	fmt.Println(res.GraphContext)
	color.New(color.Bold).Println("\nFINAL ANSWER:")
	fmt.Println(res.Answer)
	return 0
}
