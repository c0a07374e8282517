// Package main implements the offline analysis CLI. It runs the same
// analytics pass the API serves, either over a JSON snapshot file or over
// the live DynamoDB table, and writes the result to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"catgraph/application/ports"
	"catgraph/application/queries"
	"catgraph/application/queries/handlers"
	"catgraph/application/services"
	domaincfg "catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/infrastructure/config"
	"catgraph/infrastructure/persistence/dynamodb"
	"catgraph/infrastructure/persistence/memory"
)

// snapshotFile is the input schema for offline runs. IDs are the same
// UUIDs the API would assign; parent_id is empty for roots.
type snapshotFile struct {
	Categories   []snapshotCategory `json:"categories"`
	Similarities []snapshotEdge     `json:"similarities"`
}

type snapshotCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

type snapshotEdge struct {
	A string `json:"a"`
	B string `json:"b"`
}

func main() {
	var (
		snapshotPath = flag.String("snapshot", "", "JSON snapshot file; reads the live DynamoDB table when empty")
		format       = flag.String("format", "text", "output format: text or json")
		topCount     = flag.Int("top", 0, "entries in the most-connected ranking (0 keeps the default)")
		fromID       = flag.String("from", "", "source category ID for a shortest-path lookup")
		toID         = flag.String("to", "", "target category ID for a shortest-path lookup")
		verbose      = flag.Bool("v", false, "log analysis internals to stderr")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}
	defer logger.Sync()

	ctx := context.Background()

	var (
		categoryRepo   ports.CategoryRepository
		similarityRepo ports.SimilarityRepository
		err            error
	)
	if *snapshotPath != "" {
		categoryRepo, similarityRepo, err = loadSnapshot(ctx, *snapshotPath)
	} else {
		categoryRepo, similarityRepo, err = openLiveTable(ctx, logger)
	}
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	domainCfg := domaincfg.DefaultDomainConfig()
	if *topCount > 0 {
		domainCfg.TopConnectedCount = *topCount
	}

	// The in-process cache lets the stats, islands and diameter views of a
	// JSON run share one engine pass instead of re-analyzing per view.
	analysis := services.NewAnalysisService(
		categoryRepo,
		similarityRepo,
		services.StaticDomainConfig{Cfg: domainCfg},
		memory.NewCache(),
		nil,
		0,
		logger,
	)
	handler := handlers.NewAnalysisQueryHandler(analysis, logger)

	if *fromID != "" || *toID != "" {
		if *fromID == "" || *toID == "" {
			log.Fatal("Shortest path needs both -from and -to")
		}
		printShortestPath(ctx, handler, *fromID, *toID, *format)
		return
	}
	printReport(ctx, handler, *format)
}

// loadSnapshot rebuilds in-memory stores from a snapshot file. Any invalid
// ID, label or edge aborts the run; a partial graph would silently skew
// every metric downstream.
func loadSnapshot(ctx context.Context, path string) (ports.CategoryRepository, ports.SimilarityRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var file snapshotFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	categories := memory.NewCategoryStore()
	similarities := memory.NewSimilarityStore()

	for _, entry := range file.Categories {
		id, err := valueobjects.NewCategoryIDFromString(entry.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("category %q: %w", entry.ID, err)
		}
		label, err := valueobjects.NewCategoryLabel(entry.Name, entry.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("category %q: %w", entry.ID, err)
		}
		var parent valueobjects.CategoryID
		if entry.ParentID != "" {
			parent, err = valueobjects.NewCategoryIDFromString(entry.ParentID)
			if err != nil {
				return nil, nil, fmt.Errorf("category %q parent: %w", entry.ID, err)
			}
		}
		category, err := entities.NewCategoryWithID(id, label, parent)
		if err != nil {
			return nil, nil, fmt.Errorf("category %q: %w", entry.ID, err)
		}
		if err := categories.Save(ctx, category); err != nil {
			return nil, nil, fmt.Errorf("category %q: %w", entry.ID, err)
		}
	}

	for _, entry := range file.Similarities {
		a, err := valueobjects.NewCategoryIDFromString(entry.A)
		if err != nil {
			return nil, nil, fmt.Errorf("edge %q-%q: %w", entry.A, entry.B, err)
		}
		b, err := valueobjects.NewCategoryIDFromString(entry.B)
		if err != nil {
			return nil, nil, fmt.Errorf("edge %q-%q: %w", entry.A, entry.B, err)
		}
		edge, err := valueobjects.NewSimilarityEdge(a, b)
		if err != nil {
			return nil, nil, fmt.Errorf("edge %q-%q: %w", entry.A, entry.B, err)
		}
		if err := similarities.Save(ctx, edge); err != nil {
			return nil, nil, fmt.Errorf("edge %q-%q: %w", entry.A, entry.B, err)
		}
	}

	return categories, similarities, nil
}

// openLiveTable wires the DynamoDB repositories from the same environment
// configuration the API server uses.
func openLiveTable(ctx context.Context, logger *zap.Logger) (ports.CategoryRepository, ports.SimilarityRepository, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := awsdynamodb.NewFromConfig(awsCfg)
	return dynamodb.NewCategoryRepository(client, cfg.DynamoDBTable, logger),
		dynamodb.NewSimilarityRepository(client, cfg.DynamoDBTable, logger),
		nil
}

func printReport(ctx context.Context, handler *handlers.AnalysisQueryHandler, format string) {
	switch format {
	case "text":
		result, err := handler.HandleGetReport(ctx, queries.GetReportQuery{})
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		fmt.Print(result.Report)
	case "json":
		stats, err := handler.HandleGetStats(ctx, queries.GetStatsQuery{})
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		islands, err := handler.HandleGetIslands(ctx, queries.GetIslandsQuery{})
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		diameter, err := handler.HandleGetDiameter(ctx, queries.GetDiameterQuery{})
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		emitJSON(struct {
			Stats    *queries.GetStatsResult    `json:"stats"`
			Islands  *queries.GetIslandsResult  `json:"islands"`
			Diameter *queries.GetDiameterResult `json:"diameter"`
		}{stats, islands, diameter})
	default:
		log.Fatalf("Unknown format %q (want text or json)", format)
	}
}

func printShortestPath(ctx context.Context, handler *handlers.AnalysisQueryHandler, from, to, format string) {
	result, err := handler.HandleGetShortestPath(ctx, queries.GetShortestPathQuery{From: from, To: to})
	if err != nil {
		log.Fatalf("Shortest path failed: %v", err)
	}
	if format == "json" {
		emitJSON(result)
		return
	}
	if !result.Found {
		fmt.Printf("No path between %s and %s\n", from, to)
		os.Exit(1)
	}
	fmt.Printf("%s (%d hops)\n", result.PathDisplay, result.Length)
}

func emitJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}
