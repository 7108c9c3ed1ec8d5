// Command poliq indexes policy PDFs and answers questions about them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campuskb/poliq/internal/adapters/driven/config/file"
	openaiembed "github.com/campuskb/poliq/internal/adapters/driven/embedding/openai"
	openaillm "github.com/campuskb/poliq/internal/adapters/driven/llm/openai"
	"github.com/campuskb/poliq/internal/adapters/driven/storage/sqlite"
	"github.com/campuskb/poliq/internal/adapters/driving/cli"
	"github.com/campuskb/poliq/internal/core/ports/driven"
	"github.com/campuskb/poliq/internal/core/ports/driving"
	"github.com/campuskb/poliq/internal/core/services"
	"github.com/campuskb/poliq/internal/normalisers/pdf"
	"github.com/campuskb/poliq/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	newEmbedding := func() (driven.EmbeddingService, error) {
		key, err := apiKey()
		if err != nil {
			return nil, err
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:    key,
			BaseURL:   cfg.GetString(file.KeyLLMBaseURL),
			Model:     cfg.GetString(file.KeyEmbeddingModel),
			BatchSize: cfg.GetInt(file.KeyEmbeddingBatch),
		})
	}

	cli.SetVersion(version)
	cli.Configure(cli.Dependencies{
		Store:  store,
		Config: cfg,

		NewAssistant: func() (driving.Assistant, error) {
			key, err := apiKey()
			if err != nil {
				return nil, err
			}
			embedding, err := newEmbedding()
			if err != nil {
				return nil, err
			}
			llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
				APIKey:  key,
				BaseURL: cfg.GetString(file.KeyLLMBaseURL),
				Model:   cfg.GetString(file.KeyLLMModel),
			})
			if err != nil {
				return nil, err
			}

			var retrievalOpts []services.RetrievalOption
			if k := cfg.GetInt(file.KeyRetrievalTopK); k > 0 {
				retrievalOpts = append(retrievalOpts, services.WithTopK(k))
			}
			if _, ok := cfg.Get(file.KeyScoreThreshold); ok {
				retrievalOpts = append(retrievalOpts, services.WithScoreThreshold(cfg.GetFloat(file.KeyScoreThreshold)))
			}
			retrieval := services.NewRetrievalEngine(store, embedding, retrievalOpts...)

			var assemblerOpts []services.AssemblerOption
			if budget := cfg.GetInt(file.KeyContextBudget); budget > 0 {
				assemblerOpts = append(assemblerOpts, services.WithContextWordBudget(budget))
			}
			if rounds := cfg.GetInt(file.KeyMaxToolRounds); rounds > 0 {
				assemblerOpts = append(assemblerOpts, services.WithMaxToolRounds(rounds))
			}
			assembler := services.NewAnswerAssembler(retrieval, llm, assemblerOpts...)

			var assistantOpts []services.AssistantOption
			if window := cfg.GetInt(file.KeyHistoryWindow); window > 0 {
				assistantOpts = append(assistantOpts, services.WithHistoryWindow(window))
			}
			return services.NewAssistantService(store, assembler, assistantOpts...), nil
		},

		NewIngest: func(dir string) (driving.IngestOrchestrator, error) {
			embedding, err := newEmbedding()
			if err != nil {
				return nil, err
			}

			var chunkerOpts []chunker.Option
			if size := cfg.GetInt(file.KeyChunkSize); size > 0 {
				chunkerOpts = append(chunkerOpts, chunker.WithChunkSize(size))
			}
			if overlap := cfg.GetInt(file.KeyChunkOverlap); overlap > 0 {
				chunkerOpts = append(chunkerOpts, chunker.WithOverlap(overlap))
			}

			return services.NewIngestService(
				dir,
				pdf.NewExtractor(),
				pdf.NewCleaner(),
				chunker.New(chunkerOpts...),
				embedding,
				store,
			), nil
		},
	})

	return cli.ExecuteContext(ctx)
}

// apiKey resolves the OpenAI-compatible API key from the environment.
func apiKey() (string, error) {
	for _, name := range []string{"POLIQ_API_KEY", "OPENAI_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", errors.New("no API key: set POLIQ_API_KEY or OPENAI_API_KEY")
}
