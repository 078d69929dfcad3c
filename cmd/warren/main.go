// Command warren is the chatbot CLI. It wires the adapters into the core
// services and hands control to the command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/warren-labs/warren/internal/adapters/driven/config/file"
	ollamaembed "github.com/warren-labs/warren/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/warren-labs/warren/internal/adapters/driven/embedding/openai"
	openaillm "github.com/warren-labs/warren/internal/adapters/driven/llm/openai"
	"github.com/warren-labs/warren/internal/adapters/driven/storage/sqlite"
	"github.com/warren-labs/warren/internal/adapters/driven/vectorstore/flat"
	"github.com/warren-labs/warren/internal/adapters/driving/cli"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/core/ports/driving"
	"github.com/warren-labs/warren/internal/core/services"
	"github.com/warren-labs/warren/internal/logger"
	"github.com/warren-labs/warren/internal/plugins"
	"github.com/warren-labs/warren/internal/processors"
	"github.com/warren-labs/warren/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}
	warrenDir := filepath.Join(home, ".warren")

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("failed to open prompt store: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	embedder := buildEmbedder(cfg)
	vectors, err := flat.NewStore(filepath.Join(warrenDir, "vectors"), embedder)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}

	pluginDir := filepath.Join(warrenDir, "plugins")
	orch := services.NewOrchestrator(
		pluginDir,
		plugins.DefaultRegistry(),
		prompts,
		store.PluginStateStore(),
		store.KnowledgeBaseStore(),
		vectors,
	)
	if err := orch.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	// Re-discover plugins when the folder changes on disk.
	go func() {
		w := watcher.New(pluginDir, orch.Bootstrap)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Plugin watcher stopped: %v", err)
		}
	}()

	ingestor := services.NewIngestor(
		processors.NewDispatcherFromConfig(cfg),
		orch,
		vectors,
		store.ProvenanceStore(),
		store.KnowledgeBaseStore(),
	)

	cli.SetServices(cli.Services{
		Plugins:        orch,
		Ingestion:      ingestor,
		Chat:           buildChat(cfg, orch, vectors),
		KnowledgeBases: services.NewKnowledgeBaseManager(store.KnowledgeBaseStore()),
	})

	return cli.ExecuteContext(ctx)
}

// buildEmbedder picks the embedding backend from config. Ollama is the
// default, it runs locally and needs no API key.
func buildEmbedder(cfg driven.ConfigStore) driven.EmbeddingService {
	switch cfg.GetString("embedding.provider") {
	case "openai":
		embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.GetString("embedding.api_key"),
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
		if err != nil {
			logger.Warn("OpenAI embedder unavailable, falling back to Ollama: %v", err)
			break
		}
		return embedder
	}
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    cfg.GetString("embedding.base_url"),
		Model:      cfg.GetString("embedding.model"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
	})
}

// buildChat wires the chat service when an LLM is configured, and leaves
// it nil otherwise so chat commands report the missing configuration.
func buildChat(cfg driven.ConfigStore, orch *services.Orchestrator, vectors driven.VectorStore) driving.ChatService {
	llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  cfg.GetString("llm.api_key"),
		BaseURL: cfg.GetString("llm.base_url"),
		Model:   cfg.GetString("llm.model"),
	})
	if err != nil {
		logger.Warn("Chat disabled: %v (set llm.api_key in %s)", err, cfg.Path())
		return nil
	}
	return services.NewChat(orch, vectors, llm)
}
