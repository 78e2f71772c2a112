package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/davidbz/kodama/internal/agents"
	"github.com/davidbz/kodama/internal/batch"
	"github.com/davidbz/kodama/internal/cache"
	"github.com/davidbz/kodama/internal/config"
	"github.com/davidbz/kodama/internal/domain"
	kodamahttp "github.com/davidbz/kodama/internal/http"
	"github.com/davidbz/kodama/internal/http/middleware"
	"github.com/davidbz/kodama/internal/observability"
	"github.com/davidbz/kodama/internal/provider/echo"
	"github.com/davidbz/kodama/internal/provider/openai"
	"github.com/davidbz/kodama/internal/router"
	"github.com/davidbz/kodama/internal/search"
	memorystore "github.com/davidbz/kodama/internal/store/memory"
	redisstore "github.com/davidbz/kodama/internal/store/redis"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *kodamahttp.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

//nolint:funlen // composition root wires every component once
func buildContainer() *dig.Container {
	container := dig.New()

	provide := func(constructor any) {
		if err := container.Provide(constructor); err != nil {
			log.Fatalf("Failed to provide dependency: %v", err)
		}
	}

	// Configuration
	provide(config.Load)
	provide(config.ParseDependenciesConfig)

	// Observability
	provide(observability.InitLogger)
	provide(func() domain.MetricsSink {
		return observability.NewUsageBus(slog.Default())
	})

	// Provider client: OpenAI when configured, echo otherwise.
	provide(func(cfg *openai.Config) (domain.ProviderClient, domain.EmbeddingGenerator, error) {
		if cfg.APIKey == "" {
			client := echo.NewClient()
			return client, client, nil
		}

		client, err := openai.NewClient(*cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	})

	// Chunk store: Redis when configured, in-memory otherwise.
	provide(func(cfg *config.RedisConfig) domain.ChunkStore {
		if cfg.Addr == "" {
			return memorystore.NewChunkStore()
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return redisstore.NewChunkStore(client)
	})

	// Embedding cache + similarity search
	provide(func(gen domain.EmbeddingGenerator, cfg *config.CacheConfig) *cache.CachedEmbedder {
		return cache.NewCachedEmbedder(
			gen,
			cfg.EmbeddingMaxSize,
			time.Duration(cfg.EmbeddingTTLHours)*time.Hour,
		)
	})
	provide(func(embedder *cache.CachedEmbedder, store domain.ChunkStore, cfg *config.SearchConfig) domain.Searcher {
		return search.NewEngine(embedder, store, search.Options{
			Hybrid:         cfg.Hybrid,
			SemanticWeight: cfg.SemanticWeight,
			KeywordWeight:  cfg.KeywordWeight,
		})
	})

	// Model router with response cache
	provide(func(cfg *config.CacheConfig) *router.ModelRouter {
		return router.NewModelRouter(
			cfg.ResponseMaxSize,
			time.Duration(cfg.ResponseTTLMinutes)*time.Minute,
		)
	})

	// Orchestrator with every agent registered
	provide(func(
		provider domain.ProviderClient,
		modelRouter *router.ModelRouter,
		metrics domain.MetricsSink,
		searcher domain.Searcher,
		cfg *config.AgentsConfig,
	) (*agents.Orchestrator, error) {
		agentCfg := agents.Config{
			MaxRetries:  cfg.MaxRetries,
			RateLimit:   cfg.RateLimit,
			CallTimeout: time.Duration(cfg.CallTimeoutSecs) * time.Second,
			Requirements: domain.Requirements{
				AccuracyPriority: cfg.AccuracyPriority,
				CostPriority:     cfg.CostPriority,
				SpeedPriority:    cfg.SpeedPriority,
			},
		}

		orchestrator := agents.NewOrchestrator()
		for _, agent := range []domain.Agent{
			agents.NewSummaryAgent(provider, modelRouter, metrics, agentCfg),
			agents.NewActionItemAgent(provider, modelRouter, metrics, agentCfg),
			agents.NewAnalysisAgent(provider, modelRouter, metrics, agentCfg),
			agents.NewQAAgent(provider, modelRouter, metrics, searcher, agentCfg),
			agents.NewSentimentAgent(provider, modelRouter, metrics, agentCfg),
		} {
			if err := orchestrator.Register(agent); err != nil {
				return nil, err
			}
		}

		return orchestrator, nil
	})

	// Batch processor delivering to the orchestrator
	provide(func(orchestrator *agents.Orchestrator, cfg *config.BatchConfig) *batch.Processor {
		handler := func(ctx context.Context, task domain.TaskType, requests []*batch.Request) {
			for _, req := range requests {
				result, _ := orchestrator.ExecuteAgent(ctx, string(task), &domain.AgentContext{
					DocumentText: req.Input,
				}, true)

				payload, err := json.Marshal(result)
				if err != nil {
					close(req.Done)
					continue
				}
				req.Done <- payload
				close(req.Done)
			}
		}

		return batch.NewProcessor(handler, cfg.Size, time.Duration(cfg.MaxWaitSecs)*time.Second)
	})

	// HTTP layer
	provide(middleware.New)
	provide(kodamahttp.NewHandler)
	provide(kodamahttp.NewServer)

	return container
}
