package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"botbrain/internal/adapter/channel"
	"botbrain/internal/adapter/fetcher"
	"botbrain/internal/adapter/knowledge"
	"botbrain/internal/adapter/llm"
	"botbrain/internal/adapter/tool"
	"botbrain/internal/domain"
	"botbrain/internal/infra/config"
	"botbrain/internal/infra/logger"
	"botbrain/internal/infra/tracer"
	"botbrain/internal/usecase"
)

func main() {
	var (
		configPath = flag.String("config", "./config.yaml", "path to config file")
		ingestOnly = flag.Bool("ingest", false, "rebuild knowledge bases and exit")
	)
	flag.Parse()

	if err := run(*configPath, *ingestOnly); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, ingestOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer setup: %w", err)
	}
	defer shutdownTracer(context.Background())

	clients := llm.NewClients(cfg.Provider, log)

	store, err := knowledge.New(cfg.Knowledge.DBPath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	chunker := usecase.NewChunker(log)
	ingestor, err := usecase.NewIngestor(store, clients, chunker, log, 0)
	if err != nil {
		return err
	}
	defer ingestor.Close()

	// Rebuild every configured knowledge base before serving traffic.
	for _, bot := range cfg.Bots {
		if err := ingestor.Rebuild(ctx, bot.BotConfig); err != nil {
			log.Error("knowledge rebuild failed", "bot", bot.ID, "error", err)
		}
	}
	if ingestOnly {
		log.Info("ingestion complete")
		return nil
	}

	pageFetcher := fetcher.NewChromeDP(fetcher.Config{
		Headless:    cfg.Fetcher.Headless,
		NavTimeout:  cfg.Fetcher.NavTimeout,
		PageTimeout: cfg.Fetcher.PageTimeout,
	}, log)
	defer pageFetcher.Close()

	retriever := usecase.NewRetriever(store, clients, log)
	memory := usecase.NewMemory(clients, log)
	defer memory.Close()

	toolset := func(bot domain.BotConfig, botLLM domain.LLMProvider) domain.ToolExecutor {
		return tool.ForBot(bot, botLLM, pageFetcher, log)
	}
	orchestrator := usecase.NewOrchestrator(clients, retriever, memory, toolset, log)

	manager := channel.NewManager(orchestrator.Respond, log)
	started := 0
	for _, bot := range cfg.Bots {
		if err := manager.Create(ctx, bot); err != nil {
			log.Error("channel create failed", "bot", bot.ID, "error", err)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no channels started")
	}

	log.Info("botbrain running", "bots", started)
	<-ctx.Done()

	log.Info("shutting down")
	manager.StopAll(context.Background())
	return nil
}
