// Command filings answers analysis templates over a company's recent 10-K
// filings.
//
//	filings -symbol AAPL -list
//	filings -symbol AAPL -key "Risk Factors Years" -show
//	filings -symbol AAPL -key SWOT -years 3 -save
//	filings -symbol AAPL -key Overview -provider deepseek
//	filings -prompts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/config"
	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/knowledge"
	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/query"
	"filing_analyst/pkg/core/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to app.yaml")
	modelsPath := flag.String("models", config.DefaultModelsPath, "path to models.yaml")
	symbol := flag.String("symbol", "", "company ticker, e.g. AAPL")
	key := flag.String("key", "", "analysis template key, e.g. SWOT")
	filingType := flag.String("type", "", "filing type (default from config)")
	years := flag.Int("years", 0, "number of most recent filings to index (default from config)")
	save := flag.Bool("save", false, "write each extracted section to a text file")
	list := flag.Bool("list", false, "list template keys and exit")
	show := flag.Bool("show", false, "print the rendered template text instead of answering it")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	providerName := flag.String("provider", "", "override the active LLM provider from models.yaml")
	listPrompts := flag.Bool("prompts", false, "list registered prompt IDs (built-in and overrides) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if *filingType == "" {
		*filingType = cfg.FilingType
	}
	if *years <= 0 {
		*years = cfg.NumYears
	}

	registry := prompt.Get()
	if cfg.PromptsDir != "" {
		if _, err := os.Stat(cfg.PromptsDir); err == nil {
			if err := prompt.LoadFromDirectory(registry, cfg.PromptsDir); err != nil {
				log.Printf("[WARNING] Failed to load prompt overrides: %v", err)
			}
		}
	}
	if *listPrompts {
		for _, id := range registry.ListPrompts() {
			fmt.Println(id)
		}
		return
	}

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *list {
		svc := query.NewService(query.Deps{Registry: registry}, 0)
		keys, err := svc.ListTemplates(*symbol, *filingType, *years)
		if err != nil {
			exit(err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return
	}

	deps, cleanup, err := wire(ctx, cfg, *modelsPath, *providerName, registry)
	if err != nil {
		exit(err)
	}
	defer cleanup()
	svc := query.NewService(deps, cfg.QueryTimeout())

	if *show {
		text, err := svc.GetTemplateText(ctx, *symbol, *key, *filingType, *years)
		if err != nil {
			exit(err)
		}
		fmt.Println(text)
		return
	}

	start := time.Now()
	res, err := svc.Execute(ctx, *symbol, *key, *filingType, *save, *years)
	if err != nil {
		exit(err)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("%s %s: %s (%d sections, %s)\n\n", res.Symbol, res.FilingType, res.Key, len(res.Context), time.Since(start).Round(time.Millisecond))
	fmt.Println(res.Answer)
}

// wire builds the model, storage and ingestion stack from configuration.
func wire(ctx context.Context, cfg *config.Config, modelsPath, providerName string, registry *prompt.Registry) (query.Deps, func(), error) {
	var agentCfg agent.Config
	if err := config.LoadYAML(modelsPath, &agentCfg); err != nil {
		return query.Deps{}, nil, err
	}
	if agentCfg.ActiveProvider == "" {
		agentCfg.ActiveProvider = "gemini"
	}
	mgr := agent.NewManager(agentCfg, map[string]llm.Provider{
		"gemini":   &llm.GeminiProvider{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.CompletionModel},
		"deepseek": &llm.DeepSeekProvider{},
	})
	if providerName != "" {
		if err := mgr.SetGlobalProvider(providerName); err != nil {
			return query.Deps{}, nil, apperr.Wrap(apperr.InvalidInput, "main.wire", err)
		}
	}
	log.Printf("[Main] Active LLM provider: %s", mgr.GetActiveProvider())

	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.Gemini.APIKey, cfg.Gemini.EmbeddingModel)
	if err != nil {
		return query.Deps{}, nil, err
	}
	indexStore, closeStore, err := openIndexStore(ctx, cfg)
	if err != nil {
		embedder.Close()
		return query.Deps{}, nil, err
	}
	cleanup := func() {
		embedder.Close()
		closeStore()
	}

	cutoff, err := cfg.Cutoff(time.Now())
	if err != nil {
		cleanup()
		return query.Deps{}, nil, err
	}
	locator := ingest.NewFilingLocator(cfg.SECDir, cutoff)
	client := ingest.NewEDGARClient(
		ingest.WithUserAgent(cfg.SEC.UserAgent),
		ingest.WithRateLimit(cfg.SEC.RequestsPerSecond),
	)

	builder := knowledge.NewBuilder(knowledge.BuilderConfig{
		IndexRoot:      cfg.IndexDir,
		SideFileDir:    cfg.SideFileDir,
		Locator:        locator,
		Store:          indexStore,
		Embedder:       embedder,
		Translator:     query.NewLLMTranslator(mgr, registry),
		EmbeddingModel: embedder.Model(),
		Workers:        cfg.BuildWorkers,
	})

	return query.Deps{
		Downloader:  ingest.NewEDGARDownloader(client, locator, cfg.SEC.DownloadLimit),
		Indexes:     builder,
		Registry:    registry,
		Synthesizer: query.NewLLMSynthesizer(mgr, registry),
	}, cleanup, nil
}

// openIndexStore opens the configured index backend.
func openIndexStore(ctx context.Context, cfg *config.Config) (knowledge.Store, func(), error) {
	switch cfg.IndexBackend {
	case config.BackendPostgres:
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		repo := store.NewIndexRepo(store.GetPool())
		if err := repo.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Printf("[Main] Using Postgres index store")
		return repo, store.Close, nil
	case config.BackendBadger:
		db, err := store.OpenBadgerIndexStore(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[Main] Using badger index store")
		return db, func() { db.Close() }, nil
	default:
		return knowledge.NewFileStore(), func() {}, nil
	}
}

// exit prints err and exits with a code per error kind.
func exit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		os.Exit(2)
	case apperr.NotFound:
		os.Exit(3)
	case apperr.UpstreamUnavailable:
		os.Exit(4)
	}
	os.Exit(1)
}
