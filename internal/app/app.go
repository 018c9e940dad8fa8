package app

import (
	"log/slog"
	"net/http"

	"factsheetgen/internal/config"
	"factsheetgen/internal/extractor"
	"factsheetgen/internal/infrastructure/fetch"
	"factsheetgen/internal/infrastructure/httpapi"
	"factsheetgen/internal/infrastructure/llm"
	"factsheetgen/internal/infrastructure/storage"
	"factsheetgen/internal/logging"
	"factsheetgen/internal/ports"
	"factsheetgen/internal/synth"
	"factsheetgen/internal/task"
	"factsheetgen/internal/usecase"
)

// Application wires config to the generation pipeline and its adapters.
type Application struct {
	cfg       config.Config
	generator *usecase.Generator
	files     ports.FactsheetFiles
	api       *httpapi.Server
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := fetch.NewClient(cfg.Fetch.Timeout(), cfg.Fetch.MaxRedirects)
	pages := extractor.New(fetcher, extractor.Options{
		RetryBackoff: cfg.Fetch.RetryBackoff(),
		MinTextChars: cfg.Fetch.MinTextChars,
		MaxPageChars: cfg.Fetch.MaxPageChars,
	}, baseLogger.With("component", "extractor"))

	registry := synth.NewRegistry()
	registry.Register("openai", llm.NewOpenAIClient(cfg.OpenAI))

	engine := synth.NewEngine(registry, synth.DefaultSchema(), synth.Limits{
		TargetMin: cfg.Synthesis.TargetWordsMin,
		TargetMax: cfg.Synthesis.TargetWordsMax,
		AcceptMin: cfg.Synthesis.AcceptWordsMin,
		AcceptMax: cfg.Synthesis.AcceptWordsMax,
	}, baseLogger.With("component", "synth"))

	files := storage.NewFileStore(cfg.Storage.Dir)

	var repository ports.FactsheetRepository
	if cfg.Database.DSN != "" {
		db, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repository = storage.NewPostgresRepository(db)
	}

	generator := usecase.NewGenerator(usecase.GeneratorDeps{
		Extractor:      pages,
		Engine:         engine,
		Tasks:          task.NewStore(),
		Files:          files,
		Repository:     repository,
		Logger:         baseLogger.With("component", "generator"),
		MaxBundleChars: cfg.Fetch.MaxBundleChars,
		TaskBudget:     cfg.Tasks.Budget(),
		MaxInFlight:    cfg.Tasks.MaxInFlight,
	})

	return &Application{
		cfg:       cfg,
		generator: generator,
		files:     files,
		api:       httpapi.New(generator, files, baseLogger.With("component", "httpapi")),
		logger:    baseLogger,
	}, nil
}

// Generator exposes the pipeline for the CLI's synchronous path.
func (a *Application) Generator() *usecase.Generator {
	return a.generator
}

// Files exposes the factsheet library.
func (a *Application) Files() ports.FactsheetFiles {
	return a.files
}

// Handler returns the HTTP API handler.
func (a *Application) Handler() http.Handler {
	return a.api.Routes()
}
