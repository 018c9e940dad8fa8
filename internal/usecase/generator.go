package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"factsheetgen/internal/bundle"
	"factsheetgen/internal/domain"
	"factsheetgen/internal/extractor"
	"factsheetgen/internal/ports"
	"factsheetgen/internal/synth"
	"factsheetgen/internal/task"
)

const (
	progressPerPage    = 10
	progressFetchCeil  = 50
	progressSynthStart = 60
	progressSaving     = 80
	progressDone       = 100
)

// Request is the inbound generation request.
type Request struct {
	SourceURL       string
	ModelIdentifier string // empty selects the backend default
}

// GeneratorDeps wires all driven adapters into the orchestration pipeline.
type GeneratorDeps struct {
	Extractor  *extractor.Extractor
	Engine     *synth.Engine
	Tasks      *task.Store
	Files      ports.FactsheetFiles      // optional
	Repository ports.FactsheetRepository // optional
	Logger     *slog.Logger

	MaxBundleChars int
	TaskBudget     time.Duration
	MaxInFlight    int
}

// Generator orchestrates extraction and synthesis as cancellable,
// observable tasks.
type Generator struct {
	extractor  *extractor.Extractor
	engine     *synth.Engine
	tasks      *task.Store
	files      ports.FactsheetFiles
	repository ports.FactsheetRepository
	logger     *slog.Logger

	maxBundleChars int
	budget         time.Duration
	sem            chan struct{}
}

// NewGenerator constructs the orchestration component.
func NewGenerator(deps GeneratorDeps) *Generator {
	if deps.MaxInFlight <= 0 {
		deps.MaxInFlight = 4
	}
	if deps.TaskBudget <= 0 {
		deps.TaskBudget = 2 * time.Minute
	}
	if deps.MaxBundleChars <= 0 {
		deps.MaxBundleChars = 10000
	}
	return &Generator{
		extractor:      deps.Extractor,
		engine:         deps.Engine,
		tasks:          deps.Tasks,
		files:          deps.Files,
		repository:     deps.Repository,
		logger:         deps.Logger,
		maxBundleChars: deps.MaxBundleChars,
		budget:         deps.TaskBudget,
		sem:            make(chan struct{}, deps.MaxInFlight),
	}
}

// Submit validates the request, allocates a queued task, and schedules the
// work. Returns the task id immediately. A malformed URL fails fast with a
// validation failure and no task is created.
func (g *Generator) Submit(req Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	t := g.tasks.Create()
	go g.run(t.ID, req)
	return t.ID, nil
}

// Generate is the synchronous path: the same state progression runs inline
// and the terminal task snapshot comes back directly.
func (g *Generator) Generate(ctx context.Context, req Request) (domain.Task, error) {
	if err := validateRequest(req); err != nil {
		return domain.Task{}, err
	}
	t := g.tasks.Create()
	g.runWithBudget(ctx, t.ID, req)
	return g.tasks.Get(t.ID)
}

// Status returns the current task snapshot.
func (g *Generator) Status(taskID string) (domain.Task, error) {
	return g.tasks.Get(taskID)
}

// ActiveTasks counts tasks still in flight, for health reporting.
func (g *Generator) ActiveTasks() int {
	return g.tasks.ActiveCount()
}

// Cancel marks a task for cooperative cancellation. The pipeline checks
// the flag between page fetches and around the synthesis call; a task
// already inside the generative call may finish that single call before
// honoring the request.
func (g *Generator) Cancel(taskID string) error {
	return g.tasks.RequestCancel(taskID)
}

func validateRequest(req Request) error {
	u, err := url.Parse(req.SourceURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewFailure(domain.KindValidation, fmt.Sprintf("source_url %q is not an absolute http/https URL", req.SourceURL))
	}
	return nil
}

func (g *Generator) run(taskID string, req Request) {
	g.sem <- struct{}{}
	defer func() { <-g.sem }()
	g.runWithBudget(context.Background(), taskID, req)
}

// runWithBudget enforces the overall wall-clock budget. The watchdog fires
// even while a generative call is outstanding; the late result then lands
// on a finalized task and is discarded by the store.
func (g *Generator) runWithBudget(parent context.Context, taskID string, req Request) {
	ctx, cancel := context.WithTimeout(parent, g.budget)
	defer cancel()

	watchdog := time.AfterFunc(g.budget, func() {
		g.fail(taskID, domain.KindTimeout, "task exceeded its time budget")
	})
	defer watchdog.Stop()

	g.execute(ctx, taskID, req)
}

func (g *Generator) execute(ctx context.Context, taskID string, req Request) {
	logger := g.logger
	if logger != nil {
		logger = logger.With("task_id", taskID, "url", req.SourceURL)
	}

	if err := g.tasks.Update(taskID, func(t *domain.Task) {
		t.State = domain.TaskFetching
		t.Progress = progressPerPage
		t.Message = "fetching site content"
	}); err != nil {
		return
	}

	if g.repository != nil && logger != nil {
		if seen, err := g.repository.AlreadyGenerated(ctx, req.SourceURL); err == nil && seen {
			logger.Info("factsheet previously generated for this site, regenerating")
		}
	}

	// Cancellation token for the fetch loop: checked before extraction and
	// after every resolved page attempt.
	fetchCtx, stopFetching := context.WithCancel(ctx)
	defer stopFetching()
	if g.tasks.CancelRequested(taskID) {
		g.fail(taskID, domain.KindCancelled, "task cancelled")
		return
	}

	extraction, err := g.extractor.Extract(fetchCtx, req.SourceURL, func() {
		_ = g.tasks.Update(taskID, func(t *domain.Task) {
			if t.Progress+progressPerPage <= progressFetchCeil {
				t.Progress += progressPerPage
			}
		})
		if g.tasks.CancelRequested(taskID) {
			stopFetching()
		}
	})
	if err != nil {
		g.failFromContext(taskID, ctx)
		return
	}
	if g.tasks.CancelRequested(taskID) {
		g.fail(taskID, domain.KindCancelled, "task cancelled")
		return
	}

	// Bundle construction starts only after every page attempt resolved.
	b := bundle.Build(req.SourceURL, extraction.Pages, g.maxBundleChars)
	if logger != nil {
		logger.Info("content bundled",
			"attempts", len(extraction.Attempts),
			"pages", len(b.Pages),
			"chars", b.TotalChars,
			"truncated", b.Truncated,
			"empty", b.Empty)
	}

	if err := g.tasks.Update(taskID, func(t *domain.Task) {
		t.State = domain.TaskSynthesizing
		t.Progress = progressSynthStart
		t.Message = "generating factsheet"
	}); err != nil {
		return
	}

	result, err := g.engine.Synthesize(ctx, b, req.ModelIdentifier)
	if err != nil {
		if ctx.Err() != nil || g.tasks.CancelRequested(taskID) {
			g.failFromContext(taskID, ctx)
			return
		}
		if logger != nil {
			logger.Error("synthesis failed", "error", err)
		}
		g.fail(taskID, domain.KindSynthesis, "generative service did not produce a usable factsheet")
		return
	}
	// A task cancelled mid-call finishes that call, then honors the request.
	if g.tasks.CancelRequested(taskID) {
		g.fail(taskID, domain.KindCancelled, "task cancelled")
		return
	}

	g.persist(taskID, result, logger)

	_ = g.tasks.Update(taskID, func(t *domain.Task) {
		t.State = domain.TaskCompleted
		t.Progress = progressDone
		t.Message = "factsheet generated"
		t.Result = &result
	})
	if logger != nil {
		logger.Info("factsheet generated", "words", result.WordCount)
	}
}

// persist saves the finished document through the optional storage
// adapters. Storage trouble is logged, never turned into task failure:
// the caller still gets the result content.
func (g *Generator) persist(taskID string, result domain.FactsheetResult, logger *slog.Logger) {
	if g.files == nil && g.repository == nil {
		return
	}
	_ = g.tasks.Update(taskID, func(t *domain.Task) {
		t.Progress = progressSaving
		t.Message = "saving factsheet"
	})

	filename := ""
	if g.files != nil {
		name, err := g.files.Save(result)
		if err != nil && logger != nil {
			logger.Warn("could not save factsheet file", "error", err)
		}
		filename = name
	}
	if g.repository != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.repository.SaveGenerated(ctx, result, filename); err != nil && logger != nil {
			logger.Warn("could not record factsheet in repository", "error", err)
		}
	}
}

func (g *Generator) failFromContext(taskID string, ctx context.Context) {
	switch {
	case g.tasks.CancelRequested(taskID):
		g.fail(taskID, domain.KindCancelled, "task cancelled")
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		g.fail(taskID, domain.KindTimeout, "task exceeded its time budget")
	default:
		g.fail(taskID, domain.KindCancelled, "task cancelled")
	}
}

func (g *Generator) fail(taskID string, kind domain.FailureKind, message string) {
	_ = g.tasks.Update(taskID, func(t *domain.Task) {
		t.State = domain.TaskFailed
		t.Message = message
		t.Failure = domain.NewFailure(kind, message)
	})
}
