package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/config"
	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/fallback"
	"github.com/AZAnthonyN/GeminiTL/internal/glossary"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/ocr"
	"github.com/AZAnthonyN/GeminiTL/internal/phase"
	"github.com/AZAnthonyN/GeminiTL/internal/proofing"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/registry"
	"github.com/AZAnthonyN/GeminiTL/internal/queue"
	"github.com/AZAnthonyN/GeminiTL/internal/translate"
)

// buildOrchestrator constructs adapters for every enabled provider and wraps
// them in the fallback orchestrator. Initialization happens here so callers
// get a ready-to-use engine or an error.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*fallback.Orchestrator, error) {
	names := cfg.EnabledProviders()
	if len(names) == 0 {
		return nil, fmt.Errorf("no providers enabled; enable at least one in the [providers] config section")
	}

	adapters := make([]providers.Adapter, 0, len(names))
	for _, name := range names {
		adapter, err := registry.FromName(name, cfg.ProviderSettings(name))
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		adapters = append(adapters, adapter)
	}

	orchestrator := fallback.New(fallback.Config{
		DefaultProvider:    cfg.Translation.DefaultProvider,
		FallbackOrder:      cfg.Translation.FallbackOrder,
		MaxRetries:         cfg.Retry.MaxRetries,
		BaseDelay:          time.Duration(cfg.Retry.BaseDelaySeconds * float64(time.Second)),
		ExponentialBackoff: cfg.Retry.ExponentialBackoff,
	}, adapters, fallback.WithLogger(logger))
	orchestrator.Initialize(ctx)
	if len(orchestrator.Available()) == 0 {
		return nil, fmt.Errorf("no providers initialized; check API keys in provider settings")
	}
	return orchestrator, nil
}

// buildController wires the phase controller and its collaborators from
// configuration. The glossary lives under the configured glossary directory.
func buildController(cfg *config.Config, engine *fallback.Orchestrator, logger *slog.Logger) *phase.Controller {
	glossaries := glossary.New(cfg.Paths.GlossaryDir, engine,
		glossary.WithLogger(logging.NewComponentLogger(logger, "glossary")))
	translator := translate.New(engine, glossaries, cfg.Translation.SourceLanguage,
		translate.WithLogger(logging.NewComponentLogger(logger, "translate")),
		translate.WithPreferredProvider(cfg.Translation.DefaultProvider),
		translate.WithMaxChunkBytes(cfg.Workflow.MaxChapterChunkBytes))
	proofreader := proofing.New(engine,
		proofing.WithLogger(logging.NewComponentLogger(logger, "proofing")),
		proofing.WithMinSize(cfg.Workflow.ProofingMinSizeBytes))

	opts := []phase.Option{
		phase.WithLogger(logging.NewComponentLogger(logger, "phase")),
	}
	if provider, ok := cfg.Providers["gemini"]; ok && provider.Enabled {
		extractor := ocr.New(cfg.ProviderSettings("gemini"),
			ocr.WithLogger(logging.NewComponentLogger(logger, "ocr")))
		opts = append(opts, phase.WithOCR(extractor))
	}

	return phase.New(phase.Config{
		InputDir:             cfg.Paths.InputDir,
		OutputDir:            cfg.Paths.OutputDir,
		SourceLanguage:       cfg.Translation.SourceLanguage,
		GlossaryDelay:        time.Duration(cfg.Workflow.GlossaryDelaySeconds) * time.Second,
		SizeDeviationPercent: cfg.Workflow.SizeDeviationPercent,
		SizeDeviationKB:      cfg.Workflow.SizeDeviationKB,
		SizeRetryLimit:       cfg.Workflow.SizeRetryLimit,
		SizeRetryBase:        time.Duration(cfg.Workflow.SizeRetryBaseSeconds) * time.Second,
		RequestTimeout:       time.Duration(cfg.Workflow.RequestTimeoutSeconds) * time.Second,
	}, translator, glossaries, proofreader, opts...)
}

// jobRunner adapts the phase controller to the workflow Runner interface.
type jobRunner struct {
	controller *phase.Controller
	opts       phase.RunOptions
}

func (r *jobRunner) RunJob(ctx context.Context, job *queue.Job, gate *control.Gate, token *control.Token) error {
	opts := r.opts
	opts.JobFolder = job.Folder
	return r.controller.Run(ctx, opts, gate, token)
}
