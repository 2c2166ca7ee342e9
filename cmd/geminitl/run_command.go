package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/organizer"
	"github.com/AZAnthonyN/GeminiTL/internal/phase"
	"github.com/AZAnthonyN/GeminiTL/internal/queue"
	"github.com/AZAnthonyN/GeminiTL/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipProofing bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Translate every job folder under the input directory",
		Long: `Run discovers job folders under the input directory (subdirectories
containing .txt chapters), queues them, and translates them one at a time
through the glossary, translation, and proofing phases.

SIGINT or SIGTERM cancels the batch; SIGUSR1 pauses it and SIGUSR2 resumes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			lock := flock.New(cfg.Paths.LockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another run holds the lock at %s", cfg.Paths.LockPath)
			}
			defer lock.Unlock()

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			token := control.NewToken()
			gate := control.NewGate()
			go func() {
				<-signalCtx.Done()
				token.Cancel()
			}()
			watchPauseSignals(gate, logger)

			orchestrator, err := buildOrchestrator(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			controller := buildController(cfg, orchestrator, logger)

			store, err := queue.Open(cfg.Paths.DatabasePath)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}
			defer store.Close()

			runner := &jobRunner{
				controller: controller,
				opts:       phase.RunOptions{Mode: phase.ModeFull, SkipProofing: skipProofing},
			}
			stager := organizer.New(cfg.Paths.InputDir, cfg.Paths.OutputDir,
				organizer.WithLogger(logging.NewComponentLogger(logger, "organizer")))
			manager := workflow.New(cfg.Paths.InputDir, store, runner, stager,
				workflow.WithLogger(logging.NewComponentLogger(logger, "workflow")))

			report, err := manager.Run(signalCtx, gate, token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Cancelled {
				fmt.Fprintf(out, "Run cancelled: %d completed, %d failed\n", report.Completed, report.Failed)
				return nil
			}
			fmt.Fprintf(out, "Run finished: %d completed, %d failed, %d skipped\n",
				report.Completed, report.Failed, report.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipProofing, "no-proofing", false, "Skip the proofing phase")
	return cmd
}

// watchPauseSignals maps SIGUSR1/SIGUSR2 to pausing and resuming the pipeline
// gate for the life of the process.
func watchPauseSignals(gate *control.Gate, logger *slog.Logger) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGUSR1:
				gate.Pause()
				logger.Info("pipeline paused")
			case syscall.SIGUSR2:
				gate.Resume()
				logger.Info("pipeline resumed")
			}
		}
	}()
}
