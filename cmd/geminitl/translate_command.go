package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AZAnthonyN/GeminiTL/internal/config"
	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/phase"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var skipGlossary bool
	var glossaryOnly bool
	var skipProofing bool
	var providerFlag string
	var sourceLang string
	var glossaryFile string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the chapters already staged in the input directory",
		Long: `Translate runs the pipeline once over the flat input directory, without
queueing job folders. Useful for re-running a single batch of chapters or for
building a glossary in isolation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipGlossary && glossaryOnly {
				return fmt.Errorf("specify only one of --skip-glossary or --glossary-only")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyTranslateOverrides(cfg, providerFlag, sourceLang)

			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

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

			mode := phase.ModeFull
			switch {
			case skipGlossary:
				mode = phase.ModeSkipGlossary
			case glossaryOnly:
				mode = phase.ModeGlossaryOnly
			}

			err = controller.Run(signalCtx, phase.RunOptions{
				Mode:         mode,
				SkipProofing: skipProofing,
				GlossaryFile: glossaryFile,
			}, gate, token)
			if services.IsCancelled(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "Translation cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Translation finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipGlossary, "skip-glossary", false, "Start at the translation phase")
	cmd.Flags().BoolVar(&glossaryOnly, "glossary-only", false, "Build the glossary and stop")
	cmd.Flags().BoolVar(&skipProofing, "no-proofing", false, "Skip the proofing phase")
	cmd.Flags().StringVar(&providerFlag, "provider", "", "Preferred provider for this run")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "Source language override")
	cmd.Flags().StringVarP(&glossaryFile, "glossary", "g", "", "Existing glossary file to use")
	return cmd
}

func applyTranslateOverrides(cfg *config.Config, providerFlag, sourceLang string) {
	if name := strings.ToLower(strings.TrimSpace(providerFlag)); name != "" {
		if _, err := providers.ParseKind(name); err == nil {
			cfg.Translation.DefaultProvider = name
		}
	}
	if lang := strings.TrimSpace(sourceLang); lang != "" {
		cfg.Translation.SourceLanguage = config.CanonicalLanguage(lang)
	}
}
