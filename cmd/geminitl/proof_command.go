package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/phase"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

func newProofCommand(ctx *commandContext) *cobra.Command {
	var subphase string
	var glossaryFile string

	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Run the proofing phase over existing translated output",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.TrimSpace(subphase) {
			case "", phase.SubphaseNonEnglish, phase.SubphaseGender, phase.SubphaseFinal:
			default:
				return fmt.Errorf("unknown subphase %q (expected %s, %s, or %s)",
					subphase, phase.SubphaseNonEnglish, phase.SubphaseGender, phase.SubphaseFinal)
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
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

			orchestrator, err := buildOrchestrator(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			controller := buildController(cfg, orchestrator, logger)

			err = controller.Run(signalCtx, phase.RunOptions{
				Mode:         phase.ModeProofingOnly,
				Subphase:     strings.TrimSpace(subphase),
				GlossaryFile: glossaryFile,
			}, gate, token)
			if services.IsCancelled(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "Proofing cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Proofing finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&subphase, "subphase", "", "Run only one subphase (non-english, gender, final)")
	cmd.Flags().StringVarP(&glossaryFile, "glossary", "g", "", "Glossary file for term-aware proofing")
	return cmd
}
