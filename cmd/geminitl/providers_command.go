package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AZAnthonyN/GeminiTL/internal/providers/registry"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect translation providers",
	}

	providersCmd.AddCommand(newProvidersStatusCommand(ctx))
	providersCmd.AddCommand(newProvidersValidateCommand(ctx))

	return providersCmd
}

func newProvidersValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check each enabled provider's settings without calling the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names := cfg.EnabledProviders()
			if len(names) == 0 {
				return fmt.Errorf("no providers enabled; enable at least one in the [providers] config section")
			}

			rows := make([][]string, 0, len(names))
			invalid := 0
			for _, name := range names {
				adapter, err := registry.FromName(name, cfg.ProviderSettings(name))
				if err != nil {
					return fmt.Errorf("provider %s: %w", name, err)
				}
				result := "ok"
				if err := adapter.ValidateConfig(cfg.ProviderSettings(name)); err != nil {
					result = err.Error()
					invalid++
				}
				rows = append(rows, []string{name, adapter.Model(), result})
			}
			table := renderTable(
				[]string{"Provider", "Model", "Validation"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			if invalid > 0 {
				return fmt.Errorf("%d provider(s) failed validation", invalid)
			}
			return nil
		},
	}
}

func newProvidersStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Initialize configured providers and report availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			orchestrator, err := buildOrchestrator(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0)
			for _, status := range orchestrator.Status() {
				availability := "unavailable"
				if status.Available {
					availability = "available"
				}
				if colorize {
					if status.Available {
						availability = ansiGreen + availability + ansiReset
					} else {
						availability = ansiRed + availability + ansiReset
					}
				}
				rows = append(rows, []string{status.Name, status.Model, availability})
			}
			table := renderTable(
				[]string{"Provider", "Model", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}
}
