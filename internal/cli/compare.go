package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/simulate"
)

func newCompareCmd(configPath *string) *cobra.Command {
	var numSimulations int

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run a head-to-head agent comparison from the config file",
		Long: `Compare simulates the configured scenario against every agent in the
config file, judges the transcripts, and prints the ranked result as JSON.
Agents with source "bolna" are resolved through the Bolna API first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Server.LogLevel)

			if len(cfg.Agents) == 0 {
				return fmt.Errorf("cli: config declares no agents to compare")
			}
			if cfg.Scenario == nil {
				return fmt.Errorf("cli: config declares no scenario")
			}

			store, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			orch, err := buildOrchestrator(cfg, store, log)
			if err != nil {
				return err
			}

			n := cfg.Scenario.NumSimulations
			if numSimulations > 0 {
				n = numSimulations
			}

			ids, configs := agentEntriesToRequest(cfg.Agents)
			result, err := orch.Execute(cmd.Context(), compare.Request{
				ComparisonID: uuid.NewString(),
				AgentIDs:     ids,
				Configs:      configs,
				Scenario: simulate.Scenario{
					AgentOverview:   cfg.Scenario.AgentOverview,
					UserPersona:     cfg.Scenario.UserPersona,
					Situation:       cfg.Scenario.Situation,
					PrimaryLanguage: cfg.Scenario.PrimaryLanguage,
					ExpectedOutcome: cfg.Scenario.ExpectedOutcome,
				},
				NumSimulations: n,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("cli: encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&numSimulations, "num-simulations", 0, "override scenario.num_simulations")
	return cmd
}
