package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/sonavox/callaudit/internal/analyzer"
	"github.com/sonavox/callaudit/internal/compare"
	"github.com/sonavox/callaudit/internal/observe"
	"github.com/sonavox/callaudit/pkg/audio"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		transcriptPath string
		callID         string
	)

	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Analyze a call recording for conversation-flow problems",
		Long: `Analyze decodes a call recording, detects pauses, interruptions and
abrupt endings, and prints the full analysis as JSON. A transcript file with
turn timestamps sharpens attribution and enables overlap-based interruption
detection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Server.LogLevel)

			ac := analyzerConfig(cfg)
			wave, err := audio.DecodeFile(args[0], ac.SampleRate)
			if err != nil {
				return err
			}

			var timeline []analyzer.Turn
			if transcriptPath != "" {
				data, err := os.ReadFile(transcriptPath)
				if err != nil {
					return fmt.Errorf("cli: read transcript %q: %w", transcriptPath, err)
				}
				if timeline, err = analyzer.ParseTranscript(data); err != nil {
					return err
				}
			}

			started := time.Now()
			res, err := analyzer.New(ac, analyzer.WithLogger(log)).Analyze(wave, timeline)
			if err != nil {
				return err
			}
			m := observe.DefaultMetrics()
			m.AnalysisDuration.Record(cmd.Context(),
				time.Since(started).Seconds(),
				metric.WithAttributes(observe.Attr("source", "cli")),
			)
			for _, tl := range compare.ExtractTurnLatencies(res.Timeline) {
				m.AgentTurnLatency.Record(cmd.Context(), tl.Latency,
					metric.WithAttributes(observe.Attr("source", "analysis")))
			}

			if callID != "" && cfg.Storage.PostgresDSN != "" {
				store, err := newStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.SaveCallAnalysis(cmd.Context(), callID, args[0], res); err != nil {
					return err
				}
				log.Info("analysis persisted", "call_id", callID)
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("cli: encode analysis: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "path to a JSON transcript with turn timestamps")
	cmd.Flags().StringVar(&callID, "call-id", "", "persist the analysis under this call ID (requires storage.postgres_dsn)")
	return cmd
}
