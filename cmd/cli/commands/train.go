package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/core/services"
)

// TrainCmd creates the train command
func TrainCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a scoring model from the schedule history or an examples file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _ := cmd.Flags().GetString("backend")
			lookback, _ := cmd.Flags().GetInt("lookback")
			examplesPath, _ := cmd.Flags().GetString("examples")

			if examplesPath != "" {
				raw, err := readExamplesFile(examplesPath)
				if err != nil {
					return err
				}
				app.Logger.Debug("train command",
					zap.String("backend", backend),
					zap.String("examples", examplesPath),
					zap.Int("count", len(raw)))

				report, err := services.TrainFromExamples(app.Ctx, app.Engine, app.Cfg, app.Logger, backend, raw)
				if report != nil {
					printTrainReport(os.Stdout, report)
				}
				return err
			}

			cfg := *app.Cfg
			if lookback > 0 {
				cfg.Training.LookbackDays = lookback
			}

			app.Logger.Debug("train command",
				zap.String("backend", backend),
				zap.Int("lookback_days", lookback))

			report, err := services.TrainModel(app.Ctx, app.Database, app.Engine, &cfg, app.Logger, backend, time.Now().UTC())
			if report != nil {
				printTrainReport(os.Stdout, report)
			}
			return err
		},
	}

	cmd.Flags().String("backend", "", "Model to train: heuristic, linear or ensemble (defaults to the configured backend)")
	cmd.Flags().Int("lookback", 0, "Days of schedule history to learn from (defaults to the configured lookback)")
	cmd.Flags().String("examples", "", "JSON file of labeled examples to train on instead of the schedule history")

	return cmd
}

func readExamplesFile(path string) ([]scoring.RawExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open examples file: %w", err)
	}
	defer f.Close()
	return scoring.ReadExamples(f)
}

// ModelInfoCmd creates the modelInfo command
func ModelInfoCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "modelInfo",
		Short: "Show the active scoring model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printModelInfo(os.Stdout, services.GetModelInfo(app.Engine))
			return nil
		},
	}
}

func printTrainReport(w io.Writer, report *services.TrainReport) {
	fmt.Fprintf(w, "\nTraining data: %d records, %d positive, %d negative, %d skipped\n",
		report.Stats.Records, report.Stats.Positives, report.Stats.Negatives, report.Stats.Skipped)

	r := report.Result
	if r == nil {
		return
	}
	if !r.Success {
		fmt.Fprintf(w, "%s✗ Training %s failed: %v%s\n\n", colorRed, report.Backend, r.Err, colorReset)
		return
	}

	fmt.Fprintf(w, "%s✓ Trained %s model%s\n", colorGreen, report.Backend, colorReset)
	fmt.Fprintf(w, "  Accuracy:   %.3f\n", r.Accuracy)
	fmt.Fprintf(w, "  Samples:    %d\n", r.SampleCount)
	if r.Dropped > 0 {
		fmt.Fprintf(w, "  Dropped:    %d invalid examples\n", r.Dropped)
	}
	if r.Iterations > 0 {
		fmt.Fprintf(w, "  Iterations: %d\n", r.Iterations)
	}
	fmt.Fprintln(w)
}

func printModelInfo(w io.Writer, info services.ModelInfo) {
	fmt.Fprintf(w, "\nActive backend: %s\n", info.Backend)
	md := info.Metadata
	if !md.Trained {
		if info.ScoresWithHeuristic {
			fmt.Fprintf(w, "%sModel is untrained; scores come from the heuristic%s\n\n", colorYellow, colorReset)
		} else {
			fmt.Fprintln(w)
		}
		return
	}
	fmt.Fprintf(w, "  Version:    %s\n", md.Version)
	fmt.Fprintf(w, "  Accuracy:   %.3f\n", md.Accuracy)
	fmt.Fprintf(w, "  Samples:    %d\n", md.SampleCount)
	fmt.Fprintf(w, "  Trained at: %s\n\n", md.TrainedAt.Format(time.RFC3339))
}
