package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/services"
)

// RankCmd creates the rank command
func RankCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <request_id>",
		Short: "Rank available employees for a request with a score breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dateFlag, _ := cmd.Flags().GetString("date")
			limit, _ := cmd.Flags().GetInt("limit")

			ref, err := parseDate(dateFlag)
			if err != nil {
				return err
			}

			app.Logger.Debug("rank command",
				zap.String("request_id", args[0]),
				zap.String("date", dateFlag))

			result, err := services.RankCandidates(app.Ctx, app.Database, app.Engine, app.Logger, args[0], ref)
			if err != nil {
				return err
			}

			printRanking(os.Stdout, result, limit)
			return nil
		},
	}

	cmd.Flags().String("date", "", "Reference date for feature windows (YYYY-MM-DD, defaults to the request date)")
	cmd.Flags().Int("limit", 0, "Show only the top N candidates (0 shows all)")

	return cmd
}

// parseDate accepts YYYY-MM-DD; an empty string is the zero time
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func printRanking(w io.Writer, result *services.RankingResult, limit int) {
	req := result.Request
	fmt.Fprintf(w, "\nRanking for request %s (%s, %s shift, %s)\n",
		req.ID, req.SubSection.ID, req.Shift, req.Date.Format(time.DateOnly))

	backend := result.Backend
	if result.Fallback {
		backend = fmt.Sprintf("%s%s (heuristic fallback)%s", colorYellow, backend, colorReset)
	}
	fmt.Fprintf(w, "Scored with: %s\n\n", backend)

	if len(result.Results) == 0 {
		fmt.Fprintln(w, "No available employees.")
		return
	}

	fmt.Fprintf(w, "%4s  %-8s %-24s %8s %8s %7s %8s %7s %8s\n",
		"#", "ID", "Name", "Workload", "Test", "Rating", "ML", "Boost", "Final")

	for i, r := range result.Results {
		if limit > 0 && i >= limit {
			fmt.Fprintf(w, "%s... %d more%s\n", colorDim, len(result.Results)-limit, colorReset)
			break
		}
		name := r.Employee.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(w, "%4d  %-8d %-24s %8.2f %8.2f %7.2f %8.2f %7.2f %8.2f\n",
			r.Position, r.EmployeeID(), name,
			r.WorkloadPoints, r.BlindTestPoints, r.Rating, r.MLScore, r.PriorityBoost, r.FinalScore)
	}
	fmt.Fprintln(w)
}
