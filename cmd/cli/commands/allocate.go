package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate <request_id>...",
		Short: "Allocate employees to one or more requests for the same sub-section and date",
		Long: `Ranks the available employees for each request and fills the positions.
Several requests are allocated together with one shared candidate pool, so an
employee is never placed on two requests.

Use --submit to write the schedules. A plan that leaves positions empty or
misses a gender quota can only be submitted with --force and a --reason.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, _ := cmd.Flags().GetString("strategy")
			lines, _ := cmd.Flags().GetInt("lines")
			lineCounts, _ := cmd.Flags().GetIntSlice("line-counts")
			moveFlags, _ := cmd.Flags().GetStringArray("move")
			submit, _ := cmd.Flags().GetBool("submit")
			force, _ := cmd.Flags().GetBool("force")
			reason, _ := cmd.Flags().GetString("reason")
			operator, _ := cmd.Flags().GetString("operator")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			moves := make([]services.LineMove, 0, len(moveFlags))
			for _, m := range moveFlags {
				move, err := parseMove(m, args)
				if err != nil {
					return err
				}
				moves = append(moves, move)
			}

			app.Logger.Debug("allocate command",
				zap.Strings("request_ids", args),
				zap.String("strategy", strategy),
				zap.Int("lines", lines),
				zap.Ints("line_counts", lineCounts),
				zap.Bool("submit", submit),
				zap.Bool("dry_run", dryRun))

			plan, allocErr := services.AllocateRequests(app.Ctx, app.Database, app.Engine, app.Cfg, app.Logger, services.AllocateOptions{
				RequestIDs: args,
				Strategy:   strategy,
				Lines:      lines,
				LineCounts: lineCounts,
				Moves:      moves,
			})
			if plan == nil {
				return allocErr
			}

			printPlan(os.Stdout, plan)

			if allocErr != nil {
				if !errors.Is(allocErr, errs.ErrConstraintViolation) {
					return allocErr
				}
				fmt.Printf("%s⚠️  Plan is incomplete:%s\n", colorYellow, colorReset)
				for _, line := range strings.Split(allocErr.Error(), "\n") {
					fmt.Printf("  %s\n", line)
				}
				fmt.Println()
			}

			if !submit {
				return nil
			}
			if dryRun {
				fmt.Println("DRY RUN: plan not submitted")
				return nil
			}

			override, err := buildOverride(plan, force, operator, reason)
			if err != nil {
				return err
			}

			records, err := services.SubmitPlan(app.Ctx, app.Database, app.Engine, app.Logger, plan, override)
			if err != nil {
				return err
			}

			fmt.Printf("%s✓ Plan submitted: %d schedules written%s\n\n", colorGreen, len(records), colorReset)
			return nil
		},
	}

	cmd.Flags().String("strategy", "", "Candidate ordering: ranked, optimal, same_section or balanced")
	cmd.Flags().Int("lines", 0, "Number of production lines per request")
	cmd.Flags().IntSlice("line-counts", nil, "Explicit headcount per line (e.g. 4,3,3)")
	cmd.Flags().StringArray("move", nil, "Move an employee to a line after allocation: [request:]employee:line")
	cmd.Flags().Bool("submit", false, "Submit the plan and write schedules")
	cmd.Flags().Bool("force", false, "Allow submitting an incomplete plan (requires --reason)")
	cmd.Flags().String("reason", "", "Reason recorded when forcing an incomplete submission")
	cmd.Flags().String("operator", os.Getenv("USER"), "Operator recorded when forcing an incomplete submission")
	cmd.Flags().Bool("dry-run", false, "Build and show the plan without submitting")

	return cmd
}

// parseMove reads "employee:line" or "request:employee:line". The short form
// is only accepted when a single request is being allocated.
func parseMove(s string, requestIDs []string) (services.LineMove, error) {
	parts := strings.Split(s, ":")

	var requestID string
	switch len(parts) {
	case 2:
		if len(requestIDs) != 1 {
			return services.LineMove{}, fmt.Errorf("move %q must name the request when allocating several requests", s)
		}
		requestID = requestIDs[0]
	case 3:
		requestID = parts[0]
		parts = parts[1:]
	default:
		return services.LineMove{}, fmt.Errorf("move must be [request:]employee:line, got %q", s)
	}

	employeeID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return services.LineMove{}, fmt.Errorf("employee id in move %q must be a number: %w", s, err)
	}
	line, err := strconv.Atoi(parts[1])
	if err != nil {
		return services.LineMove{}, fmt.Errorf("line in move %q must be a number: %w", s, err)
	}

	return services.LineMove{RequestID: requestID, EmployeeID: employeeID, Line: line}, nil
}

// buildOverride returns nil for a complete plan. An incomplete plan needs --force.
func buildOverride(plan *allocator.Plan, force bool, operator, reason string) (*allocator.Override, error) {
	if plan.IsComplete() {
		return nil, nil
	}
	if !force {
		return nil, fmt.Errorf("plan is incomplete: rerun with --force and --reason to submit anyway")
	}
	return &allocator.Override{
		Operator: operator,
		Reason:   reason,
		At:       time.Now().UTC(),
	}, nil
}

func printPlan(w io.Writer, plan *allocator.Plan) {
	fmt.Fprintf(w, "\nPlan %s\n", plan.ID)
	fmt.Fprintf(w, "Sub-section: %s\n", plan.SubSectionID)
	fmt.Fprintf(w, "Date:        %s\n", plan.Date.Format("2006-01-02 (Monday)"))
	fmt.Fprintf(w, "Strategy:    %s\n", plan.Strategy)

	for _, rp := range plan.Requests {
		color := colorGreen
		if rp.State < allocator.StateFullyAssigned {
			color = colorRed
		}
		fmt.Fprintf(w, "\n%s%s%s\n", color, rp.String(), colorReset)

		for _, slot := range rp.Slots {
			marker := " "
			if slot.PriorityPosition {
				marker = "*"
			}
			line := ""
			if slot.Line > 0 {
				line = fmt.Sprintf(" line %d", slot.Line)
			}
			if slot.IsEmpty() {
				fmt.Fprintf(w, "  %s%2d.%s  %s(empty)%s\n", marker, slot.Position, line, colorDim, colorReset)
				continue
			}
			c := slot.Candidate
			fmt.Fprintf(w, "  %s%2d.%s  %-8d %-24s %-7s %6.2f\n",
				marker, slot.Position, line, c.EmployeeID(), c.Employee.Name, c.Employee.Gender, c.FinalScore)
		}

		if rp.Lines > 0 {
			fmt.Fprintf(w, "  Line counts: %v\n", rp.LineCounts())
		}
	}

	if len(plan.ValidationErrors) > 0 {
		fmt.Fprintf(w, "\nValidation errors:\n")
		for _, ve := range plan.ValidationErrors {
			fmt.Fprintf(w, "  %s✗ %s position %d [%s]: %s%s\n",
				colorRed, ve.RequestID, ve.Position, ve.CriterionName, ve.Description, colorReset)
		}
	}
	fmt.Fprintln(w)
}
