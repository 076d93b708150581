package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/ranking"
	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/core/services"
)

func TestParseMove(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		requests []string
		expected services.LineMove
		wantErr  string
	}{
		{
			name:     "short form with one request",
			input:    "42:2",
			requests: []string{"req-1"},
			expected: services.LineMove{RequestID: "req-1", EmployeeID: 42, Line: 2},
		},
		{
			name:     "full form",
			input:    "req-2:7:1",
			requests: []string{"req-1", "req-2"},
			expected: services.LineMove{RequestID: "req-2", EmployeeID: 7, Line: 1},
		},
		{
			name:     "short form with several requests",
			input:    "42:2",
			requests: []string{"req-1", "req-2"},
			wantErr:  "must name the request",
		},
		{
			name:     "bad employee id",
			input:    "abc:2",
			requests: []string{"req-1"},
			wantErr:  "employee id",
		},
		{
			name:     "bad line",
			input:    "42:x",
			requests: []string{"req-1"},
			wantErr:  "line in move",
		},
		{
			name:     "wrong shape",
			input:    "42",
			requests: []string{"req-1"},
			wantErr:  "[request:]employee:line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			move, err := parseMove(tt.input, tt.requests)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, move)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = parseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("10/03/2025")
	assert.Error(t, err)
}

func testPlan(assigned int) *allocator.Plan {
	req := &model.ManpowerRequest{
		ID:              "req-1",
		SubSection:      model.SubSection{ID: "ss-packing"},
		Date:            time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Shift:           "morning",
		RequestedAmount: 2,
	}
	plan := allocator.NewPlan("ss-packing", req.Date, allocator.StrategyRanked)
	rp := &allocator.RequestPlan{Request: req, Slots: make([]allocator.Slot, 2)}
	for i := range rp.Slots {
		rp.Slots[i].Position = i
	}
	for i := 0; i < assigned; i++ {
		rp.Slots[i].Candidate = &ranking.Result{
			Employee:   &model.Employee{ID: int64(i + 1), Name: "Employee", Gender: model.GenderFemale},
			FinalScore: 5.5,
		}
	}
	rp.State = allocator.StatePartiallyAssigned
	if assigned == len(rp.Slots) {
		rp.State = allocator.StateFullyAssigned
	}
	plan.Requests = append(plan.Requests, rp)
	return plan
}

func TestBuildOverride(t *testing.T) {
	t.Run("complete plan needs no override", func(t *testing.T) {
		override, err := buildOverride(testPlan(2), false, "", "")
		require.NoError(t, err)
		assert.Nil(t, override)
	})

	t.Run("incomplete plan without force", func(t *testing.T) {
		_, err := buildOverride(testPlan(1), false, "ops", "short staffed")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("incomplete plan with force", func(t *testing.T) {
		override, err := buildOverride(testPlan(1), true, "ops", "short staffed")
		require.NoError(t, err)
		require.NotNil(t, override)
		assert.Equal(t, "ops", override.Operator)
		assert.Equal(t, "short staffed", override.Reason)
		assert.False(t, override.At.IsZero())
	})
}

func TestPrintPlan(t *testing.T) {
	var buf bytes.Buffer
	printPlan(&buf, testPlan(1))
	out := buf.String()

	assert.Contains(t, out, "Sub-section: ss-packing")
	assert.Contains(t, out, "2025-03-10 (Monday)")
	assert.Contains(t, out, "req-1: 1/2 assigned")
	assert.Contains(t, out, "(empty)")
	assert.Contains(t, out, "female")
}

func TestPrintRanking_Limit(t *testing.T) {
	req := &model.ManpowerRequest{
		ID:         "req-1",
		SubSection: model.SubSection{ID: "ss-packing"},
		Date:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Shift:      "morning",
	}
	result := &services.RankingResult{Request: req, Backend: scoring.BackendLinear, Fallback: true}
	for i := 1; i <= 3; i++ {
		result.Results = append(result.Results, ranking.Result{
			Employee: &model.Employee{ID: int64(i), Name: "A very long employee name indeed"},
			Position: i,
		})
	}

	var buf bytes.Buffer
	printRanking(&buf, result, 2)
	out := buf.String()

	assert.Contains(t, out, "heuristic fallback")
	assert.Contains(t, out, "A very long employee ...")
	assert.Contains(t, out, "1 more")
}

func TestPrintModelInfo_Untrained(t *testing.T) {
	var buf bytes.Buffer
	printModelInfo(&buf, services.ModelInfo{Backend: scoring.BackendEnsemble, ScoresWithHeuristic: true})
	assert.Contains(t, buf.String(), "untrained")
}

func TestReadExamplesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"features": {"rating": 0.5}, "label": 0, "source": "snap"}]`), 0o644))

	raw, err := readExamplesFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "snap", raw[0].Source)

	_, err = readExamplesFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open examples file")
}

func TestTrainCmd_ExamplesFlag(t *testing.T) {
	cmd := TrainCmd(&AppContext{})
	flag := cmd.Flags().Lookup("examples")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestRunDirect_ResetsFlags(t *testing.T) {
	var seen [][]int
	cmd := &cobra.Command{
		Use:  "counts",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, _ := cmd.Flags().GetIntSlice("line-counts")
			seen = append(seen, counts)
			return nil
		},
	}
	cmd.Flags().IntSlice("line-counts", nil, "")

	require.NoError(t, runDirect(cmd, []string{"--line-counts", "4,3"}))
	require.NoError(t, runDirect(cmd, nil))
	require.Len(t, seen, 2)
	assert.Equal(t, []int{4, 3}, seen[0])
	assert.Empty(t, seen[1])

	err := runDirect(cmd, []string{"extra"})
	assert.Error(t, err)
}

func TestPrintInteractiveHelp_Sorted(t *testing.T) {
	commands := map[string]*cobra.Command{
		"train": {Use: "train", Short: "Train"},
		"rank":  {Use: "rank <request_id>", Short: "Rank"},
	}
	var buf bytes.Buffer
	printInteractiveHelp(&buf, commands)
	out := buf.String()
	assert.Less(t, strings.Index(out, "rank"), strings.Index(out, "train"))
}
