// Package training assembles labeled examples from historical allocations.
//
// Positives are employees who were scheduled for a request (label 1). Negatives
// are employees who were available on the request date but not scheduled that day
// (label 0).
package training

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/scoring"
)

const (
	DefaultLookbackDays = 90
	DefaultMaxNegatives = 50
)

// Source is the read model the collector needs
type Source interface {
	// ScheduleRecordsSince returns schedule records dated on or after since
	ScheduleRecordsSince(ctx context.Context, since time.Time) ([]model.ScheduleRecord, error)
	GetRequest(ctx context.Context, id string) (*model.ManpowerRequest, error)
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	// AvailableEmployees returns the employees who could have worked on the date
	AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error)
}

// Config bounds a collection run
type Config struct {
	LookbackDays int
	MaxNegatives int
}

func DefaultConfig() Config {
	return Config{LookbackDays: DefaultLookbackDays, MaxNegatives: DefaultMaxNegatives}
}

// Collector builds training examples from a Source
type Collector struct {
	source    Source
	extractor *features.Extractor
	cfg       Config
	logger    *zap.Logger
}

func NewCollector(source Source, extractor *features.Extractor, cfg Config, logger *zap.Logger) *Collector {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.MaxNegatives < 0 {
		cfg.MaxNegatives = DefaultMaxNegatives
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{source: source, extractor: extractor, cfg: cfg, logger: logger}
}

// Stats summarizes a collection run
type Stats struct {
	Records   int
	Positives int
	Negatives int
	Skipped   int
}

// Collect returns the examples for the lookback window ending at now. It never
// fails: a record that cannot be enriched is skipped with a warning, and a
// failure to read the history at all yields an empty set.
func (c *Collector) Collect(ctx context.Context, now time.Time) (examples []scoring.Example, stats Stats) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Training data collection failed", zap.Any("panic", r))
			examples, stats = []scoring.Example{}, Stats{}
		}
	}()

	since := model.DayStart(now).AddDate(0, 0, -c.cfg.LookbackDays)
	records, err := c.source.ScheduleRecordsSince(ctx, since)
	if err != nil {
		c.logger.Error("Failed to read schedule history, no training data collected",
			zap.Time("since", since),
			zap.Error(err))
		return []scoring.Example{}, Stats{}
	}
	stats.Records = len(records)

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})

	requests := make(map[string]*model.ManpowerRequest)
	employees := make(map[int64]*model.Employee)
	// assigned tracks employees scheduled per day, to exclude them from negatives
	assigned := make(map[string]map[int64]bool)
	var requestOrder []string

	examples = []scoring.Example{}
	for _, rec := range records {
		log := c.logger.With(zap.String("schedule_id", rec.ID), zap.Int64("employee_id", rec.EmployeeID))

		day := dayKey(rec.Date)
		if assigned[day] == nil {
			assigned[day] = make(map[int64]bool)
		}
		assigned[day][rec.EmployeeID] = true

		req, seen := requests[rec.RequestID]
		if !seen {
			req = c.request(ctx, rec, log)
			requests[rec.RequestID] = req
			requestOrder = append(requestOrder, rec.RequestID)
		}

		emp, ok := employees[rec.EmployeeID]
		if !ok {
			emp, err = c.source.GetEmployee(ctx, rec.EmployeeID)
			if err != nil || emp == nil {
				log.Warn("Skipping schedule record, employee not found", zap.Error(err))
				stats.Skipped++
				continue
			}
			employees[rec.EmployeeID] = emp
		}

		ex, ok := c.example(emp, req, 1, "schedule:"+rec.ID, log)
		if !ok {
			stats.Skipped++
			continue
		}
		examples = append(examples, ex)
		stats.Positives++
	}

	// Negatives: available but unassigned on the request date, capped per run
	available := make(map[string][]model.Employee)
	for _, id := range requestOrder {
		if stats.Negatives >= c.cfg.MaxNegatives {
			break
		}
		req := requests[id]
		day := dayKey(req.Date)
		if assigned[day] == nil {
			assigned[day] = make(map[int64]bool)
		}

		pool, ok := available[day]
		if !ok {
			pool, err = c.source.AvailableEmployees(ctx, req.Date)
			if err != nil {
				c.logger.Warn("Failed to read available employees, skipping negatives for date",
					zap.String("date", day),
					zap.Error(err))
				pool = nil
			}
			sort.SliceStable(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
			available[day] = pool
		}

		for i := range pool {
			if stats.Negatives >= c.cfg.MaxNegatives {
				break
			}
			emp := &pool[i]
			if assigned[day][emp.ID] {
				continue
			}
			log := c.logger.With(zap.String("request_id", req.ID), zap.Int64("employee_id", emp.ID))
			ex, ok := c.example(emp, req, 0, "available:"+req.ID+":"+strconv.FormatInt(emp.ID, 10), log)
			if !ok {
				stats.Skipped++
				continue
			}
			examples = append(examples, ex)
			stats.Negatives++
			// Each employee is a negative at most once per date
			assigned[day][emp.ID] = true
		}
	}

	c.logger.Info("Collected training data",
		zap.Int("records", stats.Records),
		zap.Int("positives", stats.Positives),
		zap.Int("negatives", stats.Negatives),
		zap.Int("skipped", stats.Skipped))

	return examples, stats
}

// request loads the request behind a schedule record, or rebuilds a minimal one
// from the record when the lookup fails
func (c *Collector) request(ctx context.Context, rec model.ScheduleRecord, log *zap.Logger) *model.ManpowerRequest {
	req, err := c.source.GetRequest(ctx, rec.RequestID)
	if err == nil && req != nil {
		return req
	}
	log.Warn("Request not found for schedule record, using record fields",
		zap.String("request_id", rec.RequestID),
		zap.Error(err))
	return &model.ManpowerRequest{
		ID:              rec.RequestID,
		SubSection:      model.SubSection{ID: rec.SubSectionID},
		Date:            rec.Date,
		Shift:           rec.Shift,
		RequestedAmount: 1,
		Status:          model.RequestFulfilled,
	}
}

func (c *Collector) example(emp *model.Employee, req *model.ManpowerRequest, label int, source string, log *zap.Logger) (scoring.Example, bool) {
	v := c.extractor.Extract(emp, req, req.Date)

	raw := make(map[string]any)
	for name, val := range v.Map() {
		raw[name] = val
	}
	if err := features.ValidateFeatureSet(raw); err != nil {
		log.Warn("Skipping example with invalid features", zap.Error(err))
		return scoring.Example{}, false
	}

	return scoring.Example{Features: v, Label: label, Source: source}, true
}

func dayKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
}
