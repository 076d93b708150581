package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/manpower/pkg/core/allocator"
	"github.com/jakechorley/manpower/pkg/core/features"
	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/core/priority"
	"github.com/jakechorley/manpower/pkg/core/ranking"
	"github.com/jakechorley/manpower/pkg/core/scoring"
	"github.com/jakechorley/manpower/pkg/core/training"
)

const configBaseName = "manpower_config"

// DefaultRuleStart anchors line override rules that name no start date. It is
// a Monday, so INTERVAL counts weeks from the first week of 2024.
var DefaultRuleStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Model storage kinds
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// LineOverride sets the production lines for requests on dates matching an rrule
type LineOverride struct {
	RRule string `yaml:"rrule" validate:"required"`
	// Start anchors the rule (YYYY-MM-DD) when it carries no DTSTART of its own.
	// Defaults to DefaultRuleStart.
	Start string `yaml:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// SubSectionID restricts the override to one sub-section; empty matches all
	SubSectionID string `yaml:"subSectionID,omitempty"`
	Lines        *int   `yaml:"lines,omitempty" validate:"omitempty,min=1"`
	// LineCounts fixes the size of each line and must sum to the requested amount
	LineCounts []int `yaml:"lineCounts,omitempty" validate:"omitempty,dive,min=0"`
}

// ModelStorage selects where trained models are kept
type ModelStorage struct {
	Kind string `yaml:"kind,omitempty" validate:"omitempty,oneof=file postgres"`
	Dir  string `yaml:"dir,omitempty"`
}

type LinearTraining struct {
	LearningRate float64 `yaml:"learningRate,omitempty" validate:"gte=0"`
	Epochs       int     `yaml:"epochs,omitempty" validate:"gte=0"`
	TargetMAE    float64 `yaml:"targetMAE,omitempty" validate:"gte=0"`
}

type EnsembleTraining struct {
	Trees            int     `yaml:"trees,omitempty" validate:"gte=0"`
	MaxDepth         int     `yaml:"maxDepth,omitempty" validate:"gte=0"`
	MinSamplesLeaf   int     `yaml:"minSamplesLeaf,omitempty" validate:"gte=0"`
	Seed             *uint64 `yaml:"seed,omitempty"`
	MajorityVoteOnly bool    `yaml:"majorityVoteOnly,omitempty"`
}

// Training configures data collection and the trainable backends
type Training struct {
	LookbackDays int              `yaml:"lookbackDays,omitempty" validate:"gte=0"`
	MinSamples   int              `yaml:"minSamples,omitempty" validate:"gte=0"`
	MaxNegatives *int             `yaml:"maxNegatives,omitempty" validate:"omitempty,gte=0"`
	Linear       LinearTraining   `yaml:"linear,omitempty"`
	Ensemble     EnsembleTraining `yaml:"ensemble,omitempty"`
}

// Features configures the extractor's rolling windows
type Features struct {
	WorkDaysWindow   int     `yaml:"workDaysWindow,omitempty" validate:"gte=0"`
	WorkloadWindow   int     `yaml:"workloadWindow,omitempty" validate:"gte=0"`
	WorkloadCapHours float64 `yaml:"workloadCapHours,omitempty" validate:"gte=0"`
}

type Ranking struct {
	MLScale        *float64 `yaml:"mlScale,omitempty" validate:"omitempty,gte=0"`
	PriorityWeight *float64 `yaml:"priorityWeight,omitempty" validate:"omitempty,gte=0"`
}

// Priority configures category weights and priority positions
type Priority struct {
	Weights       map[string]float64 `yaml:"weights,omitempty" validate:"omitempty,dive,gte=0"`
	UnknownWeight *float64           `yaml:"unknownWeight,omitempty" validate:"omitempty,gte=0"`
	PositionRatio int                `yaml:"positionRatio,omitempty" validate:"gte=0"`
	// RatioOverrides maps a sub-section id to its own position ratio
	RatioOverrides map[string]int `yaml:"ratioOverrides,omitempty" validate:"omitempty,dive,min=1"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL     string         `yaml:"databaseURL" validate:"required"`
	ActiveBackend   string         `yaml:"activeBackend,omitempty" validate:"omitempty,oneof=heuristic linear ensemble"`
	DefaultStrategy string         `yaml:"defaultStrategy,omitempty" validate:"omitempty,oneof=ranked optimal same_section balanced"`
	ModelStorage    ModelStorage   `yaml:"modelStorage,omitempty"`
	Training        Training       `yaml:"training,omitempty"`
	Features        Features       `yaml:"features,omitempty"`
	Ranking         Ranking        `yaml:"ranking,omitempty"`
	Priority        Priority       `yaml:"priority,omitempty"`
	LineOverrides   []LineOverride `yaml:"lineOverrides,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from manpower_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv prefers manpower_config.<env>.yaml and falls back to manpower_config.yaml
func LoadWithEnv(env string) (*Config, error) {
	names := []string{configBaseName + ".yaml"}
	if env != "" {
		names = append([]string{configBaseName + "." + env + ".yaml"}, names...)
	}

	configPath, err := findConfigFile(names)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, rrule syntax and line overrides
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, override := range cfg.LineOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in lineOverrides[%d]: %w", i, err)
		}
		if override.Lines == nil && len(override.LineCounts) == 0 {
			return fmt.Errorf("lineOverrides[%d] sets neither lines nor lineCounts", i)
		}
		if override.Lines != nil && len(override.LineCounts) > 0 && *override.Lines != len(override.LineCounts) {
			return fmt.Errorf("lineOverrides[%d] has %d lines but %d lineCounts", i, *override.Lines, len(override.LineCounts))
		}
	}

	if _, err := cfg.PriorityPolicy(); err != nil {
		return fmt.Errorf("invalid priority config: %w", err)
	}

	return nil
}

// Backend returns the configured scoring backend, heuristic when unset
func (c *Config) Backend() string {
	if c.ActiveBackend == "" {
		return scoring.BackendHeuristic
	}
	return c.ActiveBackend
}

// Strategy returns the configured default allocation strategy
func (c *Config) Strategy() allocator.Strategy {
	s, _ := allocator.ParseStrategy(c.DefaultStrategy)
	return s
}

func (c *Config) StorageKind() string {
	if c.ModelStorage.Kind == "" {
		return StorageFile
	}
	return c.ModelStorage.Kind
}

// ModelDir returns the directory for file model storage
func (c *Config) ModelDir() string {
	if c.ModelStorage.Dir == "" {
		return "models"
	}
	return c.ModelStorage.Dir
}

// PriorityPolicy builds the priority policy including per sub-section ratio overrides
func (c *Config) PriorityPolicy() (*priority.Policy, error) {
	unknown := priority.DefaultUnknownWeight
	if c.Priority.UnknownWeight != nil {
		unknown = *c.Priority.UnknownWeight
	}

	policy, err := priority.NewPolicy(c.Priority.Weights, unknown, c.Priority.PositionRatio)
	if err != nil {
		return nil, err
	}
	for subSectionID, ratio := range c.Priority.RatioOverrides {
		if err := policy.SetRatioOverride(subSectionID, ratio); err != nil {
			return nil, err
		}
	}
	return policy, nil
}

// FeatureConfig returns the extractor windows, defaults for unset fields
func (c *Config) FeatureConfig() features.Config {
	fc := features.DefaultConfig()
	if c.Features.WorkDaysWindow > 0 {
		fc.WorkDaysWindow = c.Features.WorkDaysWindow
	}
	if c.Features.WorkloadWindow > 0 {
		fc.WorkloadWindow = c.Features.WorkloadWindow
	}
	if c.Features.WorkloadCapHours > 0 {
		fc.WorkloadCapHours = c.Features.WorkloadCapHours
	}
	return fc
}

func (c *Config) LinearConfig() scoring.LinearConfig {
	return scoring.LinearConfig{
		LearningRate: c.Training.Linear.LearningRate,
		MaxEpochs:    c.Training.Linear.Epochs,
		TargetMAE:    c.Training.Linear.TargetMAE,
		MinSamples:   c.Training.MinSamples,
	}
}

func (c *Config) EnsembleConfig() scoring.EnsembleConfig {
	cfg := scoring.EnsembleConfig{
		Trees:            c.Training.Ensemble.Trees,
		MaxDepth:         c.Training.Ensemble.MaxDepth,
		MinSamplesLeaf:   c.Training.Ensemble.MinSamplesLeaf,
		MinSamples:       c.Training.MinSamples,
		Seed:             scoring.DefaultEnsembleConfig().Seed,
		MajorityVoteOnly: c.Training.Ensemble.MajorityVoteOnly,
	}
	if c.Training.Ensemble.Seed != nil {
		cfg.Seed = *c.Training.Ensemble.Seed
	}
	return cfg
}

func (c *Config) CollectorConfig() training.Config {
	cfg := training.DefaultConfig()
	if c.Training.LookbackDays > 0 {
		cfg.LookbackDays = c.Training.LookbackDays
	}
	if c.Training.MaxNegatives != nil {
		cfg.MaxNegatives = *c.Training.MaxNegatives
	}
	return cfg
}

// HistoryDays is how much schedule history the database must load so that
// the oldest training record still sees full feature windows
func (c *Config) HistoryDays() int {
	fc := c.FeatureConfig()
	return c.CollectorConfig().LookbackDays + max(fc.WorkDaysWindow, fc.WorkloadWindow)
}

func (c *Config) RankingConfig() ranking.Config {
	cfg := ranking.DefaultConfig()
	if c.Ranking.MLScale != nil {
		cfg.MLScale = *c.Ranking.MLScale
	}
	if c.Ranking.PriorityWeight != nil {
		cfg.PriorityWeight = *c.Ranking.PriorityWeight
	}
	return cfg
}

// LinesFor returns the line setup of the first override matching the
// sub-section and date. ok is false when no override applies.
func (c *Config) LinesFor(subSectionID string, date time.Time) (lines int, counts []int, ok bool) {
	day := model.DayStart(date)

	for _, override := range c.LineOverrides {
		if override.SubSectionID != "" && override.SubSectionID != subSectionID {
			continue
		}
		matches, err := occursOn(override.RRule, override.startDate(), day)
		if err != nil || !matches {
			continue
		}

		if override.Lines != nil {
			lines = *override.Lines
		}
		if len(override.LineCounts) > 0 {
			counts = append([]int(nil), override.LineCounts...)
			lines = len(counts)
		}
		return lines, counts, true
	}
	return 0, nil, false
}

func (o LineOverride) startDate() time.Time {
	if o.Start == "" {
		return DefaultRuleStart
	}
	t, err := time.Parse(time.DateOnly, o.Start)
	if err != nil {
		return DefaultRuleStart
	}
	return t
}

// occursOn reports whether the rule has an occurrence on the given day. A
// DTSTART inside the rule wins over start.
func occursOn(rule string, start, day time.Time) (bool, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return false, err
	}
	if r.OrigOptions.Dtstart.IsZero() {
		r.DTStart(start)
	}

	end := day.AddDate(0, 0, 1).Add(-time.Second)
	return len(r.Between(day, end, true)) > 0, nil
}

// findConfigFile searches for the first of names in the current directory, then the home directory
func findConfigFile(names []string) (string, error) {
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		homeConfigPath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homeConfigPath); err == nil {
			return homeConfigPath, nil
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
