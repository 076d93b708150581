package db

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/manpower/pkg/core/model"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

// RequestStore defines the interface for manpower request reads
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (*model.ManpowerRequest, error)
	GetRequests(ctx context.Context, ids []string) ([]*model.ManpowerRequest, error)
}

// EmployeeStore loads employees with their sub-sections and recent schedule history
type EmployeeStore interface {
	GetEmployee(ctx context.Context, id int64) (*model.Employee, error)
	// AvailableEmployees returns active employees who are neither on leave nor
	// already scheduled on the date
	AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error)
}

// ScheduleStore defines the interface for schedule record operations
type ScheduleStore interface {
	ScheduleRecordsSince(ctx context.Context, since time.Time) ([]model.ScheduleRecord, error)
	// SubmitSchedules inserts the records and marks the requests fulfilled in one transaction
	SubmitSchedules(ctx context.Context, records []model.ScheduleRecord, fulfilled []string) error
}

// ModelStore persists serialized scoring models by name
type ModelStore interface {
	SaveModel(ctx context.Context, name string, blob []byte) error
	LoadModel(ctx context.Context, name string) ([]byte, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	RequestStore
	EmployeeStore
	ScheduleStore
	ModelStore
	Close()
}
