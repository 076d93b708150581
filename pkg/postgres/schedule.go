package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/manpower/pkg/core/model"
)

const scheduleSelect = `
	SELECT id, employee_id, request_id, sub_section_id, schedule_date, shift, hours, COALESCE(line, 0)
	FROM schedule
`

func collectSchedules(rows pgx.Rows) ([]model.ScheduleRecord, error) {
	defer rows.Close()

	var records []model.ScheduleRecord
	for rows.Next() {
		var r model.ScheduleRecord
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.RequestID, &r.SubSectionID, &r.Date, &r.Shift, &r.Hours, &r.Line); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		r.Date = r.Date.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}
	return records, nil
}

// ScheduleRecordsSince retrieves schedule records dated on or after since
func (d *DB) ScheduleRecordsSince(ctx context.Context, since time.Time) ([]model.ScheduleRecord, error) {
	rows, err := d.pool.Query(ctx, scheduleSelect+`
		WHERE schedule_date >= $1
		ORDER BY schedule_date, id
	`, model.DayStart(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	return collectSchedules(rows)
}

// SubmitSchedules inserts schedule records and marks the requests fulfilled in
// one transaction. It fails without writing anything if any request is no
// longer open.
func (d *DB) SubmitSchedules(ctx context.Context, records []model.ScheduleRecord, fulfilled []string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(fulfilled) > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE manpower_request SET status = $2
			WHERE id = ANY($1) AND status = $3
		`, fulfilled, string(model.RequestFulfilled), string(model.RequestOpen))
		if err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		if tag.RowsAffected() != int64(len(fulfilled)) {
			return fmt.Errorf("only %d of %d requests were still open", tag.RowsAffected(), len(fulfilled))
		}
	}

	for _, r := range records {
		var line *int
		if r.Line > 0 {
			line = &r.Line
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO schedule (id, employee_id, request_id, sub_section_id, schedule_date, shift, hours, line)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.ID, r.EmployeeID, r.RequestID, r.SubSectionID, model.DayStart(r.Date), r.Shift, r.Hours, line)
		if err != nil {
			return fmt.Errorf("failed to insert schedule: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
