package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/db"
)

const requestSelect = `
	SELECT r.id, r.request_date, r.shift, r.requested_amount, r.male_count, r.female_count, r.status,
		ss.id, ss.name, s.id, s.name
	FROM manpower_request r
	JOIN sub_section ss ON ss.id = r.sub_section_id
	JOIN section s ON s.id = ss.section_id
`

func scanRequest(row pgx.Row) (*model.ManpowerRequest, error) {
	var r model.ManpowerRequest
	var status string
	err := row.Scan(&r.ID, &r.Date, &r.Shift, &r.RequestedAmount, &r.MaleCount, &r.FemaleCount, &status,
		&r.SubSection.ID, &r.SubSection.Name, &r.SubSection.Section.ID, &r.SubSection.Section.Name)
	if err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	r.Date = r.Date.UTC()
	return &r, nil
}

// GetRequest retrieves a manpower request with its sub-section and section
func (d *DB) GetRequest(ctx context.Context, id string) (*model.ManpowerRequest, error) {
	r, err := scanRequest(d.pool.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query request %s: %w", id, err)
	}
	return r, nil
}

// GetRequests retrieves the requests in the order of ids. Every id must exist.
func (d *DB) GetRequests(ctx context.Context, ids []string) ([]*model.ManpowerRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := d.pool.Query(ctx, requestSelect+` WHERE r.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*model.ManpowerRequest, len(ids))
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	result := make([]*model.ManpowerRequest, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("request %s: %w", id, db.ErrNotFound)
		}
		result = append(result, r)
	}
	return result, nil
}
