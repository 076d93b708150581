package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/manpower/pkg/core/model"
	"github.com/jakechorley/manpower/pkg/db"
)

// employeeSubSection is one row of the employee to sub-section link table
type employeeSubSection struct {
	EmployeeID int64
	SubSection model.SubSection
}

// GetEmployee retrieves an employee with sub-sections and recent schedule history
func (d *DB) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	since := model.DayStart(d.now()).AddDate(0, 0, -d.historyDays)
	employees, err := d.loadEmployees(ctx, `e.id = $1`, []any{id}, since)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("employee %d: %w", id, db.ErrNotFound)
	}
	return &employees[0], nil
}

// AvailableEmployees returns active employees who are not on leave and not yet
// scheduled on the date, ordered by id
func (d *DB) AvailableEmployees(ctx context.Context, date time.Time) ([]model.Employee, error) {
	day := model.DayStart(date)
	since := day.AddDate(0, 0, -d.historyDays)
	return d.loadEmployees(ctx, `
		e.is_active
		AND NOT EXISTS (SELECT 1 FROM employee_leave l WHERE l.employee_id = e.id AND l.leave_date = $1)
		AND NOT EXISTS (SELECT 1 FROM schedule sc WHERE sc.employee_id = e.id AND sc.schedule_date = $1)
	`, []any{day}, since)
}

// loadEmployees runs three queries: the employees matching where, their
// sub-sections, and their schedules since the given date
func (d *DB) loadEmployees(ctx context.Context, where string, args []any, since time.Time) ([]model.Employee, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT e.id, e.nik, e.name, e.gender, e.employment_type, e.average_rating, e.blind_test_passed,
			e.workload_points, e.blind_test_points, e.priority_categories
		FROM employee e
		WHERE `+where+`
		ORDER BY e.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		var gender *string
		var employmentType string
		if err := rows.Scan(&e.ID, &e.NIK, &e.Name, &gender, &employmentType, &e.AverageRating, &e.BlindTestPassed,
			&e.WorkloadPoints, &e.BlindTestPoints, &e.PriorityCategories); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		if gender != nil {
			// Unrecognised spellings stay empty and are defaulted by the feature extractor
			e.Gender, _ = model.ParseGender(*gender)
		}
		e.Type = model.EmploymentType(employmentType)
		employees = append(employees, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	if len(employees) == 0 {
		return employees, nil
	}

	ids := make([]int64, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}

	links, err := d.employeeSubSections(ctx, ids)
	if err != nil {
		return nil, err
	}
	schedules, err := d.employeeSchedules(ctx, ids, since)
	if err != nil {
		return nil, err
	}

	return assembleEmployees(employees, links, schedules), nil
}

func (d *DB) employeeSubSections(ctx context.Context, ids []int64) ([]employeeSubSection, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT ess.employee_id, ss.id, ss.name, s.id, s.name
		FROM employee_sub_section ess
		JOIN sub_section ss ON ss.id = ess.sub_section_id
		JOIN section s ON s.id = ss.section_id
		WHERE ess.employee_id = ANY($1)
		ORDER BY ess.employee_id, ss.id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee sub-sections: %w", err)
	}
	defer rows.Close()

	var links []employeeSubSection
	for rows.Next() {
		var l employeeSubSection
		if err := rows.Scan(&l.EmployeeID, &l.SubSection.ID, &l.SubSection.Name,
			&l.SubSection.Section.ID, &l.SubSection.Section.Name); err != nil {
			return nil, fmt.Errorf("failed to scan employee sub-section: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee sub-sections: %w", err)
	}
	return links, nil
}

func (d *DB) employeeSchedules(ctx context.Context, ids []int64, since time.Time) ([]model.ScheduleRecord, error) {
	rows, err := d.pool.Query(ctx, scheduleSelect+`
		WHERE employee_id = ANY($1) AND schedule_date >= $2
		ORDER BY schedule_date, id
	`, ids, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee schedules: %w", err)
	}
	return collectSchedules(rows)
}

// assembleEmployees attaches sub-sections and schedules to their employees.
// Links and schedules for unknown employees are ignored.
func assembleEmployees(employees []model.Employee, links []employeeSubSection, schedules []model.ScheduleRecord) []model.Employee {
	index := make(map[int64]int, len(employees))
	for i := range employees {
		index[employees[i].ID] = i
	}

	for _, l := range links {
		if i, ok := index[l.EmployeeID]; ok {
			employees[i].SubSections = append(employees[i].SubSections, l.SubSection)
		}
	}
	for _, s := range schedules {
		if i, ok := index[s.EmployeeID]; ok {
			employees[i].Schedules = append(employees[i].Schedules, s)
		}
	}
	return employees
}
