package allocator

import (
	"github.com/jakechorley/manpower/pkg/core/errs"
	"github.com/jakechorley/manpower/pkg/core/ranking"
)

// DistributeLines splits n positions across the given number of lines as evenly
// as possible: floor(n/lines) each, with the remainder going to the first
// n mod lines lines
func DistributeLines(n, lines int) []int {
	if lines <= 0 || n < 0 {
		return nil
	}
	counts := make([]int, lines)
	for i := range counts {
		counts[i] = n / lines
		if i < n%lines {
			counts[i]++
		}
	}
	return counts
}

// lineCapacities resolves the line sizes of a request. Explicit counts win over
// even distribution and must sum to the requested amount. Returns nil when the
// request does not use lines.
func lineCapacities(requested, lines int, explicit []int) ([]int, error) {
	if len(explicit) > 0 {
		if lines != 0 && lines != len(explicit) {
			return nil, errs.Validation("%d line counts given for %d lines", len(explicit), lines)
		}
		sum := 0
		for i, c := range explicit {
			if c < 0 {
				return nil, errs.Validation("line %d has a negative count %d", i+1, c)
			}
			sum += c
		}
		if sum != requested {
			return nil, errs.Validation("line counts sum to %d, requested amount is %d", sum, requested)
		}
		return explicit, nil
	}
	if lines < 0 {
		return nil, errs.Validation("number of lines must not be negative, got %d", lines)
	}
	if lines == 0 {
		return nil, nil
	}
	return DistributeLines(requested, lines), nil
}

// assignLines tags slots round-robin in the given order of slot indices,
// skipping lines that are already at capacity. With even capacities the k-th
// slot in order lands on line k mod lines. A nil order means position order.
func assignLines(slots []Slot, order []int, capacities []int) {
	if order == nil {
		order = make([]int, len(slots))
		for i := range order {
			order[i] = i
		}
	}
	remaining := make([]int, len(capacities))
	copy(remaining, capacities)

	line := 0
	for _, i := range order {
		for tries := 0; tries < len(remaining) && remaining[line] == 0; tries++ {
			line = (line + 1) % len(remaining)
		}
		if remaining[line] == 0 {
			return
		}
		slots[i].Line = line + 1
		remaining[line]--
		line = (line + 1) % len(remaining)
	}
}

// selectionOrder lists the slot indices of the selected candidates in
// selection order, followed by the empty slots in position order
func selectionOrder(rp *RequestPlan, selected []*ranking.Result) []int {
	order := make([]int, 0, len(rp.Slots))
	taken := make([]bool, len(rp.Slots))
	for _, c := range selected {
		if i := rp.slotOf(c.Employee.ID); i >= 0 && !taken[i] {
			order = append(order, i)
			taken[i] = true
		}
	}
	for i := range rp.Slots {
		if !taken[i] {
			order = append(order, i)
		}
	}
	return order
}

// LineCounts returns the number of positions per line, in line order.
// The counts always sum to the requested amount.
func (rp *RequestPlan) LineCounts() []int {
	if rp.Lines == 0 {
		return nil
	}
	counts := make([]int, rp.Lines)
	for _, s := range rp.Slots {
		if s.Line > 0 {
			counts[s.Line-1]++
		}
	}
	return counts
}

// LineMembers returns the employee ids on a line in position order
func (rp *RequestPlan) LineMembers(line int) []int64 {
	var ids []int64
	for _, s := range rp.Slots {
		if s.Line == line && !s.IsEmpty() {
			ids = append(ids, s.EmployeeID())
		}
	}
	return ids
}

// MoveEmployee moves an assigned employee to another line of the same request.
// The headcount and the set of assigned employees are unchanged.
func MoveEmployee(plan *Plan, requestID string, employeeID int64, toLine int) error {
	rp := plan.Request(requestID)
	if rp == nil {
		return errs.Validation("request %s is not in plan %s", requestID, plan.ID)
	}
	if rp.State == StateSubmitted {
		return errs.Validation("request %s is already submitted", requestID)
	}
	if rp.Lines == 0 {
		return errs.Validation("request %s does not use lines", requestID)
	}
	if toLine < 1 || toLine > rp.Lines {
		return errs.Validation("line %d is out of range 1..%d", toLine, rp.Lines)
	}
	i := rp.slotOf(employeeID)
	if i < 0 {
		return errs.Validation("employee %d is not assigned to request %s", employeeID, requestID)
	}
	rp.Slots[i].Line = toLine
	return nil
}
