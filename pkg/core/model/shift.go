package model

import "strings"

const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftNight     = "night"
)

// ShiftOrder maps a shift name to its position in the daily rotation.
// Unknown shifts return (0, false).
func ShiftOrder(shift string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(shift)) {
	case ShiftMorning, "pagi", "1":
		return 1, true
	case ShiftAfternoon, "siang", "2":
		return 2, true
	case ShiftNight, "malam", "3":
		return 3, true
	}
	return 0, false
}
