package domain

import (
	"fmt"
	"strings"
)

// TimePeriod identifies one of the model's assignment periods or the daily total
type TimePeriod string

const (
	PeriodEA    TimePeriod = "EA" // 03:00-06:00
	PeriodAM    TimePeriod = "AM" // 06:00-10:00
	PeriodMD    TimePeriod = "MD" // 10:00-15:00
	PeriodPM    TimePeriod = "PM" // 15:00-19:00
	PeriodEV    TimePeriod = "EV" // 19:00-03:00
	PeriodDaily TimePeriod = "daily"
)

// ModelPeriods lists the assignment periods in clock order, excluding daily
var ModelPeriods = []TimePeriod{PeriodEA, PeriodAM, PeriodMD, PeriodPM, PeriodEV}

// Hours returns the duration of the period in hours
func (p TimePeriod) Hours() float64 {
	switch p {
	case PeriodEA:
		return 3
	case PeriodAM:
		return 4
	case PeriodMD:
		return 5
	case PeriodPM:
		return 4
	case PeriodEV:
		return 8
	case PeriodDaily:
		return 24
	default:
		return 0
	}
}

// IsDaily reports whether the period is the whole-day aggregate
func (p TimePeriod) IsDaily() bool {
	return p == PeriodDaily
}

// String returns the period code
func (p TimePeriod) String() string {
	return string(p)
}

// ParseTimePeriod parses a period code case-insensitively. "day" and "daily"
// both map to PeriodDaily.
func ParseTimePeriod(s string) (TimePeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ea":
		return PeriodEA, nil
	case "am":
		return PeriodAM, nil
	case "md":
		return PeriodMD, nil
	case "pm":
		return PeriodPM, nil
	case "ev":
		return PeriodEV, nil
	case "daily", "day":
		return PeriodDaily, nil
	}
	return "", fmt.Errorf("unknown time period %q", s)
}

// PeriodForHour maps a clock hour (0-23) onto its assignment period
func PeriodForHour(hour int) (TimePeriod, error) {
	switch {
	case hour < 0 || hour > 23:
		return "", fmt.Errorf("hour %d out of range", hour)
	case hour >= 3 && hour < 6:
		return PeriodEA, nil
	case hour >= 6 && hour < 10:
		return PeriodAM, nil
	case hour >= 10 && hour < 15:
		return PeriodMD, nil
	case hour >= 15 && hour < 19:
		return PeriodPM, nil
	default:
		return PeriodEV, nil
	}
}

// VehicleClass groups roadway flows for comparison
type VehicleClass string

const (
	VehicleAll   VehicleClass = "all"
	VehicleTruck VehicleClass = "truck"
)

// ParseVehicleClass parses a vehicle class label
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all vehicles", "total":
		return VehicleAll, nil
	case "truck", "trucks", "large truck":
		return VehicleTruck, nil
	}
	return "", fmt.Errorf("unknown vehicle class %q", s)
}
