package domain

import "strings"

// Technology is the transit technology a line or survey record belongs to
type Technology string

const (
	TechLocalBus     Technology = "Local Bus"
	TechExpressBus   Technology = "Express Bus"
	TechLightRail    Technology = "Light Rail"
	TechHeavyRail    Technology = "Heavy Rail"
	TechCommuterRail Technology = "Commuter Rail"
	TechFerry        Technology = "Ferry"
	TechCableCar     Technology = "Cable Car"
)

// Technologies lists every technology in reporting order
var Technologies = []Technology{
	TechLocalBus,
	TechExpressBus,
	TechLightRail,
	TechHeavyRail,
	TechCommuterRail,
	TechFerry,
	TechCableCar,
}

// ParseTechnology normalizes the common spellings found in surveys and
// mode-code tables. Unknown labels are returned trimmed but unchanged.
func ParseTechnology(s string) Technology {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local bus", "lb", "local":
		return TechLocalBus
	case "express bus", "eb", "express":
		return TechExpressBus
	case "light rail", "lr", "lrt":
		return TechLightRail
	case "heavy rail", "hr":
		return TechHeavyRail
	case "commuter rail", "cr":
		return TechCommuterRail
	case "ferry", "fr":
		return TechFerry
	case "cable car", "cc":
		return TechCableCar
	}
	return Technology(strings.TrimSpace(s))
}

// IsRail reports whether survey records of this technology are direction
// specific and routes are not directly comparable with simulated lines
func (t Technology) IsRail() bool {
	switch t {
	case TechLightRail, TechHeavyRail, TechCommuterRail, TechCableCar:
		return true
	}
	return false
}

// FlowAggregation selects how station-to-station flows are summarized.
// Callers pick a variant explicitly instead of relying on which columns a
// table happens to carry.
type FlowAggregation int

const (
	// BoardingAlighting keeps the full boarding-alighting pair
	BoardingAlighting FlowAggregation = iota
	// BoardingOnly sums flows by boarding station
	BoardingOnly
	// AlightingOnly sums flows by alighting station
	AlightingOnly
)

// String returns the variant name
func (a FlowAggregation) String() string {
	switch a {
	case BoardingOnly:
		return "boarding"
	case AlightingOnly:
		return "alighting"
	default:
		return "boarding_alighting"
	}
}
