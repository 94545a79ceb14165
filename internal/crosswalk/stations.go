package crosswalk

import (
	"fmt"
	"strings"

	apperrors "acceptcli/internal/errors"
)

// StationLinkKey is a count station qualified by travel direction. Direction
// is empty for stations counted in one direction only.
type StationLinkKey struct {
	StationID string `json:"station_id"`
	Direction string `json:"direction"`
}

func (k StationLinkKey) String() string {
	if k.Direction == "" {
		return k.StationID
	}
	return k.StationID + " " + k.Direction
}

// NewStationLinkKey normalizes the direction code to upper case
func NewStationLinkKey(stationID, direction string) StationLinkKey {
	return StationLinkKey{
		StationID: strings.TrimSpace(stationID),
		Direction: strings.ToUpper(strings.TrimSpace(direction)),
	}
}

// StationLinks maps direction-qualified count stations to model links
type StationLinks struct {
	*Crosswalk[StationLinkKey, int64]
	qualified   map[string]bool
	unqualified map[string]bool
}

// NewStationLinks creates an empty count station crosswalk
func NewStationLinks() *StationLinks {
	return &StationLinks{
		Crosswalk:   New[StationLinkKey, int64]("count_station_links"),
		qualified:   make(map[string]bool),
		unqualified: make(map[string]bool),
	}
}

// Add maps a station/direction to a link. A station may map to several links
// only through distinct directions; mixing a direction-less entry with
// directional ones is an INVARIANT error.
func (s *StationLinks) Add(key StationLinkKey, linkID int64) error {
	mixed := (key.Direction == "" && s.qualified[key.StationID]) ||
		(key.Direction != "" && s.unqualified[key.StationID])
	if mixed {
		return apperrors.NewInvariantError(fmt.Sprintf(
			"count station %s maps to several links without a direction", key.StationID)).
			WithContext("crosswalk", s.Name())
	}
	if err := s.Crosswalk.Add(key, linkID); err != nil {
		return err
	}
	if key.Direction == "" {
		s.unqualified[key.StationID] = true
	} else {
		s.qualified[key.StationID] = true
	}
	return nil
}

// Link returns the model link of a station/direction. A direction-less
// entry matches every direction of its station.
func (s *StationLinks) Link(key StationLinkKey) (int64, bool) {
	if s == nil {
		return 0, false
	}
	if id, ok := s.Lookup(key); ok {
		return id, true
	}
	if key.Direction != "" {
		return s.Lookup(StationLinkKey{StationID: key.StationID})
	}
	return 0, false
}
