package domain

import "github.com/paulmach/orb"

// Lineage records where a reduced row came from
type Lineage struct {
	Source string `json:"source"`
	Years  []int  `json:"years,omitempty"`
}

// TrafficCount is the median observed flow at one count station and direction
type TrafficCount struct {
	StationID    string       `json:"station_id"`
	Direction    string       `json:"direction"`
	TimePeriod   TimePeriod   `json:"time_period"`
	VehicleClass VehicleClass `json:"vehicle_class"`
	Flow         float64      `json:"flow"`

	// ModelLinkID is nil when the station has no link in the crosswalk
	ModelLinkID *int64 `json:"model_link_id,omitempty"`
	KeyLocation string `json:"key_location,omitempty"`

	// Category is the daily standards bucket for daily rows and the hourly
	// bucket (one-tenth scale, applied to flow per hour) for period rows
	Category  string  `json:"category"`
	Tolerance float64 `json:"tolerance"`

	Lineage Lineage `json:"lineage"`
}

// StationKey returns the direction-qualified display key of the count station
func (c TrafficCount) StationKey() string {
	if c.Direction == "" {
		return c.StationID
	}
	return c.StationID + " " + c.Direction
}

// SurveyBoarding is an on-board survey boarding total for one route
type SurveyBoarding struct {
	Operator   string     `json:"operator"`
	Technology Technology `json:"technology"`
	Route      string     `json:"route"`
	TimePeriod TimePeriod `json:"time_period"`
	Boardings  float64    `json:"boardings"`

	// FloridaCategory and FloridaTolerance are only set on daily rows
	FloridaCategory  string   `json:"florida_category,omitempty"`
	FloridaTolerance *float64 `json:"florida_tolerance,omitempty"`

	Lineage Lineage `json:"lineage"`
}

// LineSurveyBoarding is a survey boarding total translated to one simulated line
type LineSurveyBoarding struct {
	SurveyBoarding
	SimLineName string `json:"sim_line_name"`
	// SimDirection is empty when the simulated line is not direction specific
	SimDirection string `json:"sim_direction,omitempty"`
	// Halved is set when boardings were split across directional lines
	Halved bool `json:"halved,omitempty"`
}

// CountyFlow is a home-work worker flow between two counties
type CountyFlow struct {
	ResidenceCounty string  `json:"residence_county"`
	WorkCounty      string  `json:"work_county"`
	Workers         float64 `json:"workers"`
	// Share is the fraction of the residence county's workers
	Share   float64 `json:"share"`
	Lineage Lineage `json:"lineage"`
}

// TractShare is the zero-vehicle household share of one census tract
type TractShare struct {
	Tract       string     `json:"tract"`
	Households  float64    `json:"households"`
	ZeroVehicle float64    `json:"zero_vehicle_households"`
	Share       float64    `json:"share"`
	Centroid    *orb.Point `json:"centroid,omitempty"`
	Lineage     Lineage    `json:"lineage"`
}

// StationFlow is a rider flow between two canonical stations of one operator.
// Alighting is empty for BoardingOnly summaries and Boarding is empty for
// AlightingOnly summaries.
type StationFlow struct {
	Operator  string  `json:"operator"`
	Boarding  string  `json:"boarding_station,omitempty"`
	Alighting string  `json:"alighting_station,omitempty"`
	Riders    float64 `json:"riders"`
	Lineage   Lineage `json:"lineage"`
}

// AccessShare is the share of an operator's trips using one access mode
type AccessShare struct {
	Operator   string  `json:"operator"`
	AccessMode string  `json:"access_mode"`
	Trips      float64 `json:"trips"`
	Share      float64 `json:"share"`
	Lineage    Lineage `json:"lineage"`
}

// DistrictFlow is a transit flow between two districts on one technology
type DistrictFlow struct {
	OrigDistrict string     `json:"orig_district"`
	DestDistrict string     `json:"dest_district"`
	Technology   Technology `json:"technology"`
	Trips        float64    `json:"trips"`
	Lineage      Lineage    `json:"lineage"`
}

// BoardingRate is the observed number of boardings per linked trip for a zone pair
type BoardingRate struct {
	OrigZone string  `json:"orig_zone"`
	DestZone string  `json:"dest_zone"`
	Rate     float64 `json:"rate"`
}
