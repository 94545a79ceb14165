package domain

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// Dimension is one named axis of a comparison record
type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ComparisonRecord is one observed/simulated outcome pair for a criterion.
// Outcomes are nil when the join found no row on that side.
type ComparisonRecord struct {
	CriteriaNumber      int          `json:"criteria_number"`
	CriteriaName        string       `json:"criteria_name"`
	Dimensions          [3]Dimension `json:"dimensions"`
	ObservedOutcome     *float64     `json:"observed_outcome"`
	SimulatedOutcome    *float64     `json:"simulated_outcome"`
	AcceptanceThreshold string       `json:"acceptance_threshold"`
	Geometry            orb.Geometry `json:"-"`
}

// Matched reports whether both outcomes are present
func (r ComparisonRecord) Matched() bool {
	return r.ObservedOutcome != nil && r.SimulatedOutcome != nil
}

// Dimension returns the value of the named dimension, or "" if absent
func (r ComparisonRecord) Dimension(name string) string {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

// ComparisonColumns is the shared column order of the general comparison artifact
var ComparisonColumns = []string{
	"criteria_number",
	"criteria_name",
	"dimension_01_name",
	"dimension_01_value",
	"dimension_02_name",
	"dimension_02_value",
	"dimension_03_name",
	"dimension_03_value",
	"observed_outcome",
	"simulated_outcome",
	"acceptance_threshold",
}

// Values returns the record as strings in ComparisonColumns order
func (r ComparisonRecord) Values() []string {
	return []string{
		strconv.Itoa(r.CriteriaNumber),
		r.CriteriaName,
		r.Dimensions[0].Name,
		r.Dimensions[0].Value,
		r.Dimensions[1].Name,
		r.Dimensions[1].Value,
		r.Dimensions[2].Name,
		r.Dimensions[2].Value,
		FormatOptional(r.ObservedOutcome),
		FormatOptional(r.SimulatedOutcome),
		r.AcceptanceThreshold,
	}
}

// Properties returns the record as feature properties keyed by ComparisonColumns
func (r ComparisonRecord) Properties() map[string]interface{} {
	return map[string]interface{}{
		"criteria_number":      r.CriteriaNumber,
		"criteria_name":        r.CriteriaName,
		"dimension_01_name":    r.Dimensions[0].Name,
		"dimension_01_value":   r.Dimensions[0].Value,
		"dimension_02_name":    r.Dimensions[1].Name,
		"dimension_02_value":   r.Dimensions[1].Value,
		"dimension_03_name":    r.Dimensions[2].Name,
		"dimension_03_value":   r.Dimensions[2].Value,
		"observed_outcome":     optionalValue(r.ObservedOutcome),
		"simulated_outcome":    optionalValue(r.SimulatedOutcome),
		"acceptance_threshold": r.AcceptanceThreshold,
	}
}

// RoadwayNetworkRow is one link and time period of the roadway network artifact
type RoadwayNetworkRow struct {
	ModelLinkID     int64          `json:"model_link_id"`
	ANode           int64          `json:"a_node"`
	BNode           int64          `json:"b_node"`
	TimePeriod      TimePeriod     `json:"time_period"`
	StationID       string         `json:"station_id,omitempty"`
	Direction       string         `json:"direction,omitempty"`
	KeyLocation     string         `json:"key_location,omitempty"`
	ObservedFlow    *float64       `json:"observed_flow"`
	SimulatedFlow   float64        `json:"simulated_flow"`
	ObservedTruck   *float64       `json:"observed_truck_flow"`
	SimulatedTruck  float64        `json:"simulated_truck_flow"`
	ManagedFlow     float64        `json:"ml_flow"`
	Speed           float64        `json:"speed"`
	Capacity        float64        `json:"capacity"`
	Category        string         `json:"category,omitempty"`
	Tolerance       *float64       `json:"tolerance,omitempty"`
	AcceptanceLimit string         `json:"acceptance_threshold"`
	Geometry        orb.LineString `json:"-"`
}

// RoadwayColumns is the shared column order of the roadway network artifact
var RoadwayColumns = []string{
	"model_link_id",
	"a_node",
	"b_node",
	"time_period",
	"station_id",
	"direction",
	"key_location",
	"observed_flow",
	"simulated_flow",
	"observed_truck_flow",
	"simulated_truck_flow",
	"ml_flow",
	"speed",
	"capacity",
	"category",
	"tolerance",
	"acceptance_threshold",
}

// Values returns the row as strings in RoadwayColumns order
func (r RoadwayNetworkRow) Values() []string {
	return []string{
		strconv.FormatInt(r.ModelLinkID, 10),
		strconv.FormatInt(r.ANode, 10),
		strconv.FormatInt(r.BNode, 10),
		string(r.TimePeriod),
		r.StationID,
		r.Direction,
		r.KeyLocation,
		FormatOptional(r.ObservedFlow),
		FormatFloat(r.SimulatedFlow),
		FormatOptional(r.ObservedTruck),
		FormatFloat(r.SimulatedTruck),
		FormatFloat(r.ManagedFlow),
		FormatFloat(r.Speed),
		FormatFloat(r.Capacity),
		r.Category,
		FormatOptional(r.Tolerance),
		r.AcceptanceLimit,
	}
}

// Properties returns the row as feature properties keyed by RoadwayColumns
func (r RoadwayNetworkRow) Properties() map[string]interface{} {
	return map[string]interface{}{
		"model_link_id":        r.ModelLinkID,
		"a_node":               r.ANode,
		"b_node":               r.BNode,
		"time_period":          string(r.TimePeriod),
		"station_id":           r.StationID,
		"direction":            r.Direction,
		"key_location":         r.KeyLocation,
		"observed_flow":        optionalValue(r.ObservedFlow),
		"simulated_flow":       r.SimulatedFlow,
		"observed_truck_flow":  optionalValue(r.ObservedTruck),
		"simulated_truck_flow": r.SimulatedTruck,
		"ml_flow":              r.ManagedFlow,
		"speed":                r.Speed,
		"capacity":             r.Capacity,
		"category":             r.Category,
		"tolerance":            optionalValue(r.Tolerance),
		"acceptance_threshold": r.AcceptanceLimit,
	}
}

// TransitNetworkRow is one line segment and time period of the transit network artifact.
// Boardings are only attributed to the first segment of each line.
type TransitNetworkRow struct {
	LineName           string         `json:"line_name"`
	Operator           string         `json:"operator"`
	Technology         Technology     `json:"technology"`
	SegmentSeq         int            `json:"segment_seq"`
	INode              int64          `json:"i_node"`
	JNode              int64          `json:"j_node"`
	TimePeriod         TimePeriod     `json:"time_period"`
	ObservedBoardings  *float64       `json:"observed_boardings"`
	SimulatedBoardings *float64       `json:"simulated_boardings"`
	Volume             float64        `json:"volume"`
	CapacityTotal      float64        `json:"capacity_total"`
	CapacitySeated     float64        `json:"capacity_seated"`
	VolumeCapacity     float64        `json:"vc_total"`
	VolumeSeated       float64        `json:"vc_seated"`
	Geometry           orb.LineString `json:"-"`
}

// TransitColumns is the shared column order of the transit network artifact
var TransitColumns = []string{
	"line_name",
	"operator",
	"technology",
	"segment_seq",
	"i_node",
	"j_node",
	"time_period",
	"observed_boardings",
	"simulated_boardings",
	"volume",
	"capacity_total",
	"capacity_seated",
	"vc_total",
	"vc_seated",
}

// Values returns the row as strings in TransitColumns order
func (r TransitNetworkRow) Values() []string {
	return []string{
		r.LineName,
		r.Operator,
		string(r.Technology),
		strconv.Itoa(r.SegmentSeq),
		strconv.FormatInt(r.INode, 10),
		strconv.FormatInt(r.JNode, 10),
		string(r.TimePeriod),
		FormatOptional(r.ObservedBoardings),
		FormatOptional(r.SimulatedBoardings),
		FormatFloat(r.Volume),
		FormatFloat(r.CapacityTotal),
		FormatFloat(r.CapacitySeated),
		FormatFloat(r.VolumeCapacity),
		FormatFloat(r.VolumeSeated),
	}
}

// Properties returns the row as feature properties keyed by TransitColumns
func (r TransitNetworkRow) Properties() map[string]interface{} {
	return map[string]interface{}{
		"line_name":           r.LineName,
		"operator":            r.Operator,
		"technology":          string(r.Technology),
		"segment_seq":         r.SegmentSeq,
		"i_node":              r.INode,
		"j_node":              r.JNode,
		"time_period":         string(r.TimePeriod),
		"observed_boardings":  optionalValue(r.ObservedBoardings),
		"simulated_boardings": optionalValue(r.SimulatedBoardings),
		"volume":              r.Volume,
		"capacity_total":      r.CapacityTotal,
		"capacity_seated":     r.CapacitySeated,
		"vc_total":            r.VolumeCapacity,
		"vc_seated":           r.VolumeSeated,
	}
}

// FormatFloat formats a value with up to four decimals and no trailing zeros
func FormatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

// FormatOptional formats a nullable value, returning "" for nil
func FormatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

func optionalValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
