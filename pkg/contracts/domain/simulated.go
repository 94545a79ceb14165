package domain

import "github.com/paulmach/orb"

// ManagedFlow holds the managed-lane contribution merged into its parent
// general-purpose link. Missing managed links leave every field at zero.
type ManagedFlow struct {
	LinkID    *int64  `json:"ml_model_link_id,omitempty"`
	FlowDA    float64 `json:"ml_flow_da"`
	FlowS2    float64 `json:"ml_flow_s2"`
	FlowS3    float64 `json:"ml_flow_s3"`
	FlowTruck float64 `json:"ml_flow_truck"`
}

// Total returns the managed-lane flow across all vehicle classes
func (m ManagedFlow) Total() float64 {
	return m.FlowDA + m.FlowS2 + m.FlowS3 + m.FlowTruck
}

// LinkFlow is the simulated assignment result for one link and time period
type LinkFlow struct {
	ModelLinkID int64      `json:"model_link_id"`
	ANode       int64      `json:"a_node"`
	BNode       int64      `json:"b_node"`
	TimePeriod  TimePeriod `json:"time_period"`
	FlowDA      float64    `json:"flow_da"`
	FlowS2      float64    `json:"flow_s2"`
	FlowS3      float64    `json:"flow_s3"`
	FlowTruck   float64    `json:"flow_truck"`
	Speed       float64    `json:"speed"`
	Capacity    float64    `json:"capacity"`

	Managed ManagedFlow `json:"managed"`

	Geometry orb.LineString `json:"geometry,omitempty"`
}

// GeneralFlow returns the general-purpose lane flow
func (l LinkFlow) GeneralFlow() float64 {
	return l.FlowDA + l.FlowS2 + l.FlowS3 + l.FlowTruck
}

// TotalFlow returns the general-purpose plus managed-lane flow
func (l LinkFlow) TotalFlow() float64 {
	return l.GeneralFlow() + l.Managed.Total()
}

// TruckFlow returns truck flow on both lane types
func (l LinkFlow) TruckFlow() float64 {
	return l.FlowTruck + l.Managed.FlowTruck
}

// ClassFlow returns the combined flow for a vehicle class
func (l LinkFlow) ClassFlow(class VehicleClass) float64 {
	if class == VehicleTruck {
		return l.TruckFlow()
	}
	return l.TotalFlow()
}

// LineBoarding is the simulated boardings of one transit line and period
type LineBoarding struct {
	LineName   string     `json:"line_name"`
	ModeCode   string     `json:"mode_code"`
	Operator   string     `json:"operator"`
	Technology Technology `json:"technology"`
	Direction  string     `json:"direction,omitempty"`
	TimePeriod TimePeriod `json:"time_period"`
	Boardings  float64    `json:"boardings"`
}

// LineSegment is the simulated load on one segment of a transit line
type LineSegment struct {
	LineName       string     `json:"line_name"`
	SegmentSeq     int        `json:"segment_seq"`
	INode          int64      `json:"i_node"`
	JNode          int64      `json:"j_node"`
	TimePeriod     TimePeriod `json:"time_period"`
	Volume         float64    `json:"volume"`
	CapacityTotal  float64    `json:"capacity_total"`
	CapacitySeated float64    `json:"capacity_seated"`

	Geometry orb.LineString `json:"geometry,omitempty"`
}

// VolumeCapacity returns volume over total capacity, or zero when capacity is zero
func (s LineSegment) VolumeCapacity() float64 {
	if s.CapacityTotal <= 0 {
		return 0
	}
	return s.Volume / s.CapacityTotal
}

// VolumeSeated returns volume over seated capacity, or zero when capacity is zero
func (s LineSegment) VolumeSeated() float64 {
	if s.CapacitySeated <= 0 {
		return 0
	}
	return s.Volume / s.CapacitySeated
}
