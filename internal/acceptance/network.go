package acceptance

import (
	"acceptcli/internal/crosswalk"
	"acceptcli/pkg/contracts/domain"
)

// RoadwayNetwork builds one row per simulated link and period, carrying the
// observed counts of the stations attached to the link. Links counted by more
// than one station sum the stations' flows and keep the first station's labels.
func RoadwayNetwork(counts []domain.TrafficCount, links []domain.LinkFlow) []domain.RoadwayNetworkRow {
	type counted struct {
		all, truck *domain.TrafficCount
		flow       float64
		truckFlow  float64
	}
	byLink := make(map[linkPeriod]*counted)
	for i := range counts {
		c := &counts[i]
		if c.ModelLinkID == nil {
			continue
		}
		k := linkPeriod{*c.ModelLinkID, c.TimePeriod}
		e, ok := byLink[k]
		if !ok {
			e = &counted{}
			byLink[k] = e
		}
		switch c.VehicleClass {
		case domain.VehicleTruck:
			if e.truck == nil {
				e.truck = c
			}
			e.truckFlow += c.Flow
		default:
			if e.all == nil {
				e.all = c
			}
			e.flow += c.Flow
		}
	}

	rows := make([]domain.RoadwayNetworkRow, 0, len(links))
	for _, l := range links {
		row := domain.RoadwayNetworkRow{
			ModelLinkID:    l.ModelLinkID,
			ANode:          l.ANode,
			BNode:          l.BNode,
			TimePeriod:     l.TimePeriod,
			SimulatedFlow:  l.TotalFlow(),
			SimulatedTruck: l.TruckFlow(),
			ManagedFlow:    l.Managed.Total(),
			Speed:          l.Speed,
			Capacity:       l.Capacity,
			Geometry:       l.Geometry,
		}
		if e, ok := byLink[linkPeriod{l.ModelLinkID, l.TimePeriod}]; ok {
			label := e.all
			if label == nil {
				label = e.truck
			}
			row.StationID = label.StationID
			row.Direction = label.Direction
			row.KeyLocation = label.KeyLocation
			if e.all != nil {
				row.ObservedFlow = domain.Float(e.flow)
				row.Category = e.all.Category
				row.Tolerance = domain.Float(e.all.Tolerance)
				row.AcceptanceLimit = domain.FormatFloat(e.all.Tolerance)
			}
			if e.truck != nil {
				row.ObservedTruck = domain.Float(e.truckFlow)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

type linePeriod struct {
	line   string
	period domain.TimePeriod
}

// TransitNetwork builds one row per simulated line segment and period.
// Line boardings are attributed only to the first segment of each line so
// that summing the artifact does not count a line's boardings twice.
func TransitNetwork(segments []domain.LineSegment, lines []domain.LineBoarding, surveyed []domain.LineSurveyBoarding) []domain.TransitNetworkRow {
	first := make(map[string]int)
	for _, s := range segments {
		if seq, ok := first[s.LineName]; !ok || s.SegmentSeq < seq {
			first[s.LineName] = s.SegmentSeq
		}
	}

	_, simulated := crosswalk.GroupSum(lines,
		func(b domain.LineBoarding) linePeriod { return linePeriod{b.LineName, b.TimePeriod} }, lineBoardings)
	modes := make(map[string]domain.LineBoarding)
	for _, b := range lines {
		if _, ok := modes[b.LineName]; !ok {
			modes[b.LineName] = b
		}
	}
	// A route served by both directions of one line name yields one row per
	// direction. Halved rows split the record between them; unhalved rows
	// repeat it and are counted once.
	type surveyedLine struct {
		linePeriod
		route routeKey
	}
	observedBoardings := make(map[linePeriod]float64)
	counted := make(map[surveyedLine]bool)
	for _, b := range surveyed {
		k := linePeriod{b.SimLineName, b.TimePeriod}
		if !b.Halved {
			sk := surveyedLine{k, routeKey{b.Operator, b.Route, b.Technology}}
			if counted[sk] {
				continue
			}
			counted[sk] = true
		}
		observedBoardings[k] += b.Boardings
	}

	rows := make([]domain.TransitNetworkRow, 0, len(segments))
	for _, s := range segments {
		mode := modes[s.LineName]
		row := domain.TransitNetworkRow{
			LineName:       s.LineName,
			Operator:       mode.Operator,
			Technology:     mode.Technology,
			SegmentSeq:     s.SegmentSeq,
			INode:          s.INode,
			JNode:          s.JNode,
			TimePeriod:     s.TimePeriod,
			Volume:         s.Volume,
			CapacityTotal:  s.CapacityTotal,
			CapacitySeated: s.CapacitySeated,
			VolumeCapacity: s.VolumeCapacity(),
			VolumeSeated:   s.VolumeSeated(),
			Geometry:       s.Geometry,
		}
		if s.SegmentSeq == first[s.LineName] {
			k := linePeriod{s.LineName, s.TimePeriod}
			if v, ok := simulated[k]; ok {
				row.SimulatedBoardings = domain.Float(v)
			}
			if v, ok := observedBoardings[k]; ok {
				row.ObservedBoardings = domain.Float(v)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
