package simulated

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"acceptcli/internal/crosswalk"
	"acceptcli/internal/dataprocessing"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

type lineKey struct {
	name      string
	direction string
}

// LineBoardings reduces simulated boardings to one row per line and period
// plus a derived daily row. Operator and technology come from the line's
// mode code; unknown mode codes leave both empty.
func (r *Reducer) LineBoardings(ctx context.Context) ([]domain.LineBoarding, error) {
	path := r.opts.Sources.TransitBoardings
	t, err := dataprocessing.ReadTable(path, "line_name", "mode_code", "direction", "time_period", "boardings")
	if err != nil {
		return nil, err
	}

	type key struct {
		lineKey
		period domain.TimePeriod
	}
	var (
		order     []key
		rows      = make(map[key]*domain.LineBoarding)
		unmatched = make(map[string]bool)
	)
	for i := 0; i < t.Len(); i++ {
		period, err := domain.ParseTimePeriod(t.String(i, "time_period"))
		if err != nil {
			return nil, apperrors.NewParsingError("invalid boardings time period", err).
				WithContext("path", path).WithContext("row", i+1)
		}
		if period.IsDaily() {
			continue
		}
		boardings, err := t.Float(i, "boardings")
		if err != nil {
			return nil, err
		}

		code := crosswalk.NormalizeID(t.String(i, "mode_code"))
		k := key{lineKey{t.String(i, "line_name"), strings.ToUpper(t.String(i, "direction"))}, period}
		row, ok := rows[k]
		if !ok {
			row = &domain.LineBoarding{
				LineName:   k.name,
				ModeCode:   code,
				Direction:  k.direction,
				TimePeriod: period,
			}
			if mode, found := r.opts.Crosswalks.ModeCodes.Lookup(code); found {
				row.Operator = mode.Operator
				row.Technology = mode.Technology
			} else {
				unmatched[code] = true
			}
			rows[k] = row
			order = append(order, k)
		}
		row.Boardings += boardings
	}

	out := make([]domain.LineBoarding, 0, len(order)*2)
	daily := make(map[lineKey]*domain.LineBoarding)
	var lines []lineKey
	for _, k := range order {
		row := *rows[k]
		out = append(out, row)
		d, ok := daily[k.lineKey]
		if !ok {
			dd := row
			dd.TimePeriod = domain.PeriodDaily
			dd.Boardings = 0
			d = &dd
			daily[k.lineKey] = d
			lines = append(lines, k.lineKey)
		}
		d.Boardings += row.Boardings
	}
	for _, lk := range lines {
		out = append(out, *daily[lk])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LineName != out[j].LineName {
			return out[i].LineName < out[j].LineName
		}
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return periodRank(out[i].TimePeriod) < periodRank(out[j].TimePeriod)
	})

	if len(unmatched) > 0 {
		r.opts.Metrics.Unmatched(ctx, "mode_codes", len(unmatched))
		r.logger.WarnContext(ctx, "Lines with unknown mode codes", slog.Int("mode_codes", len(unmatched)))
	}
	r.logger.InfoContext(ctx, "Line boardings reduced", slog.String("path", path), slog.Int("rows", len(out)))
	return out, nil
}

type segmentKey struct {
	line string
	seq  int
}

// Segments reduces simulated segment loads per period plus a derived daily
// row. Segment geometry joins the segment's nodes to standard network nodes
// and draws a straight line between their coordinates.
func (r *Reducer) Segments(ctx context.Context) ([]domain.LineSegment, error) {
	path := r.opts.Sources.TransitSegments
	t, err := dataprocessing.ReadTable(path,
		"line_name", "segment_seq", "i_node", "j_node", "time_period", "volume", "capacity_total", "capacity_seated")
	if err != nil {
		return nil, err
	}

	shapes, err := dataprocessing.ReadLinkShapes(r.opts.Sources.RoadwayNetwork)
	if err != nil {
		return nil, err
	}
	nodes := dataprocessing.NodePoints(shapes)

	var segments []domain.LineSegment
	for i := 0; i < t.Len(); i++ {
		s, err := segmentRow(t, i)
		if err != nil {
			return nil, err
		}
		if s.TimePeriod.IsDaily() {
			continue
		}
		segments = append(segments, s)
	}
	segments = append(segments, dailySegments(segments)...)

	unplaced := 0
	for i := range segments {
		links := crosswalk.Chain([]int64{segments[i].INode, segments[i].JNode}, r.opts.Crosswalks.StandardNodes)
		from, to, ok := nodePair(links, nodes)
		if !ok {
			unplaced++
			continue
		}
		segments[i].Geometry = orb.LineString{from, to}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.LineName != b.LineName {
			return a.LineName < b.LineName
		}
		if a.SegmentSeq != b.SegmentSeq {
			return a.SegmentSeq < b.SegmentSeq
		}
		return periodRank(a.TimePeriod) < periodRank(b.TimePeriod)
	})

	if unplaced > 0 {
		r.opts.Metrics.Unmatched(ctx, "standard_nodes", unplaced)
		r.logger.WarnContext(ctx, "Segments without standard node coordinates", slog.Int("rows", unplaced))
	}
	r.logger.InfoContext(ctx, "Line segments reduced", slog.String("path", path), slog.Int("rows", len(segments)))
	return segments, nil
}

func nodePair(links []crosswalk.Link[int64], nodes map[int64]orb.Point) (orb.Point, orb.Point, bool) {
	if len(links) != 2 || links[0].Target == nil || links[1].Target == nil {
		return orb.Point{}, orb.Point{}, false
	}
	from, ok := nodes[*links[0].Target]
	if !ok {
		return orb.Point{}, orb.Point{}, false
	}
	to, ok := nodes[*links[1].Target]
	if !ok {
		return orb.Point{}, orb.Point{}, false
	}
	return from, to, true
}

func segmentRow(t *dataprocessing.Table, i int) (domain.LineSegment, error) {
	s := domain.LineSegment{LineName: t.String(i, "line_name")}
	seq, err := t.Int(i, "segment_seq")
	if err != nil {
		return s, err
	}
	s.SegmentSeq = int(seq)
	if s.INode, err = t.Int(i, "i_node"); err != nil {
		return s, err
	}
	if s.JNode, err = t.Int(i, "j_node"); err != nil {
		return s, err
	}
	if s.TimePeriod, err = domain.ParseTimePeriod(t.String(i, "time_period")); err != nil {
		return s, apperrors.NewParsingError("invalid segment time period", err).
			WithContext("path", t.Path).WithContext("row", i+1)
	}
	if s.Volume, err = t.Float(i, "volume"); err != nil {
		return s, err
	}
	if s.CapacityTotal, err = t.Float(i, "capacity_total"); err != nil {
		return s, err
	}
	if s.CapacitySeated, err = t.Float(i, "capacity_seated"); err != nil {
		return s, err
	}
	return s, nil
}

// dailySegments sums volume and capacity across periods per line segment
func dailySegments(segments []domain.LineSegment) []domain.LineSegment {
	var order []segmentKey
	daily := make(map[segmentKey]*domain.LineSegment)
	for _, s := range segments {
		k := segmentKey{s.LineName, s.SegmentSeq}
		d, ok := daily[k]
		if !ok {
			d = &domain.LineSegment{
				LineName:   s.LineName,
				SegmentSeq: s.SegmentSeq,
				INode:      s.INode,
				JNode:      s.JNode,
				TimePeriod: domain.PeriodDaily,
			}
			daily[k] = d
			order = append(order, k)
		}
		d.Volume += s.Volume
		d.CapacityTotal += s.CapacityTotal
		d.CapacitySeated += s.CapacitySeated
	}

	out := make([]domain.LineSegment, 0, len(order))
	for _, k := range order {
		out = append(out, *daily[k])
	}
	return out
}
