package acceptance

import (
	"github.com/paulmach/orb"

	"acceptcli/internal/crosswalk"
	"acceptcli/pkg/contracts/domain"
)

// Outcome is one side of a comparison: a value at the criterion's dimension
// values. Threshold overrides the criterion's default acceptance threshold.
type Outcome struct {
	Values    [3]string
	Value     float64
	Threshold string
	Geometry  orb.Geometry
}

func (o Outcome) key() [3]string {
	return o.Values
}

// merge sums outcomes sharing dimension values so every key appears once.
// The first outcome's threshold and geometry are kept.
func merge(outcomes []Outcome) []Outcome {
	index := make(map[[3]string]int, len(outcomes))
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if i, ok := index[o.Values]; ok {
			out[i].Value += o.Value
			if out[i].Geometry == nil {
				out[i].Geometry = o.Geometry
			}
			continue
		}
		index[o.Values] = len(out)
		out = append(out, o)
	}
	return out
}

// compare joins observed (left) and simulated (right) outcomes and emits one
// record per joined key
func compare(c Criterion, obs, sim []Outcome) []domain.ComparisonRecord {
	joined := crosswalk.Join(merge(obs), merge(sim), Outcome.key, Outcome.key, c.Join)

	records := make([]domain.ComparisonRecord, 0, len(joined))
	for _, j := range joined {
		rec := domain.ComparisonRecord{
			CriteriaNumber:      c.Number,
			CriteriaName:        c.Name,
			AcceptanceThreshold: c.Threshold,
		}

		var side Outcome
		if j.Left != nil {
			side = *j.Left
			rec.ObservedOutcome = domain.Float(j.Left.Value)
		} else {
			side = *j.Right
		}
		if j.Right != nil {
			rec.SimulatedOutcome = domain.Float(j.Right.Value)
		}

		for i, name := range c.Dimensions {
			if name != "" {
				rec.Dimensions[i] = domain.Dimension{Name: name, Value: side.Values[i]}
			}
		}
		if side.Threshold != "" {
			rec.AcceptanceThreshold = side.Threshold
		}
		rec.Geometry = side.Geometry
		if rec.Geometry == nil && j.Right != nil {
			rec.Geometry = j.Right.Geometry
		}
		records = append(records, rec)
	}
	return records
}

// lineGeometry returns ls as a geometry, or nil when it has no points
func lineGeometry(ls orb.LineString) orb.Geometry {
	if len(ls) == 0 {
		return nil
	}
	return ls
}
