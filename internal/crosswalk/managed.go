package crosswalk

import (
	"acceptcli/pkg/contracts/domain"
)

// DefaultManagedLaneOffset is added to a general purpose link id to form the
// id of its managed lane counterpart
const DefaultManagedLaneOffset int64 = 1000000

type periodLink struct {
	id     int64
	period domain.TimePeriod
}

// ManagedResult reports how many managed lane rows were merged into parents
type ManagedResult struct {
	Links  []domain.LinkFlow
	Merged int
}

// ReconcileManaged folds managed lane rows into their general purpose parent
// rows. A row is a managed lane when its id minus offset is the id of another
// row in the same time period; its flows become the parent's ml_ fields and
// the row itself is dropped. Parents without a managed counterpart keep zero
// managed flows. Row order is otherwise preserved.
func ReconcileManaged(links []domain.LinkFlow, offset int64) ManagedResult {
	index := make(map[periodLink]int, len(links))
	for i, l := range links {
		index[periodLink{l.ModelLinkID, l.TimePeriod}] = i
	}

	managedOf := make(map[int]int)
	isManaged := make([]bool, len(links))
	for i, l := range links {
		if offset <= 0 || l.ModelLinkID <= offset {
			continue
		}
		parent, ok := index[periodLink{l.ModelLinkID - offset, l.TimePeriod}]
		if !ok {
			continue
		}
		managedOf[parent] = i
		isManaged[i] = true
	}

	out := make([]domain.LinkFlow, 0, len(links)-len(managedOf))
	for i, l := range links {
		if isManaged[i] {
			continue
		}
		if m, ok := managedOf[i]; ok {
			ml := links[m]
			id := ml.ModelLinkID
			l.Managed = domain.ManagedFlow{
				LinkID:    &id,
				FlowDA:    ml.FlowDA,
				FlowS2:    ml.FlowS2,
				FlowS3:    ml.FlowS3,
				FlowTruck: ml.FlowTruck,
			}
		}
		out = append(out, l)
	}
	return ManagedResult{Links: out, Merged: len(managedOf)}
}
