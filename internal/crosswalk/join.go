package crosswalk

// JoinKind selects which unmatched rows a join keeps
type JoinKind int

const (
	// Left keeps every left row
	Left JoinKind = iota
	// Right keeps every right row
	Right
	// Outer keeps every row of both sides
	Outer
	// Inner keeps only matched rows
	Inner
)

func (k JoinKind) String() string {
	switch k {
	case Left:
		return "left"
	case Right:
		return "right"
	case Outer:
		return "outer"
	case Inner:
		return "inner"
	default:
		return "unknown"
	}
}

// Joined pairs a left and right row; the unmatched side is nil
type Joined[L, R any] struct {
	Left  *L
	Right *R
}

// Matched reports whether both sides are present
func (j Joined[L, R]) Matched() bool {
	return j.Left != nil && j.Right != nil
}

// Join pairs rows whose keys are equal. Left, Inner and Outer joins follow
// left row order, each left row followed by its right matches in right row
// order; Outer then appends unmatched right rows. Right joins follow right
// row order. Duplicate keys produce one pair per combination.
func Join[L, R any, K comparable](left []L, right []R, lkey func(L) K, rkey func(R) K, kind JoinKind) []Joined[L, R] {
	if kind == Right {
		swapped := Join(right, left, rkey, lkey, Left)
		out := make([]Joined[L, R], len(swapped))
		for i, j := range swapped {
			out[i] = Joined[L, R]{Left: j.Right, Right: j.Left}
		}
		return out
	}

	byKey := make(map[K][]int, len(right))
	for i := range right {
		k := rkey(right[i])
		byKey[k] = append(byKey[k], i)
	}

	used := make([]bool, len(right))
	out := make([]Joined[L, R], 0, len(left))
	for i := range left {
		matches := byKey[lkey(left[i])]
		if len(matches) == 0 {
			if kind != Inner {
				out = append(out, Joined[L, R]{Left: &left[i]})
			}
			continue
		}
		for _, m := range matches {
			used[m] = true
			out = append(out, Joined[L, R]{Left: &left[i], Right: &right[m]})
		}
	}

	if kind == Outer {
		for i := range right {
			if !used[i] {
				out = append(out, Joined[L, R]{Right: &right[i]})
			}
		}
	}
	return out
}

// Unmatched counts the pairs missing their left or right side
func Unmatched[L, R any](rows []Joined[L, R]) (leftOnly, rightOnly int) {
	for _, j := range rows {
		switch {
		case j.Left != nil && j.Right == nil:
			leftOnly++
		case j.Left == nil && j.Right != nil:
			rightOnly++
		}
	}
	return leftOnly, rightOnly
}

// GroupSum sums value per key, returning keys in first-seen order
func GroupSum[T any, K comparable](rows []T, key func(T) K, value func(T) float64) ([]K, map[K]float64) {
	var order []K
	sums := make(map[K]float64)
	for _, r := range rows {
		k := key(r)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += value(r)
	}
	return order, sums
}
