// Package threshold buckets continuous volumes into standards-defined error
// tolerance categories.
//
// A Table is a strictly increasing list of breakpoints, each carrying a
// tolerance. Category bounds are the midpoints between neighbouring
// breakpoints, with the first lower bound at 0 and the last upper bound at
// +Inf, so the intervals partition [0, +Inf).
package threshold

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	apperrors "acceptcli/internal/errors"
)

// Interval is the half-open range [Lo, Hi)
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether v lies in [Lo, Hi)
func (i Interval) Contains(v float64) bool {
	return v >= i.Lo && v < i.Hi
}

func (i Interval) String() string {
	hi := "inf"
	if !math.IsInf(i.Hi, 1) {
		hi = strconv.FormatFloat(i.Hi, 'f', -1, 64)
	}
	return fmt.Sprintf("[%s, %s)", strconv.FormatFloat(i.Lo, 'f', -1, 64), hi)
}

// Category is the bucket a value falls into
type Category struct {
	Index     int      `json:"index"`
	Label     string   `json:"label"`
	Tolerance float64  `json:"tolerance"`
	Interval  Interval `json:"interval"`
}

// Table is an ordered breakpoint list with one tolerance per breakpoint
type Table struct {
	Name        string
	Breakpoints []float64
	Tolerances  []float64
}

// NewTable validates and copies a breakpoint table
func NewTable(name string, breakpoints, tolerances []float64) (*Table, error) {
	if len(breakpoints) == 0 {
		return nil, apperrors.NewInvariantError(fmt.Sprintf("threshold table %s has no breakpoints", name))
	}
	if len(breakpoints) != len(tolerances) {
		return nil, apperrors.NewInvariantError(fmt.Sprintf(
			"threshold table %s has %d breakpoints and %d tolerances", name, len(breakpoints), len(tolerances)))
	}
	for i, bp := range breakpoints {
		if math.IsNaN(bp) || bp < 0 {
			return nil, apperrors.NewInvariantError(fmt.Sprintf("threshold table %s breakpoint %v is not a volume", name, bp))
		}
		if i > 0 && bp <= breakpoints[i-1] {
			return nil, apperrors.NewInvariantError(fmt.Sprintf(
				"threshold table %s breakpoints are not strictly increasing at %v", name, bp))
		}
	}

	return &Table{
		Name:        name,
		Breakpoints: append([]float64(nil), breakpoints...),
		Tolerances:  append([]float64(nil), tolerances...),
	}, nil
}

// MustTable is NewTable for package-level tables known to be valid
func MustTable(name string, breakpoints, tolerances []float64) *Table {
	t, err := NewTable(name, breakpoints, tolerances)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of categories
func (t *Table) Len() int {
	return len(t.Breakpoints)
}

// Bounds derives the category intervals from the breakpoints
func (t *Table) Bounds() []Interval {
	n := len(t.Breakpoints)
	bounds := make([]Interval, n)
	for i := range t.Breakpoints {
		lo, hi := 0.0, math.Inf(1)
		if i > 0 {
			lo = (t.Breakpoints[i-1] + t.Breakpoints[i]) / 2
		}
		if i < n-1 {
			hi = (t.Breakpoints[i] + t.Breakpoints[i+1]) / 2
		}
		bounds[i] = Interval{Lo: lo, Hi: hi}
	}
	return bounds
}

// Scale returns a copy whose breakpoints are multiplied by factor. Tolerances
// are unchanged; Scale(0.1) turns a daily standard into an hourly one.
func (t *Table) Scale(factor float64) *Table {
	scaled := &Table{
		Name:        fmt.Sprintf("%s x%s", t.Name, strconv.FormatFloat(factor, 'f', -1, 64)),
		Breakpoints: make([]float64, len(t.Breakpoints)),
		Tolerances:  append([]float64(nil), t.Tolerances...),
	}
	for i, bp := range t.Breakpoints {
		scaled.Breakpoints[i] = bp * factor
	}
	return scaled
}

// Categorize returns the unique category containing value
func (t *Table) Categorize(value float64) (Category, error) {
	if err := t.checkValue(value); err != nil {
		return Category{}, err
	}
	bounds := t.Bounds()
	// first interval whose upper bound exceeds value
	i := sort.Search(len(bounds), func(i int) bool { return value < bounds[i].Hi })
	return t.category(i, bounds[i]), nil
}

// CategorizeAll categorizes values in one sorted pass. The result is in the
// order of values.
func (t *Table) CategorizeAll(values []float64) ([]Category, error) {
	for _, v := range values {
		if err := t.checkValue(v); err != nil {
			return nil, err
		}
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	bounds := t.Bounds()
	out := make([]Category, len(values))
	bucket := 0
	for _, idx := range order {
		for !bounds[bucket].Contains(values[idx]) {
			bucket++
		}
		out[idx] = t.category(bucket, bounds[bucket])
	}
	return out, nil
}

func (t *Table) category(i int, bounds Interval) Category {
	return Category{
		Index:     i,
		Label:     strconv.FormatFloat(t.Breakpoints[i], 'f', -1, 64),
		Tolerance: t.Tolerances[i],
		Interval:  bounds,
	}
}

func (t *Table) checkValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return apperrors.NewInvariantError(fmt.Sprintf("cannot categorize volume %v with %s", v, t.Name)).
			WithContext("table", t.Name)
	}
	return nil
}
