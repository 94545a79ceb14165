package crosswalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "acceptcli/internal/errors"
)

func TestCrosswalkOneToOne(t *testing.T) {
	cw := New[int64, int64]("standard_nodes")
	require.NoError(t, cw.Add(10, 100))
	require.NoError(t, cw.Add(11, 110))

	err := cw.Add(10, 101)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvariant))

	v, ok := cw.Lookup(10)
	assert.True(t, ok)
	assert.Equal(t, int64(100), v, "rejected entry does not replace the original")
	assert.Equal(t, 2, cw.Len())
}

func TestChain(t *testing.T) {
	ab := New[int64, int64]("a_to_b")
	require.NoError(t, ab.Add(1, 10))
	require.NoError(t, ab.Add(2, 20))
	require.NoError(t, ab.Add(3, 30))
	bc := New[int64, int64]("b_to_c")
	require.NoError(t, bc.Add(10, 100))
	require.NoError(t, bc.Add(30, 300))

	links := Chain([]int64{1, 2, 3, 4}, ab, bc)
	require.Len(t, links, 4, "unmatched keys are preserved")

	require.NotNil(t, links[0].Target)
	assert.Equal(t, int64(100), *links[0].Target)
	assert.Equal(t, 2, links[0].Hops)

	assert.Nil(t, links[1].Target, "second hop missing")
	assert.Equal(t, 1, links[1].Hops)

	assert.Equal(t, int64(300), *links[2].Target)

	assert.Nil(t, links[3].Target)
	assert.Equal(t, 0, links[3].Hops)
	assert.Equal(t, int64(4), links[3].Source)
}

type obsRow struct {
	key   string
	value float64
}

type simRow struct {
	key   string
	value float64
}

func joinRows(kind JoinKind) []Joined[obsRow, simRow] {
	obs := []obsRow{{"a", 1}, {"b", 2}, {"c", 3}}
	sim := []simRow{{"b", 20}, {"d", 40}, {"a", 10}}
	return Join(obs, sim,
		func(r obsRow) string { return r.key },
		func(r simRow) string { return r.key },
		kind)
}

func TestJoinKinds(t *testing.T) {
	tests := []struct {
		kind      JoinKind
		wantLen   int
		leftOnly  int
		rightOnly int
	}{
		{Left, 3, 1, 0},
		{Right, 3, 0, 1},
		{Outer, 4, 1, 1},
		{Inner, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			rows := joinRows(tt.kind)
			assert.Len(t, rows, tt.wantLen)
			l, r := Unmatched(rows)
			assert.Equal(t, tt.leftOnly, l)
			assert.Equal(t, tt.rightOnly, r)
		})
	}
}

func TestJoinOrder(t *testing.T) {
	outer := joinRows(Outer)
	require.Len(t, outer, 4)
	assert.Equal(t, "a", outer[0].Left.key)
	assert.Equal(t, 10.0, outer[0].Right.value)
	assert.Equal(t, "c", outer[2].Left.key)
	assert.Nil(t, outer[2].Right)
	assert.Nil(t, outer[3].Left)
	assert.Equal(t, "d", outer[3].Right.key, "unmatched right rows come last")

	right := joinRows(Right)
	require.Len(t, right, 3)
	assert.Equal(t, "b", right[0].Right.key, "right joins follow right row order")
	assert.True(t, right[0].Matched())
	assert.Nil(t, right[1].Left)
}

func TestJoinDuplicateKeys(t *testing.T) {
	left := []obsRow{{"a", 1}}
	right := []simRow{{"a", 10}, {"a", 11}}
	rows := Join(left, right,
		func(r obsRow) string { return r.key },
		func(r simRow) string { return r.key },
		Left)
	require.Len(t, rows, 2)
	assert.Equal(t, 10.0, rows[0].Right.value)
	assert.Equal(t, 11.0, rows[1].Right.value)
}

func TestGroupSum(t *testing.T) {
	rows := []obsRow{{"b", 1}, {"a", 2}, {"b", 3}}
	keys, sums := GroupSum(rows, func(r obsRow) string { return r.key }, func(r obsRow) float64 { return r.value })
	assert.Equal(t, []string{"b", "a"}, keys)
	assert.Equal(t, map[string]float64{"a": 2, "b": 4}, sums)
}

func TestDistrictRollup(t *testing.T) {
	d := NewDistricts()
	require.NoError(t, d.Add("1", "SF"))
	require.NoError(t, d.Add("2", "SF"))
	require.NoError(t, d.Add("3", "East Bay"))

	assert.Equal(t, DistrictPair{Orig: "SF", Dest: "East Bay"}, d.Pair("1", "3"))
	assert.Equal(t, DistrictPair{Orig: "SF", Dest: NullDistrict}, d.Pair("2", "99"))
	assert.Equal(t, 1, d.Unassigned([]string{"1", "99", "99"}))

	var empty Districts
	assert.Equal(t, NullDistrict, empty.District("1"))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "12", NormalizeID(" 12.0 "))
	assert.Equal(t, "12.5", NormalizeID("12.5"))
	assert.Equal(t, "06001400100", NormalizeID("06001400100"))
	assert.Equal(t, "A.1", NormalizeID("A.1"))
}
