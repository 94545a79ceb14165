package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodForHour(t *testing.T) {
	tests := []struct {
		hour int
		want TimePeriod
	}{
		{hour: 0, want: PeriodEV},
		{hour: 2, want: PeriodEV},
		{hour: 3, want: PeriodEA},
		{hour: 5, want: PeriodEA},
		{hour: 6, want: PeriodAM},
		{hour: 9, want: PeriodAM},
		{hour: 10, want: PeriodMD},
		{hour: 14, want: PeriodMD},
		{hour: 15, want: PeriodPM},
		{hour: 18, want: PeriodPM},
		{hour: 19, want: PeriodEV},
		{hour: 23, want: PeriodEV},
	}

	for _, tt := range tests {
		got, err := PeriodForHour(tt.hour)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "hour %d", tt.hour)
	}

	_, err := PeriodForHour(24)
	assert.Error(t, err)
	_, err = PeriodForHour(-1)
	assert.Error(t, err)
}

func TestTimePeriodHoursCoverDay(t *testing.T) {
	var total float64
	for _, p := range ModelPeriods {
		total += p.Hours()
	}
	assert.Equal(t, PeriodDaily.Hours(), total)

	// every hour lands in a period whose length matches the hour count
	counts := make(map[TimePeriod]float64)
	for h := 0; h < 24; h++ {
		p, err := PeriodForHour(h)
		require.NoError(t, err)
		counts[p]++
	}
	for _, p := range ModelPeriods {
		assert.Equal(t, p.Hours(), counts[p], string(p))
	}
}

func TestParseTimePeriod(t *testing.T) {
	tests := []struct {
		input   string
		want    TimePeriod
		wantErr bool
	}{
		{input: "AM", want: PeriodAM},
		{input: " pm ", want: PeriodPM},
		{input: "Daily", want: PeriodDaily},
		{input: "day", want: PeriodDaily},
		{input: "night", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimePeriod(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == PeriodDaily, got.IsDaily())
		})
	}
}

func TestTechnologyIsRail(t *testing.T) {
	assert.True(t, ParseTechnology("heavy rail").IsRail())
	assert.True(t, ParseTechnology("LR").IsRail())
	assert.True(t, ParseTechnology("Commuter Rail").IsRail())
	assert.False(t, ParseTechnology("local bus").IsRail())
	assert.False(t, ParseTechnology("Ferry").IsRail())
	assert.Equal(t, Technology("Gondola"), ParseTechnology(" Gondola "))
}

func TestParseVehicleClass(t *testing.T) {
	got, err := ParseVehicleClass("Trucks")
	require.NoError(t, err)
	assert.Equal(t, VehicleTruck, got)

	got, err = ParseVehicleClass("")
	require.NoError(t, err)
	assert.Equal(t, VehicleAll, got)

	_, err = ParseVehicleClass("bicycle")
	assert.Error(t, err)
}
