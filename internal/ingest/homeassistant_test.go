package ingest

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePoints_MapResult(t *testing.T) {
	raw := json.RawMessage(`{"sensor.pv_energy":[{"start":1717200000000,"change":1.25}]}`)
	points := decodePoints(raw)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Change)
	assert.InDelta(t, 1.25, *points[0].Change, 1e-9)
}

func TestDecodePoints_ListResult(t *testing.T) {
	raw := json.RawMessage(`[{"data":[{"start":"2024-06-01T10:00:00Z","sum":1042.5}]}]`)
	points := decodePoints(raw)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Sum)
	assert.InDelta(t, 1042.5, *points[0].Sum, 1e-9)
}

func TestDecodePoints_Empty(t *testing.T) {
	assert.Nil(t, decodePoints(nil))
	assert.Nil(t, decodePoints(json.RawMessage(`5`)))
}

func TestPointTime_EpochMillis(t *testing.T) {
	p := haPoint{Start: json.RawMessage(`1717243200000`)}
	ts, ok := pointTime(p)
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1717243200000).In(time.Local).Truncate(time.Hour), ts)
}

func TestPointTime_ISO(t *testing.T) {
	p := haPoint{Start: json.RawMessage(`"2024-06-01T10:30:00Z"`)}
	ts, ok := pointTime(p)
	require.True(t, ok)
	// Normalized to the containing hour.
	assert.Equal(t, 0, ts.Minute())
}

func TestChangesByHour_ClampsNegative(t *testing.T) {
	neg := -0.5
	pos := 1.5
	points := []haPoint{
		{Start: json.RawMessage(`1717243200000`), Change: &neg},
		{Start: json.RawMessage(`1717246800000`), Change: &pos},
	}
	byHour := changesByHour(points)
	require.Len(t, byHour, 2)

	var total float64
	for _, v := range byHour {
		total += v
	}
	assert.InDelta(t, 1.5, total, 1e-9)
}

func TestDiffsByHour(t *testing.T) {
	sums := []float64{100, 101.5, 101.5, 100} // includes a meter reset
	points := make([]haPoint, len(sums))
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range sums {
		ms := strconv.FormatInt(base.Add(time.Duration(i)*time.Hour).UnixMilli(), 10)
		points[i] = haPoint{Start: json.RawMessage(ms), Sum: &sums[i]}
	}

	byHour := diffsByHour(points)
	require.Len(t, byHour, 4)

	first := base.In(time.Local).Truncate(time.Hour)
	assert.Zero(t, byHour[first])
	assert.InDelta(t, 1.5, byHour[first.Add(time.Hour)], 1e-9)
	assert.Zero(t, byHour[first.Add(2*time.Hour)])
	// The counter reset never yields negative energy.
	assert.Zero(t, byHour[first.Add(3*time.Hour)])
}

func TestMergeHourly(t *testing.T) {
	h0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	h1 := h0.Add(time.Hour)

	samples := mergeHourly(
		map[time.Time]float64{h0: 2.0},
		map[time.Time]float64{h0: 0.5, h1: 1.0},
	)
	require.Len(t, samples, 2)
	assert.Equal(t, h0, samples[0].Timestamp)
	assert.InDelta(t, 2.0, samples[0].PVKWh, 1e-9)
	assert.InDelta(t, 0.5, samples[0].LoadKWh, 1e-9)
	// PV missing for h1 counts as zero.
	assert.Zero(t, samples[1].PVKWh)
	assert.InDelta(t, 1.0, samples[1].LoadKWh, 1e-9)
}
