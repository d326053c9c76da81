package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pvsizer/internal/model"
)

func TestAutoconsumption(t *testing.T) {
	ac, err := Autoconsumption(100, 85)
	require.NoError(t, err)
	assert.InDelta(t, 85, ac, 1e-9)

	// Clamped to 100 even if used somehow exceeds production.
	ac, err = Autoconsumption(100, 120)
	require.NoError(t, err)
	assert.InDelta(t, 100, ac, 1e-9)

	_, err = Autoconsumption(0, 0)
	var dataErr *model.DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestCoverage(t *testing.T) {
	tc, err := Coverage(200, 80)
	require.NoError(t, err)
	assert.InDelta(t, 40, tc, 1e-9)

	tc, err = Coverage(200, 0)
	require.NoError(t, err)
	assert.Zero(t, tc)

	_, err = Coverage(0, 10)
	var dataErr *model.DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestUsedPVFromTotals(t *testing.T) {
	assert.InDelta(t, 70, UsedPVFromTotals(100, 30), 1e-9)
	// Export exceeding production never goes negative.
	assert.Zero(t, UsedPVFromTotals(10, 15))
}

func TestUsedPVFromTrace(t *testing.T) {
	trace := []model.HourlyFlow{
		{PVDirect: 1.0, BattToLoad: 0.5, GridCharge: 2.0},
		{PVDirect: 0.5, BattToLoad: 1.5, GridImport: 0.3},
	}
	// Grid-assisted charge is grid energy, not PV usage.
	assert.InDelta(t, 3.5, UsedPVFromTrace(trace), 1e-9)
}
