package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaponics_monitor/internal/models"
)

func TestParseBool(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{"0", false},
		{"1", true},
		{0.0, false},
		{0, false},
		{nil, false},
		{"TRUE", true},
		{" false ", false},
		{"", false},
		{"   ", false},
		{3.5, true},
		{json.Number("0"), false},
		{"on", true},
		{true, true},
		{map[string]any{}, true},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, ParseBool(tc.in), "ParseBool(%#v)", tc.in)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{"25,5", 25.5},
		{nil, 0},
		{"", 0},
		{"abc", 0},
		{" 21.75 ", 21.75},
		{"1.234,5", 1234.5},
		{42.0, 42},
		{7, 7},
		{json.Number("3.25"), 3.25},
		{"NaN", 0},
		{"-127", -127},
		{true, 1},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, ParseNumber(tc.in), "ParseNumber(%#v)", tc.in)
	}
}

func TestParseTimerInput(t *testing.T) {
	got, err := ParseTimerInput("")
	require.NoError(t, err)
	assert.Nil(t, got, "blank input keeps the field empty")

	for _, in := range []string{"0", "7", "900", "00012"} {
		got, err := ParseTimerInput(in)
		require.NoError(t, err, in)
		require.NotNil(t, got, in)
		assert.GreaterOrEqual(t, *got, 0, in)
	}

	for _, in := range []string{"-1", "1.5", "abc", "10s", "99999999999999999999999"} {
		_, err := ParseTimerInput(in)
		assert.ErrorIs(t, err, ErrInvalidTimerInput, in)
	}
}

func TestLevelUnitRoundTrip(t *testing.T) {
	assert.Equal(t, 62.0, LevelFraction.ToPercent(0.62))
	assert.InDelta(t, 0.62, LevelFraction.FromPercent(62), 1e-9)
	assert.Equal(t, 62.0, LevelPercent.ToPercent(62))
}

func TestToReadingAndDeviceState(t *testing.T) {
	e := Entry{
		EntryID: 9,
		Fields: map[Field]any{
			FieldTemperature:   "24,5",
			FieldLevel:         "0.8",
			FieldPumpStatus:    "1",
			FieldHeaterStatus:  nil,
			FieldOperationMode: "1",
			FieldTargetTemp:    "26",
			FieldPumpOnTimer:   "900",
			FieldPumpOffTimer:  "1800.4",
		},
	}

	r := ToReading(e, LevelFraction)
	assert.Equal(t, 24.5, r.Temperature)
	assert.InDelta(t, 80, r.Level, 1e-9)
	assert.True(t, r.PumpStatus)
	assert.False(t, r.HeaterStatus)
	assert.EqualValues(t, 9, r.EntryID)

	st := ToDeviceState(e)
	assert.Equal(t, models.DeviceState{
		PumpStatus:    true,
		OperationMode: true,
		TargetTemp:    26,
		PumpOnTimer:   900,
		PumpOffTimer:  1800,
	}, st)
}

func TestIsSensorFault(t *testing.T) {
	assert.True(t, IsSensorFault(-127))
	assert.False(t, IsSensorFault(-126.9))
}
