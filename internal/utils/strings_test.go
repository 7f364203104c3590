package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizeKey(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"SMP instrument #", "smp_instrument_#"},
		{"Specific surface area (m^2/kg)", "specific_surface_area"},
		{"ï»¿Camera", "camera"},
		{"\ufeffCamera", "camera"},
		{" Temperature \n", "temperature"},
		{"Density (kg/m^3)", "density"},
		{"LWC-vol A (%)", "lwc_vol_a"},
		{"Date/Local Standard Time", "date/local_standard_time"},
		{"Top  [cm]", "top"},
		{`"Grain Type"`, "grain_type"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := StandardizeKey(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, StandardizeKey(got), "must be idempotent")
		})
	}
}

func TestStandardizeKeyColons(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"12 :30", "12_30"},
		{"12_:30", "12_30"},
		{":30", "30"},
		{"Time: 12:30 PM", "time_12:30_pm"},
		{"12:30-x", "1230_x"},
		{"08:45:00", "08:45:00"},
		{"a:b c", "ab_c"},
		{"Start: (12:30) end:", "start_end"},
		{"12:30\tpm", "1230_pm"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := StandardizeKey(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, StandardizeKey(got))
			assert.Equal(t, got, StandardizeKey(StandardizeKey(got)))
		})
	}
}

func TestCleanStr(t *testing.T) {
	assert.Equal(t, "12:30", CleanStr(" 12:30\n"))
	assert.Equal(t, "Time 12:30", CleanStr("Time: 12:30"))
	assert.Equal(t, "12 30", CleanStr("12 :30"))
	assert.Equal(t, "site_a 12:30_b", CleanStr("site_a: 12:30_b"))
	assert.Equal(t, "Surveyor", CleanStr(`"Surveyor"`))
	assert.Equal(t, "its", CleanStr("it's "))
}

func TestStripEncapsulated(t *testing.T) {
	got, err := StripEncapsulated("Density [kg/m^3], Date [yyyymmdd]", "[]")
	require.NoError(t, err)
	assert.Equal(t, "Density , Date ", got)

	got, err = StripEncapsulated(`Name "Surveyor"`, `"`)
	require.NoError(t, err)
	assert.Equal(t, "Name ", got)

	_, err = StripEncapsulated("abc", "<<>")
	assert.ErrorIs(t, err, ErrInvalidDelimiter)
}

func TestGetEncapsulated(t *testing.T) {
	got, err := GetEncapsulated("density (kg/m^3), temperature (C)", "()")
	require.NoError(t, err)
	assert.Equal(t, []string{"kg/m^3", "C"}, got)

	got, err = GetEncapsulated("no units", "()")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = GetEncapsulated("abc", "")
	assert.ErrorIs(t, err, ErrInvalidDelimiter)
}

func TestInferUnitFromKey(t *testing.T) {
	u, ok := InferUnitFromKey("Density A (kg/m3)")
	require.True(t, ok)
	assert.Equal(t, "kg/m3", u)

	u, ok = InferUnitFromKey("Temperature [Deg C]")
	require.True(t, ok)
	assert.Equal(t, "deg c", u)

	_, ok = InferUnitFromKey("Grain Type")
	assert.False(t, ok)
}

func TestParseNone(t *testing.T) {
	for _, v := range []string{"", "nan", "NaN", "None", " none "} {
		assert.Nil(t, ParseNone(v), v)
	}
	got := ParseNone("East River")
	require.NotNil(t, got)
	assert.Equal(t, "East River", *got)
}

func TestGetAlphaRatio(t *testing.T) {
	assert.Equal(t, 1.0, GetAlphaRatio("1A", true))
	assert.Equal(t, 0.0, GetAlphaRatio(`1"A"`, true))
	assert.Equal(t, 1.0, GetAlphaRatio(`1"A"`, false))
	assert.Equal(t, 1.0, GetAlphaRatio("A", true))
	assert.Equal(t, 0.5, GetAlphaRatio("ab1234", true))
}

func TestLineIsHeader(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		sep       string
		indicator string
		prev      float64
		expected  int
		want      bool
	}{
		{"indicator present", "# flags, ", "", "#", 0, 0, true},
		{"indicator absent", "flags, ", "", "#", 0, 0, false},
		{"column count only", "# flags, ", ",", "", 0, 2, true},
		{"column count mismatch", "# flags, ", ",", "", 0, 5, false},
		{"no signals", "anything", "", "", 0, 0, false},
		{"numeric row after text", "10,20,30", ",", "", 3.0, 3, false},
		{"text row after text", "Top,Bottom,Density", ",", "", 1.0, 3, true},
		{"tie is data", "a,b", ",", "", 1.0, 3, false},
		{"units ignored in column count", "Top (cm, top),Bottom", ",", "", 0, 2, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LineIsHeader(tc.line, tc.sep, tc.indicator, tc.prev, tc.expected))
		})
	}
}

func TestManageDegrees(t *testing.T) {
	assert.Equal(t, "25", ManageDegrees("25°"))
	assert.Equal(t, "25", ManageDegrees("20-25"))
	assert.Equal(t, "0", ManageDegrees("Flat"))
	assert.Equal(t, "NE", ManageDegrees("NE"))
}

func TestCardinalToDegrees(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		assumed bool
	}{
		{"N", 0, false},
		{"ne", 45, false},
		{"S/SW", 202.5, false},
		{"NNW", 337.5, false},
		{"West", 270, true},
	}
	for _, tc := range cases {
		got, assumed, err := CardinalToDegrees(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.assumed, assumed, tc.in)
	}
	_, _, err := CardinalToDegrees("Q")
	assert.Error(t, err)
}
