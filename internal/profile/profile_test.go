package profile_test

import (
	"math"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/profile"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

func snowex(t *testing.T) *variables.ExtendableVariables {
	t.Helper()
	v, err := variables.Load(variables.DefaultCampaign, variables.Options{}, nil, nil)
	require.NoError(t, err)
	return v.Primary
}

func testMeta() *parser.ProfileMetaData {
	return &parser.ProfileMetaData{
		SiteName:  "COERAP_20200427_0845",
		DateTime:  time.Date(2020, 4, 27, 14, 45, 0, 0, time.UTC),
		Latitude:  38.92524,
		Longitude: -106.97112,
	}
}

func frame(cols ...series.Series) dataframe.DataFrame {
	return dataframe.New(cols...)
}

func floatCol(name string, vals ...float64) series.Series {
	return series.New(vals, series.Float, name)
}

func variable(t *testing.T, primary *variables.ExtendableVariables, key string) *variables.MeasurementDescription {
	t.Helper()
	md, ok := primary.Get(key)
	require.True(t, ok, key)
	return md
}

func TestWeightedMean(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 40, 30),
		floatCol("bottom_depth", 30, 0),
		floatCol("density", 100, 200),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "DENSITY"), primary, profile.Options{
		Units: map[string]string{"density": "kg/m3"},
	})
	require.NoError(t, err)

	assert.True(t, p.HasLayers)
	assert.Equal(t, "density", p.SampleColumn)
	assert.Equal(t, "kg/m3", p.Units)
	assert.InDelta(t, 175.0, p.Mean(), 1e-9)
	assert.Equal(t, 40.0, p.TotalDepth())
	assert.Equal(t, []float64{10, 30}, p.DataFrame().Col("layer_thickness").Float())
}

func TestMeanWithMissingValues(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 30, 20, 10),
		floatCol("bottom_depth", 20, 10, 0),
		floatCol("density", 200, -9999, 300),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "DENSITY"), primary, profile.Options{})
	require.NoError(t, err)
	// the missing layer still counts toward the total thickness
	assert.InDelta(t, (200.0*10+300.0*10)/30.0, p.Mean(), 1e-9)
}

func TestUnweightedMean(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 30, 20, 10),
		floatCol("snow_temperature", -1, -2, math.NaN()),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "SNOW_TEMPERATURE"), primary, profile.Options{})
	require.NoError(t, err)
	assert.False(t, p.HasLayers)
	assert.InDelta(t, -1.5, p.Mean(), 1e-9)
	assert.Equal(t, 30.0, p.TotalDepth())
}

func TestAllMissingMeanIsNaN(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 20, 10),
		floatCol("bottom_depth", 10, 0),
		floatCol("density", -9999, -9999),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "DENSITY"), primary, profile.Options{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p.Mean()))
}

func TestFormatColumns(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 20, 10),
		floatCol("bottom_depth", 10, 0),
		floatCol("density_a", 210, 220),
		floatCol("density_b", 230, 240),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "DENSITY_B"), primary, profile.Options{})
	require.NoError(t, err)

	df := p.DataFrame()
	assert.Equal(t, []string{"depth", "bottom_depth", "density_b", "datetime", "geometry", "layer_thickness"}, df.Names())
	assert.Equal(t, []string{"2020-04-27T14:45:00Z", "2020-04-27T14:45:00Z"}, df.Col("datetime").Records())
	assert.Equal(t, "POINT(-106.97112 38.92524)", df.Col("geometry").Records()[0])
	assert.Equal(t, profile.CRS, p.CRS)

	got := p.GetProfile("ground")
	assert.Equal(t, []string{"depth", "bottom_depth", "datetime", "geometry", "density_b"}, got.Names())
	assert.Equal(t, got.Names(), p.GetProfile("snow").Names())
}

func TestSampleColumnCollisionKeepsFirst(t *testing.T) {
	primary, err := variables.New(variables.Options{},
		variables.FromMap("test", map[string]map[string]any{
			"DEPTH":   {"code": "depth", "auto_remap": true},
			"DENSITY": {"code": "density", "map_from": []any{"rho"}},
		}),
	)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.WarnLevel)

	body := frame(
		floatCol("depth", 20, 10),
		floatCol("density", 100, 110),
		floatCol("rho", 900, 910),
	)
	density, _ := primary.Get("DENSITY")
	p, err := profile.NewProfileData(body, testMeta(), density, primary, profile.Options{Logger: zap.New(core)})
	require.NoError(t, err)

	assert.Equal(t, "density", p.SampleColumn)
	assert.Equal(t, []float64{100, 110}, p.DataFrame().Col("density").Float())
	assert.NotContains(t, p.DataFrame().Names(), "rho")
	assert.Equal(t, 1, logs.FilterMessage("only one sample column allowed, keeping the first match").Len())
}

func TestNewProfileDataErrors(t *testing.T) {
	primary := snowex(t)

	_, err := profile.NewProfileData(
		frame(floatCol("depth", 10), floatCol("density", 100)),
		testMeta(), variable(t, primary, "SWE"), primary, profile.Options{},
	)
	assert.ErrorIs(t, err, profile.ErrVariableNotFound)

	_, err = profile.NewProfileData(
		frame(floatCol("density", 100)),
		testMeta(), variable(t, primary, "DENSITY"), primary, profile.Options{},
	)
	assert.ErrorIs(t, err, profile.ErrMissingDepth)
}

func TestEmptyBodyPlaceholder(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	primary := snowex(t)
	p, err := profile.NewProfileData(dataframe.DataFrame{}, testMeta(), nil, primary, profile.Options{Logger: zap.New(core)})
	require.NoError(t, err)

	assert.Nil(t, p.Variable)
	assert.Equal(t, 0, p.DataFrame().Nrow())
	assert.True(t, math.IsNaN(p.Mean()))
	assert.True(t, math.IsNaN(p.TotalDepth()))
	assert.Equal(t, 1, logs.FilterMessage("profile body is empty").Len())
}

func TestNoDataInTextColumn(t *testing.T) {
	primary := snowex(t)
	body := frame(
		floatCol("depth", 30, 20, 10),
		floatCol("bottom_depth", 20, 10, 0),
		series.New([]string{"FC", "-9999", " -9999.0"}, series.String, "grain_type"),
	)
	p, err := profile.NewProfileData(body, testMeta(), variable(t, primary, "GRAIN_TYPE"), primary, profile.Options{})
	require.NoError(t, err)

	col := p.DataFrame().Col("grain_type")
	assert.Equal(t, series.String, col.Type())
	assert.Equal(t, []string{"FC", "", ""}, col.Records())
}
