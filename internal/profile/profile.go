package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/paulmach/orb/encoding/wkt"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

const (
	// DateTimeColumn holds the file timestamp, RFC 3339 in UTC.
	DateTimeColumn = "datetime"
	// GeometryColumn holds the file location as a WKT point.
	GeometryColumn = "geometry"
	// CRS of the geometry column.
	CRS = "EPSG:4326"
	// NoData marks a missing value in field files.
	NoData = -9999.0
)

// Options for building a profile.
type Options struct {
	// Units maps variable code to unit, as returned by the parser.
	Units map[string]string
	// Comments is provenance carried over from the body loader.
	Comments string
	Logger   *zap.Logger
}

// ProfileData is one variable of one file: depth columns plus a single
// measurement column named by the variable code.
type ProfileData struct {
	Variable      *variables.MeasurementDescription
	Metadata      *parser.ProfileMetaData
	ColumnMapping map[string]*variables.MeasurementDescription
	SampleColumn  string
	HasLayers     bool
	// Units of the sample column, empty when unknown.
	Units    string
	CRS      string
	Comments string

	df        dataframe.DataFrame
	primary   *variables.ExtendableVariables
	depth     *variables.MeasurementDescription
	bottom    *variables.MeasurementDescription
	thickness *variables.MeasurementDescription
	log       *zap.Logger
}

// NewProfileData scopes body to variable. An empty body is kept as is with
// a warning so the metadata still has a home.
func NewProfileData(body dataframe.DataFrame, meta *parser.ProfileMetaData, variable *variables.MeasurementDescription, primary *variables.ExtendableVariables, opts Options) (*ProfileData, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	p := &ProfileData{
		Variable:      variable,
		Metadata:      meta,
		ColumnMapping: map[string]*variables.MeasurementDescription{},
		CRS:           CRS,
		Comments:      opts.Comments,
		df:            body,
		primary:       primary,
		depth:         shared(primary, "DEPTH", depthColumn),
		bottom:        shared(primary, "BOTTOM_DEPTH", bottomDepthColumn),
		thickness:     shared(primary, "LAYER_THICKNESS", "layer_thickness"),
		log:           log,
	}
	if variable != nil {
		p.Units = opts.Units[variable.Code]
	}

	if body.Nrow() == 0 {
		log.Warn("profile body is empty", zap.String("site", meta.SiteName))
	} else {
		if err := p.SetColumnMappings(); err != nil {
			return nil, err
		}
		if err := p.Format(); err != nil {
			return nil, err
		}
	}

	names := p.df.Names()
	if len(names) > 0 && !contains(names, p.depth.Code) {
		return nil, fmt.Errorf("%w %q in %v", ErrMissingDepth, p.depth.Code, names)
	}
	p.Describe()
	return p, nil
}

func shared(primary *variables.ExtendableVariables, key, code string) *variables.MeasurementDescription {
	if md, ok := primary.Get(key); ok {
		return md
	}
	return &variables.MeasurementDescription{Code: code, MatchOnCode: true}
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

// DataFrame returns the formatted body.
func (p *ProfileData) DataFrame() dataframe.DataFrame { return p.df }

// SetColumnMappings resolves every column of the body against the primary
// vocabulary. The first mapping seen for a name is kept.
func (p *ProfileData) SetColumnMappings() error {
	for _, c := range p.df.Names() {
		_, mapping, err := p.primary.FromMapping(c)
		if err != nil {
			return err
		}
		for name, md := range mapping {
			if _, ok := p.ColumnMapping[name]; !ok {
				p.ColumnMapping[name] = md
			}
		}
	}
	return nil
}

// CheckSampleColumns finds the column holding the variable and renames it
// to the variable code. Only the first of several matching columns is kept.
func (p *ProfileData) CheckSampleColumns() error {
	var samples []string
	for _, c := range p.df.Names() {
		if p.Variable != nil && p.Variable.Equal(p.ColumnMapping[c]) {
			samples = append(samples, c)
		}
	}
	if len(samples) == 0 {
		code := "<nil>"
		if p.Variable != nil {
			code = p.Variable.Code
		}
		return fmt.Errorf("%w: %s not in %v", ErrVariableNotFound, code, p.df.Names())
	}
	if len(samples) > 1 {
		p.log.Warn("only one sample column allowed, keeping the first match",
			zap.String("variable", p.Variable.Code),
			zap.Strings("columns", samples),
		)
		keep := make([]string, 0, len(p.df.Names()))
		for _, c := range p.df.Names() {
			if !contains(samples[1:], c) {
				keep = append(keep, c)
			}
		}
		p.df = p.df.Select(keep)
	}

	sample := samples[0]
	if sample != p.Variable.Code {
		p.df = p.df.Rename(p.Variable.Code, sample)
		p.ColumnMapping[p.Variable.Code] = p.ColumnMapping[sample]
	}
	p.SampleColumn = p.Variable.Code
	return p.df.Err
}

// Format keeps the depth columns and the sample column, broadcasts the file
// timestamp and location to every row and replaces NoData with NaN, or with
// an empty value in text columns.
func (p *ProfileData) Format() error {
	keep := make([]string, 0, 3)
	for _, c := range p.df.Names() {
		md := p.ColumnMapping[c]
		if md == nil {
			continue
		}
		if md.Equal(p.depth) || md.Equal(p.bottom) || md.Equal(p.Variable) {
			keep = append(keep, c)
		}
	}
	p.df = p.df.Select(keep)
	if err := p.CheckSampleColumns(); err != nil {
		return err
	}

	n := p.df.Nrow()
	stamp := p.Metadata.DateTime.UTC().Format(time.RFC3339)
	point := wkt.MarshalString(p.Metadata.Point())
	p.df = p.df.Mutate(series.New(repeat(stamp, n), series.String, DateTimeColumn)).
		Mutate(series.New(repeat(point, n), series.String, GeometryColumn))

	for _, c := range p.df.Names() {
		col := p.df.Col(c)
		if col.Type() == series.String {
			recs := col.Records()
			changed := false
			for i, r := range recs {
				if f, err := strconv.ParseFloat(strings.TrimSpace(r), 64); err == nil && f == NoData {
					recs[i] = ""
					changed = true
				}
			}
			if changed {
				p.df = p.df.Mutate(series.New(recs, series.String, c))
			}
			continue
		}
		if col.Type() != series.Float && col.Type() != series.Int {
			continue
		}
		vals := col.Float()
		for i, v := range vals {
			if v == NoData {
				vals[i] = math.NaN()
			}
		}
		p.df = p.df.Mutate(series.New(vals, series.Float, c))
	}
	if p.df.Err != nil {
		return fmt.Errorf("format profile: %w", p.df.Err)
	}
	return nil
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// Describe records whether the profile is layered and derives the layer
// thickness from depth and bottom_depth.
func (p *ProfileData) Describe() {
	names := p.df.Names()
	p.HasLayers = contains(names, p.bottom.Code)
	if !p.HasLayers {
		return
	}
	top := p.df.Col(p.depth.Code).Float()
	bottom := p.df.Col(p.bottom.Code).Float()
	thickness := make([]float64, len(top))
	for i := range top {
		thickness[i] = top[i] - bottom[i]
	}
	p.df = p.df.Mutate(series.New(thickness, series.Float, p.thickness.Code))
}

func (p *ProfileData) column(name string) []float64 {
	if name == "" || !contains(p.df.Names(), name) {
		return nil
	}
	return p.df.Col(name).Float()
}

// Mean of the sample column. Layered profiles are weighted by thickness
// over the rows where both value and thickness are present, normalized by
// the total present thickness. NaN when no value is present.
func (p *ProfileData) Mean() float64 {
	values := p.column(p.SampleColumn)
	if len(finite(values)) == 0 {
		return math.NaN()
	}
	if !p.HasLayers {
		return stat.Mean(finite(values), nil)
	}
	thickness := p.column(p.thickness.Code)
	var weighted, total float64
	for i, t := range thickness {
		if math.IsNaN(t) {
			continue
		}
		total += t
		if !math.IsNaN(values[i]) {
			weighted += values[i] * t
		}
	}
	if total == 0 {
		return math.NaN()
	}
	return weighted / total
}

// TotalDepth is the largest depth, ignoring missing entries.
func (p *ProfileData) TotalDepth() float64 {
	return nanMax(p.column(p.depth.Code))
}

// GetProfile returns depth, bottom_depth, datetime, geometry and the sample
// column, whichever are present. snowDatum is accepted for ground or snow
// surface referencing but depths are always returned as stored.
func (p *ProfileData) GetProfile(snowDatum string) dataframe.DataFrame {
	// TODO: reference depths to the snow surface when snowDatum is "snow".
	var cols []string
	for _, c := range []string{p.depth.Code, p.bottom.Code, DateTimeColumn, GeometryColumn, p.SampleColumn} {
		if c != "" && contains(p.df.Names(), c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return dataframe.DataFrame{}
	}
	return p.df.Select(cols)
}
