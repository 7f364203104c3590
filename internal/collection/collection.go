package collection

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insitu-cli/internal/parser"
	"github.com/KaramelBytes/insitu-cli/internal/profile"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

// ProfileDataCollection holds every profile read from one file. All
// profiles share the same metadata record.
type ProfileDataCollection struct {
	Source    string
	SessionID string
	Metadata  *parser.ProfileMetaData
	Profiles  []*profile.ProfileData
	Units     map[string]string
}

// FromCSV parses the header of path once and builds one profile per
// measurement column. A file without data rows yields a single profile with
// no variable so its metadata is kept.
func FromCSV(path string, opts parser.Options) (*ProfileDataCollection, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	mp, err := parser.NewMetaDataParser(path, opts)
	if err != nil {
		return nil, err
	}
	meta, res, err := mp.Parse()
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("session", res.SessionID), zap.String("file", path))

	c := &ProfileDataCollection{
		Source:    path,
		SessionID: res.SessionID,
		Metadata:  meta,
		Units:     res.Units,
	}
	popts := profile.Options{Units: res.Units, Logger: log}

	body := &profile.Body{}
	if !res.HeaderOnly() {
		body, err = profile.ReadBody(path, res.Body(), res.Columns, res.ColumnMapping, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	popts.Comments = body.Comments

	if body.Frame.Nrow() == 0 {
		log.Warn("file is empty of rows")
		p, err := profile.NewProfileData(dataframe.DataFrame{}, meta, nil, res.Primary, popts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		c.Profiles = []*profile.ProfileData{p}
		return c, nil
	}

	shared, measured := partition(res.Columns, res.ColumnMapping, res.Primary)
	for _, col := range measured {
		md := res.ColumnMapping[col]
		if md == nil {
			continue
		}
		if md.Code == variables.IgnoreCode {
			log.Debug("skipping ignored column", zap.String("column", col))
			continue
		}
		df := body.Frame.Select(append(append([]string(nil), shared...), col))
		p, err := profile.NewProfileData(df, meta, md, res.Primary, popts)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, col, err)
		}
		c.Profiles = append(c.Profiles, p)
	}
	return c, nil
}

// partition splits columns into depth columns shared by every profile and
// measurement columns.
func partition(columns []string, mapping map[string]*variables.MeasurementDescription, primary *variables.ExtendableVariables) (shared, measured []string) {
	depthCodes := map[string]bool{"depth": true, "bottom_depth": true}
	for _, key := range []string{"DEPTH", "BOTTOM_DEPTH"} {
		if md, ok := primary.Get(key); ok {
			depthCodes[md.Code] = true
		}
	}
	for _, c := range columns {
		if md := mapping[c]; md != nil && depthCodes[md.Code] {
			shared = append(shared, c)
			continue
		}
		measured = append(measured, c)
	}
	return shared, measured
}

// Variables lists the variable of every profile, skipping placeholders.
func (c *ProfileDataCollection) Variables() []*variables.MeasurementDescription {
	var out []*variables.MeasurementDescription
	for _, p := range c.Profiles {
		if p.Variable != nil {
			out = append(out, p.Variable)
		}
	}
	return out
}

// Profile returns the profile of a variable code.
func (c *ProfileDataCollection) Profile(code string) (*profile.ProfileData, bool) {
	for _, p := range c.Profiles {
		if p.Variable != nil && p.Variable.Code == code {
			return p, true
		}
	}
	return nil, false
}

// Summary is a compact description of one profile.
type Summary struct {
	Variable   string   `json:"variable,omitempty"`
	Units      string   `json:"units,omitempty"`
	Rows       int      `json:"rows"`
	HasLayers  bool     `json:"has_layers"`
	Mean       *float64 `json:"mean"`
	TotalDepth *float64 `json:"total_depth"`
}

// Summaries describes each profile in order. Missing statistics are nil.
func (c *ProfileDataCollection) Summaries() []Summary {
	out := make([]Summary, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		s := Summary{
			Units:      p.Units,
			Rows:       p.DataFrame().Nrow(),
			HasLayers:  p.HasLayers,
			Mean:       finiteOrNil(p.Mean()),
			TotalDepth: finiteOrNil(p.TotalDepth()),
		}
		if p.Variable != nil {
			s.Variable = p.Variable.Code
		}
		out = append(out, s)
	}
	return out
}

func finiteOrNil(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Report is the JSON document written for a file by the CLI.
type Report struct {
	Source    string                  `json:"source"`
	SessionID string                  `json:"session_id"`
	Metadata  *parser.ProfileMetaData `json:"metadata"`
	Profiles  []Summary               `json:"profiles"`
}

// Report bundles metadata and summaries.
func (c *ProfileDataCollection) Report() Report {
	return Report{
		Source:    c.Source,
		SessionID: c.SessionID,
		Metadata:  c.Metadata,
		Profiles:  c.Summaries(),
	}
}
