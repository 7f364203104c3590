package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/insitu-cli/internal/utils"
	"github.com/KaramelBytes/insitu-cli/internal/variables"
)

// Options control a parse session.
type Options struct {
	// Timezone of local timestamps in the header, e.g. US/Mountain.
	Timezone        string
	HeaderSep       string
	HeaderIndicator string
	// AllowSplitLines ends the header at the last line starting with the
	// indicator, joining fragments that do not start with it.
	AllowSplitLines  bool
	AllowMapFailures bool
	// ID overrides the pit id found in the header.
	ID           string
	CampaignName string
	// Units overrides inferred units, keyed by variable code.
	Units map[string]string
	// ExtraHeader entries are merged over the parsed header.
	ExtraHeader  map[string]string
	Vocabularies *variables.Vocabularies
	Logger       *zap.Logger
}

// DefaultOptions returns the options used for SnowEx pit files.
func DefaultOptions() Options {
	return Options{
		Timezone:        "US/Mountain",
		HeaderSep:       ",",
		HeaderIndicator: "#",
	}
}

// ParseResult is everything a parse learned about a file besides metadata.
type ParseResult struct {
	SessionID string
	Lines     []string
	// HeaderPos is the index of the column line, -1 for header-only files.
	HeaderPos     int
	Columns       []string
	ColumnMapping map[string]*variables.MeasurementDescription
	// Units maps variable code to unit.
	Units  map[string]string
	Header *Header
	// Primary is the column vocabulary with this session's failure policy.
	Primary *variables.ExtendableVariables
}

// HeaderOnly reports whether the file had no column line.
func (r *ParseResult) HeaderOnly() bool { return r.HeaderPos < 0 }

// Body returns the lines after the column line.
func (r *ParseResult) Body() []string {
	if r.HeaderOnly() || r.HeaderPos+1 >= len(r.Lines) {
		return nil
	}
	return r.Lines[r.HeaderPos+1:]
}

// MetaDataParser is a single use parse session over one file.
type MetaDataParser struct {
	path      string
	opts      Options
	sessionID string
	log       *zap.Logger
	meta      *variables.ExtendableVariables
	primary   *variables.ExtendableVariables
}

// NewMetaDataParser prepares a session. Without vocabularies in opts the
// default campaign is loaded.
func NewMetaDataParser(path string, opts Options) (*MetaDataParser, error) {
	if opts.HeaderSep == "" {
		opts.HeaderSep = ","
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	log = log.With(zap.String("session", id), zap.String("file", filepath.Base(path)))

	vocab := opts.Vocabularies
	if vocab == nil {
		var err error
		vocab, err = variables.Load(variables.DefaultCampaign, variables.Options{}, nil, nil)
		if err != nil {
			return nil, err
		}
	}
	return &MetaDataParser{
		path:      path,
		opts:      opts,
		sessionID: id,
		log:       log,
		meta:      vocab.Metadata.WithAllowMapFailures(opts.AllowMapFailures).WithLogger(log),
		primary:   vocab.Primary.WithAllowMapFailures(opts.AllowMapFailures).WithLogger(log),
	}, nil
}

// Parse reads the file and returns its metadata and column plan. Any header
// level failure aborts the parse and no metadata is returned.
func (p *MetaDataParser) Parse() (*ProfileMetaData, *ParseResult, error) {
	lines, err := ReadLines(p.path)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.parseLines(filepath.Base(p.path), lines)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p.path, err)
	}
	meta, err := p.buildMetadata(res.Header)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p.path, err)
	}
	return meta, res, nil
}

func (p *MetaDataParser) parseLines(name string, lines []string) (*ParseResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyFile
	}
	res := &ParseResult{
		SessionID:     p.sessionID,
		Lines:         lines,
		HeaderPos:     -1,
		ColumnMapping: map[string]*variables.MeasurementDescription{},
		Units:         map[string]string{},
		Primary:       p.primary,
	}

	indicator := ""
	if p.opts.HeaderIndicator != "" && strings.HasPrefix(lines[0], p.opts.HeaderIndicator) {
		indicator = p.opts.HeaderIndicator
	}

	headerLines := lines
	if strings.Contains(strings.ToLower(name), "site") {
		p.log.Info("parsing site description header")
	} else {
		pos, err := p.findHeaderPosition(lines, indicator)
		if err != nil {
			return nil, err
		}
		res.HeaderPos = pos
		if err := p.parseColumns(lines[pos], res); err != nil {
			return nil, err
		}
		p.log.Debug("found column line", zap.Int("line", pos), zap.Int("columns", len(res.Columns)))
		headerLines = lines[:pos]
	}
	for code, unit := range p.opts.Units {
		res.Units[code] = unit
	}

	header, err := p.parseHeader(splitHeaderLines(headerLines, indicator))
	if err != nil {
		return nil, err
	}
	if err := p.mergeExtraHeader(header); err != nil {
		return nil, err
	}
	res.Header = header
	return res, nil
}

// findHeaderPosition returns the index of the column line. The last line is
// taken as representative of the data shape.
func (p *MetaDataParser) findHeaderPosition(lines []string, indicator string) (int, error) {
	if p.opts.AllowSplitLines {
		if indicator == "" {
			return 0, ErrSplitLinesWithoutIndicator
		}
		pos := 0
		for i, ln := range lines {
			if strings.HasPrefix(ln, indicator) {
				pos = i
			}
		}
		return pos, nil
	}

	nColumns := len(strings.Split(lines[len(lines)-1], ","))
	pos := 0
	for i, ln := range lines {
		prev := utils.GetAlphaRatio(lines[max(i-1, 0)], true)
		if utils.LineIsHeader(ln, ",", indicator, prev, nColumns) {
			pos = i
		}
		if i > pos {
			break
		}
	}
	return pos, nil
}

// splitHeaderLines rejoins header fragments. With an indicator every logical
// line starts at an indicator, so lines are joined and split on it.
func splitHeaderLines(lines []string, indicator string) []string {
	var out []string
	if indicator == "" {
		for _, ln := range lines {
			if ln = strings.TrimSpace(ln); ln != "" {
				out = append(out, ln)
			}
		}
		return out
	}
	trimmed := make([]string, len(lines))
	for i, ln := range lines {
		trimmed[i] = strings.TrimSpace(ln)
	}
	for _, part := range strings.Split(strings.Join(trimmed, " "), indicator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseHeader splits each header line into a canonical key and a value.
// Date and time values are rejoined with colons so 08,45 style splits and
// times like 12:30 survive; other values are joined with ", " and cleaned.
func (p *MetaDataParser) parseHeader(lines []string) (*Header, error) {
	h := NewHeader()
	for _, ln := range lines {
		parts := strings.Split(ln, p.opts.HeaderSep)
		key := utils.StandardizeKey(parts[0])
		if key == "" {
			continue
		}
		var value string
		if isDateTimeKey(key) {
			value = strings.TrimSpace(strings.Join(parts[1:], ":"))
		} else {
			value = utils.CleanStr(strings.Join(parts[1:], ", "))
		}
		name, _, err := p.meta.FromMapping(key)
		if err != nil {
			return nil, err
		}
		if value == "" {
			h.Set(name, nil)
			continue
		}
		value = strings.ReplaceAll(strings.Trim(value, " "), `"`, "")
		value = strings.ReplaceAll(value, "  ", " ")
		h.Set(name, &value)
	}
	p.log.Debug("parsed header", zap.Int("keys", h.Len()))
	return h, nil
}

func (p *MetaDataParser) mergeExtraHeader(h *Header) error {
	keys := make([]string, 0, len(p.opts.ExtraHeader))
	for k := range p.opts.ExtraHeader {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var overwritten []string
	for _, k := range keys {
		name, _, err := p.meta.FromMapping(utils.StandardizeKey(k))
		if err != nil {
			return err
		}
		if h.Has(name) {
			overwritten = append(overwritten, name)
		}
		h.Set(name, utils.ParseNone(p.opts.ExtraHeader[k]))
	}
	if len(overwritten) > 0 {
		p.log.Warn("extra header information overwrites the file header", zap.Strings("keys", overwritten))
	}
	return nil
}

// parseColumns maps every raw column of the column line through the primary
// vocabulary and infers units from their () or [] annotations.
func (p *MetaDataParser) parseColumns(line string, res *ParseResult) error {
	if p.opts.HeaderIndicator != "" {
		line = strings.Trim(line, p.opts.HeaderIndicator)
	}
	for _, raw := range strings.Split(line, ",") {
		name, mapping, err := p.primary.FromMapping(utils.StandardizeKey(raw))
		if err != nil {
			return err
		}
		res.Columns = append(res.Columns, name)
		for k, md := range mapping {
			res.ColumnMapping[k] = md
		}
		code := name
		if md := mapping[name]; md != nil {
			code = md.Code
		}
		if unit, ok := utils.InferUnitFromKey(raw); ok {
			res.Units[code] = unit
		}
	}
	return nil
}

func (p *MetaDataParser) buildMetadata(h *Header) (*ProfileMetaData, error) {
	meta := &ProfileMetaData{
		SiteID:       h.Value("site_id"),
		CampaignName: p.opts.CampaignName,
	}

	meta.SiteName = p.opts.ID
	if meta.SiteName == "" {
		meta.SiteName = h.Value("pit_id", "site_id")
	}
	if meta.SiteName == "" {
		return nil, ErrMissingID
	}

	dt, err := ResolveDateTime(h, p.opts.Timezone)
	if err != nil {
		return nil, err
	}
	meta.DateTime = dt

	loc, err := ResolveLocation(h)
	if err != nil {
		return nil, err
	}
	meta.Latitude, meta.Longitude, meta.UTMEPSG = loc.Latitude, loc.Longitude, loc.EPSG

	if meta.CampaignName == "" {
		meta.CampaignName = h.Value("site_name")
	}
	meta.Flags, _ = h.Lookup("flags")
	meta.Comments, _ = h.Lookup("comments")
	if obs := h.Value("observers"); obs != "" {
		for _, o := range strings.Split(obs, ",") {
			if o = strings.TrimSpace(o); o != "" {
				meta.Observers = append(meta.Observers, o)
			}
		}
	}
	meta.Elevation = p.floatField(h, "elevation", nil)
	meta.SlopeAngle = p.floatField(h, "slope_angle", utils.ManageDegrees)
	meta.AirTemp = p.floatField(h, "air_temp", stripDegrees)
	meta.Aspect = p.aspect(h)
	return meta, nil
}

func stripDegrees(v string) string {
	return strings.TrimSpace(strings.NewReplacer("°", "", "Â", "").Replace(v))
}

// floatField parses an optional numeric header value; unreadable values are
// logged and left unset.
func (p *MetaDataParser) floatField(h *Header, key string, clean func(string) string) *float64 {
	v := h.Value(key)
	if utils.IsNone(v) {
		return nil
	}
	if clean != nil {
		v = clean(v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.log.Warn("ignoring non numeric header value", zap.String("key", key), zap.String("value", v))
		return nil
	}
	return &f
}

// aspect accepts degrees or a compass direction.
func (p *MetaDataParser) aspect(h *Header) *float64 {
	v := h.Value("aspect")
	if utils.IsNone(v) {
		return nil
	}
	v = utils.ManageDegrees(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return &f
	}
	p.log.Warn("aspect recorded as a cardinal direction, converting to degrees", zap.String("aspect", v))
	deg, assumed, err := utils.CardinalToDegrees(v)
	if err != nil {
		p.log.Warn("ignoring aspect", zap.Error(err))
		return nil
	}
	if assumed {
		p.log.Warn("assuming aspect is a main direction", zap.String("aspect", v), zap.Float64("degrees", deg))
	}
	return &deg
}
