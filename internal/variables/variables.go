package variables

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// IgnoreCode marks vocabulary entries that are deliberately not measurements,
// e.g. comment or provenance columns.
const IgnoreCode = "ignore"

// MeasurementDescription describes one recognized header field or data column.
type MeasurementDescription struct {
	Code        string   `yaml:"code" json:"code"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	MapFrom     []string `yaml:"map_from,omitempty" json:"map_from,omitempty"`
	AutoRemap   bool     `yaml:"auto_remap" json:"auto_remap"`
	MatchOnCode bool     `yaml:"match_on_code" json:"match_on_code"`
	// CastType is a value type hint (float, int, str) for loaders.
	CastType string `yaml:"cast_type,omitempty" json:"cast_type,omitempty"`
}

func defaultDescription() MeasurementDescription {
	return MeasurementDescription{Code: "-1", MatchOnCode: true}
}

// Equal reports whether both describe the same vocabulary entry.
func (m *MeasurementDescription) Equal(o *MeasurementDescription) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m == o || (m.Code == o.Code && m.Description == o.Description)
}

func (m *MeasurementDescription) matches(lower string) bool {
	if m.MatchOnCode && lower == m.Code {
		return true
	}
	for _, alias := range m.MapFrom {
		if alias == lower {
			return true
		}
	}
	return false
}

// Options control how a vocabulary resolves names.
type Options struct {
	// AllowMapFailures turns unmatched names into identity mappings with a
	// nil description instead of an InputMappingError.
	AllowMapFailures bool
	Logger           *zap.Logger
}

// ExtendableVariables is an ordered, layered vocabulary of measurement
// descriptions keyed by registry name (DENSITY, PIT_ID, ...). It is read
// only once built and safe for concurrent use.
type ExtendableVariables struct {
	keys             []string
	entries          map[string]*MeasurementDescription
	sources          []string
	allowMapFailures bool
	logger           *zap.Logger
}

// New merges sources in order. Later sources override earlier ones key by
// key and field by field, so a layer may change a single field of an entry.
func New(opts Options, sources ...Source) (*ExtendableVariables, error) {
	var (
		order  []string
		merged = map[string]map[string]any{}
		names  []string
	)
	for _, src := range sources {
		defs, err := src.load()
		if err != nil {
			return nil, fmt.Errorf("load vocabulary %s: %w", src.name, err)
		}
		names = append(names, src.name)
		for _, d := range defs {
			prev, ok := merged[d.key]
			if !ok {
				order = append(order, d.key)
				prev = map[string]any{}
			}
			merged[d.key] = deepMerge(prev, d.fields)
		}
	}

	v := &ExtendableVariables{
		entries:          make(map[string]*MeasurementDescription, len(order)),
		sources:          names,
		allowMapFailures: opts.AllowMapFailures,
		logger:           opts.Logger,
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}
	for _, key := range order {
		md, err := decodeDescription(merged[key])
		if err != nil {
			return nil, fmt.Errorf("vocabulary entry %s: %w", key, err)
		}
		v.keys = append(v.keys, key)
		v.entries[key] = md
	}
	return v, nil
}

func decodeDescription(fields map[string]any) (*MeasurementDescription, error) {
	b, err := yaml.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	md := defaultDescription()
	if err := yaml.Unmarshal(b, &md); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	for i, alias := range md.MapFrom {
		md.MapFrom[i] = strings.ToLower(alias)
	}
	return &md, nil
}

// deepMerge returns dst updated with src; nested mappings merge recursively,
// any other value in src replaces the one in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sm, sok := v.(map[string]any)
		dm, dok := out[k].(map[string]any)
		if sok && dok {
			out[k] = deepMerge(dm, sm)
			continue
		}
		out[k] = v
	}
	return out
}

// WithAllowMapFailures returns a view of the vocabulary sharing its entries
// with a different failure policy.
func (v *ExtendableVariables) WithAllowMapFailures(allow bool) *ExtendableVariables {
	cp := *v
	cp.allowMapFailures = allow
	return &cp
}

// WithLogger returns a view of the vocabulary that logs to l.
func (v *ExtendableVariables) WithLogger(l *zap.Logger) *ExtendableVariables {
	if l == nil {
		return v
	}
	cp := *v
	cp.logger = l
	return &cp
}

// AllowMapFailures reports the failure policy of this view.
func (v *ExtendableVariables) AllowMapFailures() bool { return v.allowMapFailures }

// Len is the number of entries.
func (v *ExtendableVariables) Len() int { return len(v.keys) }

// Keys returns registry names in registration order.
func (v *ExtendableVariables) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Entries returns descriptions in registration order.
func (v *ExtendableVariables) Entries() []*MeasurementDescription {
	out := make([]*MeasurementDescription, 0, len(v.keys))
	for _, k := range v.keys {
		out = append(out, v.entries[k])
	}
	return out
}

// Get looks up an entry by registry name.
func (v *ExtendableVariables) Get(key string) (*MeasurementDescription, bool) {
	md, ok := v.entries[key]
	return md, ok
}

// SourceFiles lists the sources merged into this vocabulary, in order.
func (v *ExtendableVariables) SourceFiles() []string {
	return append([]string(nil), v.sources...)
}

// FromMapping resolves a raw name against the vocabulary. Entries are tried in
// registration order and the first one whose code (when MatchOnCode is set) or
// alias equals the lower cased name wins. An AutoRemap entry renames the
// result to its code; otherwise the raw name is kept and only tagged.
//
// The returned map always holds exactly one key, the resolved name. When
// nothing matches and failures are allowed the name maps to nil; otherwise an
// *InputMappingError is returned.
func (v *ExtendableVariables) FromMapping(raw string) (string, map[string]*MeasurementDescription, error) {
	lower := strings.ToLower(raw)
	for _, k := range v.keys {
		md := v.entries[k]
		if !md.matches(lower) {
			continue
		}
		name := raw
		if md.AutoRemap {
			name = md.Code
		}
		v.logger.Debug("mapped name", zap.String("raw", raw), zap.String("name", name), zap.String("entry", k))
		return name, map[string]*MeasurementDescription{name: md}, nil
	}
	if !v.allowMapFailures {
		return "", nil, &InputMappingError{Name: raw}
	}
	v.logger.Warn("could not find mapping", zap.String("name", raw))
	return raw, map[string]*MeasurementDescription{raw: nil}, nil
}

// ToMap returns a copy of the merged definitions keyed by registry name.
func (v *ExtendableVariables) ToMap() map[string]MeasurementDescription {
	out := make(map[string]MeasurementDescription, len(v.keys))
	for _, k := range v.keys {
		out[k] = *v.entries[k]
	}
	return out
}

// ToYAML dumps the merged definitions in registration order.
func (v *ExtendableVariables) ToYAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range v.keys {
		var val yaml.Node
		if err := val.Encode(v.entries[k]); err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&val,
		)
	}
	b, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}
