package variables

import (
	"fmt"
	"sort"
	"sync"
)

// Campaign names the ordered definition layers for one family of files.
type Campaign struct {
	Name     string
	Metadata []Source
	Primary  []Source
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Campaign{}
)

// Register adds or replaces a campaign.
func Register(c Campaign) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name] = c
}

// Lookup returns a registered campaign.
func Lookup(name string) (Campaign, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return Campaign{}, fmt.Errorf("unknown campaign %q (known: %v)", name, campaignNames())
	}
	return c, nil
}

// Campaigns lists registered campaign names in order.
func Campaigns() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return campaignNames()
}

func campaignNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultCampaign is used when no campaign is configured.
const DefaultCampaign = "snowex"

func init() {
	Register(Campaign{
		Name:     "base",
		Metadata: []Source{Embedded("base_metadata.yaml")},
		Primary:  []Source{Embedded("base_primary.yaml")},
	})
	Register(Campaign{
		Name:     "snowex",
		Metadata: []Source{Embedded("base_metadata.yaml"), Embedded("snowex_metadata.yaml")},
		Primary:  []Source{Embedded("base_primary.yaml"), Embedded("snowex_primary.yaml")},
	})
}

// Vocabularies holds the header and column vocabularies of one campaign.
type Vocabularies struct {
	Metadata *ExtendableVariables
	Primary  *ExtendableVariables
}

// Load builds both vocabularies of a campaign and appends the given overlay
// files after its layers.
func Load(campaign string, opts Options, metadataFiles, primaryFiles []string) (*Vocabularies, error) {
	if campaign == "" {
		campaign = DefaultCampaign
	}
	c, err := Lookup(campaign)
	if err != nil {
		return nil, err
	}
	meta, err := New(opts, withFiles(c.Metadata, metadataFiles)...)
	if err != nil {
		return nil, fmt.Errorf("metadata vocabulary: %w", err)
	}
	primary, err := New(opts, withFiles(c.Primary, primaryFiles)...)
	if err != nil {
		return nil, fmt.Errorf("primary vocabulary: %w", err)
	}
	return &Vocabularies{Metadata: meta, Primary: primary}, nil
}

func withFiles(base []Source, files []string) []Source {
	out := append([]Source(nil), base...)
	for _, f := range files {
		out = append(out, FromFile(f))
	}
	return out
}
