// Package config loads the source catalogue: the regions a user can ask for,
// the institutions behind each region and the selectors used to read their
// event pages. A default catalogue is embedded in the binary; a YAML file
// with the same layout replaces it.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by the scraper.
const (
	KindListing = "listing"
	KindEmbed   = "embed"
	KindTribe   = "tribe"
	KindGeneric = "generic"
)

// DefaultKeywords are matched by generic sources when none are configured.
var DefaultKeywords = []string{"evento", "seminário", "colóquio"}

//go:embed sources.yaml
var defaultCatalog []byte

// Selectors are CSS selectors for the fields of one event on a page.
// Which fields are used depends on the source kind.
type Selectors struct {
	// Item selects one element per candidate event.
	Item string `yaml:"item" json:"item"`
	// Title, Date, EndDate and Link are looked up inside Item.
	Title   string `yaml:"title,omitempty" json:"title,omitempty"`
	Date    string `yaml:"date,omitempty" json:"date,omitempty"`
	EndDate string `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	Link    string `yaml:"link,omitempty" json:"link,omitempty"`
}

// Source describes one institution's event page.
type Source struct {
	// Name identifies the source in diagnostics and region lists.
	Name string `yaml:"name" json:"name"`
	// Label is the location shown next to each event.
	Label string `yaml:"label" json:"label"`
	// Kind selects the extractor: listing, embed, tribe or generic.
	Kind string `yaml:"kind" json:"kind"`
	// URL is the listing page. It is also the link of events without one.
	URL string `yaml:"url" json:"url"`
	// BaseURL resolves relative links. Defaults to URL.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	Selectors Selectors `yaml:"selectors" json:"selectors"`

	// Keywords filter generic sources. Defaults to DefaultKeywords.
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// InsecureSkipVerify disables TLS certificate checks for this source.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty"`
}

// Region groups sources under the names a user may type.
type Region struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases"`
	Sources []string `yaml:"sources" json:"sources"`
}

// Catalog is the top-level source configuration.
type Catalog struct {
	// Wildcard selects every region, e.g. "todos".
	Wildcard string   `yaml:"wildcard" json:"wildcard"`
	Regions  []Region `yaml:"regions" json:"regions"`
	Sources  []Source `yaml:"sources" json:"sources"`
}

// Default returns the embedded catalogue.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalogue from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a YAML catalogue.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	cat.applyDefaults()

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) applyDefaults() {
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		if s.BaseURL == "" {
			s.BaseURL = s.URL
		}
		if s.Label == "" {
			s.Label = s.Name
		}
		if s.Kind == KindGeneric && len(s.Keywords) == 0 {
			s.Keywords = append([]string(nil), DefaultKeywords...)
		}
	}
}

// Validate checks that sources are complete and that every region refers to
// known sources.
func (c *Catalog) Validate() error {
	var errs []error

	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("source %d: name is required", i))
			continue
		}
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("source %s: duplicate name", s.Name))
		}
		names[s.Name] = true

		if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
			errs = append(errs, fmt.Errorf("source %s: url must be http(s), got %q", s.Name, s.URL))
		}
		if s.Selectors.Item == "" {
			errs = append(errs, fmt.Errorf("source %s: selectors.item is required", s.Name))
		}

		switch s.Kind {
		case KindListing, KindTribe:
			if s.Selectors.Title == "" || s.Selectors.Date == "" {
				errs = append(errs, fmt.Errorf("source %s: %s sources need title and date selectors", s.Name, s.Kind))
			}
		case KindEmbed:
			if s.Selectors.Link == "" {
				errs = append(errs, fmt.Errorf("source %s: embed sources need a link selector", s.Name))
			}
		case KindGeneric:
		default:
			errs = append(errs, fmt.Errorf("source %s: unknown kind %q", s.Name, s.Kind))
		}
	}

	if len(c.Regions) == 0 {
		errs = append(errs, errors.New("at least one region is required"))
	}
	for i, r := range c.Regions {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("region %d: name is required", i))
			continue
		}
		if len(r.Aliases) == 0 {
			errs = append(errs, fmt.Errorf("region %s: at least one alias is required", r.Name))
		}
		for _, name := range r.Sources {
			if !names[name] {
				errs = append(errs, fmt.Errorf("region %s: unknown source %q", r.Name, name))
			}
		}
	}

	return errors.Join(errs...)
}

// Source returns the source with the given name.
func (c *Catalog) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
