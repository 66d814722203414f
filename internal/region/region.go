// Package region resolves what a user types ("sp", "São Paulo", "todos")
// into the regions and sources to scrape.
package region

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pfrederiksen/fisica-eventos/internal/config"
)

// Region is one entry of the alias table. Sources are source names in
// declaration order.
type Region struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Sources []string `json:"sources"`
}

// Table maps normalized aliases to regions. It is built once and never
// modified, so it can be shared between requests.
type Table struct {
	wildcard string
	regions  []Region
	index    map[string]int
}

// New builds the alias table from a catalogue. When two regions claim the
// same alias the first one wins.
func New(cat *config.Catalog) *Table {
	t := &Table{
		wildcard: Normalize(cat.Wildcard),
		regions:  make([]Region, 0, len(cat.Regions)),
		index:    make(map[string]int),
	}

	for _, r := range cat.Regions {
		i := len(t.regions)
		t.regions = append(t.regions, Region{
			Name:    r.Name,
			Aliases: append([]string(nil), r.Aliases...),
			Sources: append([]string(nil), r.Sources...),
		})

		for _, alias := range append([]string{r.Name}, r.Aliases...) {
			key := Normalize(alias)
			if key == "" {
				continue
			}
			if _, taken := t.index[key]; !taken {
				t.index[key] = i
			}
		}
	}

	return t
}

// Lookup returns the regions selected by query, in table order. The wildcard
// selects every region. It reports false when nothing matches.
func (t *Table) Lookup(query string) ([]Region, bool) {
	key := Normalize(query)
	if key == "" {
		return nil, false
	}
	if t.wildcard != "" && key == t.wildcard {
		return t.Regions(), true
	}
	i, ok := t.index[key]
	if !ok {
		return nil, false
	}
	return []Region{t.regions[i].clone()}, true
}

// Regions returns a copy of every region in table order.
func (t *Table) Regions() []Region {
	out := make([]Region, len(t.regions))
	for i, r := range t.regions {
		out[i] = r.clone()
	}
	return out
}

// Wildcard returns the normalized query that selects every region.
func (t *Table) Wildcard() string {
	return t.wildcard
}

func (r Region) clone() Region {
	return Region{
		Name:    r.Name,
		Aliases: append([]string(nil), r.Aliases...),
		Sources: append([]string(nil), r.Sources...),
	}
}

// Normalize lower-cases s, collapses whitespace and strips diacritics, so
// "  São   Paulo" and "sao paulo" compare equal.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return folded
}
