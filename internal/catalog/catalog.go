package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyIdentifier  = errors.New("catalog_empty_identifier")
	ErrEmptyDisplayName = errors.New("catalog_empty_display_name")
	ErrNegativeCost     = errors.New("catalog_negative_cost")
)

// LicenseInfo is the resolved view of a license identifier.
type LicenseInfo struct {
	Identifier   string  `json:"identifier"`
	DisplayName  string  `json:"display_name"`
	CostPerMonth float64 `json:"cost_per_month"`
	IsSuite      bool    `json:"is_suite"`
	Trial        bool    `json:"trial"`
	Known        bool    `json:"known"`
}

// Catalog is an immutable license table. A Catalog value is safe for
// concurrent use once built.
type Catalog struct {
	entries []Entry
	byKey   map[string]int
	// keys sorted longest first, used by the substring passes.
	keys []indexedKey
}

type indexedKey struct {
	folded string
	entry  int
}

// New builds a catalog from entries. Later entries override earlier ones that
// share a key.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]int, len(entries)*3)}
	for _, e := range entries {
		e.Identifier = strings.TrimSpace(e.Identifier)
		e.DisplayName = strings.TrimSpace(e.DisplayName)
		if e.Identifier == "" {
			return nil, ErrEmptyIdentifier
		}
		if e.DisplayName == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyDisplayName, e.Identifier)
		}
		if e.CostPerMonth < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeCost, e.Identifier)
		}

		idx := len(c.entries)
		if prev, ok := c.byKey[canonicalKey(e.Identifier)]; ok {
			idx = prev
			c.entries[idx] = e
		} else {
			c.entries = append(c.entries, e)
		}

		c.byKey[canonicalKey(e.Identifier)] = idx
		c.byKey[canonicalKey(e.DisplayName)] = idx
		for _, alias := range e.Aliases {
			if key := canonicalKey(alias); key != "" {
				c.byKey[key] = idx
			}
		}
	}

	seen := make(map[string]struct{}, len(c.byKey))
	for key, idx := range c.byKey {
		folded := foldSpaces(key)
		if _, ok := seen[folded]; ok || len(folded) < minSubstringLen {
			continue
		}
		seen[folded] = struct{}{}
		c.keys = append(c.keys, indexedKey{folded: folded, entry: idx})
	}
	sort.Slice(c.keys, func(i, j int) bool {
		if len(c.keys[i].folded) != len(c.keys[j].folded) {
			return len(c.keys[i].folded) > len(c.keys[j].folded)
		}
		return c.keys[i].folded < c.keys[j].folded
	})

	return c, nil
}

var defaultCatalog = mustNew(builtinEntries)

// Default returns the catalog built from the built-in table.
func Default() *Catalog {
	return defaultCatalog
}

func mustNew(entries []Entry) *Catalog {
	c, err := New(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Entries returns a copy of the catalog table.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of distinct products.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry whose display name matches exactly.
func (c *Catalog) Lookup(displayName string) (LicenseInfo, bool) {
	idx, ok := c.byKey[canonicalKey(displayName)]
	if !ok || c.entries[idx].DisplayName != strings.TrimSpace(displayName) {
		return LicenseInfo{}, false
	}
	return c.info(idx), true
}

// Cost returns the monthly price of one license, zero when unknown.
func (c *Catalog) Cost(id string) float64 {
	return c.Resolve(id).CostPerMonth
}

// Normalize canonicalizes licenses to display names without duplicates:
// suites first, then add-ons, each sorted by display name.
func (c *Catalog) Normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var suites, addons []string
	for _, id := range ids {
		info := c.Resolve(id)
		if info.DisplayName == "" {
			continue
		}
		if _, ok := seen[info.DisplayName]; ok {
			continue
		}
		seen[info.DisplayName] = struct{}{}
		if info.IsSuite {
			suites = append(suites, info.DisplayName)
		} else {
			addons = append(addons, info.DisplayName)
		}
	}
	sort.Strings(suites)
	sort.Strings(addons)

	out := make([]string, 0, len(suites)+len(addons))
	out = append(out, suites...)
	return append(out, addons...)
}

// ComputeCost sums the monthly price of every license. No rounding is applied.
func (c *Catalog) ComputeCost(ids []string) float64 {
	var total float64
	for _, id := range ids {
		total += c.Resolve(id).CostPerMonth
	}
	return total
}

func (c *Catalog) info(idx int) LicenseInfo {
	e := c.entries[idx]
	return LicenseInfo{
		Identifier:   e.Identifier,
		DisplayName:  e.DisplayName,
		CostPerMonth: e.CostPerMonth,
		IsSuite:      e.IsSuite,
		Trial:        e.Trial,
		Known:        true,
	}
}

func canonicalKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
