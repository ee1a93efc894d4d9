package catalog

import "strings"

// Keys and identifiers shorter than this never take part in substring
// matching; short SKU codes like "SPB" would otherwise match unrelated labels.
const minSubstringLen = 4

// Pass is one step of identifier resolution. It reports the matched entry
// index, or false to fall through to the next pass.
type Pass struct {
	Name  string
	match func(c *Catalog, upper string) (int, bool)
}

// Passes lists the resolution passes in the order they are tried. When none
// match, the identifier resolves to a zero-cost entry named after itself.
var Passes = []Pass{
	{Name: "exact", match: matchExact},
	{Name: "fold", match: matchFold},
	{Name: "contains_key", match: matchContainsKey},
	{Name: "within_key", match: matchWithinKey},
}

// Resolve maps an identifier, display name or export label to a LicenseInfo.
// It never fails: unknown identifiers resolve to their trimmed raw name at
// zero cost.
func (c *Catalog) Resolve(id string) LicenseInfo {
	info, _ := c.ResolveWithPass(id)
	return info
}

// ResolveWithPass is Resolve that also reports which pass matched, or
// "fallback".
func (c *Catalog) ResolveWithPass(id string) (LicenseInfo, string) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return LicenseInfo{}, "fallback"
	}

	upper := strings.ToUpper(trimmed)
	for _, p := range Passes {
		if idx, ok := p.match(c, upper); ok {
			return c.info(idx), p.Name
		}
	}

	return LicenseInfo{Identifier: trimmed, DisplayName: trimmed}, "fallback"
}

func matchExact(c *Catalog, upper string) (int, bool) {
	idx, ok := c.byKey[upper]
	return idx, ok
}

// matchFold tries the underscore-as-space and space-as-underscore spellings.
func matchFold(c *Catalog, upper string) (int, bool) {
	if idx, ok := c.byKey[foldSpaces(upper)]; ok {
		return idx, true
	}
	if idx, ok := c.byKey[strings.Join(strings.Fields(upper), "_")]; ok {
		return idx, true
	}
	return 0, false
}

// matchContainsKey finds the longest key embedded in the identifier, e.g. an
// export label with a suffix such as "Microsoft 365 E3 (no Teams)".
func matchContainsKey(c *Catalog, upper string) (int, bool) {
	folded := foldSpaces(upper)
	for _, k := range c.keys {
		if strings.Contains(folded, k.folded) {
			return k.entry, true
		}
	}
	return 0, false
}

// matchWithinKey finds the shortest key that contains the identifier.
func matchWithinKey(c *Catalog, upper string) (int, bool) {
	folded := foldSpaces(upper)
	if len(folded) < minSubstringLen {
		return 0, false
	}
	for i := len(c.keys) - 1; i >= 0; i-- {
		if strings.Contains(c.keys[i].folded, folded) {
			return c.keys[i].entry, true
		}
	}
	return 0, false
}

func foldSpaces(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
}
