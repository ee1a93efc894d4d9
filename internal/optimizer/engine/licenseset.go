package engine

import "slices"

// licenseSet is an immutable ordered set of license display names. Every
// mutator returns a new value.
type licenseSet struct {
	items []string
}

func newLicenseSet(items []string) licenseSet {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return licenseSet{items: out}
}

func (s licenseSet) has(name string) bool {
	return slices.Contains(s.items, name)
}

func (s licenseSet) hasAny(names ...string) bool {
	for _, n := range names {
		if s.has(n) {
			return true
		}
	}
	return false
}

// firstOf returns the first of names held, in the order given.
func (s licenseSet) firstOf(names []string) (string, bool) {
	for _, n := range names {
		if s.has(n) {
			return n, true
		}
	}
	return "", false
}

func (s licenseSet) without(names ...string) licenseSet {
	out := make([]string, 0, len(s.items))
	for _, it := range s.items {
		if !slices.Contains(names, it) {
			out = append(out, it)
		}
	}
	return licenseSet{items: out}
}

func (s licenseSet) with(name string) licenseSet {
	if s.has(name) {
		return s
	}
	out := make([]string, len(s.items), len(s.items)+1)
	copy(out, s.items)
	return licenseSet{items: append(out, name)}
}

// replace swaps from for to in place, keeping position.
func (s licenseSet) replace(from, to string) licenseSet {
	if !s.has(from) {
		return s
	}
	if s.has(to) {
		return s.without(from)
	}
	out := make([]string, len(s.items))
	for i, it := range s.items {
		if it == from {
			it = to
		}
		out[i] = it
	}
	return licenseSet{items: out}
}

func (s licenseSet) list() []string {
	return slices.Clone(s.items)
}
