package models

import "strings"

// Tags is an insertion-ordered set of lowercase labels.
type Tags []string

// NormalizeTags lowercases, trims and dedupes raw, keeping first occurrence order.
// Empty labels are dropped.
func NormalizeTags(raw []string) Tags {
	out := make(Tags, 0, len(raw))
	for _, t := range raw {
		out = out.Add(t)
	}
	return out
}

// Add appends tag unless its normalized form is empty or already present.
func (t Tags) Add(tag string) Tags {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || t.Contains(tag) {
		return t
	}
	return append(t, tag)
}

// Remove drops tag, matching case-insensitively.
func (t Tags) Remove(tag string) Tags {
	tag = strings.ToLower(strings.TrimSpace(tag))
	out := make(Tags, 0, len(t))
	for _, v := range t {
		if v != tag {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether tag is in the set, matching case-insensitively.
func (t Tags) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to mutate.
func (t Tags) Clone() Tags {
	if t == nil {
		return Tags{}
	}
	return append(Tags{}, t...)
}
