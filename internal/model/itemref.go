package model

import "github.com/google/uuid"

// ItemRef is an item identifier as received at the API boundary, parsed once
// into one of two variants: a canonical UUID or a legacy literal string id
// (records created before ids were UUIDs). Storage queries match the literal
// form always, and additionally the canonical form for UUID-shaped ids, so
// records written under either scheme resolve.
type ItemRef struct {
	literal   string
	canonical string
}

// ParseItemRef classifies the raw identifier. It never fails: a string that
// does not parse as a UUID is a legacy literal id.
func ParseItemRef(raw string) ItemRef {
	ref := ItemRef{literal: raw}
	if id, err := uuid.Parse(raw); err == nil {
		ref.canonical = id.String()
	}
	return ref
}

// Canonical reports whether the identifier is UUID-shaped.
func (r ItemRef) Canonical() bool { return r.canonical != "" }

// Candidates returns the stored id forms this reference may match,
// deduplicated.
func (r ItemRef) Candidates() []string {
	if r.canonical == "" || r.canonical == r.literal {
		return []string{r.literal}
	}
	return []string{r.canonical, r.literal}
}

func (r ItemRef) String() string { return r.literal }
