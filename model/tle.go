package model

import "strings"

// TLEEntry is a two-line element set as supplied by a caller or a feed.
// The lines are opaque strings; nothing here parses orbital elements.
type TLEEntry struct {
	Name string `json:"name"`
	TLE1 string `json:"tle1"`
	TLE2 string `json:"tle2"`
}

// TLERecord is a stored element set. Name keeps the caller's casing for
// display; identity is NormalizeKey(Name). VisibleOnMap is the only field
// that changes after insertion.
type TLERecord struct {
	Name         string `json:"name"`
	TLE1         string `json:"tle1"`
	TLE2         string `json:"tle2"`
	VisibleOnMap bool   `json:"visibleOnMap"`
}

// Key returns the record's normalized identity key.
func (r TLERecord) Key() string {
	return NormalizeKey(r.Name)
}

// NormalizeKey canonicalizes a display name into the TLE identity key:
// surrounding whitespace trimmed, lower-cased.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewTLERecord trims the entry's fields and returns a visible record.
func NewTLERecord(e TLEEntry) TLERecord {
	return TLERecord{
		Name:         strings.TrimSpace(e.Name),
		TLE1:         strings.TrimSpace(e.TLE1),
		TLE2:         strings.TrimSpace(e.TLE2),
		VisibleOnMap: true,
	}
}
