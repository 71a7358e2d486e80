package model

import (
	"errors"
	"strings"
	"testing"
)

const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"ISS":            "iss",
		"  iss ":         "iss",
		"\tHubble\n":     "hubble",
		"NOAA 19":        "noaa 19",
		"":               "",
		"   ":            "",
		"Starlink-1007 ": "starlink-1007",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewTLERecordTrimsAndDefaultsVisible(t *testing.T) {
	rec := NewTLERecord(TLEEntry{Name: "  ISS (ZARYA) ", TLE1: " " + issLine1 + " ", TLE2: issLine2 + "\n"})
	if rec.Name != "ISS (ZARYA)" {
		t.Fatalf("Name = %q, want trimmed display name", rec.Name)
	}
	if rec.TLE1 != issLine1 || rec.TLE2 != issLine2 {
		t.Fatalf("lines not trimmed: %q / %q", rec.TLE1, rec.TLE2)
	}
	if !rec.VisibleOnMap {
		t.Fatalf("new record should be visible")
	}
	if rec.Key() != "iss (zarya)" {
		t.Fatalf("Key() = %q, want %q", rec.Key(), "iss (zarya)")
	}
}

func TestParseTLEFeed(t *testing.T) {
	feed := strings.Join([]string{
		"ISS (ZARYA)",
		issLine1,
		issLine2,
		"",
		"0 HUBBLE",
		"1 20580U 90037B   21275.50000000  .00000764  00000-0  37775-4 0  9991",
		"2 20580  28.4699 288.8102 0002644 321.7771 171.5855 15.09299865603813",
		"1 43013U 17073A   21275.50000000  .00000001  00000-0  00000-0 0  9993",
		"2 43013  98.7296 337.6452 0001223  96.3314 263.8007 14.19555487201710",
	}, "\r\n")

	entries, err := ParseTLEFeed(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("ParseTLEFeed error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Name != "ISS (ZARYA)" || entries[0].TLE1 != issLine1 || entries[0].TLE2 != issLine2 {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	if entries[1].Name != "HUBBLE" {
		t.Fatalf("3LE name prefix not stripped: %q", entries[1].Name)
	}
	if entries[2].Name != "43013" {
		t.Fatalf("unnamed entry should fall back to catalog number, got %q", entries[2].Name)
	}
}

func TestParseTLEFeedMalformed(t *testing.T) {
	for name, feed := range map[string]string{
		"missing line 2":   "ISS\n" + issLine1 + "\n",
		"name after line1": "ISS\n" + issLine1 + "\nOOPS\n" + issLine2,
	} {
		if _, err := ParseTLEFeed(strings.NewReader(feed)); !errors.Is(err, ErrMalformedFeed) {
			t.Fatalf("%s: err = %v, want ErrMalformedFeed", name, err)
		}
	}
}

func TestParseTLEFeedEmpty(t *testing.T) {
	entries, err := ParseTLEFeed(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("ParseTLEFeed error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
