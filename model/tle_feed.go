package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedFeed is returned when a TLE feed cannot be split into
// name/line1/line2 triples.
var ErrMalformedFeed = errors.New("malformed TLE feed")

// ParseTLEFeed reads a CelesTrak-style text feed: an optional name line
// followed by element lines starting with "1 " and "2 ". A name line may carry
// the "0 " prefix used by 3LE files. When the name is missing the catalog
// number from line 1 is used instead.
func ParseTLEFeed(r io.Reader) ([]TLEEntry, error) {
	sc := bufio.NewScanner(r)

	var (
		out     []TLEEntry
		name    string
		line1   string
		lineNum int
	)
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "1 ") && line1 == "":
			line1 = trimmed
		case strings.HasPrefix(trimmed, "2 ") && line1 != "":
			entryName := name
			if entryName == "" {
				entryName = catalogNumber(line1)
			}
			out = append(out, TLEEntry{Name: entryName, TLE1: line1, TLE2: trimmed})
			name, line1 = "", ""
		case line1 != "":
			return nil, fmt.Errorf("%w: line %d: expected line 2 after line 1", ErrMalformedFeed, lineNum)
		default:
			name = strings.TrimSpace(strings.TrimPrefix(trimmed, "0 "))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read TLE feed: %w", err)
	}
	if line1 != "" {
		return nil, fmt.Errorf("%w: line %d: feed ends after line 1", ErrMalformedFeed, lineNum)
	}
	return out, nil
}

// catalogNumber extracts columns 3-7 of line 1.
func catalogNumber(line1 string) string {
	if len(line1) < 7 {
		return strings.TrimSpace(line1)
	}
	return strings.TrimSpace(line1[2:7])
}
