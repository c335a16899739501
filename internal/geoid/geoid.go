// Package geoid normalizes census geographic identifiers before joining.
// Parcel rolls and census tables routinely disagree on GEOID formatting:
// numeric coercion strips leading zeros, spreadsheet exports append ".0",
// and some sources carry dashes or whitespace. Everything is canonicalized
// to a fixed-width digit string before any key comparison.
package geoid

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Standard GEOID widths for the census summary levels this toolkit joins on.
const (
	CountyWidth     = 5  // state(2) + county(3)
	TractWidth      = 11 // county(5) + tract(6)
	BlockGroupWidth = 12 // tract(11) + block group(1)
)

// Normalize canonicalizes a raw identifier to a zero-padded digit string of
// the given width. It strips whitespace, separators, and a trailing ".0"
// float artifact, then left-pads with zeros.
func Normalize(raw string, width int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.New("geoid: empty identifier")
	}

	// Spreadsheet exports of numeric GEOID columns end up as "12086001234.0".
	if i := strings.Index(s, "."); i >= 0 {
		frac := s[i+1:]
		if strings.Trim(frac, "0") != "" {
			return "", eris.Errorf("geoid: non-integral identifier %q", raw)
		}
		s = s[:i]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, s)

	for _, r := range s {
		if r < '0' || r > '9' {
			return "", eris.Errorf("geoid: non-numeric identifier %q", raw)
		}
	}

	if len(s) > width {
		return "", eris.Errorf("geoid: identifier %q longer than %d digits", raw, width)
	}
	return strings.Repeat("0", width-len(s)) + s, nil
}

// Compose builds a standardized block-group GEOID from FIPS components,
// zero-padding each to its census width.
func Compose(stateFIPS, countyFIPS, tractFIPS, blockGroup string) (string, error) {
	st, err := Normalize(stateFIPS, 2)
	if err != nil {
		return "", eris.Wrap(err, "geoid: state component")
	}
	co, err := Normalize(countyFIPS, 3)
	if err != nil {
		return "", eris.Wrap(err, "geoid: county component")
	}
	tr, err := Normalize(tractFIPS, 6)
	if err != nil {
		return "", eris.Wrap(err, "geoid: tract component")
	}
	bg, err := Normalize(blockGroup, 1)
	if err != nil {
		return "", eris.Wrap(err, "geoid: block group component")
	}
	return st + co + tr + bg, nil
}

// SplitCountyFIPS splits a 5-digit county FIPS into state and county parts.
func SplitCountyFIPS(fips string) (state, county string, err error) {
	norm, err := Normalize(fips, CountyWidth)
	if err != nil {
		return "", "", err
	}
	return norm[:2], norm[2:], nil
}
