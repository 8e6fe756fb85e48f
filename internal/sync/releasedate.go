package sync

import "time"

// NormalizeReleaseDate converts a provider release-date string plus its
// precision tag into a fully specified calendar date. Month precision is
// anchored to day 1, year precision to January 1. Absent or unparseable
// input yields nil, never an error.
func NormalizeReleaseDate(s, precision string) *time.Time {
	if s == "" {
		return nil
	}

	layout := "2006-01-02"
	value := s
	switch precision {
	case "day":
		// full date passes through
	case "month":
		value = s + "-01"
	case "year":
		value = s + "-01-01"
	default:
		// unknown or absent precision: try a full date as a last resort
	}

	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	return &t
}
