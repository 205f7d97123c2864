package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	maxTripDays = 365
)

var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*-?\s*(?:days?|d)\s*trip`),
	regexp.MustCompile(`trip\s*(?:of\s*)?(\d+)\s*(?:days?|d)\b`),
	regexp.MustCompile(`(\d+)\s*(?:days?|d)\b(?:\s+trip)?`),
}

// ExtractTripDuration finds a trip length in days ("5 day trip", "trip of 5 days", "5 days").
// Patterns are tried in order; a match outside 1..365 falls through to the next pattern.
func ExtractTripDuration(message string) (int, bool) {
	lower := strings.ToLower(message)
	for _, re := range durationPatterns {
		m := re.FindStringSubmatch(lower)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= maxTripDays {
			return n, true
		}
	}
	return 0, false
}

// EndDateFromDuration returns start + (days-1) as YYYY-MM-DD.
func EndDateFromDuration(start string, days int) (string, bool) {
	if days < 1 {
		return "", false
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, days-1).Format(dateLayout), true
}
