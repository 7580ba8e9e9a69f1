package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	relativeRegex = regexp.MustCompile(`(?i)\b(\d+|an?|one)\+?\s*(minute|hour|day|week|month|year)s?\s+ago\b`)
)

var units = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

// PostedAge parses card text such as "3 days ago", "Reposted 1 week ago"
// or an ISO date. ok is false when the text carries no recognisable age.
func PostedAge(posted string, now time.Time) (age time.Duration, ok bool) {
	s := strings.TrimSpace(posted)
	if s == "" {
		return 0, false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "just now") || strings.Contains(lower, "today") {
		return 0, true
	}

	if m := relativeRegex.FindStringSubmatch(lower); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		return time.Duration(n) * units[m[2]], true
	}

	if isoDateRegex.MatchString(s) {
		if d, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return now.Sub(d), true
		}
	}
	return 0, false
}

// IsRecent keeps unknown ages: a missing date is never a reason to skip.
func IsRecent(posted string, now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	age, ok := PostedAge(posted, now)
	if !ok {
		return true
	}
	// future dates within two days are timezone skew
	if age < -2*24*time.Hour {
		return false
	}
	return age <= maxAge
}
