package extract

import (
	"strings"
	"unicode"

	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
)

// Card is the raw evidence read from one result card.
type Card struct {
	Text     string
	Headings []string
	Links    []string
}

// Fields holds the card fields derived by Parse.
type Fields struct {
	Title    string
	Company  string
	Location string
	Posted   string
}

// Parse ranks the evidence of a card. Every field falls through its rules
// in order and ends at its "Unknown" sentinel, which is a valid result.
func Parse(c Card, kw rules.ExtractRules) Fields {
	lines := Lines(c.Text)
	f := Fields{
		Title:    models.UnknownTitle,
		Company:  models.UnknownCompany,
		Location: models.UnknownLocation,
	}

	if t := titleFrom(c, lines, kw); t != "" {
		f.Title = t
	}
	if co := companyFrom(lines, f.Title, kw); co != "" {
		f.Company = co
	}
	if loc := locationFrom(lines, f.Title, f.Company, kw); loc != "" {
		f.Location = loc
	}
	f.Posted = postedFrom(lines)
	return f
}

func titleFrom(c Card, lines []string, kw rules.ExtractRules) string {
	for _, h := range c.Headings {
		if len(h) > 3 {
			return h
		}
	}
	for _, l := range c.Links {
		if len(l) > 3 && !strings.Contains(strings.ToLower(l), "apply") {
			return l
		}
	}
	for _, line := range lines {
		if len(line) > 3 && len(line) < 100 && !matchesAny(line, kw.Boilerplate) {
			return line
		}
	}
	return ""
}

func companyFrom(lines []string, title string, kw rules.ExtractRules) string {
	for _, line := range lines {
		if line != title && matchesAny(line, kw.CompanySuffixes) {
			return line
		}
	}
	for _, line := range lines {
		if line == title || matchesAny(line, kw.Boilerplate) {
			continue
		}
		if n := len([]rune(line)); n >= 2 && n <= 50 && !hasDigit(line) {
			return line
		}
	}
	return ""
}

func locationFrom(lines []string, title, company string, kw rules.ExtractRules) string {
	for _, line := range lines {
		if line == title || line == company {
			continue
		}
		if matchesAny(line, kw.LocationKeywords) || strings.Contains(line, ",") || matchesAny(line, kw.LocationWords) {
			return line
		}
	}
	return ""
}

func postedFrom(lines []string) string {
	for _, line := range lines {
		l := strings.ToLower(line)
		if containsKeyword(l, "ago") || strings.HasPrefix(l, "posted") || strings.HasPrefix(l, "reposted") {
			return line
		}
	}
	return ""
}

// Lines splits flattened card text into trimmed, non-empty lines.
func Lines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func matchesAny(line string, keywords []string) bool {
	l := strings.ToLower(line)
	for _, kw := range keywords {
		if containsKeyword(l, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// containsKeyword matches short keywords (state codes, "inc", "ago") as
// whole words and longer ones as substrings, so "ca" does not hit "Acme".
func containsKeyword(lowerLine, kw string) bool {
	if kw == "" {
		return false
	}
	if len(kw) > 3 {
		return strings.Contains(lowerLine, kw)
	}
	for _, w := range strings.FieldsFunc(lowerLine, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if w == kw {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
