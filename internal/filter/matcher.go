package filter

import (
	"fmt"
	"regexp"

	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/textnorm"
)

const (
	DefaultInclude = `\b(software|developer|engineer(ing)?|cybersecurity|ai|machine learning|data science|golang|backend)\b`
	DefaultExclude = `\b(senior|sr\.?|lead|manager|principal|staff|architect)\b`
)

var experienceRegex = regexp.MustCompile(`(?i)\b([3-9]|\d{2,})\s*(\+|plus)?\s*(years?|yrs?|yoe)\b`)

type Config struct {
	Include        string
	Exclude        string
	RejectSeniorXP bool
}

// Gate decides, before any click on the apply control, whether a listing is
// worth an attempt at all.
type Gate struct {
	include        *regexp.Regexp
	exclude        *regexp.Regexp
	rejectSeniorXP bool
}

func NewGate(cfg Config) (*Gate, error) {
	g := &Gate{rejectSeniorXP: cfg.RejectSeniorXP}
	var err error
	if g.include, err = compile(cfg.Include); err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	if g.exclude, err = compile(cfg.Exclude); err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return g, nil
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + expr)
}

// Allow reports whether job passes the keyword rules, and if not, why.
func (g *Gate) Allow(job models.JobRecord) (bool, string) {
	text := textnorm.Fold(job.Title + " " + job.Description)
	title := textnorm.Fold(job.Title)

	if g.include != nil && !g.include.MatchString(text) {
		return false, "no include keyword"
	}
	if g.exclude != nil {
		if m := g.exclude.FindString(title); m != "" {
			return false, fmt.Sprintf("excluded keyword %q", m)
		}
	}
	if g.rejectSeniorXP {
		if m := experienceRegex.FindString(text); m != "" {
			return false, fmt.Sprintf("experience requirement %q", m)
		}
	}
	return true, ""
}
