// Package extract derives job records from result cards and the detail
// pane using layered evidence rules instead of one fixed query.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/selector"
)

const (
	minDescriptionLen = 50
	minMainContentLen = 100
)

type Extractor struct {
	rules    *rules.Rules
	resolver *selector.Resolver
	logger   *zap.Logger
	// DescriptionWait bounds the wait for any description panel to render.
	DescriptionWait time.Duration
}

func New(r *rules.Rules, resolver *selector.Resolver, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{rules: r, resolver: resolver, logger: logger, DescriptionWait: 5 * time.Second}
}

// Extract reads the card once and ranks its evidence. Only session loss is
// an error; unreadable parts just fall through to the next rule.
func (x *Extractor) Extract(index int, card browser.Element) (models.JobRecord, error) {
	text, err := card.Text()
	if err != nil {
		if errors.Is(err, browser.ErrSessionLost) {
			return models.JobRecord{}, err
		}
		x.logger.Debug("card text unreadable", zap.Int("index", index), zap.Error(err))
	}
	html, err := card.HTML()
	if err != nil && errors.Is(err, browser.ErrSessionLost) {
		return models.JobRecord{}, err
	}

	c := Card{Text: text}
	c.Headings, c.Links = x.evidence(html)
	f := Parse(c, x.rules.Extract)

	x.logger.Debug("📋 extracted card",
		zap.Int("index", index),
		zap.String("title", f.Title),
		zap.String("company", f.Company),
		zap.String("location", f.Location))

	return models.JobRecord{
		Index:    index,
		Card:     card,
		Title:    f.Title,
		Company:  f.Company,
		Location: f.Location,
		Posted:   f.Posted,
	}, nil
}

// evidence pulls heading and link texts out of the card markup.
func (x *Extractor) evidence(html string) (headings, links []string) {
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}
	collect := func(sel string) []string {
		var out []string
		if sel == "" {
			return out
		}
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := collapse(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		return out
	}
	return collect(x.rules.Extract.HeadingSelector), collect(x.rules.Extract.LinkSelector)
}

// ExtractDescription returns the first description panel with more than 50
// characters of text, else the longest long line of the main content block,
// else "". Only session loss and cancellation are errors.
func (x *Extractor) ExtractDescription(ctx context.Context, scope browser.Scope) (string, error) {
	panels := x.rules.Set(rules.RoleDescriptionPanel)
	if _, err := x.resolver.Resolve(ctx, panels, scope, x.DescriptionWait); err != nil && !errors.Is(err, selector.ErrNotFound) {
		return "", err
	}

	for _, loc := range panels {
		m, err := x.resolver.Resolve(ctx, browser.LocatorSet{loc}, scope, 0)
		if err != nil {
			if errors.Is(err, selector.ErrNotFound) {
				continue
			}
			return "", err
		}
		for _, el := range m.Elements {
			text, err := el.Text()
			if err != nil {
				if errors.Is(err, browser.ErrSessionLost) {
					return "", err
				}
				continue
			}
			if text = strings.TrimSpace(text); len(text) > minDescriptionLen {
				return text, nil
			}
		}
	}

	for _, loc := range x.rules.Set(rules.RoleMainContent) {
		m, err := x.resolver.Resolve(ctx, browser.LocatorSet{loc}, scope, 0)
		if err != nil {
			if errors.Is(err, selector.ErrNotFound) {
				continue
			}
			return "", err
		}
		text, err := m.First().Text()
		if err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return "", err
			}
			continue
		}
		if len(text) <= minMainContentLen {
			continue
		}
		if line := longestLine(text); len(line) > minDescriptionLen {
			x.logger.Debug("description taken from main content", zap.Stringer("locator", loc))
			return line, nil
		}
	}
	return "", nil
}

func longestLine(text string) string {
	var best string
	for _, l := range Lines(text) {
		if len(l) > len(best) {
			best = l
		}
	}
	return best
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
