// Package search opens LinkedIn job-search result pages and pages through
// them. Cards on a page are the job identifiers fed to the apply engine.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/selector"
)

var (
	ErrNoResults    = errors.New("no job cards on results page")
	ErrLoginTimeout = errors.New("login not detected")
)

const defaultBaseURL = "https://www.linkedin.com/jobs/search/"

// Params describe one results page.
type Params struct {
	BaseURL       string
	Keyword       string
	Location      string
	PostedWithin  time.Duration
	Experience    []string
	JobTypes      []string
	EasyApplyOnly bool
	// Start is the result offset of the page.
	Start int
}

// BuildURL renders the search URL with LinkedIn's filter parameters:
// f_TPR (posted within, seconds), f_E (experience), f_JT (job type) and
// f_AL (Easy Apply only).
func BuildURL(p Params) (string, error) {
	if strings.TrimSpace(p.Keyword) == "" {
		return "", errors.New("empty search keyword")
	}
	base := p.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}

	q := u.Query()
	q.Set("keywords", p.Keyword)
	if p.Location != "" {
		q.Set("location", p.Location)
	}
	if p.PostedWithin > 0 {
		q.Set("f_TPR", "r"+strconv.FormatInt(int64(p.PostedWithin/time.Second), 10))
	}
	if len(p.Experience) > 0 {
		q.Set("f_E", strings.Join(p.Experience, ","))
	}
	if len(p.JobTypes) > 0 {
		q.Set("f_JT", strings.Join(p.JobTypes, ","))
	}
	if p.EasyApplyOnly {
		q.Set("f_AL", "true")
	}
	if p.Start > 0 {
		q.Set("start", strconv.Itoa(p.Start))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type Navigator struct {
	session  browser.Session
	resolver *selector.Resolver
	rules    *rules.Rules
	pacer    browser.Pacer
	logger   *zap.Logger

	CardWait     time.Duration
	ClickTimeout time.Duration
	ScrollSteps  int
}

func NewNavigator(session browser.Session, resolver *selector.Resolver, r *rules.Rules, pacer browser.Pacer, logger *zap.Logger) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		session:      session,
		resolver:     resolver,
		rules:        r,
		pacer:        pacer,
		logger:       logger,
		CardWait:     15 * time.Second,
		ClickTimeout: 5 * time.Second,
		ScrollSteps:  3,
	}
}

// Open navigates to the results page for p and waits for the first cards.
func (n *Navigator) Open(ctx context.Context, p Params) error {
	target, err := BuildURL(p)
	if err != nil {
		return err
	}
	n.logger.Info("🌐 opening search", zap.String("keyword", p.Keyword), zap.Int("start", p.Start), zap.String("url", target))
	if err := n.session.Navigate(ctx, target); err != nil {
		return err
	}
	return n.awaitCards(ctx)
}

// NextPage clicks the pager's next control. Without one it navigates to the
// next offset directly. It reports false when there is no next page.
func (n *Navigator) NextPage(ctx context.Context, p Params, pageSize int) (bool, error) {
	next, err := n.resolver.ResolveClickable(ctx, n.rules.Set(rules.RoleNextPage), n.session, 0)
	switch {
	case err == nil:
		if err := next.Click(n.ClickTimeout); err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return false, err
			}
			n.logger.Debug("next page click failed, using offset", zap.Error(err))
			return n.byOffset(ctx, p, pageSize)
		}
		if err := n.pacer.Settle(ctx); err != nil {
			return false, err
		}
		if err := n.awaitCards(ctx); err != nil {
			if errors.Is(err, ErrNoResults) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	case errors.Is(err, selector.ErrNotFound):
		return n.byOffset(ctx, p, pageSize)
	default:
		return false, err
	}
}

func (n *Navigator) byOffset(ctx context.Context, p Params, pageSize int) (bool, error) {
	p.Start += pageSize
	if err := n.Open(ctx, p); err != nil {
		if errors.Is(err, ErrNoResults) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (n *Navigator) awaitCards(ctx context.Context) error {
	m, err := n.resolver.Resolve(ctx, n.rules.Set(rules.RoleJobCard), n.session, n.CardWait)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return ErrNoResults
		}
		return err
	}
	n.logger.Info("📄 results loaded", zap.Int("cards", len(m.Elements)), zap.Stringer("locator", m.Locator))
	// lazy-loaded cards only render after scrolling the list
	return browser.HumanScroll(ctx, n.session, n.ScrollSteps, n.pacer)
}

// WaitForLogin opens loginURL and waits for a logged-in marker. With valid
// cookies the site redirects straight to the feed; otherwise the operator
// signs in by hand within timeout.
func (n *Navigator) WaitForLogin(ctx context.Context, loginURL string, timeout time.Duration) error {
	if err := n.session.Navigate(ctx, loginURL); err != nil {
		return err
	}
	n.logger.Info("🔐 waiting for login", zap.Duration("timeout", timeout))
	if _, err := n.resolver.Resolve(ctx, n.rules.Set(rules.RoleLoginMarker), n.session, timeout); err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return ErrLoginTimeout
		}
		return err
	}
	n.logger.Info("✅ login confirmed")
	return nil
}
