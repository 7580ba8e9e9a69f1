// Package selector resolves semantic UI roles to live elements by walking
// an ordered LocatorSet. The ordered fallback is the retry: a single pass
// never retries one candidate.
package selector

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-easyapply-automation/internal/browser"
)

// ErrNotFound means no candidate yielded a usable element. Expected and
// non-fatal; "timed out waiting" and "never existed" are the same result.
var ErrNotFound = errors.New("no locator matched")

const defaultPollInterval = 250 * time.Millisecond

// Match is the full match set of the first non-empty candidate.
type Match struct {
	Locator  browser.Locator
	Rank     int
	Elements []browser.Element
}

func (m Match) First() browser.Element {
	if len(m.Elements) == 0 {
		return nil
	}
	return m.Elements[0]
}

type Resolver struct {
	logger       *zap.Logger
	pollInterval time.Duration
}

type Option func(*Resolver)

func WithPollInterval(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{logger: logger, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the match set of the first candidate in set with at least
// one element inside scope. With a positive timeout the ordered pass is
// repeated until something matches or the deadline passes.
func (r *Resolver) Resolve(ctx context.Context, set browser.LocatorSet, scope browser.Scope, timeout time.Duration) (Match, error) {
	deadline := time.Now().Add(timeout)
	for {
		m, err := r.pass(set, scope)
		if err != nil {
			return Match{}, err
		}
		if len(m.Elements) > 0 {
			return m, nil
		}
		if err := r.wait(ctx, deadline); err != nil {
			return Match{}, err
		}
	}
}

// Exists is Resolve reduced to presence.
func (r *Resolver) Exists(ctx context.Context, set browser.LocatorSet, scope browser.Scope, timeout time.Duration) (bool, error) {
	_, err := r.Resolve(ctx, set, scope, timeout)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

// WaitGone polls until no candidate of set matches inside scope. It reports
// false when the elements are still present at the deadline.
func (r *Resolver) WaitGone(ctx context.Context, set browser.LocatorSet, scope browser.Scope, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		m, err := r.pass(set, scope)
		if err != nil {
			return false, err
		}
		if len(m.Elements) == 0 {
			return true, nil
		}
		if err := r.wait(ctx, deadline); err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}
}

// ResolveClickable polls, within timeout, for the first element (in
// candidate order, then document order) that is visible, enabled and not
// marked disabled. Any failure other than session loss collapses to
// ErrNotFound.
func (r *Resolver) ResolveClickable(ctx context.Context, set browser.LocatorSet, scope browser.Scope, timeout time.Duration) (browser.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		for rank, loc := range set {
			els, err := scope.FindAll(loc)
			if err != nil {
				if errors.Is(err, browser.ErrSessionLost) {
					return nil, err
				}
				continue
			}
			for _, el := range els {
				ok, err := Clickable(el)
				if err != nil && errors.Is(err, browser.ErrSessionLost) {
					return nil, err
				}
				if ok {
					r.logFallback(loc, rank)
					return el, nil
				}
			}
		}
		if err := r.wait(ctx, deadline); err != nil {
			return nil, err
		}
	}
}

// Clickable reports whether el can take a click right now. Native disabled
// state is covered by Enabled; the attribute checks catch custom widgets.
func Clickable(el browser.Element) (bool, error) {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false, err
	}
	enabled, err := el.Enabled()
	if err != nil || !enabled {
		return false, err
	}
	if disabled, err := el.HasAttribute("disabled"); err != nil || disabled {
		return false, err
	}
	aria, err := el.Attribute("aria-disabled")
	if err != nil {
		return false, err
	}
	return !strings.EqualFold(aria, "true"), nil
}

func (r *Resolver) pass(set browser.LocatorSet, scope browser.Scope) (Match, error) {
	for rank, loc := range set {
		els, err := scope.FindAll(loc)
		if err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return Match{}, err
			}
			r.logger.Debug("locator failed", zap.Stringer("locator", loc), zap.Error(err))
			continue
		}
		if len(els) > 0 {
			r.logFallback(loc, rank)
			return Match{Locator: loc, Rank: rank, Elements: els}, nil
		}
	}
	return Match{}, nil
}

func (r *Resolver) logFallback(loc browser.Locator, rank int) {
	if rank > 0 {
		r.logger.Debug("🔁 fallback locator matched", zap.Stringer("locator", loc), zap.Int("rank", rank))
	}
}

// wait sleeps one poll interval, capped at the deadline. It returns
// ErrNotFound once the deadline has passed and ctx.Err on cancellation.
func (r *Resolver) wait(ctx context.Context, deadline time.Time) error {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ErrNotFound
	}
	d := r.pollInterval
	if remaining < d {
		d = remaining
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
