// Package browser defines the narrow view of a live page that the
// automation engine works against, plus the playwright-backed adapter.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionLost means the page, context or browser is gone. Fatal for the run.
	ErrSessionLost = errors.New("browser session lost")
	// ErrTimeout means a bounded wait inside the driver expired.
	ErrTimeout = errors.New("browser wait timed out")
	// ErrInteractionBlocked means the element could not receive a normal click
	// (intercepted, covered, detached or not interactable).
	ErrInteractionBlocked = errors.New("element interaction blocked")
)

// Strategy selects the query engine used for a Locator pattern.
type Strategy string

const (
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
	StrategyText  Strategy = "text"
)

// Locator is one (strategy, pattern) candidate for a semantic UI role.
type Locator struct {
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Pattern  string   `yaml:"pattern" json:"pattern"`
}

// CSS and XPath are shorthands used by the rule tables and tests.
func CSS(pattern string) Locator   { return Locator{Strategy: StrategyCSS, Pattern: pattern} }
func XPath(pattern string) Locator { return Locator{Strategy: StrategyXPath, Pattern: pattern} }

// Selector renders the locator in playwright's "engine=body" form.
func (l Locator) Selector() string {
	strategy := l.Strategy
	if strategy == "" {
		strategy = StrategyCSS
	}
	return fmt.Sprintf("%s=%s", strategy, l.Pattern)
}

func (l Locator) String() string { return l.Selector() }

// LocatorSet is an ordered fallback list for one role. Order is preference.
type LocatorSet []Locator

// Scope is anything elements can be searched within: the whole page or
// a sub-element.
type Scope interface {
	// FindAll returns every element matching loc inside the scope. No
	// match is an empty slice with a nil error.
	FindAll(loc Locator) ([]Element, error)
}

// Element is a handle to a live node. Handles are only valid until the
// next navigation or re-render; callers re-resolve instead of caching them.
type Element interface {
	Scope

	Text() (string, error)
	HTML() (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(name string) (string, error)
	// HasAttribute tells a bare attribute like <a disabled> from a missing one.
	HasAttribute(name string) (bool, error)
	Visible() (bool, error)
	Enabled() (bool, error)

	ScrollIntoView() error
	// Click performs a normal, hit-tested click bounded by timeout.
	Click(timeout time.Duration) error
	// ClickDirect invokes the element's click handler directly, bypassing
	// hit-testing. Used once after an intercepted Click.
	ClickDirect() error
	Fill(value string) error
	SetFiles(paths ...string) error
}

// Session is the single browser page an automation run drives.
type Session interface {
	Scope

	Navigate(ctx context.Context, url string) error
	URL() string
	Press(key string) error
	Wheel(deltaY float64) error
	Screenshot(path string) error
	Closed() bool
}
