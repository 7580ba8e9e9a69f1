package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// read-style calls (text, attributes, state) must never hang on a detached node
const defaultReadTimeout = 2 * time.Second

var sessionLostMarkers = []string{
	"target page, context or browser has been closed",
	"target closed",
	"browser has been closed",
	"browser has disconnected",
	"connection closed",
	"execution context was destroyed",
}

var blockedMarkers = []string{
	"intercepts pointer events",
	"element is not visible",
	"element is not enabled",
	"element is not stable",
	"element is outside of the viewport",
	"element is not attached",
}

// classify maps playwright errors onto the package sentinels so callers
// can use errors.Is without depending on playwright.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, playwright.ErrTargetClosed) || containsAny(msg, sessionLostMarkers):
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	case containsAny(msg, blockedMarkers):
		return fmt.Errorf("%w: %v", ErrInteractionBlocked, err)
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

type pageSession struct {
	page        playwright.Page
	navTimeout  time.Duration
	readTimeout time.Duration
}

// NewSession wraps a playwright page as a Session.
func NewSession(page playwright.Page, navTimeout time.Duration) Session {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &pageSession{page: page, navTimeout: navTimeout, readTimeout: defaultReadTimeout}
}

func (s *pageSession) FindAll(loc Locator) ([]Element, error) {
	if s.page.IsClosed() {
		return nil, ErrSessionLost
	}
	items, err := s.page.Locator(loc.Selector()).All()
	if err != nil {
		return nil, classify(err)
	}
	return wrapLocators(items, s.readTimeout), nil
}

func (s *pageSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(s.navTimeout),
	}); err != nil {
		return fmt.Errorf("navigate %s: %w", url, classify(err))
	}
	return nil
}

func (s *pageSession) URL() string { return s.page.URL() }

func (s *pageSession) Press(key string) error {
	return classify(s.page.Keyboard().Press(key))
}

func (s *pageSession) Wheel(deltaY float64) error {
	return classify(s.page.Mouse().Wheel(0, deltaY))
}

func (s *pageSession) Screenshot(path string) error {
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return classify(err)
}

func (s *pageSession) Closed() bool { return s.page.IsClosed() }

type locatorElement struct {
	loc         playwright.Locator
	readTimeout time.Duration
}

func wrapLocators(items []playwright.Locator, readTimeout time.Duration) []Element {
	out := make([]Element, 0, len(items))
	for _, item := range items {
		out = append(out, &locatorElement{loc: item, readTimeout: readTimeout})
	}
	return out
}

func (e *locatorElement) FindAll(loc Locator) ([]Element, error) {
	items, err := e.loc.Locator(loc.Selector()).All()
	if err != nil {
		return nil, classify(err)
	}
	return wrapLocators(items, e.readTimeout), nil
}

func (e *locatorElement) Text() (string, error) {
	text, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: ms(e.readTimeout)})
	return text, classify(err)
}

func (e *locatorElement) HTML() (string, error) {
	v, err := e.loc.Evaluate("el => el.outerHTML", nil, playwright.LocatorEvaluateOptions{Timeout: ms(e.readTimeout)})
	if err != nil {
		return "", classify(err)
	}
	html, _ := v.(string)
	return html, nil
}

func (e *locatorElement) Attribute(name string) (string, error) {
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: ms(e.readTimeout)})
	return v, classify(err)
}

func (e *locatorElement) HasAttribute(name string) (bool, error) {
	v, err := e.loc.Evaluate("(el, name) => el.hasAttribute(name)", name, playwright.LocatorEvaluateOptions{Timeout: ms(e.readTimeout)})
	if err != nil {
		return false, classify(err)
	}
	has, _ := v.(bool)
	return has, nil
}

func (e *locatorElement) Visible() (bool, error) {
	v, err := e.loc.IsVisible()
	return v, classify(err)
}

func (e *locatorElement) Enabled() (bool, error) {
	v, err := e.loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: ms(e.readTimeout)})
	return v, classify(err)
}

func (e *locatorElement) ScrollIntoView() error {
	return classify(e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: ms(e.readTimeout),
	}))
}

func (e *locatorElement) Click(timeout time.Duration) error {
	return classify(e.loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}))
}

func (e *locatorElement) ClickDirect() error {
	_, err := e.loc.Evaluate("el => el.click()", nil, playwright.LocatorEvaluateOptions{Timeout: ms(e.readTimeout)})
	return classify(err)
}

func (e *locatorElement) Fill(value string) error {
	return classify(e.loc.Fill(value, playwright.LocatorFillOptions{Timeout: ms(e.readTimeout)}))
}

func (e *locatorElement) SetFiles(paths ...string) error {
	return classify(e.loc.SetInputFiles(paths, playwright.LocatorSetInputFilesOptions{Timeout: ms(e.readTimeout)}))
}
