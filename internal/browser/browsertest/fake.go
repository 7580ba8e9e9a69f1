// Package browsertest provides a scriptable in-memory page for tests of
// code written against browser.Session. Elements are looked up by the exact
// Locator pattern, and click callbacks may rewrite the page to simulate
// UI transitions.
package browsertest

import (
	"context"
	"sync"
	"time"

	"go-easyapply-automation/internal/browser"
)

type Element struct {
	TextValue string
	HTMLValue string
	Attrs     map[string]string
	Hidden    bool
	Disabled  bool
	// Children are keyed by Locator.Pattern.
	Children map[string][]*Element

	OnClick   func() error
	ClickErr  error
	DirectErr error
	FillErr   error
	// Err, when set, is returned by every call (e.g. browser.ErrSessionLost).
	Err error

	Clicks       int
	DirectClicks int
	Filled       string
	Files        []string
}

func NewElement(text string) *Element {
	return &Element{TextValue: text, Attrs: map[string]string{}, Children: map[string][]*Element{}}
}

// With adds children under pattern and returns the receiver for chaining.
func (e *Element) With(pattern string, children ...*Element) *Element {
	if e.Children == nil {
		e.Children = map[string][]*Element{}
	}
	e.Children[pattern] = append(e.Children[pattern], children...)
	return e
}

// Attr sets an attribute and returns the receiver for chaining.
func (e *Element) Attr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

func (e *Element) FindAll(loc browser.Locator) ([]browser.Element, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return toElements(e.Children[loc.Pattern]), nil
}

func (e *Element) Text() (string, error)  { return e.TextValue, e.Err }
func (e *Element) HTML() (string, error)  { return e.HTMLValue, e.Err }
func (e *Element) Visible() (bool, error) { return !e.Hidden, e.Err }
func (e *Element) Enabled() (bool, error) { return !e.Disabled, e.Err }
func (e *Element) ScrollIntoView() error  { return e.Err }

func (e *Element) Attribute(name string) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.Attrs[name], nil
}

func (e *Element) HasAttribute(name string) (bool, error) {
	if e.Err != nil {
		return false, e.Err
	}
	_, ok := e.Attrs[name]
	return ok, nil
}

func (e *Element) Click(time.Duration) error {
	if e.Err != nil {
		return e.Err
	}
	e.Clicks++
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OnClick != nil {
		return e.OnClick()
	}
	return nil
}

func (e *Element) ClickDirect() error {
	if e.Err != nil {
		return e.Err
	}
	e.DirectClicks++
	if e.DirectErr != nil {
		return e.DirectErr
	}
	if e.OnClick != nil {
		return e.OnClick()
	}
	return nil
}

func (e *Element) Fill(value string) error {
	if e.Err != nil {
		return e.Err
	}
	if e.FillErr != nil {
		return e.FillErr
	}
	e.Filled = value
	return nil
}

func (e *Element) SetFiles(paths ...string) error {
	if e.Err != nil {
		return e.Err
	}
	e.Files = append([]string(nil), paths...)
	return nil
}

func toElements(in []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(in))
	for _, el := range in {
		out = append(out, el)
	}
	return out
}

// Page is a fake browser.Session.
type Page struct {
	mu       sync.Mutex
	elements map[string][]*Element
	url      string

	// Lost makes every call fail with browser.ErrSessionLost.
	Lost bool
	// FindErr, keyed by pattern, makes FindAll fail for that pattern.
	FindErr map[string]error
	// FindCalls counts FindAll calls per pattern.
	FindCalls map[string]int

	Pressed    []string
	Visited    []string
	Wheels     []float64
	Shots      []string
	OnNavigate func(url string)
}

func NewPage() *Page {
	return &Page{
		elements:  map[string][]*Element{},
		FindErr:   map[string]error{},
		FindCalls: map[string]int{},
	}
}

// Set replaces the elements matched by pattern.
func (p *Page) Set(pattern string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[pattern] = els
}

// Remove drops every element matched by pattern.
func (p *Page) Remove(pattern string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, pattern)
}

func (p *Page) FindAll(loc browser.Locator) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FindCalls[loc.Pattern]++
	if p.Lost {
		return nil, browser.ErrSessionLost
	}
	if err := p.FindErr[loc.Pattern]; err != nil {
		return nil, err
	}
	return toElements(p.elements[loc.Pattern]), nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Lost {
		return browser.ErrSessionLost
	}
	p.url = url
	p.Visited = append(p.Visited, url)
	if p.OnNavigate != nil {
		p.OnNavigate(url)
	}
	return nil
}

func (p *Page) URL() string { return p.url }

func (p *Page) Press(key string) error {
	if p.Lost {
		return browser.ErrSessionLost
	}
	p.Pressed = append(p.Pressed, key)
	return nil
}

func (p *Page) Wheel(deltaY float64) error {
	if p.Lost {
		return browser.ErrSessionLost
	}
	p.Wheels = append(p.Wheels, deltaY)
	return nil
}

func (p *Page) Screenshot(path string) error {
	if p.Lost {
		return browser.ErrSessionLost
	}
	p.Shots = append(p.Shots, path)
	return nil
}

func (p *Page) Closed() bool { return p.Lost }
