package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// hides navigator.webdriver before any page script runs
const stealthInitScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

type LaunchOptions struct {
	Headless  bool
	SlowMoMs  float64
	UserAgent string
}

type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewPlaywright(ctx context.Context, opts LaunchOptions) (*PlaywrightManager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--start-maximized", "--disable-blink-features=AutomationControlled"},
	}
	if opts.SlowMoMs > 0 {
		launch.SlowMo = playwright.Float(opts.SlowMoMs)
	}
	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}
	return &PlaywrightManager{pw: pw, browser: b}, nil
}

// NewContext opens an isolated browser context seeded with cookies so a
// stored login can be reused.
func (pm *PlaywrightManager) NewContext(cookies []playwright.OptionalCookie, userAgent string) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	}
	if userAgent != "" {
		opts.UserAgent = playwright.String(userAgent)
	}
	bctx, err := pm.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthInitScript)}); err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("could not add init script: %w", err)
	}
	if len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("could not add cookies: %w", err)
		}
	}
	return bctx, nil
}

func (pm *PlaywrightManager) Close() error {
	var firstErr error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			firstErr = fmt.Errorf("close browser: %w", err)
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop playwright: %w", err)
		}
	}
	return firstErr
}
