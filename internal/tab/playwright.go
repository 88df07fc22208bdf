package tab

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"bugshot-cli/internal/logging"
	"bugshot-cli/internal/model"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const (
	selectionScript = `() => (window.getSelection ? String(window.getSelection()) : "")`
	faviconScript   = `() => {
  const l = document.querySelector("link[rel~='icon']");
  if (l && l.href) return l.href;
  try { return new URL("/favicon.ico", location.origin).href; } catch (e) { return ""; }
}`
	focusScript = `() => document.visibilityState === "visible" && document.hasFocus()`

	screenshotQuality = 80
)

// PlaywrightReader attaches to a running Chrome started with --remote-debugging-port and
// reads the active tab over CDP. It never launches a browser of its own.
type PlaywrightReader struct {
	endpoint string

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	log     zerolog.Logger
}

func NewPlaywrightReader(endpoint string) *PlaywrightReader {
	return &PlaywrightReader{
		endpoint: strings.TrimSpace(endpoint),
		log:      logging.For("tab"),
	}
}

func (r *PlaywrightReader) connect() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil && r.browser.IsConnected() {
		return r.browser, nil
	}
	if r.pw == nil {
		// Only the driver is needed; the browser is the user's own.
		opts := &playwright.RunOptions{
			Verbose:             false,
			SkipInstallBrowsers: true,
			Stdout:              io.Discard,
			Stderr:              io.Discard,
		}
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("install playwright driver: %w", err)
		}
		pw, err := playwright.Run(opts)
		if err != nil {
			return nil, fmt.Errorf("start playwright: %w", err)
		}
		r.pw = pw
	}
	b, err := r.pw.Chromium.ConnectOverCDP(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect to browser at %s: %w", r.endpoint, err)
	}
	r.browser = b
	r.log.Debug().Str("endpoint", r.endpoint).Msg("connected over CDP")
	return b, nil
}

func isUserPage(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" || u == "about:blank" {
		return false
	}
	for _, p := range []string{"devtools://", "chrome://", "chrome-extension://", "edge://"} {
		if strings.HasPrefix(u, p) {
			return false
		}
	}
	return true
}

// activePage prefers a focused page, then a visible one, then the most recently opened.
func activePage(b playwright.Browser) (playwright.Page, error) {
	var candidates []playwright.Page
	for _, c := range b.Contexts() {
		for _, p := range c.Pages() {
			if isUserPage(p.URL()) {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoActiveTab
	}
	var visible playwright.Page
	for _, p := range candidates {
		v, err := p.Evaluate(focusScript)
		if err != nil {
			continue
		}
		if focused, _ := v.(bool); focused {
			return p, nil
		}
		if visible == nil {
			if vs, err := p.Evaluate(`() => document.visibilityState`); err == nil && vs == "visible" {
				visible = p
			}
		}
	}
	if visible != nil {
		return visible, nil
	}
	return candidates[len(candidates)-1], nil
}

func evalString(p playwright.Page, script string) string {
	v, err := p.Evaluate(script)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (r *PlaywrightReader) Active(ctx context.Context) (model.TabContext, error) {
	if err := ctx.Err(); err != nil {
		return model.TabContext{}, err
	}
	b, err := r.connect()
	if err != nil {
		return model.TabContext{}, err
	}
	p, err := activePage(b)
	if err != nil {
		return model.TabContext{}, err
	}

	tc := model.TabContext{URL: p.URL()}
	if title, err := p.Title(); err == nil {
		tc.Title = title
	}
	tc.SelectedText = strings.TrimSpace(evalString(p, selectionScript))
	tc.FaviconURL = evalString(p, faviconScript)

	if err := ctx.Err(); err != nil {
		return model.TabContext{}, err
	}
	shot, err := p.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(screenshotQuality),
	})
	if err != nil {
		// A tab without a screenshot can still be filed.
		r.log.Warn().Err(err).Str("url", tc.URL).Msg("screenshot failed")
	} else {
		tc.ScreenshotDataURI = Blob{MIMEType: "image/jpeg", Data: shot}.DataURI()
	}
	r.log.Debug().Str("url", tc.URL).Bool("screenshot", tc.HasScreenshot()).Msg("captured tab")
	return tc, nil
}

func (r *PlaywrightReader) Cookie(ctx context.Context, url, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := r.connect()
	if err != nil {
		return "", err
	}
	for _, c := range b.Contexts() {
		cookies, err := c.Cookies(url)
		if err != nil {
			return "", fmt.Errorf("read cookies for %s: %w", url, err)
		}
		for _, ck := range cookies {
			if ck.Name == name && ck.Value != "" {
				return ck.Value, nil
			}
		}
	}
	return "", nil
}

// Close disconnects from the browser; the browser itself keeps running.
func (r *PlaywrightReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			firstErr = err
		}
		r.browser = nil
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.pw = nil
	}
	return firstErr
}
