// Package browser defines the capability set the smoke harness needs from a
// browser automation driver, plus a Playwright-backed implementation.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrElementNotFound is returned by FindElement when no element matches.
	ErrElementNotFound = errors.New("element not found")
	// ErrNavigationTimeout is returned when a page does not finish loading in time.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrSessionClosed is returned when a session is used after Quit.
	ErrSessionClosed = errors.New("browser session closed")
)

// Options controls how a browser is launched
type Options struct {
	Headless bool
	Width    int
	Height   int
	// Timeout bounds explicit waits such as element lookups.
	Timeout time.Duration
	// PageLoadTimeout bounds a navigation; Timeout is used when it is zero.
	PageLoadTimeout time.Duration
	Args            []string
}

// DefaultArgs returns the fixed Chromium flags used for smoke runs.
func DefaultArgs(width, height int) []string {
	return []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		fmt.Sprintf("--window-size=%d,%d", width, height),
	}
}

// NavigationTimeout is the bound applied to Navigate.
func (o Options) NavigationTimeout() time.Duration {
	if o.PageLoadTimeout > 0 {
		return o.PageLoadTimeout
	}
	return o.Timeout
}

// Launcher starts a browser and hands back a live session.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Session, error)
}

// Session is one live connection to a browser page.
type Session interface {
	// Navigate loads url and blocks until the page reports load completion.
	Navigate(ctx context.Context, url string) error
	// FindElement returns the first match for a CSS selector or ErrElementNotFound.
	FindElement(selector string) (Element, error)
	// FindElements returns every match for a CSS selector; no match is not an error.
	FindElements(selector string) ([]Element, error)
	Title() (string, error)
	CurrentURL() string
	// ExecuteScript evaluates a JavaScript expression or function in the page.
	ExecuteScript(script string) (any, error)
	// Content returns the serialized page HTML.
	Content() (string, error)
	Screenshot(path string) error
	// Quit releases the browser. Calling it more than once is safe.
	Quit() error
}

// Element is a handle to a DOM element.
type Element interface {
	InnerText() (string, error)
}

// ByTag returns a selector matching elements with the given tag name.
func ByTag(name string) string {
	return name
}

// ByID returns a selector matching the element with the given id.
func ByID(id string) string {
	return "#" + id
}
