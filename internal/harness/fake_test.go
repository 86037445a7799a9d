package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/techblog-io/blog-smoke/internal/browser"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakePage describes what the fake browser renders for every URL.
type fakePage struct {
	title      string
	finalURL   string
	elements   map[string]int
	readyState any
	content    string
	bodyText   string
	loadTime   time.Duration
	navErr     error
}

func goodPage() fakePage {
	return fakePage{
		title: "My Tech Blog",
		elements: map[string]int{
			"html":   1,
			"head":   1,
			"body":   1,
			"header": 1,
			"#root":  1,
		},
		readyState: "complete",
		content:    "<html><head><title>My Tech Blog</title></head><body><header>Tech Blog</header><div id=\"root\">Latest posts from the blog</div></body></html>",
		bodyText:   "Tech Blog\nLatest posts from the blog",
		loadTime:   2 * time.Second,
	}
}

type fakeSession struct {
	page  fakePage
	clock *fakeClock
	// navTimeout mirrors the driver's navigation bound set at launch.
	navTimeout time.Duration

	navigations []string
	current     string
	quits       int
	quitErr     error
	screenshots []string
	titleErr    error
	panicTitle  bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.navigations = append(s.navigations, url)
	if s.navTimeout > 0 && s.page.loadTime > s.navTimeout {
		if s.clock != nil {
			s.clock.Advance(s.navTimeout)
		}
		return fmt.Errorf("%w: %s: Timeout %dms exceeded", browser.ErrNavigationTimeout, url, s.navTimeout.Milliseconds())
	}
	if s.clock != nil {
		s.clock.Advance(s.page.loadTime)
	}
	if s.page.navErr != nil {
		return s.page.navErr
	}
	s.current = url
	if s.page.finalURL != "" {
		s.current = s.page.finalURL
	}
	return nil
}

func (s *fakeSession) FindElement(selector string) (browser.Element, error) {
	if s.page.elements[selector] == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return fakeElement{text: s.page.bodyText}, nil
}

func (s *fakeSession) FindElements(selector string) ([]browser.Element, error) {
	var out []browser.Element
	for i := 0; i < s.page.elements[selector]; i++ {
		out = append(out, fakeElement{text: s.page.bodyText})
	}
	return out, nil
}

func (s *fakeSession) Title() (string, error) {
	if s.panicTitle {
		panic("driver exploded")
	}
	if s.titleErr != nil {
		return "", s.titleErr
	}
	return s.page.title, nil
}

func (s *fakeSession) CurrentURL() string {
	return s.current
}

func (s *fakeSession) ExecuteScript(script string) (any, error) {
	if script != ReadyStateScript {
		return nil, fmt.Errorf("unexpected script %q", script)
	}
	return s.page.readyState, nil
}

func (s *fakeSession) Content() (string, error) {
	return s.page.content, nil
}

func (s *fakeSession) Screenshot(path string) error {
	s.screenshots = append(s.screenshots, path)
	return nil
}

func (s *fakeSession) Quit() error {
	s.quits++
	return s.quitErr
}

type fakeElement struct {
	text string
}

func (e fakeElement) InnerText() (string, error) {
	return e.text, nil
}

type fakeLauncher struct {
	session  *fakeSession
	err      error
	launches int
	opts     browser.Options
}

func (l *fakeLauncher) Launch(ctx context.Context, opts browser.Options) (browser.Session, error) {
	l.launches++
	l.opts = opts
	if l.err != nil {
		return nil, l.err
	}
	if l.session != nil {
		l.session.navTimeout = opts.NavigationTimeout()
	}
	return l.session, nil
}
