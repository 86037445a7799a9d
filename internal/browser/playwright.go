package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Playwright launches Chromium through playwright-go.
type Playwright struct {
	// SkipInstall skips the driver/browser download, for images that ship them.
	SkipInstall bool
	Logger      *log.Logger
}

// NewPlaywright creates a launcher honouring PLAYWRIGHT_PREINSTALLED.
func NewPlaywright(skipInstall bool) *Playwright {
	return &Playwright{
		SkipInstall: skipInstall,
		Logger:      log.New(os.Stdout, "[BROWSER] ", log.LstdFlags),
	}
}

func (l *Playwright) logf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, args...)
	}
}

// Launch installs the driver if needed, starts Chromium and opens a page.
func (l *Playwright) Launch(ctx context.Context, opts Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !l.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			// Browsers may already be present; Run below is the real test.
			l.logf("playwright install returned: %v", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	s := &playwrightSession{pw: pw}

	args := opts.Args
	if len(args) == 0 {
		args = DefaultArgs(opts.Width, opts.Height)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		_ = s.Quit()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	s.browser = b

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	})
	if err != nil {
		_ = s.Quit()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	s.context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		_ = s.Quit()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	s.page = page

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}
	if nav := opts.NavigationTimeout(); nav > 0 {
		page.SetDefaultNavigationTimeout(float64(nav.Milliseconds()))
	}

	return s, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu      sync.Mutex
	closed  bool
	quitErr error
}

func (s *playwrightSession) livePage() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return nil, ErrSessionClosed
	}
	return s.page, nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := s.livePage()
	if err != nil {
		return err
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%w: %s: %w", ErrNavigationTimeout, url, err)
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) FindElement(selector string) (Element, error) {
	page, err := s.livePage()
	if err != nil {
		return nil, err
	}
	loc := page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return locatorElement{loc.First()}, nil
}

func (s *playwrightSession) FindElements(selector string) ([]Element, error) {
	page, err := s.livePage()
	if err != nil {
		return nil, err
	}
	all, err := page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	elements := make([]Element, 0, len(all))
	for _, loc := range all {
		elements = append(elements, locatorElement{loc})
	}
	return elements, nil
}

func (s *playwrightSession) Title() (string, error) {
	page, err := s.livePage()
	if err != nil {
		return "", err
	}
	return page.Title()
}

func (s *playwrightSession) CurrentURL() string {
	page, err := s.livePage()
	if err != nil {
		return ""
	}
	return page.URL()
}

func (s *playwrightSession) ExecuteScript(script string) (any, error) {
	page, err := s.livePage()
	if err != nil {
		return nil, err
	}
	return page.Evaluate(script)
}

func (s *playwrightSession) Content() (string, error) {
	page, err := s.livePage()
	if err != nil {
		return "", err
	}
	return page.Content()
}

func (s *playwrightSession) Screenshot(path string) error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	_, err = page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

// Quit closes page, context, browser and driver in that order.
func (s *playwrightSession) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.quitErr
	}
	s.closed = true

	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.context != nil {
		errs = append(errs, s.context.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.pw != nil {
		errs = append(errs, s.pw.Stop())
	}
	s.quitErr = errors.Join(errs...)
	return s.quitErr
}

type locatorElement struct {
	loc playwright.Locator
}

func (e locatorElement) InnerText() (string, error) {
	return e.loc.InnerText()
}
