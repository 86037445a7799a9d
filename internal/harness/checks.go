package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/techblog-io/blog-smoke/internal/browser"
)

const (
	// LoadBudget is the longest a base-URL navigation may take.
	LoadBudget = 10 * time.Second
	// ExpectedPort is the port the blog deployment is served on.
	ExpectedPort = "8081"
	// ReadyStateScript reads the document readiness state in the page.
	ReadyStateScript = "() => document.readyState"
	// MinPageSource is the smallest page source the extended checks accept.
	MinPageSource = 100
)

// DefaultChecks returns the ten structural checks run against the base URL.
func DefaultChecks() []Check {
	return []Check{
		{
			Priority:    1,
			Description: "Verify home page loads successfully",
			Expectation: "Page title should not be null",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				title, err := v.Session.Title()
				if err != nil {
					return "", err
				}
				if err := Assert(title != "", "Page title should not be null"); err != nil {
					return "", err
				}
				return "Home page loaded - Title: " + title, nil
			},
		},
		{
			Priority:    2,
			Description: "Verify page title is correct",
			Expectation: "Title should contain 'Tech' or 'Blog'",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				title, err := v.Session.Title()
				if err != nil {
					return "", err
				}
				ok := strings.Contains(title, "Tech") || strings.Contains(title, "Blog")
				if err := Assert(ok, "Title should contain 'Tech' or 'Blog'"); err != nil {
					return "", err
				}
				return "Page title verified - " + title, nil
			},
		},
		{
			Priority:    3,
			Description: "Verify header is present",
			Expectation: "Body element should be present",
			Predicate:   requireElement(browser.ByTag("body"), "Body element should be present", "Header/Body is present"),
		},
		{
			Priority:    4,
			Description: "Verify navigation is accessible",
			Expectation: "Navigation should exist",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				found, err := anyElement(v.Session, browser.ByTag("nav"), browser.ByTag("header"))
				if err != nil {
					return "", err
				}
				if err := Assert(found, "Navigation should exist"); err != nil {
					return "", err
				}
				return "Navigation is accessible", nil
			},
		},
		{
			Priority:    5,
			Description: "Verify page contains root div",
			Expectation: "Root div should be present",
			Predicate:   requireElement(browser.ByID("root"), "Root div should be present", "Root div exists"),
		},
		{
			Priority:    6,
			Description: "Verify page URL is correct",
			Expectation: "URL should match expected",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				current := v.Session.CurrentURL()
				ok := strings.Contains(current, ExpectedPort) || strings.Contains(current, v.Config.BaseURL)
				if err := Assert(ok, "URL should match expected"); err != nil {
					return "", err
				}
				return "Correct URL - " + current, nil
			},
		},
		{
			Priority:    7,
			Description: "Verify page loads within timeout",
			Expectation: "Page should load within 10 seconds",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				if err := Assert(v.LoadTime < LoadBudget, "Page should load within 10 seconds"); err != nil {
					return "", err
				}
				return fmt.Sprintf("Page loaded in %dms", v.LoadTime.Milliseconds()), nil
			},
		},
		{
			Priority:    8,
			Description: "Verify browser can execute JavaScript",
			Expectation: "Document should be in ready state",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				result, err := v.Session.ExecuteScript(ReadyStateScript)
				if err != nil {
					return "", err
				}
				state, _ := result.(string)
				if err := Assert(state == "complete", "Document should be in ready state"); err != nil {
					return "", err
				}
				return "JavaScript execution successful", nil
			},
		},
		{
			Priority:    9,
			Description: "Verify page has HTML tag",
			Expectation: "HTML tag should exist",
			Predicate:   requireElement(browser.ByTag("html"), "HTML tag should exist", "HTML tag exists"),
		},
		{
			Priority:    10,
			Description: "Verify page has head section",
			Expectation: "Head section should exist",
			Predicate:   requireElement(browser.ByTag("head"), "Head section should exist", "Head section exists"),
		},
	}
}

// ExtendedChecks are opt-in page-reachability checks for the sign-up and
// sign-in routes of the blog.
func ExtendedChecks() []Check {
	return []Check{
		{
			Priority:    11,
			Description: "Verify homepage contains content",
			Expectation: "Homepage should have text content",
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				body, err := v.Session.FindElement(browser.ByTag("body"))
				if err != nil {
					return "", err
				}
				text, err := body.InnerText()
				if err != nil {
					return "", err
				}
				text = strings.TrimSpace(text)
				if err := Assert(text != "", "Homepage should have text content"); err != nil {
					return "", err
				}
				return fmt.Sprintf("Homepage has content (%d characters)", len(text)), nil
			},
		},
		pathReachable(12, "/sign-up", "Verify sign-up page is accessible", "Signup page should be accessible"),
		pathReachable(13, "/sign-in", "Verify sign-in page is accessible", "Signin page should be accessible"),
		{
			Priority:    14,
			Description: "Verify application is fully available",
			Expectation: fmt.Sprintf("Page source should exceed %d characters", MinPageSource),
			Predicate: func(ctx context.Context, v *Visit) (string, error) {
				src, err := v.Session.Content()
				if err != nil {
					return "", err
				}
				msg := fmt.Sprintf("Page source should exceed %d characters", MinPageSource)
				if err := Assert(len(src) > MinPageSource, msg); err != nil {
					return "", err
				}
				return fmt.Sprintf("Application fully available (%d bytes)", len(src)), nil
			},
		},
	}
}

// ChecksFor returns the default checks, plus the extended ones if asked.
func ChecksFor(extended bool) []Check {
	checks := DefaultChecks()
	if extended {
		checks = append(checks, ExtendedChecks()...)
	}
	return checks
}

func pathReachable(priority int, path, description, expectation string) Check {
	return Check{
		Priority:    priority,
		Description: description,
		Expectation: expectation,
		Path:        path,
		Predicate: func(ctx context.Context, v *Visit) (string, error) {
			current := v.Session.CurrentURL()
			if err := Assert(strings.Contains(current, path), expectation); err != nil {
				return "", err
			}
			return "Reached " + current, nil
		},
	}
}

func requireElement(selector, expectation, detail string) Predicate {
	return func(ctx context.Context, v *Visit) (string, error) {
		if _, err := v.Session.FindElement(selector); err != nil {
			if errors.Is(err, browser.ErrElementNotFound) {
				return "", &AssertionError{Kind: KindElementNotFound, Message: expectation, Err: err}
			}
			return "", err
		}
		return detail, nil
	}
}

func anyElement(s browser.Session, selectors ...string) (bool, error) {
	for _, sel := range selectors {
		found, err := s.FindElements(sel)
		if err != nil {
			return false, err
		}
		if len(found) > 0 {
			return true, nil
		}
	}
	return false, nil
}
