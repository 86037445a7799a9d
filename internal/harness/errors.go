package harness

import (
	"errors"
	"fmt"

	"github.com/techblog-io/blog-smoke/internal/browser"
)

// Kind classifies why a run or a check failed.
type Kind string

const (
	KindSetupFailure      Kind = "SetupFailure"
	KindAssertionFailed   Kind = "AssertionFailed"
	KindElementNotFound   Kind = "ElementNotFound"
	KindNavigationTimeout Kind = "NavigationTimeout"
)

var (
	// ErrSetupFailure means the browser could not be acquired; no check ran.
	ErrSetupFailure = errors.New("setup failure")
	// ErrAssertionFailed matches every failure recorded inside a check.
	ErrAssertionFailed = errors.New("assertion failed")
	// ErrDuplicatePriority is returned when two checks share a priority.
	ErrDuplicatePriority = errors.New("duplicate check priority")
)

// AssertionError is an unmet expectation inside one check. ElementNotFound
// and NavigationTimeout failures are assertion failures with a narrower Kind.
type AssertionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AssertionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AssertionError) Unwrap() error {
	return e.Err
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertionFailed
}

// Fail returns an AssertionFailed error carrying msg.
func Fail(msg string) error {
	return &AssertionError{Kind: KindAssertionFailed, Message: msg}
}

// Assert returns nil when cond holds, otherwise Fail(msg).
func Assert(cond bool, msg string) error {
	if cond {
		return nil
	}
	return Fail(msg)
}

// asAssertion folds any error raised while running a check into an
// AssertionError whose message is the check's expectation.
func asAssertion(c Check, err error) *AssertionError {
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae
	}
	kind := KindAssertionFailed
	switch {
	case errors.Is(err, browser.ErrNavigationTimeout):
		kind = KindNavigationTimeout
	case errors.Is(err, browser.ErrElementNotFound):
		kind = KindElementNotFound
	}
	return &AssertionError{Kind: kind, Message: c.Expectation, Err: err}
}
