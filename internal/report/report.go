// Package report renders smoke run results for people and CI systems.
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/techblog-io/blog-smoke/internal/harness"
)

// Summary represents the overall smoke report
type Summary struct {
	RunID       string            `json:"run_id" yaml:"run_id"`
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	TotalChecks int               `json:"total_checks" yaml:"total_checks"`
	Passed      int               `json:"passed" yaml:"passed"`
	Failed      int               `json:"failed" yaml:"failed"`
	SuccessRate float64           `json:"success_rate" yaml:"success_rate"`
	Results     []harness.Outcome `json:"results" yaml:"results"`
}

// Generate aggregates a run result into a Summary.
func Generate(res *harness.Result) Summary {
	s := Summary{
		RunID:       res.RunID,
		BaseURL:     res.BaseURL,
		Timestamp:   res.StartedAt,
		Duration:    res.FinishedAt.Sub(res.StartedAt),
		TotalChecks: len(res.Outcomes),
		Results:     res.Outcomes,
	}

	for _, o := range res.Outcomes {
		if o.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}

	if s.TotalChecks > 0 {
		s.SuccessRate = float64(s.Passed) / float64(s.TotalChecks) * 100
	}

	return s
}

// Write renders s in the named format: text, json, junit or yaml.
func Write(w io.Writer, format string, s Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, s)
	case "json":
		return WriteJSON(w, s)
	case "junit":
		return WriteJUnit(w, s)
	case "yaml":
		return WriteYAML(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Save writes the report to path, creating parent directories as needed.
func Save(path, format string, s Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := Write(f, format, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
)

// WriteText prints the human-readable report.
func WriteText(w io.Writer, s Summary) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("                    SMOKE TEST REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Run:          %s\n", s.RunID)
	fmt.Fprintf(&b, "Target:       %s\n", s.BaseURL)
	fmt.Fprintf(&b, "Timestamp:    %s\n", s.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration:     %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Total Checks: %d\n", s.TotalChecks)
	fmt.Fprintf(&b, "Passed:       %d\n", s.Passed)
	fmt.Fprintf(&b, "Failed:       %d\n", s.Failed)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", s.SuccessRate)
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, o := range s.Results {
		status := passLabel("✅ PASS")
		if !o.Passed {
			status = failLabel("❌ FAIL")
		}
		fmt.Fprintf(&b, "%s %2d. %s %s\n", status, o.Priority, o.Description,
			dim("("+o.Duration.Round(time.Millisecond).String()+")"))
		fmt.Fprintf(&b, "   %s\n", o.Message)
		if o.Cause != "" {
			fmt.Fprintf(&b, "   Cause: %s\n", o.Cause)
		}
		if o.Screenshot != "" {
			fmt.Fprintf(&b, "   Screenshot: %s\n", o.Screenshot)
		}
	}

	b.WriteString(strings.Repeat("=", 60) + "\n")
	if s.Failed > 0 {
		fmt.Fprintf(&b, "⚠️  %d check(s) failed\n", s.Failed)
	} else {
		b.WriteString("✅ All checks passed!\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteYAML writes the summary as YAML.
func WriteYAML(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	ID        string      `xml:"id,attr,omitempty"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// WriteJUnit writes the summary as a JUnit XML document.
func WriteJUnit(w io.Writer, s Summary) error {
	suite := junitSuite{
		Name:      "blog-smoke",
		ID:        s.RunID,
		Tests:     s.TotalChecks,
		Failures:  s.Failed,
		Time:      seconds(s.Duration),
		Timestamp: s.Timestamp.UTC().Format(time.RFC3339),
	}
	for _, o := range s.Results {
		c := junitCase{
			Name:      fmt.Sprintf("%02d %s", o.Priority, o.Description),
			Classname: "smoke",
			Time:      seconds(o.Duration),
		}
		if o.Passed {
			c.SystemOut = o.Message
		} else {
			c.Failure = &junitFailure{
				Message: o.Message,
				Type:    string(o.Kind),
				Body:    o.Cause,
			}
		}
		suite.Cases = append(suite.Cases, c)
	}

	doc := junitSuites{
		Tests:    s.TotalChecks,
		Failures: s.Failed,
		Time:     suite.Time,
		Suites:   []junitSuite{suite},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
