package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/techblog-io/blog-smoke/internal/harness"
)

var started = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *harness.Result {
	return &harness.Result{
		RunID:      "3f1c2a4e-0000-4000-8000-000000000001",
		BaseURL:    "http://localhost:8081",
		StartedAt:  started,
		FinishedAt: started.Add(1234 * time.Millisecond),
		Outcomes: []harness.Outcome{
			{
				Priority:    1,
				Description: "Verify home page loads successfully",
				Passed:      true,
				Message:     "Home page loaded - Title: My Tech Blog",
				Duration:    120 * time.Millisecond,
			},
			{
				Priority:    5,
				Description: "Verify page contains root div",
				Passed:      false,
				Message:     "Root div should be present",
				Kind:        harness.KindElementNotFound,
				Cause:       "element not found: #root",
				Duration:    45 * time.Millisecond,
				Screenshot:  "test-results/screenshots/check-05-verify-page-contains-root-div.png",
			},
			{
				Priority:    7,
				Description: "Verify page loads within timeout",
				Passed:      true,
				Message:     "Page loaded in 830ms",
				Duration:    830 * time.Millisecond,
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	s := Generate(sampleResult())

	assert.Equal(t, 3, s.TotalChecks)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 66.67, s.SuccessRate, 0.01)
	assert.Equal(t, 1234*time.Millisecond, s.Duration)
	assert.Equal(t, started, s.Timestamp)
}

func TestGenerate_Empty(t *testing.T) {
	s := Generate(&harness.Result{RunID: "x", StartedAt: started, FinishedAt: started})

	assert.Equal(t, 0, s.TotalChecks)
	assert.Zero(t, s.SuccessRate)
}

func TestWriteText_Golden(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Generate(sampleResult())))

	g := goldie.New(t)
	g.Assert(t, "text_report", buf.Bytes())
}

func TestWriteText_AllPassed(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	res := sampleResult()
	res.Outcomes = res.Outcomes[:1]

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Generate(res)))
	assert.Contains(t, buf.String(), "✅ All checks passed!")
	assert.Contains(t, buf.String(), "Success Rate: 100.0%")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", Generate(sampleResult())))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3f1c2a4e-0000-4000-8000-000000000001", decoded["run_id"])
	assert.EqualValues(t, 1, decoded["failed"])

	results, ok := decoded["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	root := results[1].(map[string]any)
	assert.Equal(t, "Root div should be present", root["message"])
	assert.Equal(t, "ElementNotFound", root["kind"])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "yaml", Generate(sampleResult())))

	var decoded struct {
		RunID   string `yaml:"run_id"`
		Passed  int    `yaml:"passed"`
		Results []struct {
			Priority int    `yaml:"priority"`
			Message  string `yaml:"message"`
		} `yaml:"results"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "3f1c2a4e-0000-4000-8000-000000000001", decoded.RunID)
	assert.Equal(t, 2, decoded.Passed)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, 5, decoded.Results[1].Priority)
}

func TestWriteJUnit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "junit", Generate(sampleResult())))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(xml.Header)))

	var doc junitSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 3, doc.Tests)
	assert.Equal(t, 1, doc.Failures)
	require.Len(t, doc.Suites, 1)

	suite := doc.Suites[0]
	assert.Equal(t, "blog-smoke", suite.Name)
	assert.Equal(t, "1.234", suite.Time)
	assert.Equal(t, "2024-05-01T12:00:00Z", suite.Timestamp)
	require.Len(t, suite.Cases, 3)

	assert.Equal(t, "01 Verify home page loads successfully", suite.Cases[0].Name)
	assert.Nil(t, suite.Cases[0].Failure)

	failure := suite.Cases[1].Failure
	require.NotNil(t, failure)
	assert.Equal(t, "Root div should be present", failure.Message)
	assert.Equal(t, "ElementNotFound", failure.Type)
	assert.Equal(t, "element not found: #root", failure.Body)
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "pdf", Generate(sampleResult()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	require.NoError(t, Save(path, "json", Generate(sampleResult())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_checks": 3`)
}
