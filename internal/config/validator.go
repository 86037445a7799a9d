package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// ReportFormats lists the accepted report.format values.
var ReportFormats = []string{"text", "json", "junit", "yaml"}

// Validator collects every problem in a Config rather than stopping at the first.
type Validator struct {
	config *Config
	errors []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config: cfg,
		errors: []string{},
	}
}

// Validate reports whether the configuration can drive a smoke run.
func (c Config) Validate() error {
	return NewValidator(&c).Validate()
}

func (v *Validator) Validate() error {
	v.validateBaseURL()
	v.validateWindow()
	v.validateTimeout()
	v.validateReport()
	v.validateSchedule()

	if len(v.errors) > 0 {
		return fmt.Errorf("config validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *Validator) validateBaseURL() {
	raw := v.config.BaseURL
	if raw == "" {
		v.addError("base_url is not set")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		v.addError(fmt.Sprintf("base_url %q is not a valid URL: %v", raw, err))
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(fmt.Sprintf("base_url %q must use http or https", raw))
		return
	}
	if u.Host == "" {
		v.addError(fmt.Sprintf("base_url %q has no host", raw))
	}
}

func (v *Validator) validateWindow() {
	if v.config.WindowSize.Width <= 0 || v.config.WindowSize.Height <= 0 {
		v.addError(fmt.Sprintf("window_size must be positive, got %dx%d",
			v.config.WindowSize.Width, v.config.WindowSize.Height))
	}
}

func (v *Validator) validateTimeout() {
	if v.config.NavTimeout <= 0 {
		v.addError("nav_timeout must be positive")
	}
	if v.config.PageLoadTimeout <= 0 {
		v.addError("page_load_timeout must be positive")
	}
}

func (v *Validator) validateReport() {
	for _, f := range ReportFormats {
		if v.config.Report.Format == f {
			return
		}
	}
	v.addError(fmt.Sprintf("report.format %q is not one of %s",
		v.config.Report.Format, strings.Join(ReportFormats, ", ")))
}

func (v *Validator) validateSchedule() {
	if v.config.Watch.Schedule == "" {
		return
	}
	if _, err := ScheduleParser.Parse(v.config.Watch.Schedule); err != nil {
		v.addError(fmt.Sprintf("watch.schedule %q: %v", v.config.Watch.Schedule, err))
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  ❌ "+msg)
}

// ScheduleParser accepts five-field cron specs, an optional leading seconds
// field, and descriptors such as "@every 5m".
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
