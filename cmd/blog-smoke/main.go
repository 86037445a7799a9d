package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techblog-io/blog-smoke/internal/browser"
	"github.com/techblog-io/blog-smoke/internal/config"
	"github.com/techblog-io/blog-smoke/internal/harness"
	"github.com/techblog-io/blog-smoke/internal/metrics"
	"github.com/techblog-io/blog-smoke/internal/report"
	"github.com/techblog-io/blog-smoke/internal/runner"
	"github.com/techblog-io/blog-smoke/internal/runner/tasks"
	"github.com/techblog-io/blog-smoke/internal/version"
)

// errChecksFailed marks a run that completed with failing checks.
var errChecksFailed = errors.New("smoke checks failed")

var rootCmd = &cobra.Command{
	Use:   "blog-smoke",
	Short: "Headless-browser smoke tests for the Tech Blog deployment",
	Long: `blog-smoke drives a headless Chromium against a deployed blog and
asserts coarse structural facts: title, document skeleton, root div,
navigation landmark, URL, load time and JavaScript readiness.

The target is taken from --url, then APP_URL, then smoke.yaml, falling back
to the default deployment.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSuite,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the smoke suite once and exit non-zero on failure",
	RunE:  runSuite,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the smoke suite on a schedule and export metrics",
	Long: `watch runs the suite immediately and then on the configured cron
schedule (default "@every 5m"). Runs never overlap. Results are pushed to a
Prometheus Pushgateway when --pushgateway is set. Edits to the config file
take effect on the next run; a changed watch.schedule moves the job unless
--schedule was given. Ctrl-C cancels a run in progress and closes the browser.`,
	RunE: runWatch,
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the checks in execution order",
	RunE:  runListChecks,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(version.GetInfo())
		}
		fmt.Printf("blog-smoke %s\n", version.Full())
		return nil
	},
}

var configFileFlag string

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFileFlag, "config", "", "Path to a YAML config file (default ./smoke.yaml when present)")
	flags.String("url", "", "Base URL of the application under test (overrides APP_URL)")
	flags.Bool("headless", true, "Run the browser headless")
	flags.Duration("nav-timeout", config.DefaultNavTimeout, "Explicit-wait timeout for element lookups")
	flags.Duration("page-load-timeout", config.DefaultPageLoadTimeout, "Upper bound for a single page navigation")
	flags.Bool("extended", false, "Also run the sign-up/sign-in reachability checks")
	flags.Bool("screenshots", false, "Capture a screenshot for every failed check")
	flags.String("screenshots-dir", config.DefaultScreenDir, "Directory for failure screenshots")
	flags.String("report-format", "text", "Report format: text, json, junit or yaml")
	flags.String("report-path", "", "Write the report to this file instead of stdout")
	flags.String("pushgateway", "", "Prometheus Pushgateway URL for run metrics")
	flags.Bool("skip-install", false, "Do not download the Playwright driver and browsers")

	versionCmd.Flags().Bool("json", false, "Print version information as JSON")
	watchCmd.Flags().String("schedule", config.DefaultSchedule, "Cron schedule or descriptor for watch mode")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(versionCmd)
}

// flagKeys maps CLI flags onto config keys.
var flagKeys = map[string]string{
	"url":               "base_url",
	"headless":          "headless",
	"nav-timeout":       "nav_timeout",
	"page-load-timeout": "page_load_timeout",
	"extended":          "extended",
	"screenshots":       "screenshots",
	"screenshots-dir":   "screenshot_dir",
	"report-format":     "report.format",
	"report-path":       "report.path",
	"pushgateway":       "metrics.pushgateway_url",
	"skip-install":      "skip_install",
	"schedule":          "watch.schedule",
}

func loadConfig(cmd *cobra.Command) (config.Config, *viper.Viper, error) {
	v, err := config.NewViper(configFileFlag)
	if err != nil {
		return config.Config{}, nil, err
	}
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, v, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := harness.New(cfg, browser.NewPlaywright(cfg.SkipInstall))
	res, runErr := h.Run(ctx, harness.ChecksFor(cfg.Extended))

	if cfg.Metrics.PushgatewayURL != "" {
		rec := metrics.NewRecorder()
		rec.Observe(res, runErr)
		if err := rec.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.BaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	summary := report.Generate(res)
	if cfg.Report.Path != "" {
		if err := report.Save(cfg.Report.Path, cfg.Report.Format, summary); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Printf("📄 Report written to %s\n", cfg.Report.Path)
		if cfg.Report.Format != "text" {
			if err := report.WriteText(os.Stdout, summary); err != nil {
				return err
			}
		}
	} else if err := report.Write(os.Stdout, cfg.Report.Format, summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errChecksFailed, summary.Failed, summary.TotalChecks)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store := config.NewStore(cfg)
	store.Watch(v)

	task := tasks.NewSmokeTask(store.Get, browser.NewPlaywright(cfg.SkipInstall), metrics.NewRecorder())
	registry := runner.NewTaskRegistry()
	registry.Register(task)
	r := runner.NewRunner(registry)

	store.OnChange(func(old, cur config.Config) {
		if old.Watch.Schedule == cur.Watch.Schedule {
			return
		}
		if err := r.Reschedule(tasks.TaskName); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		}
	})

	ctx, cancel := signalContext()
	defer cancel()

	err = r.Start(ctx, true)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runListChecks(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("Target: %s\n", cfg.BaseURL)
	for _, c := range harness.SortChecks(harness.ChecksFor(cfg.Extended)) {
		target := cfg.URLFor(c.Path)
		fmt.Printf("%2d. %s\n    expects: %s\n    url:     %s\n", c.Priority, c.Description, c.Expectation, target)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
