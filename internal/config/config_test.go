package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveBaseURL(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name:     "APP_URL set",
			env:      map[string]string{"APP_URL": "https://example.com"},
			expected: "https://example.com",
		},
		{
			name:     "APP_URL unset",
			env:      map[string]string{},
			expected: DefaultBaseURL,
		},
		{
			name:     "APP_URL empty",
			env:      map[string]string{"APP_URL": ""},
			expected: "http://35.153.144.16:8081",
		},
		{
			name:     "APP_URL blank",
			env:      map[string]string{"APP_URL": "   "},
			expected: DefaultBaseURL,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveBaseURL(envMap(tc.env)))
			assert.Equal(t, tc.expected, Resolve(envMap(tc.env)).BaseURL)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Resolve(envMap(nil))

		assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
		assert.True(t, cfg.Headless)
		assert.Equal(t, WindowSize{Width: 1920, Height: 1080}, cfg.WindowSize)
		assert.Equal(t, 10*time.Second, cfg.NavTimeout)
		assert.Equal(t, 60*time.Second, cfg.PageLoadTimeout)
		assert.False(t, cfg.Screenshots)
		assert.False(t, cfg.Extended)
		assert.False(t, cfg.SkipInstall)
		assert.Equal(t, "text", cfg.Report.Format)
		assert.Equal(t, DefaultSchedule, cfg.Watch.Schedule)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := Resolve(envMap(map[string]string{
			"APP_URL":                 "http://localhost:8081",
			"HEADLESS":                "false",
			"SCREENSHOTS":             "true",
			"SCREENSHOT_DIR":          "/tmp/shots",
			"SMOKE_EXTENDED":          "true",
			"PLAYWRIGHT_PREINSTALLED": "1",
		}))

		assert.Equal(t, "http://localhost:8081", cfg.BaseURL)
		assert.False(t, cfg.Headless)
		assert.True(t, cfg.Screenshots)
		assert.Equal(t, "/tmp/shots", cfg.ScreenshotDir)
		assert.True(t, cfg.Extended)
		assert.True(t, cfg.SkipInstall)
	})

	t.Run("is repeatable", func(t *testing.T) {
		env := envMap(map[string]string{"APP_URL": "https://example.com"})
		assert.Equal(t, Resolve(env), Resolve(env))
	})
}

func TestURLFor(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost:8081/"}

	assert.Equal(t, "http://localhost:8081/", cfg.URLFor(""))
	assert.Equal(t, "http://localhost:8081/sign-up", cfg.URLFor("/sign-up"))
	assert.Equal(t, "http://localhost:8081/sign-in", cfg.URLFor("sign-in"))
}

func TestValidate(t *testing.T) {
	t.Run("rejects bad values", func(t *testing.T) {
		testCases := []struct {
			name   string
			mutate func(*Config)
			errMsg string
		}{
			{"empty url", func(c *Config) { c.BaseURL = "" }, "base_url is not set"},
			{"relative url", func(c *Config) { c.BaseURL = "/just/a/path" }, "must use http or https"},
			{"no host", func(c *Config) { c.BaseURL = "http://" }, "has no host"},
			{"zero window", func(c *Config) { c.WindowSize.Width = 0 }, "window_size must be positive"},
			{"zero timeout", func(c *Config) { c.NavTimeout = 0 }, "nav_timeout must be positive"},
			{"bad format", func(c *Config) { c.Report.Format = "html" }, "report.format"},
			{"bad schedule", func(c *Config) { c.Watch.Schedule = "every now and then" }, "watch.schedule"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				cfg := Default()
				tc.mutate(&cfg)
				err := cfg.Validate()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			})
		}
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := Default()
		cfg.BaseURL = ""
		cfg.NavTimeout = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
		assert.Contains(t, err.Error(), "nav_timeout")
	})

	t.Run("accepts cron specs", func(t *testing.T) {
		for _, spec := range []string{"@every 5m", "*/5 * * * *", "0 */5 * * * *", "@hourly"} {
			cfg := Default()
			cfg.Watch.Schedule = spec
			assert.NoError(t, cfg.Validate(), spec)
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("APP_URL", "")
	t.Setenv("SMOKE_BASE_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://blog.internal:8081
nav_timeout: 5s
window_size:
  width: 800
  height: 600
report:
  format: junit
  path: out/report.xml
`), 0644))

	v, err := NewViper(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://blog.internal:8081", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.NavTimeout)
	assert.Equal(t, WindowSize{Width: 800, Height: 600}, cfg.WindowSize)
	assert.Equal(t, "junit", cfg.Report.Format)
	assert.Equal(t, "out/report.xml", cfg.Report.Path)
	assert.True(t, cfg.Headless)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://from-file:8081\n"), 0644))

	t.Setenv("APP_URL", "https://example.com")

	v, err := NewViper(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.BaseURL)
}

func TestLoadBlankAppURLFallsBackToDefault(t *testing.T) {
	t.Setenv("APP_URL", "   ")
	t.Setenv("SMOKE_BASE_URL", "")

	assert.Equal(t, DefaultBaseURL, Resolve(os.Getenv).BaseURL)

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadBlankAppURLKeepsFileValue(t *testing.T) {
	t.Setenv("APP_URL", "\t")
	t.Setenv("SMOKE_BASE_URL", "")

	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://from-file:8081\n"), 0644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8081", cfg.BaseURL)
}

func TestLoadPageLoadTimeout(t *testing.T) {
	t.Setenv("APP_URL", "")
	path := filepath.Join(t.TempDir(), "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_load_timeout: 90s\nnav_timeout: 5s\n"), 0644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 5*time.Second, cfg.NavTimeout)

	cfg.PageLoadTimeout = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_load_timeout must be positive")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("APP_URL", "")
	t.Setenv("SMOKE_BASE_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "smoke.yaml")
	require.NoError(t, os.WriteFile(path, []byte("report:\n  format: pdf\n"), 0644))

	v, err := NewViper(path)
	require.NoError(t, err)

	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMOKE_TEST_DOTENV_NEW=from-file\nSMOKE_TEST_DOTENV_SET=from-file\n"), 0644))

	t.Setenv("SMOKE_TEST_DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("SMOKE_TEST_DOTENV_NEW") })

	LoadDotEnv(path, filepath.Join(dir, "absent.env"))

	assert.Equal(t, "from-file", os.Getenv("SMOKE_TEST_DOTENV_NEW"))
	assert.Equal(t, "from-env", os.Getenv("SMOKE_TEST_DOTENV_SET"))
}

func TestStore(t *testing.T) {
	cfg := Default()
	s := NewStore(cfg)
	assert.Equal(t, cfg, s.Get())

	next := cfg
	next.BaseURL = "https://example.com"
	s.set(next)
	assert.Equal(t, "https://example.com", s.Get().BaseURL)
}

func TestStoreOnChange(t *testing.T) {
	s := NewStore(Default())

	var gotOld, gotCur []string
	s.OnChange(func(old, cur Config) {
		gotOld = append(gotOld, old.Watch.Schedule)
		gotCur = append(gotCur, cur.Watch.Schedule)
	})

	next := Default()
	next.Watch.Schedule = "*/10 * * * *"
	s.set(next)

	assert.Equal(t, []string{DefaultSchedule}, gotOld)
	assert.Equal(t, []string{"*/10 * * * *"}, gotCur)
	assert.Equal(t, "*/10 * * * *", s.Get().Watch.Schedule)
}
