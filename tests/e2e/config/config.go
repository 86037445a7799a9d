package config

import (
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	smoke "github.com/techblog-io/blog-smoke/internal/config"
)

// GetConfig returns the suite configuration for end-to-end runs, with the
// page-load timeout optionally overridden through E2E_NAV_TIMEOUT.
func GetConfig() smoke.Config {
	cfg := smoke.FromEnv()
	if raw := os.Getenv("E2E_NAV_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.PageLoadTimeout = d
		} else {
			log.Printf("[e2e-config] ignoring E2E_NAV_TIMEOUT=%q: %v", raw, err)
		}
	}
	return cfg
}

// LiveTarget reports whether APP_URL was set explicitly, so the live suite
// does not hit the default deployment from a developer laptop by accident.
func LiveTarget() bool {
	return strings.TrimSpace(os.Getenv("APP_URL")) != ""
}

// SkipBrowser reports whether browser tests were disabled for this run.
func SkipBrowser() bool {
	return os.Getenv("SKIP_BROWSER") == "true"
}

// Reachable probes base with a TCP dial followed by a GET of the root page.
func Reachable(base string) bool {
	u, err := url.Parse(base)
	if err != nil {
		return false
	}
	host := u.Host
	if !strings.Contains(host, ":") {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	d := net.Dialer{Timeout: 500 * time.Millisecond}
	conn, err := d.Dial("tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
