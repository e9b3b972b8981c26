package sitrapesca

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

// ciFlags returns Chrome switches needed on CI runners.
func ciFlags() map[string]interface{} {
	if os.Getenv("CI") != "true" {
		return nil
	}
	return map[string]interface{}{
		"no-first-run":         true,
		"disable-default-apps": true,
	}
}

// newTestConfig points a fast configuration at the fixture portal.
func newTestConfig(t *testing.T, portal *fixturePortal) Config {
	t.Helper()
	cfg := DefaultConfig()
	if portal != nil {
		cfg.PortalURL = portal.portalURL()
	}
	cfg.OutputDir = t.TempDir()
	dates, err := NewDateRange("25/04/2025 00:00", "25/04/2025 13:05", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	cfg.DateRange = dates
	cfg.KeystrokeDelay = 5 * time.Millisecond
	cfg.Dwell = 3 * time.Second
	cfg.Timeouts = Timeouts{
		Navigate:    30 * time.Second,
		Landing:     10 * time.Second,
		Field:       5 * time.Second,
		LoginHidden: 5 * time.Second,
		Panel:       5 * time.Second,
		Navbar:      10 * time.Second,
		Menu:        5 * time.Second,
		URL:         10 * time.Second,
		Control:     5 * time.Second,
	}
	cfg.ExtraFlags = ciFlags()
	return cfg
}

// startTestBrowser skips the test when Chrome cannot be started here.
func startTestBrowser(t *testing.T, cfg Config, log Logger) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Chrome tests in short mode")
	}
	b, err := NewBrowser(context.Background(), cfg.browserOptions(log))
	if err != nil {
		t.Skipf("Chrome not available: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

// newTestWorkflow opens path of the fixture portal in a fresh browser.
func newTestWorkflow(t *testing.T, portal *fixturePortal, cfg Config, path string) (*workflow, *BufferedLogger) {
	t.Helper()
	log := &BufferedLogger{}
	b := startTestBrowser(t, cfg, log)
	if path != "" {
		if err := chromedp.Run(b.Ctx, chromedp.Navigate(portal.URL+path)); err != nil {
			t.Fatalf("Navigate(%v) error: %v", path, err)
		}
	}
	return &workflow{ctx: b.Ctx, cfg: cfg, log: log}, log
}

// sampleAccount is the company used throughout the tests.
var sampleAccount = Account{
	Name:      "Pesquera Alfa",
	CompanyID: "20380336384",
	UserID:    "21814871",
	Secret:    "alfa-s3cret&",
	Panel:     7,
}
