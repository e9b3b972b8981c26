package sitrapesca

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DateLayout is how the report screen expects timestamps: day/month/year hour:minute.
	DateLayout = "02/01/2006 15:04"
	// DefaultStart is the first timestamp requested when no start is configured.
	DefaultStart = "25/04/2025 00:00"

	DefaultPortalURL = "https://sistemas.produce.gob.pe/#/administrados"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome Safari"
	DefaultLocale    = "es-PE"
	DefaultOutputDir = "./downloads"

	// DefaultDwell is how long to wait after requesting the report. Nothing
	// signals completion, so the file is assumed to be written by then.
	DefaultDwell = 25 * time.Second

	DefaultKeystrokeDelay = 50 * time.Millisecond
)

// Account is one company whose report is downloaded.
type Account struct {
	Name      string
	CompanyID string // RUC, first login field
	UserID    string // user document, second login field
	Secret    string
	Panel     int // 1-based position of the SITRAPESCA tile on the dashboard
}

// DefaultAccounts are the companies downloaded when none is configured.
// Secrets are never defaulted and must be supplied for each of them.
func DefaultAccounts() []Account {
	return []Account{
		{Name: "20380336384", CompanyID: "20380336384", UserID: "21814871", Panel: 7},
		{Name: "20538051081", CompanyID: "20538051081", UserID: "40621802", Panel: 8},
		{Name: "20278966004", CompanyID: "20278966004", UserID: "32957283", Panel: 9},
	}
}

// String never includes the secret.
func (account Account) String() string {
	if account.Name != "" {
		return account.Name
	}
	return fmt.Sprintf("%v/%v", account.CompanyID, account.UserID)
}

func (account Account) Validate() error {
	switch {
	case strings.TrimSpace(account.CompanyID) == "":
		return ConfigError{account.String() + ".company_id", "must not be empty"}
	case strings.TrimSpace(account.UserID) == "":
		return ConfigError{account.String() + ".user_id", "must not be empty"}
	case account.Secret == "":
		return ConfigError{account.String() + ".secret", "must not be empty"}
	case account.Panel < 1:
		return ConfigError{account.String() + ".panel", fmt.Sprintf("must be >= 1, got %d", account.Panel)}
	}
	return nil
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses start and end in DateLayout. An empty start means
// DefaultStart, an empty end means now.
func NewDateRange(start, end string, now time.Time) (DateRange, error) {
	if start == "" {
		start = DefaultStart
	}
	s, err := time.ParseInLocation(DateLayout, start, now.Location())
	if err != nil {
		return DateRange{}, ConfigError{"start", err.Error()}
	}

	e := now.Truncate(time.Minute)
	if end != "" {
		e, err = time.ParseInLocation(DateLayout, end, now.Location())
		if err != nil {
			return DateRange{}, ConfigError{"end", err.Error()}
		}
	}
	if e.Before(s) {
		return DateRange{}, ConfigError{"end", fmt.Sprintf("%v is before start %v", e.Format(DateLayout), s.Format(DateLayout))}
	}
	return DateRange{Start: s, End: e}, nil
}

func (r DateRange) StartText() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndText() string   { return r.End.Format(DateLayout) }

// Timeouts bound each wait of the workflow.
type Timeouts struct {
	Navigate    time.Duration // initial page load
	Landing     time.Duration // login page first appears
	Field       time.Duration // each login input
	LoginHidden time.Duration // login form disappears (best effort)
	Panel       time.Duration // dashboard tile
	Navbar      time.Duration // application page loaded
	Menu        time.Duration // dropdown and menu entry
	URL         time.Duration // report screen URL
	Control     time.Duration // report screen controls
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigate:    60 * time.Second,
		Landing:     15 * time.Second,
		Field:       10 * time.Second,
		LoginHidden: 30 * time.Second,
		Panel:       30 * time.Second,
		Navbar:      20 * time.Second,
		Menu:        15 * time.Second,
		URL:         10 * time.Second,
		Control:     10 * time.Second,
	}
}

// validate rejects a timeout left at zero, which would make its wait unbounded.
func (t Timeouts) validate() error {
	named := []struct {
		name string
		d    time.Duration
	}{
		{"navigate", t.Navigate},
		{"landing", t.Landing},
		{"field", t.Field},
		{"login_hidden", t.LoginHidden},
		{"panel", t.Panel},
		{"navbar", t.Navbar},
		{"menu", t.Menu},
		{"url", t.URL},
		{"control", t.Control},
	}
	for _, n := range named {
		if n.d <= 0 {
			return ConfigError{"timeouts." + n.name, fmt.Sprintf("must be positive, got %v", n.d)}
		}
	}
	return nil
}

// Config is built once at startup and shared read-only by every account run.
type Config struct {
	PortalURL      string
	OutputDir      string
	DateRange      DateRange
	Headless       bool
	UserAgent      string
	Locale         string
	WindowWidth    int
	WindowHeight   int
	ClickStyle     ClickStyle
	TypingStyle    TypingStyle
	KeystrokeDelay time.Duration
	Timeouts       Timeouts
	Dwell          time.Duration
	Selectors      Selectors
	ExtraFlags     map[string]interface{} // additional Chrome switches
	Debug          bool                   // route chromedp protocol traffic to the logger
}

func DefaultConfig() Config {
	return Config{
		PortalURL:      DefaultPortalURL,
		OutputDir:      DefaultOutputDir,
		Headless:       true,
		UserAgent:      DefaultUserAgent,
		Locale:         DefaultLocale,
		WindowWidth:    1920,
		WindowHeight:   1080,
		ClickStyle:     ClickScript,
		TypingStyle:    TypePerChar,
		KeystrokeDelay: DefaultKeystrokeDelay,
		Timeouts:       DefaultTimeouts(),
		Dwell:          DefaultDwell,
		Selectors:      DefaultSelectors(),
	}
}

// Validate checks the configuration and makes OutputDir absolute.
func (cfg Config) Validate() (Config, error) {
	if cfg.PortalURL == "" {
		return cfg, ConfigError{"portal_url", "must not be empty"}
	}
	if cfg.OutputDir == "" {
		return cfg, ConfigError{"output_dir", "must not be empty"}
	}
	abs, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return cfg, ConfigError{"output_dir", err.Error()}
	}
	cfg.OutputDir = abs
	if cfg.DateRange.Start.IsZero() || cfg.DateRange.End.IsZero() {
		return cfg, ConfigError{"date_range", "start and end are required"}
	}
	if _, err := acceptLanguage(cfg.Locale); err != nil {
		return cfg, ConfigError{"locale", err.Error()}
	}
	if err := cfg.Timeouts.validate(); err != nil {
		return cfg, err
	}
	if cfg.Dwell < 0 {
		return cfg, ConfigError{"dwell", "must not be negative"}
	}
	return cfg, nil
}
