package sitrapesca

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"golang.org/x/text/language"
)

type BrowserOptions struct {
	Headless     bool
	DownloadDir  string // must be absolute
	UserAgent    string
	Locale       string // BCP 47 tag, e.g. "es-PE"
	WindowWidth  int
	WindowHeight int
	ExtraFlags   map[string]interface{}
	Logger       Logger
	Debug        bool
}

// Browser is one Chrome instance dedicated to a single account.
type Browser struct {
	Ctx            context.Context
	DownloadDir    string
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	cancel         context.CancelFunc
}

func (cfg Config) browserOptions(log Logger) BrowserOptions {
	return BrowserOptions{
		Headless:     cfg.Headless,
		DownloadDir:  cfg.OutputDir,
		UserAgent:    cfg.UserAgent,
		Locale:       cfg.Locale,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
		ExtraFlags:   cfg.ExtraFlags,
		Logger:       log,
		Debug:        cfg.Debug,
	}
}

// NewBrowser starts Chrome with downloads redirected to options.DownloadDir.
// The returned Browser must be closed by the caller.
func NewBrowser(parent context.Context, options BrowserOptions) (*Browser, error) {
	if options.Logger == nil {
		options.Logger = ConsoleLogger{}
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultUserAgent
	}
	if options.Locale == "" {
		options.Locale = DefaultLocale
	}
	if options.WindowWidth == 0 || options.WindowHeight == 0 {
		options.WindowWidth, options.WindowHeight = 1920, 1080
	}
	acceptLang, err := acceptLanguage(options.Locale)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(options.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("couldn't create directory %v: %w", options.DownloadDir, err)
	}

	allocOptions := chromedp.DefaultExecAllocatorOptions[:]
	for name, value := range chromeFlags(options) {
		allocOptions = append(allocOptions, chromedp.Flag(name, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOptions...)

	contextOptions := []chromedp.ContextOption{
		chromedp.WithLogf(options.Logger.Printf),
		chromedp.WithErrorf(options.Logger.Printf),
	}
	if options.Debug {
		contextOptions = append(contextOptions, chromedp.WithDebugf(options.Logger.Printf))
	}
	ctx, cancel := chromedp.NewContext(allocCtx, contextOptions...)

	b := &Browser{
		Ctx:            ctx,
		DownloadDir:    options.DownloadDir,
		Headless:       options.Headless,
		UserAgent:      options.UserAgent,
		AcceptLanguage: acceptLang,
		cancel: func() {
			cancel()
			allocCancel()
		},
	}

	// the first Run launches the browser
	err = chromedp.Run(ctx,
		b.setDownloadBehavior(),
		emulation.SetUserAgentOverride(options.UserAgent).WithAcceptLanguage(acceptLang),
		emulation.SetLocaleOverride().WithLocale(icuLocale(options.Locale)),
	)
	if err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// chromeFlags lists the switches set on top of chromedp's defaults, which
// include headless mode. A false value removes a switch.
func chromeFlags(options BrowserOptions) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":              options.Headless,
		"no-sandbox":            true,
		"disable-gpu":           true,
		"disable-dev-shm-usage": true,
		"disable-notifications": true,
		"disable-extensions":    true,
		"window-size":           fmt.Sprintf("%d,%d", options.WindowWidth, options.WindowHeight),
		"user-agent":            options.UserAgent,
		"lang":                  options.Locale,
	}
	if options.Headless {
		// keep whichever headless mode chromedp defaults to
		delete(flags, "headless")
	}
	for name, value := range options.ExtraFlags {
		flags[name] = value
	}
	return flags
}

// setDownloadBehavior pre-authorizes saves into DownloadDir; headless Chrome
// silently drops downloads otherwise.
func (b *Browser) setDownloadBehavior() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(b.DownloadDir).
			Do(cdp.WithExecutor(ctx, c.Browser))
	})
}

func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// acceptLanguage builds the Accept-Language value for a locale,
// "es-PE" becoming "es-PE,es;q=0.9".
func acceptLanguage(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("locale %q: %w", locale, err)
	}
	base, _ := tag.Base()
	if tag.String() == base.String() {
		return tag.String(), nil
	}
	return fmt.Sprintf("%v,%v;q=0.9", tag, base), nil
}

// icuLocale converts a BCP 47 tag to the ICU form Chrome expects ("es_PE").
func icuLocale(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.ReplaceAll(locale, "-", "_")
	}
	base, _ := tag.Base()
	region, confidence := tag.Region()
	if confidence == language.No {
		return base.String()
	}
	return base.String() + "_" + region.String()
}
