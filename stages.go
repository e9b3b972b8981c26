package sitrapesca

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// workflow drives one browser through the report download, stage by stage.
type workflow struct {
	ctx context.Context // browser context
	cfg Config
	log Logger
}

func (w *workflow) run(timeout time.Duration, actions ...chromedp.Action) error {
	return runBounded(w.ctx, timeout, actions...)
}

func (w *workflow) click(sel Selector) chromedp.Action {
	return clickAction(w.cfg.ClickStyle, sel)
}

func (w *workflow) typeText(sel Selector, text string) chromedp.Action {
	return typeAction(w.cfg.TypingStyle, w.cfg.KeystrokeDelay, sel, text)
}

// login opens the portal, selects the enterprise login and submits the
// three credentials, pressing Enter after each one.
func (w *workflow) login(account Account) error {
	s := w.cfg.Selectors

	if err := w.run(w.cfg.Timeouts.Navigate, chromedp.Navigate(w.cfg.PortalURL)); err != nil {
		return fmt.Errorf("open %v: %w", w.cfg.PortalURL, err)
	}
	if err := w.run(w.cfg.Timeouts.Landing, waitPresent(s.LoginMode), selectOption(s.LoginMode, s.LoginModeValue)); err != nil {
		return fmt.Errorf("login mode: %w", err)
	}

	values := [3]string{account.CompanyID, account.UserID, account.Secret}
	names := [3]string{"company id", "user id", "secret"}
	for i, field := range s.LoginFields {
		err := w.run(w.cfg.Timeouts.Field,
			waitVisible(field),
			w.typeText(field, values[i]),
			chromedp.KeyEvent(kb.Enter),
		)
		if err != nil {
			return fmt.Errorf("%v field: %w", names[i], err)
		}
	}

	// the form sometimes stays in the DOM after a successful login
	err := bestEffort(w.log, "login form still visible", func() error {
		return pollUntil(w.ctx, w.cfg.Timeouts.LoginHidden, func(ctx context.Context) (bool, error) {
			var hidden bool
			err := chromedp.Run(ctx, isHidden(s.LoginForm, &hidden))
			return hidden, err
		})
	})
	if err != nil {
		return err
	}

	err = bestEffort(w.log, "no post-login dialog", func() error {
		return w.run(w.cfg.Timeouts.Control, scriptClick(CSS(s.ModalConfirm)))
	})
	if err != nil {
		return err
	}

	w.log.Printf("login complete")
	return nil
}

// openPanel opens the dashboard tile at the 1-based index.
func (w *workflow) openPanel(index int) error {
	s := w.cfg.Selectors
	tile := s.panelTile(index)

	if err := w.run(w.cfg.Timeouts.Panel, waitPresent(tile)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return PanelNotFoundError{
				Index:     index,
				Available: dashboardTiles(w.ctx, w.cfg.Timeouts.Control, s.PanelTiles),
				Err:       err,
			}
		}
		return err
	}
	if err := w.run(w.cfg.Timeouts.Control, w.click(tile)); err != nil {
		return fmt.Errorf("click panel #%d: %w", index, err)
	}
	w.log.Printf("panel #%d opened", index)
	return nil
}

// openReport walks the application's navbar to the report screen.
func (w *workflow) openReport() error {
	s := w.cfg.Selectors

	if err := w.run(w.cfg.Timeouts.Navbar, waitPresent(s.NavbarReady)); err != nil {
		return fmt.Errorf("navbar: %w", err)
	}
	if err := w.run(w.cfg.Timeouts.Menu, waitVisible(s.Dropdown), w.click(s.Dropdown)); err != nil {
		return fmt.Errorf("dropdown: %w", err)
	}
	entry := s.menuEntry()
	if err := w.run(w.cfg.Timeouts.Menu, waitVisible(entry), w.click(entry)); err != nil {
		return fmt.Errorf("menu %q: %w", s.MenuText, err)
	}

	var location string
	err := pollUntil(w.ctx, w.cfg.Timeouts.URL, func(ctx context.Context) (bool, error) {
		if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil {
			return false, err
		}
		return strings.Contains(location, s.ReportURLPart), nil
	})
	if err != nil {
		return fmt.Errorf("url never contained %q (at %v): %w", s.ReportURLPart, location, err)
	}
	return nil
}

// configureReport ticks the three listings and the CSV format. Controls
// already selected are left alone; the number of clicks is returned.
func (w *workflow) configureReport() (int, error) {
	s := w.cfg.Selectors
	controls := []Selector{s.Checkboxes[0], s.Checkboxes[1], s.Checkboxes[2], s.FormatRadio}

	clicks := 0
	for _, sel := range controls {
		var checked bool
		if err := w.run(w.cfg.Timeouts.Control, waitPresent(sel), isChecked(sel, &checked)); err != nil {
			return clicks, fmt.Errorf("%v: %w", sel, err)
		}
		if checked {
			continue
		}
		if err := w.run(w.cfg.Timeouts.Control, w.click(sel)); err != nil {
			return clicks, fmt.Errorf("%v: %w", sel, err)
		}
		clicks++
	}
	return clicks, nil
}

// setDateRange types both ends of the range. The values are not read back.
func (w *workflow) setDateRange(r DateRange) error {
	s := w.cfg.Selectors
	fields := []struct {
		sel  Selector
		text string
	}{
		{s.StartDate, r.StartText()},
		{s.EndDate, r.EndText()},
	}
	for _, f := range fields {
		err := w.run(w.cfg.Timeouts.Control,
			waitPresent(f.sel),
			chromedp.SetValue(f.sel.Expr, "", queryBy(f.sel)),
			w.typeText(f.sel, f.text),
			// value bindings only pick the text up on change, which fires on blur
			chromedp.Blur(f.sel.Expr, queryBy(f.sel)),
		)
		if err != nil {
			return fmt.Errorf("%v: %w", f.sel, err)
		}
	}
	w.log.Printf("downloading between %v and %v", r.StartText(), r.EndText())
	return nil
}

// generateReport requests the report and dwells while the browser saves it.
// The files that appeared since before are returned for the log; an empty
// result is not an error.
func (w *workflow) generateReport(before dirSnapshot) ([]Download, error) {
	s := w.cfg.Selectors

	if err := w.run(w.cfg.Timeouts.Control, waitVisible(s.Generate), w.click(s.Generate)); err != nil {
		return nil, fmt.Errorf("generate button: %w", err)
	}
	if w.cfg.Dwell > 0 {
		w.log.Printf("waiting %v for the download", w.cfg.Dwell)
		if err := chromedp.Run(w.ctx, chromedp.Sleep(w.cfg.Dwell)); err != nil {
			return nil, err
		}
	}

	downloads, err := newDownloads(w.cfg.OutputDir, before)
	if err != nil {
		w.log.Printf("couldn't list %v: %v", w.cfg.OutputDir, err)
		return nil, nil
	}
	if len(downloads) == 0 {
		w.log.Printf("no new file in %v yet", w.cfg.OutputDir)
	}
	for _, d := range downloads {
		switch {
		case d.Partial:
			w.log.Printf("still downloading: %v (%d bytes so far)", d.Name, d.Size)
		case d.Columns > 0:
			w.log.Printf("downloaded %v (%d bytes, %d columns)", d.Name, d.Size, d.Columns)
		default:
			w.log.Printf("downloaded %v (%d bytes)", d.Name, d.Size)
		}
	}
	return downloads, nil
}
