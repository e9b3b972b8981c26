package sitrapesca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ClickStyle selects how elements are clicked.
type ClickStyle int

const (
	// ClickScript calls element.click() from JavaScript. It ignores
	// visibility and overlapping elements, which the portal has plenty of.
	ClickScript ClickStyle = iota
	// ClickDirect dispatches a real mouse click at the element's position.
	ClickDirect
)

func (c ClickStyle) String() string {
	switch c {
	case ClickScript:
		return "script"
	case ClickDirect:
		return "direct"
	}
	return fmt.Sprintf("ClickStyle(%d)", int(c))
}

func ParseClickStyle(s string) (ClickStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "script":
		return ClickScript, nil
	case "direct":
		return ClickDirect, nil
	}
	return 0, ConfigError{"click", fmt.Sprintf("unknown click style %q (want script or direct)", s)}
}

// TypingStyle selects how text reaches an input.
type TypingStyle int

const (
	// TypePerChar sends one key at a time with a pause in between, for
	// inputs whose masks react to every keystroke.
	TypePerChar TypingStyle = iota
	// TypeBulk sends the whole string in one go.
	TypeBulk
)

func (t TypingStyle) String() string {
	switch t {
	case TypePerChar:
		return "perchar"
	case TypeBulk:
		return "bulk"
	}
	return fmt.Sprintf("TypingStyle(%d)", int(t))
}

func ParseTypingStyle(s string) (TypingStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "perchar", "per-char":
		return TypePerChar, nil
	case "bulk":
		return TypeBulk, nil
	}
	return 0, ConfigError{"typing", fmt.Sprintf("unknown typing style %q (want perchar or bulk)", s)}
}

func queryBy(sel Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func waitPresent(sel Selector) chromedp.Action {
	return chromedp.WaitReady(sel.Expr, queryBy(sel))
}

func waitVisible(sel Selector) chromedp.Action {
	return chromedp.WaitVisible(sel.Expr, queryBy(sel))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// jsLookup is a JavaScript expression evaluating to the first element
// matching sel, or null.
func jsLookup(sel Selector) string {
	if sel.XPath {
		return fmt.Sprintf("document.evaluate(%v, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", jsString(sel.Expr))
	}
	return fmt.Sprintf("document.querySelector(%v)", jsString(sel.Expr))
}

// evalFound evaluates a script returning whether it found its element.
func evalFound(sel Selector, script string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var found bool
		if err := chromedp.Evaluate(script, &found).Do(ctx); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%v: %w", sel, ErrElementNotFound)
		}
		return nil
	})
}

func scriptClick(sel Selector) chromedp.Action {
	return evalFound(sel, fmt.Sprintf(`(function() {
	const el = %v;
	if (!el) return false;
	el.click();
	return true;
})()`, jsLookup(sel)))
}

// selectOption picks the option with value in a <select> and fires the
// change event so that data bindings notice.
func selectOption(sel Selector, value string) chromedp.Action {
	return evalFound(sel, fmt.Sprintf(`(function() {
	const el = %v;
	if (!el || !Array.from(el.options).some(o => o.value === %v)) return false;
	el.value = %v;
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, jsLookup(sel), jsString(value), jsString(value)))
}

func isChecked(sel Selector, checked *bool) chromedp.Action {
	return chromedp.JavascriptAttribute(sel.Expr, "checked", checked, queryBy(sel))
}

// isHidden reports true when sel matches nothing or a node without layout boxes.
func isHidden(sel Selector, hidden *bool) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`(function() {
	const el = %v;
	return !el || !(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`, jsLookup(sel)), hidden)
}

func clickAction(style ClickStyle, sel Selector) chromedp.Action {
	if style == ClickDirect {
		return chromedp.Click(sel.Expr, queryBy(sel), chromedp.NodeVisible)
	}
	return scriptClick(sel)
}

func typeAction(style TypingStyle, delay time.Duration, sel Selector, text string) chromedp.Action {
	if style == TypeBulk {
		return chromedp.SendKeys(sel.Expr, text, queryBy(sel))
	}
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Focus(sel.Expr, queryBy(sel)).Do(ctx); err != nil {
			return err
		}
		for i, r := range text {
			if i > 0 && delay > 0 {
				if err := chromedp.Sleep(delay).Do(ctx); err != nil {
					return err
				}
			}
			if err := chromedp.KeyEvent(string(r)).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// runBounded runs actions with their own deadline derived from ctx.
func runBounded(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

const pollInterval = 250 * time.Millisecond

// pollUntil evaluates check until it reports true or timeout elapses.
// Errors from check are kept and retried, since they are usually caused
// by a navigation in progress.
func pollUntil(ctx context.Context, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := check(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr != nil && !errors.Is(lastErr, ctx.Err()) {
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// isTolerable reports whether err means "not there in time", the only
// failures a best-effort step may swallow.
func isTolerable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrElementNotFound)
}

// bestEffort runs step and logs instead of failing when its element never
// showed up. Any other error is returned.
func bestEffort(log Logger, what string, step func() error) error {
	err := step()
	if err != nil && isTolerable(err) {
		log.Printf("%v: %v; continuing", what, err)
		return nil
	}
	return err
}
