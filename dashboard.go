package sitrapesca

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// countTiles returns how many elements of html match tileSelector.
func countTiles(html string, tileSelector string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}
	return doc.Find(tileSelector).Length(), nil
}

// dashboardTiles counts the tiles of the dashboard currently loaded, or
// returns -1 when the page could not be read.
func dashboardTiles(ctx context.Context, timeout time.Duration, tileSelector string) int {
	var html string
	if err := runBounded(ctx, timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return -1
	}
	n, err := countTiles(html, tileSelector)
	if err != nil {
		return -1
	}
	return n
}
