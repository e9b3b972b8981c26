package sitrapesca

import (
	"fmt"
	"strings"
)

// Selector locates one element either by CSS query or by XPath.
type Selector struct {
	Expr  string
	XPath bool
}

func CSS(expr string) Selector   { return Selector{Expr: expr} }
func XPath(expr string) Selector { return Selector{Expr: expr, XPath: true} }

func (s Selector) String() string {
	return s.Expr
}

// Selectors are the DOM coordinates of the portal. Any structural change
// on the remote side has to be reflected here.
type Selectors struct {
	LoginMode      Selector
	LoginModeValue string // "2" is the enterprise login
	LoginFields    [3]Selector
	LoginForm      Selector
	ModalConfirm   string // CSS, clicked from script when present

	PanelTile     string // CSS with one %d verb for the 1-based tile position
	PanelTiles    string // CSS matching every tile, used to describe the dashboard
	NavbarReady   Selector
	Dropdown      Selector
	MenuText      string
	ReportURLPart string

	Checkboxes  [3]Selector
	FormatRadio Selector
	StartDate   Selector
	EndDate     Selector
	Generate    Selector
}

func DefaultSelectors() Selectors {
	const form = "/html/body/div[1]/div/div[1]/div/div/form"
	return Selectors{
		LoginMode:      XPath(form + "/select"),
		LoginModeValue: "2",
		LoginFields: [3]Selector{
			XPath(form + "/div[2]/input"),
			XPath(form + "/div[4]/input"),
			XPath(form + "/div[6]/input"),
		},
		LoginForm:    XPath(form),
		ModalConfirm: ".modal-dialog .btn-primary",

		PanelTile:     "#ng-view > div > div > div.row > div:nth-child(%d) > div > a",
		PanelTiles:    "#ng-view > div > div > div.row > div",
		NavbarReady:   XPath("/html/body/div/div[1]/nav/div/div[2]/ul[1]/li[8]/a"),
		Dropdown:      XPath("(//ul[@class='nav navbar-nav']/li[contains(@class, 'dropdown')])[6]/a"),
		MenuText:      "Faenas y Calas",
		ReportURLPart: "FaenasCalas",

		Checkboxes: [3]Selector{
			CSS("input[type='checkbox'][data-bind='checked: Model.ListadoFaenas']"),
			CSS("input[type='checkbox'][data-bind='checked: Model.ListadoCalas']"),
			CSS("input[type='checkbox'][data-bind='checked: Model.ListadoComposicionTallas']"),
		},
		FormatRadio: XPath("//input[@type='radio' and @id='radio2' and @value='1' and @data-bind='checked:Model.TipoFormato']"),
		StartDate:   CSS("input[data-bind='value: Model.FechaInicio']"),
		EndDate:     CSS("input[data-bind='value: Model.FechaFin']"),
		Generate:    CSS("button[data-bind='click: fnVerReporte']"),
	}
}

func (s Selectors) panelTile(index int) Selector {
	return CSS(fmt.Sprintf(s.PanelTile, index))
}

// menuEntry matches an anchor by its exact visible text.
func (s Selectors) menuEntry() Selector {
	return XPath(fmt.Sprintf("//a[normalize-space(.)=%v]", xpathLiteral(s.MenuText)))
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
