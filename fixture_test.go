package sitrapesca

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fixtureOptions shape the fake portal served to the browser tests.
type fixtureOptions struct {
	Account    Account // credentials the login form accepts
	Tiles      int     // dashboard tiles rendered after login
	StuckLogin bool    // keep the login form visible after a successful login
	Modal      bool    // show a dialog after login
}

// fixturePortal reproduces the parts of the portal DOM the workflow relies
// on, and records what the browser did.
type fixturePortal struct {
	*httptest.Server
	opts fixtureOptions

	mu          sync.Mutex
	tileVisits  []string
	reportVisit int
	modalClosed int
	reports     []url.Values
}

func newFixturePortal(t *testing.T, opts fixtureOptions) *fixturePortal {
	t.Helper()
	p := &fixturePortal{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/", p.serveLanding)
	mux.HandleFunc("/modal-closed", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.modalClosed++
		p.mu.Unlock()
	})
	mux.HandleFunc("/app", p.serveApp)
	mux.HandleFunc("/FaenasCalas", p.serveReportScreen)
	mux.HandleFunc("/report", p.serveReport)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func (p *fixturePortal) portalURL() string {
	return p.URL + "/#/administrados"
}

func (p *fixturePortal) Reports() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.reports...)
}

func (p *fixturePortal) TileVisits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.tileVisits...)
}

func (p *fixturePortal) ReportScreenVisits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reportVisit
}

func (p *fixturePortal) ModalClosed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modalClosed
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, html)
}

const landingHTML = `<html><head><title>PRODUCE</title></head><body>
<div>
 <div>
  <div>
   <div>
    <div>
     <form id="login" onsubmit="return false">
      <select><option value="1">Persona natural</option><option value="2">Empresa</option></select>
      <div><label>RUC</label></div>
      <div><input name="company"></div>
      <div><label>Usuario</label></div>
      <div><input name="user"></div>
      <div><label>Clave</label></div>
      <div><input name="secret" type="password"></div>
      <p id="error"></p>
     </form>
    </div>
   </div>
  </div>
  <div id="ng-view"><div><div><div class="row"></div></div></div></div>
 </div>
</div>
<script>
(function() {
  const expected = {company: {{COMPANY}}, user: {{USER}}, secret: {{SECRET}}};
  const tiles = {{TILES}};
  const stuck = {{STUCK}};
  const modal = {{MODAL}};
  const form = document.getElementById('login');
  const showModal = function() {
    const dialog = document.createElement('div');
    dialog.className = 'modal-dialog';
    dialog.innerHTML = '<button class="btn btn-primary">Aceptar</button>';
    dialog.querySelector('.btn-primary').addEventListener('click', function() {
      dialog.remove();
      fetch('/modal-closed');
    });
    document.body.appendChild(dialog);
  };
  form.querySelector('input[name=secret]').addEventListener('keydown', function(ev) {
    if (ev.key !== 'Enter') return;
    const ok = form.querySelector('select').value === '2' &&
      form.querySelector('input[name=company]').value === expected.company &&
      form.querySelector('input[name=user]').value === expected.user &&
      form.querySelector('input[name=secret]').value === expected.secret;
    if (!ok) {
      document.getElementById('error').textContent = 'Credenciales incorrectas';
      return;
    }
    if (!stuck) form.style.display = 'none';
    let html = '';
    for (let i = 1; i <= tiles; i++) {
      html += '<div class="col"><div class="tile"><a href="/app?tile=' + i + '">Sistema ' + i + '</a></div></div>';
    }
    document.querySelector('#ng-view .row').innerHTML = html;
    if (modal) showModal();
  });
})();
</script>
</body></html>`

func (p *fixturePortal) serveLanding(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	html := strings.NewReplacer(
		"{{COMPANY}}", jsString(p.opts.Account.CompanyID),
		"{{USER}}", jsString(p.opts.Account.UserID),
		"{{SECRET}}", jsString(p.opts.Account.Secret),
		"{{TILES}}", strconv.Itoa(p.opts.Tiles),
		"{{STUCK}}", strconv.FormatBool(p.opts.StuckLogin),
		"{{MODAL}}", strconv.FormatBool(p.opts.Modal),
	).Replace(landingHTML)
	writeHTML(w, html)
}

const appHTML = `<html><head><title>SITRAPESCA</title></head><body>
<div>
 <div>
  <nav>
   <div>
    <div><span>SITRAPESCA</span></div>
    <div>
     <ul class="nav navbar-nav">
      <li class="dropdown"><a href="#">Embarcaciones</a><ul class="dropdown-menu" style="display:none"><li><a href="/Embarcaciones">Listado</a></li></ul></li>
      <li class="dropdown"><a href="#">Zarpes</a><ul class="dropdown-menu" style="display:none"><li><a href="/Zarpes">Zarpes</a></li></ul></li>
      <li class="dropdown"><a href="#">Arribos</a><ul class="dropdown-menu" style="display:none"><li><a href="/Arribos">Arribos</a></li></ul></li>
      <li class="dropdown"><a href="#">Descargas</a><ul class="dropdown-menu" style="display:none"><li><a href="/Descargas">Descargas</a></li></ul></li>
      <li class="dropdown"><a href="#">Alertas</a><ul class="dropdown-menu" style="display:none"><li><a href="/Alertas">Alertas</a></li></ul></li>
      <li class="dropdown"><a href="#">Reportes</a><ul class="dropdown-menu" style="display:none"><li><a href="/Faenas">Faenas</a></li><li><a href="/FaenasCalas">Faenas y Calas</a></li></ul></li>
      <li><a href="/Ayuda">Ayuda</a></li>
      <li><a href="/Salir">Salir</a></li>
     </ul>
    </div>
   </div>
  </nav>
 </div>
</div>
<script>
document.querySelectorAll('li.dropdown > a').forEach(function(a) {
  a.addEventListener('click', function(ev) {
    ev.preventDefault();
    const menu = a.parentElement.querySelector('.dropdown-menu');
    menu.style.display = menu.style.display === 'none' ? 'block' : 'none';
  });
});
</script>
</body></html>`

func (p *fixturePortal) serveApp(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.tileVisits = append(p.tileVisits, r.URL.Query().Get("tile"))
	p.mu.Unlock()
	writeHTML(w, appHTML)
}

const reportScreenHTML = `<html><head><title>Faenas y Calas</title></head><body>
<form onsubmit="return false">
 <label><input type="checkbox" data-bind="checked: Model.ListadoFaenas"> Listado de faenas</label>
 <label><input type="checkbox" data-bind="checked: Model.ListadoCalas"> Listado de calas</label>
 <label><input type="checkbox" data-bind="checked: Model.ListadoComposicionTallas"> Composición de tallas</label>
 <label><input type="radio" name="formato" id="radio1" value="2" data-bind="checked:Model.TipoFormato" checked> XLSX</label>
 <label><input type="radio" name="formato" id="radio2" value="1" data-bind="checked:Model.TipoFormato"> CSV</label>
 <input type="text" data-bind="value: Model.FechaInicio" value="01/01/2025 00:00">
 <input type="text" data-bind="value: Model.FechaFin" value="01/01/2025 23:59">
 <button type="button" data-bind="click: fnVerReporte">Ver reporte</button>
</form>
<script>
window.__clicks = {};
document.querySelectorAll('input[type=checkbox], input[type=radio]').forEach(function(el) {
  el.addEventListener('click', function() {
    const key = el.type === 'radio' ? el.id : el.getAttribute('data-bind');
    window.__clicks[key] = (window.__clicks[key] || 0) + 1;
  });
});
// like a knockout value binding, the model only follows an input on change
window.__model = {};
['FechaInicio', 'FechaFin'].forEach(function(field) {
  const el = document.querySelector("input[data-bind='value: Model." + field + "']");
  window.__model[field] = el.value;
  el.addEventListener('change', function() { window.__model[field] = el.value; });
});
document.querySelector("button[data-bind='click: fnVerReporte']").addEventListener('click', function() {
  const value = function(field) { return encodeURIComponent(window.__model[field]); };
  const format = document.querySelector('input[name=formato]:checked').value;
  window.location.href = '/report?start=' + value('FechaInicio') + '&end=' + value('FechaFin') + '&format=' + format;
});
</script>
</body></html>`

func (p *fixturePortal) serveReportScreen(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.reportVisit++
	p.mu.Unlock()
	writeHTML(w, reportScreenHTML)
}

// fixtureReportCSV is what the generate button downloads: UTF-8 with a BOM,
// semicolon separated.
const fixtureReportCSV = "\xef\xbb\xbfFecha;Embarcacion;Calas\n25/04/2025;DON LUCHO;3\n"

func (p *fixturePortal) serveReport(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.reports = append(p.reports, r.URL.Query())
	p.mu.Unlock()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=FaenasCalas.csv")
	_, _ = fmt.Fprint(w, fixtureReportCSV)
}
