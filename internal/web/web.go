// Package web renders the dashboard's HTML views from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// View names.
const (
	ViewInventory = "inventory"
	ViewSell      = "sell"
	ViewDashboard = "dashboard"
	ViewSales     = "sales"
)

var headings = map[string]string{
	ViewInventory: "Inventory Management",
	ViewSell:      "Sell Merchandise",
	ViewDashboard: "📈 Business Insights",
	ViewSales:     "📄 Sales Transaction History",
}

// Notice levels.
const (
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a message shown above a view's content.
type Notice struct {
	Level   string
	Message string
}

// Success, Warning and Error build notices of the matching level.
func Success(format string, args ...any) Notice {
	return Notice{Level: LevelSuccess, Message: fmt.Sprintf(format, args...)}
}

func Warning(format string, args ...any) Notice {
	return Notice{Level: LevelWarning, Message: fmt.Sprintf(format, args...)}
}

func Error(format string, args ...any) Notice {
	return Notice{Level: LevelError, Message: fmt.Sprintf(format, args...)}
}

// Page is the data passed to the layout template.
type Page struct {
	Title   string
	Heading string
	Active  string
	Notices []Notice
	Data    any
}

// Renderer executes a view inside the shared layout.
type Renderer struct {
	title string
	views map[string]*template.Template
}

// NewRenderer parses every view once.
func NewRenderer(title string) (*Renderer, error) {
	r := &Renderer{title: title, views: make(map[string]*template.Template, len(headings))}
	for view := range headings {
		tmpl, err := template.New(view).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+view+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", view, err)
		}
		r.views[view] = tmpl
	}
	return r, nil
}

// Render writes view with the given status. The view is executed into a
// buffer first so a template error never leaves a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, view string, notices []Notice, data any) error {
	tmpl, ok := r.views[view]
	if !ok {
		return fmt.Errorf("unknown view %q", view)
	}

	page := Page{
		Title:   r.title,
		Heading: headings[view],
		Active:  view,
		Notices: notices,
		Data:    data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render view %s: %w", view, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

var funcs = template.FuncMap{
	"money":      FormatMoney,
	"moneyPlain": formatAmount,
	"percent":    percent,
	"datetime":   formatTime,
}

// FormatMoney renders an amount as "$1,234.56".
func FormatMoney(d decimal.Decimal) string {
	return "$" + formatAmount(d)
}

// formatAmount renders an amount with two decimals and thousands separators.
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}

func percent(value, max int) int {
	if max <= 0 || value <= 0 {
		return 0
	}
	return value * 100 / max
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
