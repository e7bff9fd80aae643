package journal

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/mhlam/tradeflow/ledger"
)

// Report bundles everything the Org export needs for one run.
type Report struct {
	Run    RunRecord
	Trades []ledger.TradeRecord
}

var orgFuncs = template.FuncMap{
	"join": func(xs []string) string { return strings.Join(xs, ", ") },
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(n/a)"
		}
		return t.Format("2006-01-02")
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			t = time.Now()
		}
		return t.Format("2006-01-02 Mon 15:04")
	},
}

// WriteOrg renders the run as an Org-mode heading with a PROPERTIES drawer
// and a trade table, ready to refile into a trading journal. The drawer
// keeps the structured facts searchable; the Review section is left blank
// on purpose for the post-mortem.
func (r Report) WriteOrg(w io.Writer) error {
	t, err := template.New("run").Funcs(orgFuncs).Parse(orgTemplate)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

const orgTemplate = `* RUN: {{.Run.Strategy}} {{join .Run.Symbols}}
:PROPERTIES:
:RUN_ID:     {{.Run.ID}}
:KIND:       {{.Run.Kind}}
:STRATEGY:   {{.Run.Strategy}}
:SYMBOLS:    {{join .Run.Symbols}}
:START:      {{day .Run.Start}}
:END:        {{day .Run.End}}
:START_BAL:  {{printf "%.2f" .Run.InitialCapital}}
:END_BAL:    {{printf "%.2f" .Run.FinalValue}}
:RETURN_PCT: {{printf "%.2f" .Run.TotalReturn}}
:MAX_DD_PCT: {{printf "%.2f" .Run.MaxDrawdown}}
:ORDERS:     {{.Run.TotalOrders}}
:CLOSED:     {{.Run.ClosedTrades}}
:WIN_RATE:   {{printf "%.1f" .Run.WinRate}}
:CREATED:    [{{stamp .Run.CreatedAt}}]
:END:

** Performance Summary
- Return:       *{{printf "%.2f" .Run.TotalReturn}}%*
- Max Drawdown: *{{printf "%.2f" .Run.MaxDrawdown}}%*
- Win Rate:     *{{printf "%.1f" .Run.WinRate}}%* over {{.Run.ClosedTrades}} closed trades
- Orders:       {{.Run.TotalOrders}}

** Trades
| Time | Symbol | Side | Qty | Price | Tag | Reason |
|------+--------+------+-----+-------+-----+--------|
{{- range .Trades}}
| {{.Time.Format "2006-01-02 15:04"}} | {{.Symbol}} | {{.Side}} | {{.Quantity}} | {{printf "%.3f" .Price}} | {{.TradeTag}} | {{.Reason}} |
{{- end}}

** Review
-
`
