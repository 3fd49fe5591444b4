// Package render prints scheduler, balance and history events to a terminal.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/vietddude/predictctl/internal/balance"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/history"
	"github.com/vietddude/predictctl/internal/prediction"
)

// Renderer writes human-readable output. It is safe for concurrent use;
// each event is written as one block.
type Renderer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

var (
	_ prediction.Observer = (*Renderer)(nil)
	_ history.Observer    = (*Renderer)(nil)
	_ balance.Observer    = (*Renderer)(nil)
)

// New creates a Renderer writing to w. verbose also prints every pending
// status check.
func New(w io.Writer, verbose bool) *Renderer {
	return &Renderer{w: w, verbose: verbose}
}

func (r *Renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// OnPollUpdate implements prediction.Observer.
func (r *Renderer) OnPollUpdate(s prediction.State) {
	if !r.verbose {
		return
	}
	r.printf("%s: processing, next check in %s\n", s.ID, s.NextDelay)
}

// OnError implements prediction.Observer.
func (r *Renderer) OnError(c prediction.Classified) {
	r.printf("status check failed (%s), retrying\n", c.Message)
}

// OnTerminal implements prediction.Observer.
func (r *Renderer) OnTerminal(out prediction.Outcome) {
	var b strings.Builder
	switch out.Kind {
	case prediction.TerminalCompleted, prediction.TerminalFailed:
		writePrediction(&b, out.Prediction)
		if out.Kind == prediction.TerminalFailed && out.Prediction.ResultError() == "" {
			fmt.Fprintf(&b, "%s\n", out.Message)
		}
	default:
		fmt.Fprintf(&b, "Prediction %s: %s\n", out.ID, out.Message)
	}
	writeHint(&b, out.Next)

	r.printf("%s", b.String())
}

// Prediction prints a single record.
func (r *Renderer) Prediction(p *domain.Prediction) {
	var b strings.Builder
	writePrediction(&b, p)
	if p != nil && !p.Status.IsTerminal() {
		writeHint(&b, domain.ActionOpenHistory)
	}
	r.printf("%s", b.String())
}

// OnBalance implements balance.Observer.
func (r *Renderer) OnBalance(bal domain.Balance) {
	r.printf("Balance: %s credits\n", Money(bal.Amount))
}

// OnBalanceError implements balance.Observer.
func (r *Renderer) OnBalanceError(err error) {
	r.printf("Balance: unavailable (%s)\n", Message(err))
}

// TopUp prints a completed top-up.
func (r *Renderer) TopUp(res *domain.TopUpResult) {
	r.printf("Topped up: %s -> %s credits (transaction %s)\n",
		Money(res.PreviousBalance), Money(res.CurrentBalance), res.TransactionID)
}

// User prints the signed-in account.
func (r *Renderer) User(u *domain.User) {
	if u.Email != "" {
		r.printf("%s <%s> (id %s)\n", u.Username, u.Email, u.ID)
		return
	}
	r.printf("%s (id %s)\n", u.Username, u.ID)
}

// OnHistory implements history.Observer.
func (r *Renderer) OnHistory(v history.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.Empty() {
		_, _ = fmt.Fprintln(r.w, "No predictions yet.")
		var b strings.Builder
		writeHint(&b, v.Next)
		_, _ = io.WriteString(r.w, b.String())
		return
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tRESULT\tCOST\tCREATED")
	for _, p := range v.Predictions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Status, summary(&p), Money(p.Cost), created(p.CreatedAt))
	}
	_ = w.Flush()
}

// Error prints err with the follow-up for its kind.
func (r *Renderer) Error(err error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", Message(err))
	writeHint(&b, domain.ActionFor(domain.KindOf(err)))
	r.printf("%s", b.String())
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *domain.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Confidence formats a 0..1 confidence as a percentage with one decimal.
func Confidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func writePrediction(b *strings.Builder, p *domain.Prediction) {
	if p == nil {
		return
	}
	fmt.Fprintf(b, "Prediction %s: %s\n", p.ID, p.Status)

	switch {
	case p.Status == domain.StatusPending:
		fmt.Fprintln(b, "Still processing.")
	case p.ResultError() != "":
		fmt.Fprintf(b, "Error: %s\n", p.ResultError())
	default:
		if label, conf, ok := p.Label(); ok {
			fmt.Fprintf(b, "Result: %s\n", label)
			fmt.Fprintf(b, "Confidence: %s\n", Confidence(conf))
		} else if len(p.Result) > 0 {
			raw, err := json.MarshalIndent(p.Result, "", "  ")
			if err == nil {
				fmt.Fprintf(b, "Result:\n%s\n", raw)
			}
		}
	}

	if !p.Cost.IsZero() {
		fmt.Fprintf(b, "Cost: %s credits\n", Money(p.Cost))
	}
}

func summary(p *domain.Prediction) string {
	if label, conf, ok := p.Label(); ok {
		return fmt.Sprintf("%s (%s)", label, Confidence(conf))
	}
	if msg := p.ResultError(); msg != "" {
		return "error: " + truncate(msg, 40)
	}
	if p.Status == domain.StatusPending {
		return "processing"
	}
	return "-"
}

func created(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t.Time)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeHint(b *strings.Builder, next domain.NextAction) {
	switch next {
	case domain.ActionRetry:
		fmt.Fprintln(b, "Please try again.")
	case domain.ActionOpenHistory:
		fmt.Fprintln(b, "Run `predictctl history` to check it later.")
	case domain.ActionOpenBalance:
		fmt.Fprintln(b, "Run `predictctl topup <amount>` to add credits.")
	case domain.ActionLogin:
		fmt.Fprintln(b, "Run `predictctl login` to sign in.")
	case domain.ActionNewPrediction:
		fmt.Fprintln(b, "Run `predictctl predict <text>` to make a prediction.")
	}
}
