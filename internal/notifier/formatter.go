package notifier

import (
	"fmt"
	"html"
	"strings"

	"StockSentinel/internal/model"
	"StockSentinel/internal/watchlist"
)

const summaryRule = "------------------------------------------------------------------------------"

// FormatEvaluation renders one evaluation outcome as a Telegram message.
func FormatEvaluation(out *watchlist.Outcome) string {
	if out == nil || out.Result == nil {
		return "No evaluation exists"
	}
	r := out.Result

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> (%s)\n", html.EscapeString(r.Name), html.EscapeString(out.ISIN)))
	b.WriteString(fmt.Sprintf("Score: <b>%d</b>", r.Score()))
	if out.Previous != nil {
		b.WriteString(fmt.Sprintf(" (prev %d, %s)", out.Previous.Score(), out.Previous.Timestamp.Format("2006-01-02")))
	}
	b.WriteString(fmt.Sprintf(" | Advise: <b>%s</b>\n", out.Recommendation))
	switch {
	case out.Skipped:
		b.WriteString("Latest evaluation is still current.\n")
	case !out.Committed:
		b.WriteString("Score unchanged, result not recorded.\n")
	}
	b.WriteString("\n<pre>")
	b.WriteString(html.EscapeString(r.String()))
	b.WriteString("</pre>")

	if len(r.Failures) > 0 {
		b.WriteString("\n⚠️ Unavailable criteria:\n")
		for _, c := range r.Criteria() {
			if reason, ok := r.Failures[c.Criterion]; ok {
				b.WriteString(fmt.Sprintf("  %s: %s\n", c.Label, html.EscapeString(reason)))
			}
		}
	}
	return b.String()
}

// SummaryHeader is the header of the watchlist summary table.
func SummaryHeader() string {
	return fmt.Sprintf("| %-25s | %-17s | %-17s | %-6s |\n%s",
		"Name", "Prev Score (Date)", "Last Score (Date)", "Advise", summaryRule)
}

func scoreCell(r *model.EvaluationResult) string {
	if r == nil {
		return "N/A"
	}
	return fmt.Sprintf("%-3d (%s)", r.Score(), r.Timestamp.Format("02.01.06"))
}

// SummaryLine renders one row of the watchlist summary table.
func SummaryLine(s watchlist.Summary) string {
	name := s.Name
	if name == "" {
		name = s.ISIN
	}
	if len(name) > 25 {
		name = name[:25]
	}
	return fmt.Sprintf("| %-25s | %-17s | %-17s | %-6s |",
		name, scoreCell(s.Previous), scoreCell(s.Latest), s.Recommendation)
}

// FormatSummaryTable renders the watchlist summary as a fixed-width table.
func FormatSummaryTable(summaries []watchlist.Summary) string {
	var b strings.Builder
	b.WriteString(SummaryHeader())
	b.WriteString("\n")
	for _, s := range summaries {
		b.WriteString(SummaryLine(s))
		b.WriteString("\n")
	}
	b.WriteString(summaryRule)
	return b.String()
}

// FormatSummaryMessage wraps the summary table for Telegram.
func FormatSummaryMessage(summaries []watchlist.Summary) string {
	if len(summaries) == 0 {
		return "Watchlist is empty."
	}
	return "📋 <b>Levermann watchlist</b>\n<pre>" + html.EscapeString(FormatSummaryTable(summaries)) + "</pre>"
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	return strings.Join([]string{
		"<b>StockSentinel commands</b>",
		"/list - score table of the watchlist",
		"/eval &lt;ISIN&gt; - evaluate one stock now",
		"/evalall - evaluate every outdated stock",
		"/help - this message",
	}, "\n")
}
