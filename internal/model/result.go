package model

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Criterion identifiers, in report order.
const (
	CriterionROE                   = "roe"
	CriterionEquityRatio           = "equity_ratio"
	CriterionEBITMargin            = "ebit_margin"
	CriterionEarningGrowth         = "earning_growth"
	CriterionThreeMonthReversal    = "three_month_reversal"
	CriterionMomentum              = "momentum"
	CriterionQuoteChg6Month        = "quote_chg_6month"
	CriterionQuoteChg1Year         = "quote_chg_1year"
	CriterionEarningRevision       = "earning_revision"
	CriterionQuarterlyReaction     = "quarterly_figures_reaction"
	CriterionAnalystRating         = "analyst_rating"
	CriterionPriceEarningsRatio    = "price_earnings_ratio"
	CriterionFiveYearsPriceEarning = "five_years_price_earnings_ratio"
)

// NamedRating is a rating together with the criterion that produced it.
type NamedRating struct {
	Criterion string
	Label     string
	Rating    Rating
}

// EvaluationResult holds the thirteen ratings of one evaluation run.
type EvaluationResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	ISIN      string    `json:"isin"`
	// Year is the calendar year the evaluation treated as the current year.
	Year int `json:"year"`

	ROE                         Rating `json:"roe"`
	EquityRatio                 Rating `json:"equity_ratio"`
	EBITMargin                  Rating `json:"ebit_margin"`
	PriceEarningsRatio          Rating `json:"price_earnings_ratio"`
	FiveYearsPriceEarningsRatio Rating `json:"five_years_price_earnings_ratio"`
	EarningGrowth               Rating `json:"earning_growth"`
	ThreeMonthReversal          Rating `json:"three_month_reversal"`
	Momentum                    Rating `json:"momentum"`
	QuoteChg6Month              Rating `json:"quote_chg_6month"`
	QuoteChg1Year               Rating `json:"quote_chg_1year"`
	EarningRevision             Rating `json:"earning_revision"`
	QuarterlyFiguresReaction    Rating `json:"quarterly_figures_reaction"`
	AnalystRating               Rating `json:"analyst_rating"`

	// Failures maps a criterion to the reason it degraded to zero points.
	Failures map[string]string `json:"failures,omitempty"`

	scoreOnce sync.Once
	score     int
}

// Score returns the sum of the points of all thirteen ratings. It is computed
// on first use and cached for the lifetime of the result.
func (r *EvaluationResult) Score() int {
	r.scoreOnce.Do(func() {
		total := 0
		for _, c := range r.Criteria() {
			total += c.Rating.Points
		}
		r.score = total
	})
	return r.score
}

// Criteria returns the ratings in report order.
func (r *EvaluationResult) Criteria() []NamedRating {
	return []NamedRating{
		{CriterionROE, "RoE", r.ROE},
		{CriterionEquityRatio, "Equity Ratio", r.EquityRatio},
		{CriterionEBITMargin, "EBIT Margin", r.EBITMargin},
		{CriterionEarningGrowth, "Earning growth", r.EarningGrowth},
		{CriterionThreeMonthReversal, "3 month reversal", r.ThreeMonthReversal},
		{CriterionMomentum, "Stock momentum (6m, 1y chg points)", r.Momentum},
		{CriterionQuoteChg6Month, "6 month quote movement", r.QuoteChg6Month},
		{CriterionQuoteChg1Year, "1 year quote movement", r.QuoteChg1Year},
		{CriterionEarningRevision, "Earning revision (cy, ny points)", r.EarningRevision},
		{CriterionQuarterlyReaction, "Quarterly figures release reaction", r.QuarterlyFiguresReaction},
		{CriterionAnalystRating, "Analyst rating", r.AnalystRating},
		{CriterionPriceEarningsRatio, "Price earnings ratio", r.PriceEarningsRatio},
		{CriterionFiveYearsPriceEarning, "5y price earnings ratio", r.FiveYearsPriceEarningsRatio},
	}
}

// Rating returns the rating for a criterion identifier.
func (r *EvaluationResult) Rating(criterion string) (Rating, bool) {
	for _, c := range r.Criteria() {
		if c.Criterion == criterion {
			return c.Rating, true
		}
	}
	return Rating{}, false
}

// String renders a fixed-width report for logs and messages.
func (r *EvaluationResult) String() string {
	var b strings.Builder
	row := func(label, value string, points int) {
		b.WriteString(fmt.Sprintf("%-35s %-25s | %d Points\n", label+":", value, points))
	}

	b.WriteString(fmt.Sprintf("%-35s %-25s\n", "Evaluation Date:", r.Timestamp.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("%-35s %-25s\n\n", "Analysed Stock:", r.Name))

	row("RoE", r.ROE.FormatValue("%.2f", "%"), r.ROE.Points)
	row("Equity Ratio", r.EquityRatio.FormatValue("%.2f", "%"), r.EquityRatio.Points)
	row("EBIT Margin", r.EBITMargin.FormatValue("%.2f", "%"), r.EBITMargin.Points)
	row(fmt.Sprintf("%d vs. %d Earning growth", r.Year, r.Year+1), r.EarningGrowth.FormatValue("%.2f", "%"), r.EarningGrowth.Points)
	row("3 month reversal", r.ThreeMonthReversal.FormatValue("%.2f", "%"), r.ThreeMonthReversal.Points)
	row("Stock momentum (6m, 1y chg points)", r.Momentum.FormatValue("%.0f", " Points"), r.Momentum.Points)
	row("6 month quote movement", r.QuoteChg6Month.FormatValue("%.2f", "%"), r.QuoteChg6Month.Points)
	row("1 year quote movement", r.QuoteChg1Year.FormatValue("%.2f", "%"), r.QuoteChg1Year.Points)
	row("Earning revision (cy, ny points)", r.EarningRevision.FormatValue("%.0f", " Points"), r.EarningRevision.Points)
	row("Quarterly figures release reaction", r.QuarterlyFiguresReaction.FormatValue("%.2f", "%"), r.QuarterlyFiguresReaction.Points)
	row("Analyst rating", r.AnalystRating.FormatValue("%.0f", ""), r.AnalystRating.Points)
	row("Price earnings ratio", r.PriceEarningsRatio.FormatValue("%.2f", ""), r.PriceEarningsRatio.Points)
	row("5y price earnings ratio", r.FiveYearsPriceEarningsRatio.FormatValue("%.2f", ""), r.FiveYearsPriceEarningsRatio.Points)
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-35s %-25s | %d Points\n", "Total Levermann Score:", "", r.Score()))

	return b.String()
}

// EvaluationValues are the raw inputs behind one evaluation, persisted next to
// the points so a score can be audited later.
type EvaluationValues struct {
	ISIN                string
	Timestamp           time.Time
	AnalystGrade        *int
	AnalystCount        *int
	PriceTarget         *float64
	EPSCurrent          *float64
	EPSNext             *float64
	RevisionCurrentYear *float64
	RevisionNextYear    *float64
	PER                 *float64
	PER5Year            *float64
	Quote               float64
	LastQuarterlyDate   *time.Time
	QuarterlyStockChg   *float64
	QuarterlyIndexChg   *float64
	QuoteChg6Month      *float64
	QuoteChg1Year       *float64
}
