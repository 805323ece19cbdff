package levermann

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

const (
	sixMonthDays    = 182
	oneYearDays     = 365
	perAverageYears = 5
)

var consensusGrades = map[string]int{
	model.ConsensusBuy:        1,
	model.ConsensusAccumulate: 2,
	model.ConsensusHold:       3,
	model.ConsensusReduce:     4,
	model.ConsensusSell:       5,
}

// evaluation carries the inputs of one evaluation pass. It is discarded once
// the pass is finished.
type evaluation struct {
	ctx      context.Context
	snap     *model.StockSnapshot
	quotes   QuoteProvider
	refIndex string
	today    time.Time
	thisYear int
	values   *model.EvaluationValues
	failures map[string]string
	log      zerolog.Logger
}

func (ev *evaluation) lastYear() int { return ev.thisYear - 1 }

// rate runs one criterion. Any error degrades the criterion to a zero rating.
func (ev *evaluation) rate(criterion string, fn func() (model.Rating, error)) model.Rating {
	r, err := fn()
	if err != nil {
		cerr := &CriterionError{Criterion: criterion, Err: err}
		ev.failures[criterion] = cerr.Err.Error()
		ev.log.Warn().
			Err(cerr).
			Str("criterion", criterion).
			Msg("criterion degraded to zero points")
		return model.ZeroRating()
	}
	ev.log.Debug().
		Str("criterion", criterion).
		Floats64("value", r.Value).
		Int("points", r.Points).
		Msg("criterion rated")
	return r
}

// yearlyMetric prefers last year's figure and falls back exactly one year.
func (ev *evaluation) yearlyMetric(name string, figures model.YearlyFigures) (float64, int, error) {
	year := ev.lastYear()
	if v, ok := figures.Get(year); ok {
		return v, year, nil
	}
	ev.log.Debug().Str("metric", name).Int("year", year).Int("fallback", year-1).Msg("metric not set, using year before")
	if v, ok := figures.Get(year - 1); ok {
		return v, year - 1, nil
	}
	return 0, 0, missing("%s for %d and %d", name, year, year-1)
}

func (ev *evaluation) rateYearly(name string, figures model.YearlyFigures, b band) (model.Rating, error) {
	v, _, err := ev.yearlyMetric(name, figures)
	if err != nil {
		return model.Rating{}, err
	}
	points, err := b.classify(v)
	if err != nil {
		return model.Rating{}, err
	}
	return model.NewRating(points, v), nil
}

func (ev *evaluation) roe() (model.Rating, error) {
	return ev.rateYearly("roe", ev.snap.ROE, roeBand)
}

func (ev *evaluation) equityRatio() (model.Rating, error) {
	return ev.rateYearly("equity ratio", ev.snap.EquityRatio, equityRatioBand)
}

func (ev *evaluation) ebitMargin() (model.Rating, error) {
	return ev.rateYearly("ebit margin", ev.snap.EBITMargin, ebitMarginBand)
}

// currentPER is the reported PER of the current year, or quote / EPS.
func (ev *evaluation) currentPER() (float64, error) {
	if per, ok := ev.snap.PER.Get(ev.thisYear); ok {
		return per, nil
	}
	eps, ok := ev.snap.EPS.Get(ev.thisYear)
	if !ok {
		return 0, missing("per and eps for %d", ev.thisYear)
	}
	if eps == 0 {
		return 0, fmt.Errorf("%w: eps %d is zero", ErrDivisionByZero, ev.thisYear)
	}
	return ev.snap.Quote / eps, nil
}

func (ev *evaluation) priceEarningsRatio() (model.Rating, error) {
	per, err := ev.currentPER()
	if err != nil {
		return model.Rating{}, err
	}
	ev.values.PER = &per
	points, err := classifyPER(per)
	if err != nil {
		return model.Rating{}, err
	}
	return model.NewRating(points, per), nil
}

// fiveYearPER averages up to five PER values, most recent years first.
func (ev *evaluation) fiveYearPER() (float64, error) {
	years := ev.snap.PER.YearsDesc()
	if len(years) > perAverageYears {
		years = years[:perAverageYears]
	}
	if len(years) == 0 {
		return 0, missing("no per values")
	}
	if len(years) < perAverageYears {
		ev.log.Warn().Int("values", len(years)).Msg("averaging PER over fewer than five years")
	}
	values := make([]float64, len(years))
	for i, y := range years {
		values[i] = ev.snap.PER[y]
	}
	avg, err := calculator.Mean(values)
	if err != nil {
		return 0, err
	}
	return calculator.Round(avg, 2), nil
}

func (ev *evaluation) fiveYearsPriceEarningsRatio() (model.Rating, error) {
	per, err := ev.fiveYearPER()
	if err != nil {
		return model.Rating{}, err
	}
	ev.values.PER5Year = &per
	points, err := classifyPER(per)
	if err != nil {
		return model.Rating{}, err
	}
	return model.NewRating(points, per), nil
}

func (ev *evaluation) earningGrowth() (model.Rating, error) {
	curYear := ev.thisYear
	if _, ok := ev.snap.EPS.Get(curYear + 1); !ok {
		curYear--
	}
	cur, ok := ev.snap.EPS.Get(curYear)
	if !ok {
		return model.Rating{}, missing("eps %d", curYear)
	}
	next, ok := ev.snap.EPS.Get(curYear + 1)
	if !ok {
		return model.Rating{}, missing("eps %d", curYear+1)
	}
	ev.values.EPSCurrent = &cur
	ev.values.EPSNext = &next

	chg, err := calculator.PercentChange(next, cur)
	if err != nil {
		return model.Rating{}, fmt.Errorf("%w: eps %d", ErrDivisionByZero, curYear)
	}
	neutral, err := changeBand.classify(chg)
	if err != nil {
		return model.Rating{}, err
	}
	points := 0
	switch {
	case neutral == 0:
		points = 0
	case cur < next:
		points = 1
	case cur > next:
		points = -1
	}
	return model.NewRating(points, chg), nil
}

func (ev *evaluation) earningRevision() (model.Rating, error) {
	rev := ev.snap.EarningRevision
	if rev.CurrentYear == nil || rev.NextYear == nil {
		return model.Rating{}, missing("earning revision")
	}
	ev.values.RevisionCurrentYear = rev.CurrentYear
	ev.values.RevisionNextYear = rev.NextYear

	cy, err := changeBand.classify(*rev.CurrentYear)
	if err != nil {
		return model.Rating{}, err
	}
	ny, err := changeBand.classify(*rev.NextYear)
	if err != nil {
		return model.Rating{}, err
	}
	sum := cy + ny
	points := 0
	switch {
	case cy == 0 && ny == 0:
		points = 0
	case sum >= 1:
		points = 1
	case sum <= -1:
		points = -1
	}
	return model.NewRating(points, float64(cy), float64(ny)), nil
}

func (ev *evaluation) analystRating() (model.Rating, error) {
	cr := ev.snap.ConsensusRatings
	if cr == nil || cr.Consensus == "" {
		return model.NewRating(0), nil
	}
	grade, ok := consensusGrades[cr.Consensus]
	if !ok {
		return model.Rating{}, fmt.Errorf("%w: %q", ErrUnknownConsensus, cr.Consensus)
	}
	n := cr.NumberOfAnalysts
	target := cr.PriceTargetAverage
	ev.values.AnalystGrade = &grade
	ev.values.AnalystCount = &n
	ev.values.PriceTarget = &target

	points := 0
	switch grade {
	case 1, 2:
		points = -1
	case 3:
		points = 0
	case 4, 5:
		points = 1
	}
	// Broad coverage makes the consensus a crowded trade; the signal flips.
	if n >= 5 {
		points = -points
	}
	return model.NewRating(points, float64(grade)), nil
}

func (ev *evaluation) quote(symbol string, day time.Time) (float64, error) {
	if symbol == "" {
		return 0, missing("symbol")
	}
	q, err := ev.quotes.HistoricQuote(ev.ctx, symbol, day)
	if err != nil {
		return 0, fmt.Errorf("quote %s on %s: %w", symbol, day.Format("2006-01-02"), err)
	}
	return q, nil
}

// move returns the percentage change of symbol between from and to.
func (ev *evaluation) move(symbol string, from, to time.Time) (float64, error) {
	before, err := ev.quote(symbol, from)
	if err != nil {
		return 0, err
	}
	after, err := ev.quote(symbol, to)
	if err != nil {
		return 0, err
	}
	chg, err := calculator.PercentChange(after, before)
	if err != nil {
		return 0, fmt.Errorf("%w: %s quote on %s", ErrDivisionByZero, symbol, from.Format("2006-01-02"))
	}
	return chg, nil
}

func (ev *evaluation) quarterlyFiguresReaction() (model.Rating, error) {
	release, err := ev.quotes.LastQuarterlyRelease(ev.snap, ev.today)
	if err != nil {
		return model.Rating{}, fmt.Errorf("%w: %v", ErrMissingData, err)
	}
	release = calculator.Day(release)
	prev := calculator.PrevWeekday(release)
	ev.values.LastQuarterlyDate = &release

	stockChg, err := ev.move(ev.snap.Symbol, prev, release)
	if err != nil {
		return model.Rating{}, err
	}
	indexChg, err := ev.move(ev.refIndex, prev, release)
	if err != nil {
		return model.Rating{}, err
	}
	ev.values.QuarterlyStockChg = &stockChg
	ev.values.QuarterlyIndexChg = &indexChg

	rel := stockChg - indexChg
	ev.log.Debug().
		Time("release", release).
		Float64("stock_chg", stockChg).
		Float64("index_chg", indexChg).
		Msg("quarterly figures reaction")

	points, err := classifyReaction(rel)
	if err != nil {
		return model.Rating{}, err
	}
	return model.NewRating(points, rel), nil
}

func (ev *evaluation) quoteChange(days int) (float64, int, error) {
	if ev.snap.Quote <= 0 {
		return 0, 0, missing("current quote")
	}
	day := calculator.ClosestWeekday(ev.today.AddDate(0, 0, -days), ev.today)
	before, err := ev.quote(ev.snap.Symbol, day)
	if err != nil {
		return 0, 0, err
	}
	chg, err := calculator.PercentChange(ev.snap.Quote, before)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: quote on %s", ErrDivisionByZero, day.Format("2006-01-02"))
	}
	points, err := changeBand.classify(chg)
	if err != nil {
		return 0, 0, err
	}
	return chg, points, nil
}

func (ev *evaluation) quoteChg6Month() (model.Rating, error) {
	chg, points, err := ev.quoteChange(sixMonthDays)
	if err != nil {
		return model.Rating{}, err
	}
	ev.values.QuoteChg6Month = &chg
	return model.NewRating(points, chg), nil
}

func (ev *evaluation) quoteChg1Year() (model.Rating, error) {
	chg, points, err := ev.quoteChange(oneYearDays)
	if err != nil {
		return model.Rating{}, err
	}
	ev.values.QuoteChg1Year = &chg
	return model.NewRating(points, chg), nil
}

// momentum combines the points, not the raw changes, of the 6 month and
// 1 year quote movements.
func momentum(points6m, points1y int) model.Rating {
	points := 0
	switch {
	case points6m == 1 && points1y <= 0:
		points = 1
	case points6m == -1 && points1y >= 0:
		points = -1
	}
	return model.NewRating(points, float64(points6m), float64(points1y))
}

// monthVersusIndex compares the stock's move over month m with the
// reference index's move over the same month, both measured between the
// last business days of consecutive months.
func (ev *evaluation) monthVersusIndex(m time.Time) (float64, error) {
	end := calculator.LastWeekdayOfMonth(m)
	start := calculator.LastWeekdayOfMonth(calculator.PrevMonth(m))

	stockChg, err := ev.move(ev.snap.Symbol, start, end)
	if err != nil {
		return 0, err
	}
	indexChg, err := ev.move(ev.refIndex, start, end)
	if err != nil {
		return 0, err
	}
	ev.log.Debug().
		Time("from", start).
		Time("to", end).
		Float64("stock_chg", stockChg).
		Float64("index_chg", indexChg).
		Msg("monthly comparison with reference index")
	return stockChg - indexChg, nil
}

// threeMonthReversal scores the last three monthly differences to the
// reference index. Only large caps are scored; other tiers get a nil value
// in place of the three absent differences.
func (ev *evaluation) threeMonthReversal() (model.Rating, error) {
	if ev.snap.CapType != model.CapLarge {
		return model.NewRating(0), nil
	}
	diffs := make([]float64, 3)
	m := calculator.PrevMonth(ev.today)
	for i := range diffs {
		d, err := ev.monthVersusIndex(m)
		if err != nil {
			return model.Rating{}, err
		}
		diffs[i] = d
		m = calculator.PrevMonth(m)
	}

	points := 0
	switch {
	case diffs[0] > 0 && diffs[1] > 0 && diffs[2] > 0:
		points = -1
	case diffs[0] < 0 && diffs[1] < 0 && diffs[2] < 0:
		points = 1
	}
	return model.NewRating(points, diffs...), nil
}
