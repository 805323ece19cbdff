package levermann

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

const (
	// SuppressWindow is how long an unchanged score is not committed again.
	SuppressWindow = 7 * 24 * time.Hour
	// OutdatedAfter is the age after which the latest result asks for a re-run.
	OutdatedAfter = 3 * 24 * time.Hour
)

// DefaultReferenceIndexes maps each cap tier to its benchmark index symbol.
var DefaultReferenceIndexes = map[model.CapType]string{
	model.CapLarge: "^GDAXI",
	model.CapMid:   "^MDAXI",
	model.CapSmall: "^SDAXI",
}

// QuoteProvider is the market data side of a stock data provider.
type QuoteProvider interface {
	// HistoricQuote looks up the close of a symbol or index on a calendar day.
	HistoricQuote(ctx context.Context, symbol string, day time.Time) (float64, error)
	// LastQuarterlyRelease returns the latest quarterly figures date of the
	// stock that is not after today.
	LastQuarterlyRelease(snap *model.StockSnapshot, today time.Time) (time.Time, error)
}

// Store persists committed evaluations. The returned row counts are only logged.
type Store interface {
	SaveFundamentals(ctx context.Context, snap *model.StockSnapshot) (int64, error)
	SaveYearlyMetrics(ctx context.Context, snap *model.StockSnapshot) (int64, error)
	SaveEvaluationValues(ctx context.Context, values *model.EvaluationValues) (int64, error)
	SaveEvaluationPoints(ctx context.Context, result *model.EvaluationResult) (int64, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.baseLog = log }
}

// WithStore sets the persistence target of committed results.
func WithStore(s Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithHistory seeds the engine with previously committed results, oldest first.
func WithHistory(history []*model.EvaluationResult) Option {
	return func(e *Engine) {
		e.history = append([]*model.EvaluationResult(nil), history...)
	}
}

// WithReferenceIndexes overrides the benchmark symbol per cap tier.
func WithReferenceIndexes(indexes map[model.CapType]string) Option {
	return func(e *Engine) {
		merged := make(map[model.CapType]string, len(DefaultReferenceIndexes))
		for k, v := range DefaultReferenceIndexes {
			merged[k] = v
		}
		for k, v := range indexes {
			if v != "" {
				merged[k] = v
			}
		}
		e.indexes = merged
	}
}

// Engine evaluates one stock and owns its evaluation history. An Engine is
// not safe for concurrent use; callers serialize access per stock.
type Engine struct {
	snap     *model.StockSnapshot
	quotes   QuoteProvider
	store    Store
	indexes  map[model.CapType]string
	refIndex string
	now      func() time.Time
	baseLog  zerolog.Logger
	log      zerolog.Logger

	history []*model.EvaluationResult
	values  *model.EvaluationValues
}

// NewEngine builds an engine for snap. It fails with a *ConfigurationError when
// quotes is nil or no reference index exists for the stock's cap tier.
func NewEngine(snap *model.StockSnapshot, quotes QuoteProvider, opts ...Option) (*Engine, error) {
	e := &Engine{
		quotes:  quotes,
		indexes: DefaultReferenceIndexes,
		now:     time.Now,
		baseLog: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if quotes == nil {
		cerr := &ConfigurationError{Err: ErrNoQuoteProvider}
		if snap != nil {
			cerr.ISIN, cerr.CapType = snap.ID(), snap.CapType
		}
		return nil, cerr
	}
	if err := e.Update(snap); err != nil {
		return nil, err
	}
	return e, nil
}

// Update swaps in a freshly fetched snapshot of the same stock.
func (e *Engine) Update(snap *model.StockSnapshot) error {
	if snap == nil {
		return &ConfigurationError{Err: missing("snapshot")}
	}
	ref, ok := e.indexes[snap.CapType]
	if !ok || ref == "" {
		return &ConfigurationError{ISIN: snap.ID(), CapType: snap.CapType, Err: ErrUnsupportedCap}
	}
	e.snap = snap
	e.refIndex = ref
	e.log = e.baseLog.With().
		Str("component", "levermann").
		Str("isin", snap.ID()).
		Str("name", snap.Name).
		Logger()
	return nil
}

// Snapshot returns the snapshot the next evaluation reads.
func (e *Engine) Snapshot() *model.StockSnapshot { return e.snap }

// ReferenceIndex returns the benchmark symbol selected for the stock.
func (e *Engine) ReferenceIndex() string { return e.refIndex }

// History returns a copy of the committed results, oldest first.
func (e *Engine) History() []*model.EvaluationResult {
	return append([]*model.EvaluationResult(nil), e.history...)
}

// Latest returns the most recent committed result, or nil.
func (e *Engine) Latest() *model.EvaluationResult {
	if len(e.history) == 0 {
		return nil
	}
	return e.history[len(e.history)-1]
}

// Previous returns the result committed before Latest, or nil.
func (e *Engine) Previous() *model.EvaluationResult {
	if len(e.history) < 2 {
		return nil
	}
	return e.history[len(e.history)-2]
}

// Values returns the raw inputs of the last committed evaluation.
func (e *Engine) Values() *model.EvaluationValues { return e.values }

// Outdated reports whether the stock has never been evaluated or the latest
// result is older than three days.
func (e *Engine) Outdated() bool {
	last := e.Latest()
	if last == nil {
		return true
	}
	return e.now().Sub(last.Timestamp) > OutdatedAfter
}

// Recommendation derives the action from the two most recent results.
func (e *Engine) Recommendation() model.Recommendation {
	return Recommend(e.Latest(), e.Previous(), e.snap.CapType)
}

// Evaluate runs all thirteen criteria. It returns the new result and true when
// the result was committed, or the previous result and false when the score
// is unchanged and the previous result is less than seven days old.
func (e *Engine) Evaluate(ctx context.Context) (*model.EvaluationResult, bool) {
	now := e.now()
	ev := &evaluation{
		ctx:      ctx,
		snap:     e.snap,
		quotes:   e.quotes,
		refIndex: e.refIndex,
		today:    calculator.Day(now),
		thisYear: now.Year(),
		values: &model.EvaluationValues{
			ISIN:      e.snap.ID(),
			Timestamp: now,
			Quote:     e.snap.Quote,
		},
		failures: make(map[string]string),
		log:      e.log,
	}

	r := &model.EvaluationResult{
		ID:        uuid.NewString(),
		Timestamp: now,
		Name:      e.snap.Name,
		ISIN:      e.snap.ID(),
		Year:      ev.thisYear,
	}
	r.ROE = ev.rate(model.CriterionROE, ev.roe)
	r.EquityRatio = ev.rate(model.CriterionEquityRatio, ev.equityRatio)
	r.EBITMargin = ev.rate(model.CriterionEBITMargin, ev.ebitMargin)
	r.PriceEarningsRatio = ev.rate(model.CriterionPriceEarningsRatio, ev.priceEarningsRatio)
	r.FiveYearsPriceEarningsRatio = ev.rate(model.CriterionFiveYearsPriceEarning, ev.fiveYearsPriceEarningsRatio)
	r.EarningGrowth = ev.rate(model.CriterionEarningGrowth, ev.earningGrowth)
	r.QuoteChg6Month = ev.rate(model.CriterionQuoteChg6Month, ev.quoteChg6Month)
	r.QuoteChg1Year = ev.rate(model.CriterionQuoteChg1Year, ev.quoteChg1Year)
	r.Momentum = momentum(r.QuoteChg6Month.Points, r.QuoteChg1Year.Points)
	r.ThreeMonthReversal = ev.rate(model.CriterionThreeMonthReversal, ev.threeMonthReversal)
	r.EarningRevision = ev.rate(model.CriterionEarningRevision, ev.earningRevision)
	r.QuarterlyFiguresReaction = ev.rate(model.CriterionQuarterlyReaction, ev.quarterlyFiguresReaction)
	r.AnalystRating = ev.rate(model.CriterionAnalystRating, ev.analystRating)
	if len(ev.failures) > 0 {
		r.Failures = ev.failures
	}

	if last := e.Latest(); last != nil {
		age := now.Sub(last.Timestamp)
		if age >= 0 && age <= SuppressWindow && last.Score() == r.Score() {
			e.log.Info().
				Int("score", r.Score()).
				Time("last_evaluation", last.Timestamp).
				Msg("score unchanged, keeping previous evaluation")
			return last, false
		}
	}

	e.history = append(e.history, r)
	e.values = ev.values
	e.log.Info().
		Int("score", r.Score()).
		Int("failed_criteria", len(ev.failures)).
		Msg("evaluation committed")

	e.persist(ctx, r, ev.values)
	return r, true
}

// persist hands a committed result to the store. Failures are logged only;
// the in-memory history keeps the result either way.
func (e *Engine) persist(ctx context.Context, r *model.EvaluationResult, values *model.EvaluationValues) {
	if e.store == nil {
		return
	}
	steps := []struct {
		name string
		save func() (int64, error)
	}{
		{"fundamentals", func() (int64, error) { return e.store.SaveFundamentals(ctx, e.snap) }},
		{"yearly_metrics", func() (int64, error) { return e.store.SaveYearlyMetrics(ctx, e.snap) }},
		{"evaluation_values", func() (int64, error) { return e.store.SaveEvaluationValues(ctx, values) }},
		{"evaluation_points", func() (int64, error) { return e.store.SaveEvaluationPoints(ctx, r) }},
	}
	for _, s := range steps {
		n, err := s.save()
		if err != nil {
			e.log.Warn().Err(err).Str("table", s.name).Msg("failed to persist evaluation")
			continue
		}
		e.log.Debug().Str("table", s.name).Int64("rows", n).Msg("persisted")
	}
}
