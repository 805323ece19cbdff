package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/levermann"
	"StockSentinel/internal/model"
)

// ErrNotWatched is returned for stocks that are not on the watchlist.
var ErrNotWatched = errors.New("stock not on watchlist")

// Outcome describes one Evaluate call.
type Outcome struct {
	ISIN           string
	Result         *model.EvaluationResult
	Previous       *model.EvaluationResult
	Committed      bool
	Skipped        bool // the latest result was recent enough, nothing was fetched
	Recommendation model.Recommendation
}

// Summary is the latest state of one watched stock.
type Summary struct {
	ISIN           string
	Name           string
	CapType        model.CapType
	Latest         *model.EvaluationResult
	Previous       *model.EvaluationResult
	Recommendation model.Recommendation
}

type entry struct {
	mu      sync.Mutex
	engine  *levermann.Engine
	history *History
}

// Manager owns one Levermann engine per watched stock. Different stocks may be
// evaluated concurrently; evaluations of the same stock are serialized.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	source     collector.SnapshotSource
	quotes     levermann.QuoteProvider
	store      levermann.Store
	historyDir string
	engineOpts []levermann.Option
	log        zerolog.Logger
}

// NewManager creates a Manager, loading the stored history of every id.
func NewManager(ids []string, historyDir string, source collector.SnapshotSource, quotes levermann.QuoteProvider,
	store levermann.Store, log zerolog.Logger, engineOpts ...levermann.Option) (*Manager, error) {
	m := &Manager{
		entries:    make(map[string]*entry),
		source:     source,
		quotes:     quotes,
		store:      store,
		historyDir: historyDir,
		log:        log.With().Str("component", "watchlist").Logger(),
	}
	m.engineOpts = append([]levermann.Option{levermann.WithLogger(log)}, engineOpts...)
	if store != nil {
		m.engineOpts = append(m.engineOpts, levermann.WithStore(store))
	}
	for _, id := range ids {
		if err := m.Add(id); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add puts a stock on the watchlist. Adding a watched stock is a no-op.
func (m *Manager) Add(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; ok {
		return nil
	}
	h, err := LoadHistory(historyPath(m.historyDir, id))
	if err != nil {
		return fmt.Errorf("load history %s: %w", id, err)
	}
	if h.ISIN == "" {
		h.ISIN = id
	}
	m.entries[id] = &entry{history: h}
	m.log.Debug().Str("isin", id).Int("results", len(h.Results)).Msg("stock added")
	return nil
}

// IDs returns the watched stock ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) entry(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotWatched, id)
	}
	return e, nil
}

func latestTwo(results []*model.EvaluationResult) (latest, previous *model.EvaluationResult) {
	if n := len(results); n > 0 {
		latest = results[n-1]
		if n > 1 {
			previous = results[n-2]
		}
	}
	return latest, previous
}

// Evaluate fetches fresh fundamentals and runs the Levermann evaluation for
// id. Unless force is set, a stock whose latest result is not outdated is
// skipped without fetching anything.
func (m *Manager) Evaluate(ctx context.Context, id string, force bool) (*Outcome, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	log := m.log.With().Str("isin", id).Logger()

	if e.engine != nil && !force && !e.engine.Outdated() {
		log.Debug().Msg("evaluation is recent, skipping")
		return m.outcome(id, e.engine, false, true), nil
	}

	snap, err := m.source.Snapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	if e.engine == nil {
		opts := append(append([]levermann.Option(nil), m.engineOpts...), levermann.WithHistory(e.history.Results))
		eng, err := levermann.NewEngine(snap, m.quotes, opts...)
		if err != nil {
			return nil, err
		}
		e.engine = eng
		if !force && !eng.Outdated() {
			log.Debug().Msg("stored evaluation is recent, skipping")
			return m.outcome(id, eng, false, true), nil
		}
	} else if err := e.engine.Update(snap); err != nil {
		return nil, err
	}

	_, committed := e.engine.Evaluate(ctx)
	if committed {
		e.history.Name = snap.Name
		e.history.CapType = snap.CapType
		e.history.Results = e.engine.History()
		if err := SaveHistory(historyPath(m.historyDir, id), e.history); err != nil {
			log.Warn().Err(err).Msg("failed to save evaluation history")
		}
	}
	out := m.outcome(id, e.engine, committed, false)
	log.Info().
		Int("score", out.Result.Score()).
		Bool("committed", committed).
		Str("recommendation", string(out.Recommendation)).
		Msg("stock evaluated")
	return out, nil
}

func (m *Manager) outcome(id string, eng *levermann.Engine, committed, skipped bool) *Outcome {
	return &Outcome{
		ISIN:           id,
		Result:         eng.Latest(),
		Previous:       eng.Previous(),
		Committed:      committed,
		Skipped:        skipped,
		Recommendation: eng.Recommendation(),
	}
}

// EvaluateAll evaluates every watched stock in id order. Failures of single
// stocks are collected and do not stop the run.
func (m *Manager) EvaluateAll(ctx context.Context, force bool) ([]*Outcome, error) {
	var outcomes []*Outcome
	var errs []error
	for _, id := range m.IDs() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := m.Evaluate(ctx, id, force)
		if err != nil {
			m.log.Error().Err(err).Str("isin", id).Msg("evaluation failed")
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

// History returns the committed results of a stock, oldest first.
func (m *Manager) History(id string) ([]*model.EvaluationResult, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine != nil {
		return e.engine.History(), nil
	}
	return append([]*model.EvaluationResult(nil), e.history.Results...), nil
}

// Summary returns the latest state of a stock.
func (m *Manager) Summary(id string) (Summary, error) {
	e, err := m.entry(id)
	if err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Summary{ISIN: id, Name: e.history.Name, CapType: e.history.CapType}
	results := e.history.Results
	if e.engine != nil {
		snap := e.engine.Snapshot()
		s.Name, s.CapType = snap.Name, snap.CapType
		results = e.engine.History()
	}
	s.Latest, s.Previous = latestTwo(results)
	s.Recommendation = levermann.Recommend(s.Latest, s.Previous, s.CapType)
	return s, nil
}

// Summaries returns the summary of every watched stock in id order.
func (m *Manager) Summaries() []Summary {
	ids := m.IDs()
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, err := m.Summary(id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
