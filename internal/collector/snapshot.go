package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"StockSentinel/internal/model"
)

// ErrUnknownStock is returned when no fundamentals exist for an identifier.
var ErrUnknownStock = errors.New("unknown stock")

// SnapshotSource supplies fresh fundamentals for a stock.
type SnapshotSource interface {
	Snapshot(ctx context.Context, id string) (*model.StockSnapshot, error)
}

// SymbolResolver finds the exchange ticker of a stock by name.
type SymbolResolver interface {
	SearchSymbol(ctx context.Context, keywords, currency, region string) (string, error)
}

// FileSnapshotSource reads fundamentals from <Dir>/<id>.yaml, the format the
// scrapers export.
type FileSnapshotSource struct {
	Dir string
	now func() time.Time

	resolver SymbolResolver
	log      zerolog.Logger
	mu       sync.Mutex
	symbols  map[string]string // id -> resolved ticker
}

func NewFileSnapshotSource(dir string) *FileSnapshotSource {
	return &FileSnapshotSource{Dir: dir, now: time.Now, log: zerolog.Nop()}
}

// WithSymbolResolver looks up the ticker of snapshots that carry none.
// Resolved tickers are remembered per stock.
func (s *FileSnapshotSource) WithSymbolResolver(r SymbolResolver, log zerolog.Logger) *FileSnapshotSource {
	s.resolver = r
	s.symbols = make(map[string]string)
	s.log = log.With().Str("component", "snapshots").Logger()
	return s
}

// resolveSymbol fills in a missing ticker. A failed lookup leaves the symbol
// empty; the quote based criteria then degrade on their own.
func (s *FileSnapshotSource) resolveSymbol(ctx context.Context, id string, snap *model.StockSnapshot) {
	if snap.Symbol != "" || s.resolver == nil || snap.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sym, ok := s.symbols[id]; ok {
		snap.Symbol = sym
		return
	}
	sym, err := s.resolver.SearchSymbol(ctx, snap.Name, snap.Currency, "")
	if err != nil {
		s.log.Warn().Err(err).Str("isin", id).Str("name", snap.Name).Msg("symbol lookup failed")
		return
	}
	s.log.Info().Str("isin", id).Str("symbol", sym).Msg("symbol resolved")
	s.symbols[id] = sym
	snap.Symbol = sym
}

func (s *FileSnapshotSource) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid stock id %q", id)
	}
	return filepath.Join(s.Dir, id+".yaml"), nil
}

// Snapshot loads and normalizes the fundamentals of one stock.
func (s *FileSnapshotSource) Snapshot(ctx context.Context, id string) (*model.StockSnapshot, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStock, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	var snap model.StockSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", id, err)
	}
	if snap.ISIN == "" && snap.Symbol == "" {
		snap.ISIN = id
	}
	if snap.CapType == model.CapUnknown && snap.MarketCap > 0 {
		snap.CapType = model.CapTypeFor(snap.MarketCap)
	}
	s.resolveSymbol(ctx, id, &snap)
	sort.Slice(snap.QuarterlyFigureDates, func(i, j int) bool {
		return snap.QuarterlyFigureDates[i].Before(snap.QuarterlyFigureDates[j])
	})
	snap.FetchedAt = s.now()
	return &snap, nil
}

// List returns the ids of all stocks with a snapshot file.
func (s *FileSnapshotSource) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
