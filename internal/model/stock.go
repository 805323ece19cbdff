package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CapType is the market-capitalization tier of a stock.
type CapType int

const (
	CapUnknown CapType = iota
	CapSmall
	CapMid
	CapLarge
)

const (
	largeCapThreshold = 5e9
	midCapThreshold   = 2e9
)

// CapTypeFor classifies a market capitalization in EUR.
func CapTypeFor(marketCap float64) CapType {
	switch {
	case marketCap >= largeCapThreshold:
		return CapLarge
	case marketCap >= midCapThreshold:
		return CapMid
	default:
		return CapSmall
	}
}

func (c CapType) String() string {
	switch c {
	case CapSmall:
		return "SMALL"
	case CapMid:
		return "MID"
	case CapLarge:
		return "LARGE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CapType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CapType) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "SMALL", "S":
		*c = CapSmall
	case "MID", "M":
		*c = CapMid
	case "LARGE", "L":
		*c = CapLarge
	case "", "UNKNOWN":
		*c = CapUnknown
	default:
		return fmt.Errorf("unknown cap type %q", string(text))
	}
	return nil
}

// YearlyFigures maps a calendar year to a value. A missing year means the
// figure is not known (null).
type YearlyFigures map[int]float64

// Get returns the value for year and whether it is present.
func (f YearlyFigures) Get(year int) (float64, bool) {
	v, ok := f[year]
	return v, ok
}

// UnmarshalYAML decodes a year -> value mapping. Years whose value is null
// are left out so they read as absent.
func (f *YearlyFigures) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: yearly figures must be a mapping", node.Line)
	}
	out := make(YearlyFigures, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Tag == "!!null" {
			continue
		}
		var year int
		if err := k.Decode(&year); err != nil {
			return fmt.Errorf("line %d: year: %w", k.Line, err)
		}
		var value float64
		if err := v.Decode(&value); err != nil {
			return fmt.Errorf("line %d: value for %d: %w", v.Line, year, err)
		}
		out[year] = value
	}
	*f = out
	return nil
}

// UnmarshalJSON decodes {"2025": 1.5, "2024": null}, dropping null years.
func (f *YearlyFigures) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}
	out := make(YearlyFigures, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		year, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("year %q: %w", k, err)
		}
		out[year] = *v
	}
	*f = out
	return nil
}

// YearsDesc returns the years with a value, most recent first.
func (f YearlyFigures) YearsDesc() []int {
	years := make([]int, 0, len(f))
	for y := range f {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Consensus grades as published by the analyst consensus source.
const (
	ConsensusBuy        = "KAUFEN"
	ConsensusAccumulate = "AUFSTOCKEN"
	ConsensusHold       = "HALTEN"
	ConsensusReduce     = "REDUZIEREN"
	ConsensusSell       = "VERKAUFEN"
)

// ConsensusRating is the aggregated analyst recommendation for a stock.
type ConsensusRating struct {
	Consensus          string  `yaml:"consensus" json:"consensus"`
	NumberOfAnalysts   int     `yaml:"n_of_analysts" json:"n_of_analysts"`
	PriceTargetAverage float64 `yaml:"price_target_average" json:"price_target_average"`
}

// EarningRevision holds the percentage change of the analysts' EPS estimates
// for the current and the next year.
type EarningRevision struct {
	CurrentYear *float64 `yaml:"change_current_year" json:"change_current_year"`
	NextYear    *float64 `yaml:"change_next_year" json:"change_next_year"`
}

// StockSnapshot is the set of fundamentals fetched for one evaluation. It is
// populated once by a data provider and only read afterwards.
type StockSnapshot struct {
	Name      string  `yaml:"name" json:"name"`
	ISIN      string  `yaml:"isin" json:"isin"`
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Currency  string  `yaml:"currency" json:"currency"`
	Benchmark string  `yaml:"benchmark" json:"benchmark"`
	MarketCap float64 `yaml:"market_cap" json:"market_cap"`
	CapType   CapType `yaml:"cap_type" json:"cap_type"`
	Quote     float64 `yaml:"quote" json:"quote"`

	EPS         YearlyFigures `yaml:"eps" json:"eps"`
	PER         YearlyFigures `yaml:"per" json:"per"`
	ROE         YearlyFigures `yaml:"roe" json:"roe"`
	EBITMargin  YearlyFigures `yaml:"ebit_margin" json:"ebit_margin"`
	EquityRatio YearlyFigures `yaml:"equity_ratio" json:"equity_ratio"`

	// QuarterlyFigureDates is ordered oldest first and may contain future dates.
	QuarterlyFigureDates []time.Time `yaml:"quarterly_figure_dates" json:"quarterly_figure_dates"`

	ConsensusRatings *ConsensusRating `yaml:"consensus_ratings" json:"consensus_ratings,omitempty"`
	EarningRevision  EarningRevision  `yaml:"earning_revision" json:"earning_revision"`

	FetchedAt time.Time `yaml:"-" json:"fetched_at"`
}

// ID returns the identifier used to key a stock: the ISIN, or the symbol when
// no ISIN is known.
func (s *StockSnapshot) ID() string {
	if s.ISIN != "" {
		return s.ISIN
	}
	return s.Symbol
}

// LastQuarterlyRelease returns the most recent quarterly figures date that is
// not after today.
func (s *StockSnapshot) LastQuarterlyRelease(today time.Time) (time.Time, bool) {
	var last time.Time
	found := false
	for _, d := range s.QuarterlyFigureDates {
		if d.After(today) {
			continue
		}
		if !found || d.After(last) {
			last = d
			found = true
		}
	}
	return last, found
}

// QuarterlyDatesIn returns the release dates that fall into year, oldest first.
func (s *StockSnapshot) QuarterlyDatesIn(year int) []time.Time {
	var out []time.Time
	for _, d := range s.QuarterlyFigureDates {
		if d.Year() == year {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Years returns every year present in any of the yearly figure maps, oldest first.
func (s *StockSnapshot) Years() []int {
	seen := make(map[int]struct{})
	for _, m := range []YearlyFigures{s.EPS, s.PER, s.ROE, s.EBITMargin, s.EquityRatio} {
		for y := range m {
			seen[y] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
