package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

const (
	DefaultAlphaVantageURL = "https://www.alphavantage.co"

	// compactDays is how far back the compact output size reaches (100 bars).
	compactDays = 100
)

// AlphaVantageFetcher loads daily bars from the TIME_SERIES_DAILY_ADJUSTED
// endpoint. The free tier allows five requests per minute.
type AlphaVantageFetcher struct {
	apiKey  string
	client  *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// AlphaVantageOption configures the fetcher.
type AlphaVantageOption func(*AlphaVantageFetcher)

func WithAlphaVantageBaseURL(baseURL string) AlphaVantageOption {
	return func(f *AlphaVantageFetcher) { f.client.SetBaseURL(baseURL) }
}

// WithRequestsPerMinute replaces the default limit of five requests per minute.
func WithRequestsPerMinute(n int) AlphaVantageOption {
	return func(f *AlphaVantageFetcher) {
		if n > 0 {
			f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

func WithAlphaVantageLogger(log zerolog.Logger) AlphaVantageOption {
	return func(f *AlphaVantageFetcher) { f.log = log }
}

func WithAlphaVantageProxy(proxyURL string) AlphaVantageOption {
	return func(f *AlphaVantageFetcher) {
		if proxyURL != "" {
			f.client.SetProxy(proxyURL)
		}
	}
}

// NewAlphaVantageFetcher creates a fetcher for the given API key.
func NewAlphaVantageFetcher(apiKey string, opts ...AlphaVantageOption) *AlphaVantageFetcher {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetBaseURL(DefaultAlphaVantageURL)

	f := &AlphaVantageFetcher{
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

type avDailyResponse struct {
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

type avSearchResponse struct {
	BestMatches []map[string]string `json:"bestMatches"`
}

func (f *AlphaVantageFetcher) query(ctx context.Context, params map[string]string, out interface{}) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("alphavantage rate limit: %w", err)
	}
	params["apikey"] = f.apiKey

	f.log.Debug().Str("function", params["function"]).Str("symbol", params["symbol"]).Msg("alphavantage request")
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/query")
	if err != nil {
		return fmt.Errorf("alphavantage fetch: %w", err)
	}
	if resp.IsError() {
		return &APIError{Provider: f.Name(), StatusCode: resp.StatusCode(), Endpoint: params["function"], Message: resp.String()}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("alphavantage decode: %w", err)
	}
	return nil
}

// FetchDailyBars uses the compact output when from lies within the last
// hundred days and the full history otherwise.
func (f *AlphaVantageFetcher) FetchDailyBars(ctx context.Context, symbol string, from time.Time) ([]model.OHLCV, error) {
	from = calculator.Day(from)
	params := map[string]string{
		"function": "TIME_SERIES_DAILY_ADJUSTED",
		"symbol":   symbol,
	}
	if calculator.Day(f.now()).Sub(from) >= compactDays*24*time.Hour {
		params["outputsize"] = "full"
	}

	var res avDailyResponse
	if err := f.query(ctx, params, &res); err != nil {
		return nil, err
	}
	if msg := firstNonEmpty(res.ErrorMessage, res.Note, res.Information); msg != "" && len(res.TimeSeries) == 0 {
		return nil, &APIError{Provider: f.Name(), StatusCode: 200, Endpoint: params["function"], Message: msg}
	}

	bars := make([]model.OHLCV, 0, len(res.TimeSeries))
	for day, fields := range res.TimeSeries {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			f.log.Warn().Str("symbol", symbol).Str("date", day).Msg("skipping bar with malformed date")
			continue
		}
		if t.Before(from) {
			continue
		}
		c := parseField(fields, "4. close")
		if c == 0 {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   t,
			Open:   parseField(fields, "1. open"),
			High:   parseField(fields, "2. high"),
			Low:    parseField(fields, "3. low"),
			Close:  c,
			Volume: parseField(fields, "6. volume"),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// SearchSymbol returns the first ticker matching keywords that trades in the
// given currency on the given region, e.g. EUR on Frankfurt.
func (f *AlphaVantageFetcher) SearchSymbol(ctx context.Context, keywords, currency, region string) (string, error) {
	if currency == "" {
		currency = "EUR"
	}
	if region == "" {
		region = "Frankfurt"
	}
	var res avSearchResponse
	if err := f.query(ctx, map[string]string{"function": "SYMBOL_SEARCH", "keywords": keywords}, &res); err != nil {
		return "", err
	}
	for _, m := range res.BestMatches {
		if strings.Contains(m["8. currency"], currency) && strings.Contains(m["4. region"], region) {
			return m["1. symbol"], nil
		}
	}
	return "", fmt.Errorf("alphavantage: no %s symbol on %s for %q", currency, region, keywords)
}

func parseField(fields map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[key]), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
