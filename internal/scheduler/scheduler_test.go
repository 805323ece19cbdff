package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
	"StockSentinel/internal/watchlist"
)

type fakeWatchlist struct {
	outcomes []*watchlist.Outcome
	err      error
	forced   []bool
	evalIDs  []string
	allRuns  chan bool // receives the force flag of every EvaluateAll
}

func (f *fakeWatchlist) Evaluate(_ context.Context, id string, force bool) (*watchlist.Outcome, error) {
	f.evalIDs = append(f.evalIDs, id)
	f.forced = append(f.forced, force)
	for _, o := range f.outcomes {
		if o.ISIN == id {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", watchlist.ErrNotWatched, id)
}

func (f *fakeWatchlist) EvaluateAll(_ context.Context, force bool) ([]*watchlist.Outcome, error) {
	f.forced = append(f.forced, force)
	if f.allRuns != nil {
		f.allRuns <- force
	}
	return f.outcomes, f.err
}

func (f *fakeWatchlist) Summaries() []watchlist.Summary {
	out := make([]watchlist.Summary, 0, len(f.outcomes))
	for _, o := range f.outcomes {
		out = append(out, watchlist.Summary{ISIN: o.ISIN, Name: o.Result.Name, Latest: o.Result, Recommendation: o.Recommendation})
	}
	return out
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func outcome(isin string, committed bool) *watchlist.Outcome {
	return &watchlist.Outcome{
		ISIN: isin,
		Result: &model.EvaluationResult{
			ISIN: isin, Name: "Stock " + isin,
			Timestamp: time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC),
			ROE:       model.NewRating(1, 25),
		},
		Committed:      committed,
		Recommendation: model.RecommendationSell,
	}
}

func newTestScheduler(wl Watchlist, sender *fakeSender, reportPath string) *Scheduler {
	return NewScheduler(context.Background(), wl, sender, reportPath, zerolog.Nop())
}

func TestRegisterAllRejectsBadSpec(t *testing.T) {
	s := newTestScheduler(&fakeWatchlist{}, nil, "")
	require.NoError(t, s.RegisterAll("0 0 19 * * 1-5", "0 0 8 * * 1"))
	assert.Len(t, s.Cron.Entries(), 2)

	s = newTestScheduler(&fakeWatchlist{}, nil, "")
	assert.Error(t, s.RegisterAll("every day", "0 0 8 * * 1"))
}

func TestRunNowNotifiesCommittedOnly(t *testing.T) {
	wl := &fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("A", true), outcome("B", false)}}
	sender := &fakeSender{}
	newTestScheduler(wl, sender, "").RunNow()

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "Stock A")
	assert.Contains(t, sender.sent[1], "Levermann watchlist")
	assert.Equal(t, []bool{false}, wl.forced)
}

func TestRunNowReportsErrors(t *testing.T) {
	wl := &fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("A", false)}, err: errors.New("snapshot B: <missing>")}
	sender := &fakeSender{}
	newTestScheduler(wl, sender, "").RunNow()

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "snapshot B: &lt;missing&gt;")
}

func TestRunNowWithoutNotifier(t *testing.T) {
	wl := &fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("A", true)}}
	s := NewScheduler(context.Background(), wl, nil, "", zerolog.Nop())
	assert.NotPanics(t, s.RunNow)
}

func TestReportTaskWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	sender := &fakeSender{}
	s := newTestScheduler(&fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("A", true)}}, sender, path)

	s.reportTask()

	_, err := os.Stat(path)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Stock A")
}

func TestHandleCommand(t *testing.T) {
	wl := &fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("DE0007164600", true)}}
	s := newTestScheduler(wl, &fakeSender{}, "")
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/list"), "Stock DE0007164600")
	assert.Contains(t, s.HandleCommand(ctx, "/eval DE0007164600"), "Total Levermann Score:")
	assert.Equal(t, []bool{true}, wl.forced)
	assert.Equal(t, "XX is not on the watchlist.", s.HandleCommand(ctx, "/eval XX"))
	assert.Contains(t, s.HandleCommand(ctx, "/eval"), "Usage")
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/list")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/eval")
}

func TestEvalAllCommandForcesEvaluation(t *testing.T) {
	wl := &fakeWatchlist{outcomes: []*watchlist.Outcome{outcome("A", true)}, allRuns: make(chan bool, 1)}
	s := newTestScheduler(wl, &fakeSender{}, "")

	assert.Equal(t, "Evaluation started.", s.HandleCommand(context.Background(), "/evalall"))
	select {
	case force := <-wl.allRuns:
		assert.True(t, force)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation was not started")
	}
}
