package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockSentinel/internal/notifier"
	"StockSentinel/internal/report"
	"StockSentinel/internal/watchlist"
)

// Watchlist is the part of watchlist.Manager the scheduler drives.
type Watchlist interface {
	Evaluate(ctx context.Context, id string, force bool) (*watchlist.Outcome, error)
	EvaluateAll(ctx context.Context, force bool) ([]*watchlist.Outcome, error)
	Summaries() []watchlist.Summary
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	Watchlist  Watchlist
	Notifier   notifier.Sender // nil disables notifications
	ReportPath string
	Ctx        context.Context

	// running serializes evaluation runs started by cron and by commands.
	running sync.Mutex
	log     zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, wl Watchlist, sender notifier.Sender, reportPath string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Watchlist:  wl,
		Notifier:   sender,
		ReportPath: reportPath,
		Ctx:        ctx,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the evaluation and report tasks.
func (s *Scheduler) RegisterAll(evaluateCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(evaluateCron, s.RunNow); err != nil {
		return fmt.Errorf("register evaluate task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow evaluates every outdated stock and reports committed results.
func (s *Scheduler) RunNow() {
	s.evaluateTask(false)
}

func (s *Scheduler) evaluateTask(force bool) {
	s.running.Lock()
	defer s.running.Unlock()

	s.log.Info().Bool("force", force).Msg("running evaluation task")
	outcomes, err := s.Watchlist.EvaluateAll(s.Ctx, force)
	committed := 0
	for _, out := range outcomes {
		if !out.Committed {
			continue
		}
		committed++
		s.trySend(notifier.FormatEvaluation(out))
	}
	if err != nil {
		s.log.Error().Err(err).Msg("evaluation task finished with errors")
		s.trySend("❌ Evaluation errors:\n" + html.EscapeString(err.Error()))
	}
	if committed > 0 {
		s.trySend(notifier.FormatSummaryMessage(s.Watchlist.Summaries()))
	}
	s.log.Info().Int("evaluated", len(outcomes)).Int("committed", committed).Msg("evaluation task done")
}

func (s *Scheduler) reportTask() {
	summaries := s.Watchlist.Summaries()
	if s.ReportPath != "" {
		if err := report.WriteXLSX(s.ReportPath, summaries); err != nil {
			s.log.Error().Err(err).Str("path", s.ReportPath).Msg("write report failed")
		} else {
			s.log.Info().Str("path", s.ReportPath).Int("stocks", len(summaries)).Msg("report written")
		}
	}
	s.trySend(notifier.FormatSummaryMessage(summaries))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/list":
		return notifier.FormatSummaryMessage(s.Watchlist.Summaries())
	case "/eval":
		if len(fields) < 2 {
			return "Usage: /eval &lt;ISIN&gt;"
		}
		out, err := s.Watchlist.Evaluate(ctx, fields[1], true)
		if errors.Is(err, watchlist.ErrNotWatched) {
			return fmt.Sprintf("%s is not on the watchlist.", html.EscapeString(fields[1]))
		}
		if err != nil {
			s.log.Error().Err(err).Str("isin", fields[1]).Msg("command evaluation failed")
			return "❌ " + html.EscapeString(err.Error())
		}
		return notifier.FormatEvaluation(out)
	case "/evalall":
		go s.evaluateTask(true)
		return "Evaluation started."
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification failed")
	}
}
