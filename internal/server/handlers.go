package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"StockSentinel/internal/model"
	"StockSentinel/internal/watchlist"
)

type criterionView struct {
	Criterion string    `json:"criterion"`
	Label     string    `json:"label"`
	Value     []float64 `json:"value"`
	Points    int       `json:"points"`
}

type resultView struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Year      int               `json:"year"`
	Score     int               `json:"score"`
	Criteria  []criterionView   `json:"criteria"`
	Failures  map[string]string `json:"failures,omitempty"`
}

type stockView struct {
	ISIN           string               `json:"isin"`
	Name           string               `json:"name"`
	CapType        model.CapType        `json:"cap_type"`
	Recommendation model.Recommendation `json:"recommendation"`
	Latest         *resultView          `json:"latest,omitempty"`
	Previous       *resultView          `json:"previous,omitempty"`
}

type evaluateView struct {
	stockView
	Committed bool `json:"committed"`
	Skipped   bool `json:"skipped"`
}

type scoreView struct {
	ResultID    string    `json:"result_id"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Score       int       `json:"score"`
}

func newResultView(r *model.EvaluationResult) *resultView {
	if r == nil {
		return nil
	}
	v := &resultView{ID: r.ID, Timestamp: r.Timestamp, Year: r.Year, Score: r.Score(), Failures: r.Failures}
	for _, c := range r.Criteria() {
		v.Criteria = append(v.Criteria, criterionView{c.Criterion, c.Label, c.Rating.Value, c.Rating.Points})
	}
	return v
}

func newStockView(s watchlist.Summary) stockView {
	return stockView{
		ISIN:           s.ISIN,
		Name:           s.Name,
		CapType:        s.CapType,
		Recommendation: s.Recommendation,
		Latest:         newResultView(s.Latest),
		Previous:       newResultView(s.Previous),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "stock-sentinel",
		"stocks":  len(s.watchlist.IDs()),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	ids := s.watchlist.IDs()
	out := make([]stockView, 0, len(ids))
	for _, id := range ids {
		sum, err := s.watchlist.Summary(id)
		if err != nil {
			continue
		}
		out = append(out, newStockView(sum))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	sum, err := s.watchlist.Summary(chi.URLParam(r, "isin"))
	if err != nil {
		s.writeWatchlistError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newStockView(sum))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	results, err := s.watchlist.History(chi.URLParam(r, "isin"))
	if err != nil {
		s.writeWatchlistError(w, err)
		return
	}
	out := make([]*resultView, 0, len(results))
	for _, res := range results {
		out = append(out, newResultView(res))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if s.scores == nil {
		s.writeError(w, http.StatusNotImplemented, "no result store configured")
		return
	}
	rows, err := s.scores.ScoreHistory(r.Context(), chi.URLParam(r, "isin"))
	if err != nil {
		s.log.Error().Err(err).Msg("score history query failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]scoreView, 0, len(rows))
	for _, row := range rows {
		out = append(out, scoreView{row.ResultID, row.EvaluatedAt, row.Score})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = b
	}

	out, err := s.watchlist.Evaluate(r.Context(), chi.URLParam(r, "isin"), force)
	if err != nil {
		s.writeWatchlistError(w, err)
		return
	}
	sum, err := s.watchlist.Summary(out.ISIN)
	if err != nil {
		s.writeWatchlistError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, evaluateView{
		stockView: newStockView(sum),
		Committed: out.Committed,
		Skipped:   out.Skipped,
	})
}

func (s *Server) writeWatchlistError(w http.ResponseWriter, err error) {
	if errors.Is(err, watchlist.ErrNotWatched) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error().Err(err).Msg("request failed")
	s.writeError(w, http.StatusBadGateway, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
