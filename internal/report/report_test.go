package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"StockSentinel/internal/model"
	"StockSentinel/internal/watchlist"
)

func TestWriteXLSX(t *testing.T) {
	ts := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	latest := &model.EvaluationResult{
		Timestamp:  ts,
		ROE:        model.NewRating(1, 22),
		Momentum:   model.NewRating(-1, -1),
		EBITMargin: model.NewRating(1, 15),
	}
	prev := &model.EvaluationResult{Timestamp: ts.AddDate(0, 0, -9)}

	path := filepath.Join(t.TempDir(), "out", "levermann.xlsx")
	err := WriteXLSX(path, []watchlist.Summary{
		{ISIN: "DE0007164600", Name: "SAP SE", CapType: model.CapLarge, Latest: latest, Previous: prev, Recommendation: model.RecommendationHold},
		{ISIN: "DE0007236101", Name: "Siemens AG", CapType: model.CapLarge, Recommendation: model.RecommendationNone},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ISIN", "Name", "Cap", "Prev Score", "Prev Date", "Last Score", "Last Date", "Advise"}, rows[0])
	assert.Equal(t, []string{"DE0007164600", "SAP SE", "LARGE", "0", "2026-03-09", "1", "2026-03-18", "HOLD"}, rows[1])
	assert.Equal(t, "N/A", rows[2][3])
	assert.Equal(t, "NONE", rows[2][7])

	points, err := f.GetRows(PointsSheet)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Len(t, points[0], 17)
	assert.Equal(t, "RoE", points[0][3])
	assert.Equal(t, "Score", points[0][16])
	assert.Equal(t, "1", points[1][3])
	assert.Equal(t, "1", points[1][5])
	assert.Equal(t, "-1", points[1][8])
	assert.Equal(t, "1", points[1][16])
}
