package recorder

import (
	"context"
	"time"

	"StockSentinel/internal/model"
)

// missingValue marks an absent yearly figure in stock_yearly.
const missingValue = -1

// Recorder persists committed evaluations for later analysis. Every save
// returns the number of affected rows.
type Recorder interface {
	SaveFundamentals(ctx context.Context, snap *model.StockSnapshot) (int64, error)
	SaveYearlyMetrics(ctx context.Context, snap *model.StockSnapshot) (int64, error)
	SaveEvaluationValues(ctx context.Context, values *model.EvaluationValues) (int64, error)
	SaveEvaluationPoints(ctx context.Context, result *model.EvaluationResult) (int64, error)
	// ScoreHistory returns the committed scores of a stock, oldest first.
	ScoreHistory(ctx context.Context, isin string) ([]PointsRow, error)
	Close() error
}

// StockRow is one row of the stocks table.
type StockRow struct {
	ID        uint      `gorm:"primaryKey"`
	ISIN      string    `gorm:"size:32;uniqueIndex;not null"`
	Name      string    `gorm:"size:255"`
	Symbol    string    `gorm:"size:32"`
	Currency  string    `gorm:"size:8"`
	Benchmark string    `gorm:"size:64"`
	CapType   string    `gorm:"size:16"`
	MarketCap float64
	UpdatedAt time.Time
}

func (StockRow) TableName() string { return "stocks" }

// YearlyRow holds the yearly fundamentals of a stock together with the
// quarterly figure release dates of that year.
type YearlyRow struct {
	ID          uint   `gorm:"primaryKey"`
	ISIN        string `gorm:"size:32;uniqueIndex:idx_isin_year;not null"`
	Year        int    `gorm:"uniqueIndex:idx_isin_year;not null"`
	EPS         float64
	PER         float64
	ROE         float64
	EBITMargin  float64
	EquityRatio float64
	Q1          *time.Time `gorm:"type:date"`
	Q2          *time.Time `gorm:"type:date"`
	Q3          *time.Time `gorm:"type:date"`
	Q4          *time.Time `gorm:"type:date"`
}

func (YearlyRow) TableName() string { return "stock_yearly" }

// ValuesRow is the raw input set behind one evaluation.
type ValuesRow struct {
	ID                  uint      `gorm:"primaryKey"`
	ISIN                string    `gorm:"size:32;index;not null"`
	EvaluatedAt         time.Time `gorm:"index"`
	AnalystGrade        *int
	AnalystCount        *int
	PriceTarget         *float64
	EPSCurrent          *float64
	EPSNext             *float64
	RevisionCurrentYear *float64
	RevisionNextYear    *float64
	PER                 *float64
	PER5Year            *float64
	Quote               float64
	LastQuarterlyDate   *time.Time `gorm:"type:date"`
	QuarterlyStockChg   *float64
	QuarterlyIndexChg   *float64
	QuoteChg6Month      *float64
	QuoteChg1Year       *float64
}

func (ValuesRow) TableName() string { return "levermann_values" }

// PointsRow stores the points of every criterion and the total score.
type PointsRow struct {
	ID                          uint      `gorm:"primaryKey"`
	ResultID                    string    `gorm:"size:36;uniqueIndex;not null"`
	ISIN                        string    `gorm:"size:32;index;not null"`
	EvaluatedAt                 time.Time `gorm:"index"`
	ROE                         int
	EquityRatio                 int
	EBITMargin                  int
	EarningGrowth               int
	ThreeMonthReversal          int
	Momentum                    int
	QuoteChg6Month              int
	QuoteChg1Year               int
	EarningRevision             int
	QuarterlyFiguresReaction    int
	AnalystRating               int
	PriceEarningsRatio          int
	FiveYearsPriceEarningsRatio int
	Score                       int
}

func (PointsRow) TableName() string { return "levermann_points" }

func stockRow(snap *model.StockSnapshot, now time.Time) StockRow {
	return StockRow{
		ISIN:      snap.ID(),
		Name:      snap.Name,
		Symbol:    snap.Symbol,
		Currency:  snap.Currency,
		Benchmark: snap.Benchmark,
		CapType:   snap.CapType.String(),
		MarketCap: snap.MarketCap,
		UpdatedAt: now,
	}
}

func figure(f model.YearlyFigures, year int) float64 {
	if v, ok := f.Get(year); ok {
		return v
	}
	return missingValue
}

// yearlyRows builds one row per year known to the snapshot. Absent figures
// are stored as -1.
func yearlyRows(snap *model.StockSnapshot) []YearlyRow {
	years := snap.Years()
	rows := make([]YearlyRow, 0, len(years))
	for _, y := range years {
		row := YearlyRow{
			ISIN:        snap.ID(),
			Year:        y,
			EPS:         figure(snap.EPS, y),
			PER:         figure(snap.PER, y),
			ROE:         figure(snap.ROE, y),
			EBITMargin:  figure(snap.EBITMargin, y),
			EquityRatio: figure(snap.EquityRatio, y),
		}
		quarters := []**time.Time{&row.Q1, &row.Q2, &row.Q3, &row.Q4}
		for i, d := range snap.QuarterlyDatesIn(y) {
			if i >= len(quarters) {
				break
			}
			d := d
			*quarters[i] = &d
		}
		rows = append(rows, row)
	}
	return rows
}

func valuesRow(v *model.EvaluationValues) ValuesRow {
	return ValuesRow{
		ISIN:                v.ISIN,
		EvaluatedAt:         v.Timestamp,
		AnalystGrade:        v.AnalystGrade,
		AnalystCount:        v.AnalystCount,
		PriceTarget:         v.PriceTarget,
		EPSCurrent:          v.EPSCurrent,
		EPSNext:             v.EPSNext,
		RevisionCurrentYear: v.RevisionCurrentYear,
		RevisionNextYear:    v.RevisionNextYear,
		PER:                 v.PER,
		PER5Year:            v.PER5Year,
		Quote:               v.Quote,
		LastQuarterlyDate:   v.LastQuarterlyDate,
		QuarterlyStockChg:   v.QuarterlyStockChg,
		QuarterlyIndexChg:   v.QuarterlyIndexChg,
		QuoteChg6Month:      v.QuoteChg6Month,
		QuoteChg1Year:       v.QuoteChg1Year,
	}
}

func pointsRow(r *model.EvaluationResult) PointsRow {
	return PointsRow{
		ResultID:                    r.ID,
		ISIN:                        r.ISIN,
		EvaluatedAt:                 r.Timestamp,
		ROE:                         r.ROE.Points,
		EquityRatio:                 r.EquityRatio.Points,
		EBITMargin:                  r.EBITMargin.Points,
		EarningGrowth:               r.EarningGrowth.Points,
		ThreeMonthReversal:          r.ThreeMonthReversal.Points,
		Momentum:                    r.Momentum.Points,
		QuoteChg6Month:              r.QuoteChg6Month.Points,
		QuoteChg1Year:               r.QuoteChg1Year.Points,
		EarningRevision:             r.EarningRevision.Points,
		QuarterlyFiguresReaction:    r.QuarterlyFiguresReaction.Points,
		AnalystRating:               r.AnalystRating.Points,
		PriceEarningsRatio:          r.PriceEarningsRatio.Points,
		FiveYearsPriceEarningsRatio: r.FiveYearsPriceEarningsRatio.Points,
		Score:                       r.Score(),
	}
}
