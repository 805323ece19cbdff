package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockSentinel/internal/model"
)

// SQLiteRecorder persists evaluations to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:  db,
		log: log.With().Str("component", "recorder").Str("driver", "sqlite").Logger(),
		now: time.Now,
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			isin       TEXT NOT NULL UNIQUE,
			name       TEXT,
			symbol     TEXT,
			currency   TEXT,
			benchmark  TEXT,
			cap_type   TEXT,
			market_cap REAL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS stock_yearly (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			isin         TEXT NOT NULL,
			year         INTEGER NOT NULL,
			eps          REAL,
			per          REAL,
			roe          REAL,
			ebit_margin  REAL,
			equity_ratio REAL,
			q1           TEXT,
			q2           TEXT,
			q3           TEXT,
			q4           TEXT,
			UNIQUE (isin, year)
		)`,

		`CREATE TABLE IF NOT EXISTS levermann_values (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			isin                  TEXT NOT NULL,
			evaluated_at          INTEGER NOT NULL,
			analyst_grade         INTEGER,
			analyst_count         INTEGER,
			price_target          REAL,
			eps_current           REAL,
			eps_next              REAL,
			revision_current_year REAL,
			revision_next_year    REAL,
			per                   REAL,
			per_5year             REAL,
			quote                 REAL,
			last_quarterly_date   TEXT,
			quarterly_stock_chg   REAL,
			quarterly_index_chg   REAL,
			quote_chg_6month      REAL,
			quote_chg_1year       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_values_isin_ts ON levermann_values(isin, evaluated_at)`,

		`CREATE TABLE IF NOT EXISTS levermann_points (
			id                              INTEGER PRIMARY KEY AUTOINCREMENT,
			result_id                       TEXT NOT NULL UNIQUE,
			isin                            TEXT NOT NULL,
			evaluated_at                    INTEGER NOT NULL,
			roe                             INTEGER,
			equity_ratio                    INTEGER,
			ebit_margin                     INTEGER,
			earning_growth                  INTEGER,
			three_month_reversal            INTEGER,
			momentum                        INTEGER,
			quote_chg_6month                INTEGER,
			quote_chg_1year                 INTEGER,
			earning_revision                INTEGER,
			quarterly_figures_reaction      INTEGER,
			analyst_rating                  INTEGER,
			price_earnings_ratio            INTEGER,
			five_years_price_earnings_ratio INTEGER,
			score                           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_isin_ts ON levermann_points(isin, evaluated_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func (r *SQLiteRecorder) SaveFundamentals(ctx context.Context, snap *model.StockSnapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := stockRow(snap, r.now())
	res, err := r.db.ExecContext(ctx, `INSERT INTO stocks
		(isin, name, symbol, currency, benchmark, cap_type, market_cap, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(isin) DO UPDATE SET
			name=excluded.name, symbol=excluded.symbol, currency=excluded.currency,
			benchmark=excluded.benchmark, cap_type=excluded.cap_type,
			market_cap=excluded.market_cap, updated_at=excluded.updated_at`,
		row.ISIN, row.Name, row.Symbol, row.Currency, row.Benchmark,
		row.CapType, row.MarketCap, row.UpdatedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("save fundamentals %s: %w", row.ISIN, err)
	}
	return res.RowsAffected()
}

// SaveYearlyMetrics upserts one row per year inside a single transaction.
func (r *SQLiteRecorder) SaveYearlyMetrics(ctx context.Context, snap *model.StockSnapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, row := range yearlyRows(snap) {
		res, err := tx.ExecContext(ctx, `INSERT INTO stock_yearly
			(isin, year, eps, per, roe, ebit_margin, equity_ratio, q1, q2, q3, q4)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(isin, year) DO UPDATE SET
				eps=excluded.eps, per=excluded.per, roe=excluded.roe,
				ebit_margin=excluded.ebit_margin, equity_ratio=excluded.equity_ratio,
				q1=excluded.q1, q2=excluded.q2, q3=excluded.q3, q4=excluded.q4`,
			row.ISIN, row.Year, row.EPS, row.PER, row.ROE, row.EBITMargin, row.EquityRatio,
			nullDate(row.Q1), nullDate(row.Q2), nullDate(row.Q3), nullDate(row.Q4),
		)
		if err != nil {
			return 0, fmt.Errorf("save yearly %s/%d: %w", row.ISIN, row.Year, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *SQLiteRecorder) SaveEvaluationValues(ctx context.Context, values *model.EvaluationValues) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := valuesRow(values)
	res, err := r.db.ExecContext(ctx, `INSERT INTO levermann_values
		(isin, evaluated_at, analyst_grade, analyst_count, price_target,
		 eps_current, eps_next, revision_current_year, revision_next_year,
		 per, per_5year, quote, last_quarterly_date,
		 quarterly_stock_chg, quarterly_index_chg, quote_chg_6month, quote_chg_1year)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.ISIN, v.EvaluatedAt.Unix(), v.AnalystGrade, v.AnalystCount, v.PriceTarget,
		v.EPSCurrent, v.EPSNext, v.RevisionCurrentYear, v.RevisionNextYear,
		v.PER, v.PER5Year, v.Quote, nullDate(v.LastQuarterlyDate),
		v.QuarterlyStockChg, v.QuarterlyIndexChg, v.QuoteChg6Month, v.QuoteChg1Year,
	)
	if err != nil {
		return 0, fmt.Errorf("save values %s: %w", v.ISIN, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRecorder) SaveEvaluationPoints(ctx context.Context, result *model.EvaluationResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := pointsRow(result)
	res, err := r.db.ExecContext(ctx, `INSERT INTO levermann_points
		(result_id, isin, evaluated_at, roe, equity_ratio, ebit_margin, earning_growth,
		 three_month_reversal, momentum, quote_chg_6month, quote_chg_1year,
		 earning_revision, quarterly_figures_reaction, analyst_rating,
		 price_earnings_ratio, five_years_price_earnings_ratio, score)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ResultID, p.ISIN, p.EvaluatedAt.Unix(), p.ROE, p.EquityRatio, p.EBITMargin, p.EarningGrowth,
		p.ThreeMonthReversal, p.Momentum, p.QuoteChg6Month, p.QuoteChg1Year,
		p.EarningRevision, p.QuarterlyFiguresReaction, p.AnalystRating,
		p.PriceEarningsRatio, p.FiveYearsPriceEarningsRatio, p.Score,
	)
	if err != nil {
		return 0, fmt.Errorf("save points %s: %w", p.ISIN, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRecorder) ScoreHistory(ctx context.Context, isin string) ([]PointsRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT result_id, isin, evaluated_at, score FROM levermann_points
		 WHERE isin = ? ORDER BY evaluated_at, id`, isin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PointsRow
	for rows.Next() {
		var p PointsRow
		var ts int64
		if err := rows.Scan(&p.ResultID, &p.ISIN, &ts, &p.Score); err != nil {
			return nil, err
		}
		p.EvaluatedAt = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
