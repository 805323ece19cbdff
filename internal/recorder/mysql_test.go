package recorder

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"StockSentinel/internal/model"
)

func newMockMySQLRecorder(t *testing.T) (*MySQLRecorder, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	r, err := newGormRecorder(db, zerolog.Nop())
	require.NoError(t, err)
	r.now = func() time.Time { return date(2026, 3, 18) }
	return r, mock
}

func TestMySQLSaveFundamentalsUpsert(t *testing.T) {
	r, mock := newMockMySQLRecorder(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `stocks` (`isin`,`name`,`symbol`,`currency`,`benchmark`,`cap_type`,`market_cap`,`updated_at`) VALUES (?,?,?,?,?,?,?,?) " +
		"ON DUPLICATE KEY UPDATE `name`=VALUES(`name`),`symbol`=VALUES(`symbol`),`currency`=VALUES(`currency`),`benchmark`=VALUES(`benchmark`)," +
		"`cap_type`=VALUES(`cap_type`),`market_cap`=VALUES(`market_cap`),`updated_at`=VALUES(`updated_at`)")).
		WithArgs("DE0007164600", "SAP SE", "SAP.DE", "", "", "LARGE", 200e9, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 2))

	n, err := r.SaveFundamentals(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "an updated duplicate counts twice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSaveYearlyMetricsUpsert(t *testing.T) {
	r, mock := newMockMySQLRecorder(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `stock_yearly` (`isin`,`year`,`eps`,`per`,`roe`,`ebit_margin`,`equity_ratio`,`q1`,`q2`,`q3`,`q4`) VALUES ") +
		".*" + regexp.QuoteMeta("ON DUPLICATE KEY UPDATE `eps`=VALUES(`eps`),`per`=VALUES(`per`),`roe`=VALUES(`roe`),`ebit_margin`=VALUES(`ebit_margin`),"+
		"`equity_ratio`=VALUES(`equity_ratio`),`q1`=VALUES(`q1`),`q2`=VALUES(`q2`),`q3`=VALUES(`q3`),`q4`=VALUES(`q4`)")).
		WillReturnResult(sqlmock.NewResult(1, 3))

	n, err := r.SaveYearlyMetrics(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = r.SaveYearlyMetrics(context.Background(), &model.StockSnapshot{ISIN: "DE0007164600"})
	require.NoError(t, err)
	assert.Zero(t, n, "no years, no statement")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSavePointsAndHistory(t *testing.T) {
	r, mock := newMockMySQLRecorder(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `levermann_points` (`result_id`,`isin`,`evaluated_at`,`roe`,")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	n, err := r.SaveEvaluationPoints(ctx, &model.EvaluationResult{
		ID: "a", ISIN: "DE0007164600", Timestamp: date(2026, 3, 1),
		ROE: model.NewRating(1, 22), EquityRatio: model.NewRating(1, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `levermann_points` WHERE isin = ? ORDER BY evaluated_at, id")).
		WithArgs("DE0007164600").
		WillReturnRows(sqlmock.NewRows([]string{"id", "result_id", "isin", "evaluated_at", "roe", "score"}).
			AddRow(7, "a", "DE0007164600", date(2026, 3, 1), 1, 2).
			AddRow(8, "b", "DE0007164600", date(2026, 3, 10), -1, -1))

	hist, err := r.ScoreHistory(ctx, "DE0007164600")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "a", hist[0].ResultID)
	assert.Equal(t, 2, hist[0].Score)
	assert.Equal(t, -1, hist[1].ROE)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSaveErrorNamesStock(t *testing.T) {
	r, mock := newMockMySQLRecorder(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `stocks`")).WillReturnError(errors.New("deadlock found"))
	_, err := r.SaveFundamentals(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save fundamentals DE0007164600")
	assert.Contains(t, err.Error(), "deadlock found")

	mock.ExpectClose()
	assert.NoError(t, r.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
