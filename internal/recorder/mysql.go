package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"StockSentinel/internal/model"
)

// MySQLRecorder persists evaluations to MySQL through gorm.
type MySQLRecorder struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

// NewMySQLRecorder connects with dsn, e.g.
// "user:pass@tcp(localhost:3306)/aktien?charset=utf8mb4&parseTime=True&loc=UTC",
// and migrates the four tables.
func NewMySQLRecorder(dsn string, log zerolog.Logger) (*MySQLRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	r, err := newGormRecorder(db, log)
	if err != nil {
		return nil, err
	}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func newGormRecorder(db *gorm.DB, log zerolog.Logger) (*MySQLRecorder, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	r := &MySQLRecorder{
		db:  db,
		log: log.With().Str("component", "recorder").Str("driver", db.Dialector.Name()).Logger(),
		now: time.Now,
	}
	r.log.Info().Msg("gorm recorder opened")
	return r, nil
}

func (r *MySQLRecorder) migrate() error {
	if err := r.db.AutoMigrate(&StockRow{}, &YearlyRow{}, &ValuesRow{}, &PointsRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *MySQLRecorder) SaveFundamentals(ctx context.Context, snap *model.StockSnapshot) (int64, error) {
	row := stockRow(snap, r.now())
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "isin"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "currency", "benchmark", "cap_type", "market_cap", "updated_at"}),
	}).Create(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("save fundamentals %s: %w", row.ISIN, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MySQLRecorder) SaveYearlyMetrics(ctx context.Context, snap *model.StockSnapshot) (int64, error) {
	rows := yearlyRows(snap)
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "isin"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"eps", "per", "roe", "ebit_margin", "equity_ratio", "q1", "q2", "q3", "q4"}),
	}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("save yearly %s: %w", snap.ID(), res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MySQLRecorder) SaveEvaluationValues(ctx context.Context, values *model.EvaluationValues) (int64, error) {
	row := valuesRow(values)
	res := r.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("save values %s: %w", row.ISIN, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MySQLRecorder) SaveEvaluationPoints(ctx context.Context, result *model.EvaluationResult) (int64, error) {
	row := pointsRow(result)
	res := r.db.WithContext(ctx).Create(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("save points %s: %w", row.ISIN, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *MySQLRecorder) ScoreHistory(ctx context.Context, isin string) ([]PointsRow, error) {
	var rows []PointsRow
	err := r.db.WithContext(ctx).
		Where("isin = ?", isin).
		Order("evaluated_at, id").
		Find(&rows).Error
	return rows, err
}

func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	r.log.Info().Msg("closing gorm recorder")
	return sqlDB.Close()
}
