package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type analysisRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Owner      string    `gorm:"not null;index:idx_analysis_owner_created,priority:1"`
	Kind       string    `gorm:"not null"`
	Competitor string    `gorm:"not null;default:''"`
	Query      string    `gorm:"not null"`
	Answer     string    `gorm:"not null"`
	Analysis   string    `gorm:"not null"`
	Score      string    `gorm:"not null;default:''"`
	TokensUsed int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null;index:idx_analysis_owner_created,priority:2"`
}

func (analysisRow) TableName() string {
	return "analysis"
}

func newAnalysisRow(a Analysis) analysisRow {
	return analysisRow{
		Owner:      a.Owner,
		Kind:       a.Kind,
		Competitor: a.Competitor,
		Query:      a.Query,
		Answer:     a.Answer,
		Analysis:   a.Analysis,
		Score:      a.Score,
		TokensUsed: a.TokensUsed,
		CreatedAt:  a.CreatedAt.UTC(),
	}
}

func (r analysisRow) analysis() Analysis {
	return Analysis{
		ID:         r.ID,
		Owner:      r.Owner,
		Kind:       r.Kind,
		Competitor: r.Competitor,
		Query:      r.Query,
		Answer:     r.Answer,
		Analysis:   r.Analysis,
		Score:      r.Score,
		TokensUsed: r.TokensUsed,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

// OpenSQLite opens (or creates) a local SQLite database file and migrates it.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: failed to open sqlite database %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: failed to get sqlite connection pool: %w", err)
	}
	// SQLite allows a single writer, and each :memory: connection is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err = db.AutoMigrate(&analysisRow{}); err != nil {
		return nil, fmt.Errorf("db: failed to migrate sqlite database: %w", err)
	}
	return &GormStore{db: db}, nil
}

// GormStore is a Store backed by a local SQLite file.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) AnalysisPut(ctx context.Context, a Analysis) (id int64, err error) {
	row := newAnalysisRow(a)
	if err = s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("db: insert analysis failed: %w", err)
	}
	return row.ID, nil
}

func (s *GormStore) AnalysisGet(ctx context.Context, owner string, id int64) (a Analysis, ok bool, err error) {
	var row analysisRow
	err = s.db.WithContext(ctx).Where("owner = ? and id = ?", owner, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a, false, nil
	}
	if err != nil {
		return a, false, err
	}
	return row.analysis(), true, nil
}

func (s *GormStore) AnalysisList(ctx context.Context, owner string, limit, offset int) (analyses []Analysis, err error) {
	var rows []analysisRow
	err = s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		analyses = append(analyses, row.analysis())
	}
	return analyses, nil
}

func (s *GormStore) AnalysisCount(ctx context.Context, owner string) (n int64, err error) {
	err = s.db.WithContext(ctx).Model(&analysisRow{}).Where("owner = ?", owner).Count(&n).Error
	return n, err
}

func (s *GormStore) AnalysisDelete(ctx context.Context, owner string, id int64) (ok bool, err error) {
	res := s.db.WithContext(ctx).Where("owner = ? and id = ?", owner, id).Delete(&analysisRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) AnalysisClear(ctx context.Context, owner string) (n int64, err error) {
	res := s.db.WithContext(ctx).Where("owner = ?", owner).Delete(&analysisRow{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) AnalysisPrune(ctx context.Context, owner string, keep int) (err error) {
	newest := s.db.Model(&analysisRow{}).
		Select("id").
		Where("owner = ?", owner).
		Order("created_at desc, id desc").
		Limit(keep)
	return s.db.WithContext(ctx).
		Where("owner = ? and id not in (?)", owner, newest).
		Delete(&analysisRow{}).Error
}

func (s *GormStore) AnalysisStats(ctx context.Context, owner string) (stats Stats, err error) {
	err = s.db.WithContext(ctx).
		Model(&analysisRow{}).
		Select(statsColumns).
		Where("owner = ?", owner).
		Scan(&stats).Error
	return stats, err
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
