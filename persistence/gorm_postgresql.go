// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/matchlobby/models"
)

// GormHistory 使用GORM的PostgreSQL历史存储
type GormHistory struct {
	db *gorm.DB
}

// NewGormHistory 创建GORM PostgreSQL数据库连接
func NewGormHistory(host string, port int, user, password, dbname string) (*GormHistory, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm postgres")
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "gorm sql handle")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return NewGormHistoryFromDB(db)
}

// NewGormHistoryFromDB wraps an open gorm handle and migrates the history
// table.
func NewGormHistoryFromDB(db *gorm.DB) (*GormHistory, error) {
	if err := db.AutoMigrate(&models.GormMatchEvent{}); err != nil {
		return nil, errors.Wrap(err, "migrate match_events")
	}
	return &GormHistory{db: db}, nil
}

func (p *GormHistory) Record(ctx context.Context, e models.MatchEvent) error {
	return p.db.WithContext(ctx).Create(models.NewGormMatchEvent(e)).Error
}

func (p *GormHistory) Recent(ctx context.Context, limit int) ([]models.MatchEvent, error) {
	var rows []models.GormMatchEvent
	err := p.db.WithContext(ctx).
		Order("occurred_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return convertRows(rows), nil
}

func (p *GormHistory) ByMatch(ctx context.Context, matchID string) ([]models.MatchEvent, error) {
	var rows []models.GormMatchEvent
	err := p.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("occurred_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}
	return convertRows(rows), nil
}

// Close 关闭数据库连接
func (p *GormHistory) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func convertRows(rows []models.GormMatchEvent) []models.MatchEvent {
	result := make([]models.MatchEvent, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].MatchEvent())
	}
	return result
}
