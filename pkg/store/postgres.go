// pkg/store/postgres.go
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"LevelRadar/pkg/config"
	"LevelRadar/pkg/model"
)

// PostgresStore 基于PostgreSQL的预警存储
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore 创建PostgreSQL存储并执行表迁移
func NewPostgresStore(cfg *config.Config) (*PostgresStore, error) {
	pgCfg := cfg.Database.Postgres

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pgCfg.Host, pgCfg.Port, pgCfg.User, pgCfg.Password, pgCfg.DBName, pgCfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接池失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("测试数据库连接失败: %w", err)
	}

	// 启动时迁移表结构
	if err := db.AutoMigrate(&model.Alert{}); err != nil {
		return nil, fmt.Errorf("迁移表结构失败: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close 关闭数据库连接
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查数据库连接状态
func (s *PostgresStore) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *PostgresStore) Create(alert *model.Alert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("保存预警失败: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByUUID(uuid string) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.First(&alert, "uuid = ?", uuid).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("获取预警失败: %w", err)
	}
	return &alert, nil
}

func (s *PostgresStore) List(filter Filter) ([]*model.Alert, error) {
	var alerts []*model.Alert
	query := s.db.Model(&model.Alert{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Instrument != "" {
		query = query.Where("lhs_exchange || ':' || lhs_trading_symbol = ?", filter.Instrument)
	}
	if filter.TriggeredOnly {
		query = query.Where("alert_count >= 1")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	err := query.Order("created_at DESC").Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询预警失败: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) ListEligible() ([]*model.Alert, error) {
	var alerts []*model.Alert
	err := s.db.Where("status = ? AND alert_count = 0", model.StatusEnabled).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询待评估预警失败: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) ListTriggeredSince(since time.Time, limit int) ([]*model.Alert, error) {
	var alerts []*model.Alert
	query := s.db.Where("alert_count >= 1")
	if !since.IsZero() {
		query = query.Where("last_triggered_at > ?", since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("last_triggered_at DESC").Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询已触发预警失败: %w", err)
	}
	return alerts, nil
}

// MarkTriggered 条件更新实现一次性触发：WHERE子句同时检查状态和计数，
// 并发评估轮次中只有一个写入者的RowsAffected为1。
func (s *PostgresStore) MarkTriggered(uuid string, price float64, at time.Time) (bool, error) {
	result := s.db.Model(&model.Alert{}).
		Where("uuid = ? AND status = ? AND alert_count = 0", uuid, model.StatusEnabled).
		Updates(map[string]interface{}{
			"status":               model.StatusTriggered,
			"alert_count":          1,
			"last_triggered_at":    at,
			"last_triggered_price": price,
		})

	if result.Error != nil {
		return false, fmt.Errorf("更新触发状态失败: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *PostgresStore) Disable(uuid string, reason string) error {
	result := s.db.Model(&model.Alert{}).
		Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"status":          model.StatusDisabled,
			"disabled_reason": reason,
		})

	if result.Error != nil {
		return fmt.Errorf("停用预警失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *PostgresStore) Reenable(uuid string) error {
	result := s.db.Model(&model.Alert{}).
		Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"status":          model.StatusEnabled,
			"alert_count":     0,
			"disabled_reason": "",
		})

	if result.Error != nil {
		return fmt.Errorf("启用预警失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(uuid string) error {
	result := s.db.Delete(&model.Alert{}, "uuid = ?", uuid)
	if result.Error != nil {
		return fmt.Errorf("删除预警失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}
