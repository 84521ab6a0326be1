package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/hottubshop/pkg/config"
	"github.com/example/hottubshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// orderRow is one order in the SQL backed history. The full record is kept as JSON so the
// snapshot survives schema changes of the catalog.
type orderRow struct {
	ID         string          `gorm:"primaryKey;type:varchar(32)"`
	OwnerKey   string          `gorm:"type:varchar(64);not null;index"`
	GrossTotal decimal.Decimal `gorm:"type:decimal(12,2)"`
	Record     string          `gorm:"type:text"`
	CreatedAt  time.Time       `gorm:"index"`
}

func (orderRow) TableName() string {
	return "orders"
}

// SQLOrderRepository is an OrderRepository stored in MySQL through gorm.
type SQLOrderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSQLOrderRepository(cfg *config.MySQLConfig, logger *zap.Logger) (*SQLOrderRepository, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewSQLOrderRepositoryFromDB(db, logger)
}

func NewSQLOrderRepositoryFromDB(db *gorm.DB, logger *zap.Logger) (*SQLOrderRepository, error) {
	if err := db.AutoMigrate(&orderRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &SQLOrderRepository{db: db, logger: logger}, nil
}

func toOrderRow(ownerKey string, record models.OrderRecord) (orderRow, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return orderRow{}, err
	}
	return orderRow{
		ID:         record.ID,
		OwnerKey:   ownerKey,
		GrossTotal: record.GrossTotal,
		Record:     string(data),
		CreatedAt:  record.CreatedUTC,
	}, nil
}

func fromOrderRow(row orderRow) (models.OrderRecord, error) {
	var record models.OrderRecord
	if err := json.Unmarshal([]byte(row.Record), &record); err != nil {
		return models.OrderRecord{}, err
	}
	return record, nil
}

func (r *SQLOrderRepository) ListOrders(ctx context.Context, ownerKey string) ([]models.OrderRecord, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at desc").
		Find(&rows).Error
	if err != nil {
		r.logger.Warn("Failed to query order history, returning empty list",
			zap.String("owner", ownerKey), zap.Error(err))
		return []models.OrderRecord{}, nil
	}

	orders := make([]models.OrderRecord, 0, len(rows))
	for _, row := range rows {
		record, err := fromOrderRow(row)
		if err != nil {
			r.logger.Warn("Failed to parse order", zap.String("order_id", row.ID), zap.Error(err))
			continue
		}
		orders = append(orders, record)
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *SQLOrderRepository) AppendOrder(ctx context.Context, ownerKey string, record models.OrderRecord) error {
	row, err := toOrderRow(ownerKey, record)
	if err != nil {
		return fmt.Errorf("failed to serialize order: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.logger.Error("Failed to create order",
			zap.String("owner", ownerKey), zap.String("order_id", record.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (r *SQLOrderRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
