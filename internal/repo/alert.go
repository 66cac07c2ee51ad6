package repo

import (
	"context"
	"time"

	"github.com/KNICEX/crypto-scout/internal/entity"
	"gorm.io/gorm"
)

type AlertRepo interface {
	Create(ctx context.Context, record entity.AlertRecord) (int64, error)
	FindByRecipient(ctx context.Context, recipient int64) ([]entity.AlertRecord, error)
	FindByEntity(ctx context.Context, entityID string) ([]entity.AlertRecord, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type alertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) AlertRepo {
	return &alertRepo{
		db: db,
	}
}

func (r *alertRepo) Create(ctx context.Context, record entity.AlertRecord) (int64, error) {
	err := r.db.WithContext(ctx).Create(&record).Error
	if err != nil {
		return 0, err
	}
	return record.Id, nil
}

func (r *alertRepo) FindByRecipient(ctx context.Context, recipient int64) ([]entity.AlertRecord, error) {
	var records []entity.AlertRecord
	err := r.db.WithContext(ctx).Where("recipient = ?", recipient).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *alertRepo) FindByEntity(ctx context.Context, entityID string) ([]entity.AlertRecord, error) {
	var records []entity.AlertRecord
	err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *alertRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AlertRecord{}).Where("created_at >= ?", since).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
