package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnmatchedPaymentGormRepository struct {
	db *gorm.DB
}

func NewUnmatchedPaymentGormRepository(db *gorm.DB) *UnmatchedPaymentGormRepository {
	return &UnmatchedPaymentGormRepository{db: db}
}

// referenceで一意。同じ決済の再送は握りつぶす。
func (r *UnmatchedPaymentGormRepository) Record(ctx context.Context, p model.UnmatchedPayment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference"}},
			DoNothing: true,
		}).
		Create(&p).Error
}

func (r *UnmatchedPaymentGormRepository) ListUnresolved(ctx context.Context, limit int) ([]model.UnmatchedPayment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var items []model.UnmatchedPayment
	if err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return []model.UnmatchedPayment{}, err
	}
	return items, nil
}
