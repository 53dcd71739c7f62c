package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationTokenGormRepository struct {
	db *gorm.DB
}

func NewVerificationTokenGormRepository(db *gorm.DB) *VerificationTokenGormRepository {
	return &VerificationTokenGormRepository{db: db}
}

// order_numberにつき1件。競合はON CONFLICT DO NOTHINGで吸収して既存行を返す（冪等）。
// 失敗INSERTを出さないので、囲んでいるトランザクションを中断させない。
func (r *VerificationTokenGormRepository) Create(ctx context.Context, t model.VerificationToken) (model.VerificationToken, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_number"}},
			DoNothing: true,
		}).
		Create(&t)

	if res.Error != nil {
		return model.VerificationToken{}, res.Error
	}
	if res.RowsAffected == 0 {
		return r.FindByOrderNumber(ctx, t.OrderNumber)
	}
	return t, nil
}

func (r *VerificationTokenGormRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (model.VerificationToken, error) {
	var t model.VerificationToken
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.VerificationToken{}, repo.ErrNotFound
	}
	if err != nil {
		return model.VerificationToken{}, err
	}
	return t, nil
}

// 有効なときだけusage_countを+1する。上限到達の回でusedも同時にtrueになるので、
// 3回目の使用は成功しつつ4回目からは弾かれる。
func (r *VerificationTokenGormRepository) ConsumeUse(ctx context.Context, orderNumber string, token string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.VerificationToken{}).
		Where("order_number = ? AND token = ? AND used = false AND usage_count < ? AND expires_at > ?",
			orderNumber, token, model.MaxTokenUsage, now).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"used":        gorm.Expr("usage_count + 1 >= ?", model.MaxTokenUsage),
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
