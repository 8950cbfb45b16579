//go:generate mockery --name ProgressRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"

	"course_progress_engine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressRepository はリモート進捗ストアへのアクセスを抽象化します。
// リモート側は履歴上の重複行を返しうるため、GetUserProgress は絞り込まずに
// 全行を返し、重複の解決は集計側（Service層）で行う。
type ProgressRepository interface {
	GetUserProgress(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.ProgressRecord, error)
	FindCurrent(ctx context.Context, db *gorm.DB, userID uuid.UUID, courseID, unitID int) (*model.ProgressRecord, error)
	Create(ctx context.Context, tx *gorm.DB, record *model.ProgressRecord) error // トランザクション対応
	Update(ctx context.Context, tx *gorm.DB, record *model.ProgressRecord) error // トランザクション対応
	DeleteByCourse(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID int) error
}

type gormProgressRepository struct {
	// DB接続はService層から渡される想定
}

func NewGormProgressRepository() ProgressRepository {
	return &gormProgressRepository{}
}

func (r *gormProgressRepository) GetUserProgress(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.ProgressRecord, error) {
	var records []*model.ProgressRecord
	result := db.WithContext(ctx).Where("user_id = ?", userID).Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (r *gormProgressRepository) FindCurrent(ctx context.Context, db *gorm.DB, userID uuid.UUID, courseID, unitID int) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	// 重複行があっても最新の1件を「現在」として返す
	result := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND unit_id = ?", userID, courseID, unitID).
		Order("updated_at DESC, created_at DESC").
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, result.Error
	}
	return &record, nil
}

func (r *gormProgressRepository) Create(ctx context.Context, tx *gorm.DB, record *model.ProgressRecord) error {
	// UUIDはService層で設定済み想定
	result := tx.WithContext(ctx).Create(record)
	return result.Error
}

func (r *gormProgressRepository) Update(ctx context.Context, tx *gorm.DB, record *model.ProgressRecord) error {
	// record 全体を渡して更新。存在確認は呼び出し元(Service)で行っている想定
	result := tx.WithContext(ctx).Save(record)
	return result.Error
}

func (r *gormProgressRepository) DeleteByCourse(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID int) error {
	// リセットはコース単位の一括削除のみ（個別削除のAPIは存在しない）
	result := tx.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.ProgressRecord{})
	return result.Error
}
