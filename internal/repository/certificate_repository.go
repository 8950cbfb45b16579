//go:generate mockery --name CertificateRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"

	"course_progress_engine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificateRepository は発行済み証明書の永続化を担当します
type CertificateRepository interface {
	FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID uuid.UUID, courseID int) (*model.Certificate, error)
	Create(ctx context.Context, tx *gorm.DB, cert *model.Certificate) error // トランザクション対応
	Update(ctx context.Context, tx *gorm.DB, cert *model.Certificate) error // トランザクション対応
}

type gormCertificateRepository struct {
}

func NewGormCertificateRepository() CertificateRepository {
	return &gormCertificateRepository{}
}

func (r *gormCertificateRepository) FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID uuid.UUID, courseID int) (*model.Certificate, error) {
	var cert model.Certificate
	result := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&cert)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, result.Error
	}
	return &cert, nil
}

func (r *gormCertificateRepository) Create(ctx context.Context, tx *gorm.DB, cert *model.Certificate) error {
	result := tx.WithContext(ctx).Create(cert)
	return result.Error
}

func (r *gormCertificateRepository) Update(ctx context.Context, tx *gorm.DB, cert *model.Certificate) error {
	result := tx.WithContext(ctx).Save(cert)
	return result.Error
}
