//go:generate mockery --name CourseRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"

	"course_progress_engine/internal/model"

	"gorm.io/gorm"
)

// CourseRepository はコースカタログ（外部コラボレータ）への読み取り専用アクセスです
type CourseRepository interface {
	ListCourses(ctx context.Context, db *gorm.DB) ([]*model.Course, error)
	FindCourse(ctx context.Context, db *gorm.DB, courseID int) (*model.Course, error)
}

type gormCourseRepository struct {
}

func NewGormCourseRepository() CourseRepository {
	return &gormCourseRepository{}
}

func (r *gormCourseRepository) ListCourses(ctx context.Context, db *gorm.DB) ([]*model.Course, error) {
	var courses []*model.Course
	result := db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("units.position ASC")
		}).
		Order("courses.course_id ASC").
		Find(&courses)
	if result.Error != nil {
		return nil, result.Error
	}
	return courses, nil
}

func (r *gormCourseRepository) FindCourse(ctx context.Context, db *gorm.DB, courseID int) (*model.Course, error) {
	var course model.Course
	result := db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("units.position ASC")
		}).
		Where("course_id = ?", courseID).
		First(&course)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, result.Error
	}
	return &course, nil
}
