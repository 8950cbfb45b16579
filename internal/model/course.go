// internal/model/course.go
package model

import "time"

// Course はコースカタログの1コースを表します（このサブシステムからは読み取り専用）
type Course struct {
	CourseID  int       `gorm:"primaryKey" json:"course_id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// 関連 (Preload用)。Positionは1始まりで、公開後は不変
	Units []Unit `gorm:"foreignKey:CourseID;references:CourseID" json:"units"`
}

func (Course) TableName() string {
	return "courses"
}

// Unit はコース内の1ユニット（教材単位）を表します
type Unit struct {
	CourseID int    `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
	UnitID   int    `gorm:"primaryKey;autoIncrement:false" json:"unit_id"`
	Name     string `gorm:"not null" json:"name"`
	Position int    `gorm:"not null" json:"position"` // コース内の表示順 (1始まり)
}

func (Unit) TableName() string {
	return "units"
}
