// internal/model/progress.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProgressRecord は1ユーザー・1ユニットの進捗状態を表します。
// 論理的には (user_id, course_id, unit_id) ごとに1件が「現在」の記録だが、
// リモートストアは履歴上の重複行を返すことがある。重複時は updated_at の
// 新しい方を現在として扱う（集計側で吸収する）。
type ProgressRecord struct {
	RecordID   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"record_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_course" json:"user_id"`
	CourseID   int        `gorm:"not null;index:idx_user_course" json:"course_id"`
	UnitID     int        `gorm:"not null" json:"unit_id"`
	Progress   float64    `gorm:"not null;default:0" json:"progress"` // 0.0〜1.0
	Completed  bool       `gorm:"not null;default:false" json:"completed"`
	Score      float64    `gorm:"not null;default:0" json:"score"`
	Attempted  bool       `gorm:"not null;default:false" json:"attempted"`
	FinishDate *time.Time `json:"finish_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// Validate は境界で記録の妥当性を検証します。
// 範囲外の progress は補正せずエラーとして拒否する（集計の計算には乗せない）。
func (r *ProgressRecord) Validate() error {
	if r == nil {
		return NewAppError("VALIDATION_ERROR", "進捗レコードが指定されていません。", "", ErrInvalidInput)
	}
	if r.UserID == uuid.Nil {
		return NewAppError("VALIDATION_ERROR", "ユーザーIDが指定されていません。", "user_id", ErrInvalidInput)
	}
	if r.CourseID <= 0 {
		return NewAppError("VALIDATION_ERROR", "コースIDが不正です。", "course_id", ErrInvalidInput)
	}
	if r.UnitID <= 0 {
		return NewAppError("VALIDATION_ERROR", "ユニットIDが不正です。", "unit_id", ErrInvalidInput)
	}
	if r.Progress < 0 || r.Progress > 1 {
		return NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("進捗率 %.3f は 0〜1 の範囲外です。", r.Progress), "progress", ErrInvalidInput)
	}
	if r.Score < 0 {
		return NewAppError("VALIDATION_ERROR", "スコアは0以上である必要があります。", "score", ErrInvalidInput)
	}
	return nil
}

// 進捗更新リクエストDTO
type UpdateUnitProgressRequest struct {
	Percent *int `json:"percent" validate:"required,min=0,max=100"`
}

// クイズ完了リクエストDTO
type CompleteQuizRequest struct {
	Score *float64 `json:"score" validate:"required,min=0,max=100"`
}

// 証明書更新リクエストDTO
type UpdateCertificateRequest struct {
	ActivitiesScore *float64 `json:"activities_score" validate:"required,min=0,max=100"`
	Downloaded      bool     `json:"downloaded"`
}
