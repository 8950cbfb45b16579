// internal/model/summary.go
package model

import "time"

// UnitStatus は集計後の1ユニットの状態です（派生値・永続化しない）
type UnitStatus struct {
	UnitID          int        `json:"unit_id"`
	Name            string     `json:"name"`
	Position        int        `json:"position"`
	ProgressPercent int        `json:"progress_percent"` // 0〜100
	Completed       bool       `json:"completed"`
	Score           float64    `json:"score"`
	Attempted       bool       `json:"attempted"`
	FinishDate      *time.Time `json:"finish_date,omitempty"`
}

// CourseProgressSummary は1ユーザー・1コースの集計結果です
type CourseProgressSummary struct {
	CourseID         int          `json:"course_id"`
	Title            string       `json:"title"`
	TotalUnits       int          `json:"total_units"`
	CompletedUnits   int          `json:"completed_units"`
	AverageProgress  int          `json:"average_progress"` // 0〜100（ユニット数での単純平均）
	AverageScore     int          `json:"average_score"`    // スコア>0のユニットのみの平均
	IsCompleted      bool         `json:"is_completed"`
	CourseFinishDate *time.Time   `json:"course_finish_date,omitempty"`
	Units            []UnitStatus `json:"units"`
	HasStarted       bool         `json:"has_started"`
	NextUnit         *UnitStatus  `json:"next_unit,omitempty"` // 順序上最初の未完了ユニット
	LastActivity     time.Time    `json:"last_activity"`       // 活動なしならゼロ値
}

// OverallProgressSummary は全コース横断の集計結果です
type OverallProgressSummary struct {
	TotalCourses       int                      `json:"total_courses"`
	CompletedCourses   int                      `json:"completed_courses"`
	TotalUnits         int                      `json:"total_units"`
	CompletedUnits     int                      `json:"completed_units"`
	AverageProgress    int                      `json:"average_progress"`     // ユニット数で重み付けした平均
	CompletionRate     int                      `json:"completion_rate"`      // 完了コース率 (0〜100)
	UnitCompletionRate int                      `json:"unit_completion_rate"` // 完了ユニット率 (0〜100)
	LastActivity       time.Time                `json:"last_activity"`
	Courses            []*CourseProgressSummary `json:"courses"`
}
