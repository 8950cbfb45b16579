// internal/service/aggregation_service.go
package service

import (
	"context"
	"math"
	"time"

	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
)

// AggregationService は生の進捗レコードからコース・全体の集計を計算します。
// 計算は純粋関数で、DBにもキャッシュにも触れない。エラーは返さない契約で、
// 不正な入力はゼロ値のサマリとして吸収しログに残す（集計で落ちない）。
type AggregationService interface {
	ComputeCourseProgress(ctx context.Context, course *model.Course, records []*model.ProgressRecord) *model.CourseProgressSummary
	ComputeOverallProgress(ctx context.Context, courses []*model.Course, records []*model.ProgressRecord) *model.OverallProgressSummary
}

type aggregationService struct {
}

func NewAggregationService() AggregationService {
	return &aggregationService{}
}

func (s *aggregationService) ComputeCourseProgress(ctx context.Context, course *model.Course, records []*model.ProgressRecord) *model.CourseProgressSummary {
	logger := middleware.GetLogger(ctx)

	if course == nil {
		logger.Warn("ComputeCourseProgress called with nil course, returning zeroed summary")
		return &model.CourseProgressSummary{Units: []model.UnitStatus{}}
	}

	summary := &model.CourseProgressSummary{
		CourseID: course.CourseID,
		Title:    course.Title,
		Units:    make([]model.UnitStatus, 0, len(course.Units)),
	}

	// ユニットが1つもないコースは常に未完了・進捗0（ゼロ除算を起こさない）
	if len(course.Units) == 0 {
		logger.Warn("Course has no units", "course_id", course.CourseID)
		return summary
	}

	current, lastActivity := currentRecordsForCourse(ctx, course.CourseID, records)

	var (
		progressSum int
		scoreSum    float64
		scoredUnits int
		finishDate  *time.Time
	)

	for _, unit := range course.Units {
		status := model.UnitStatus{
			UnitID:   unit.UnitID,
			Name:     unit.Name,
			Position: unit.Position,
		}
		if rec, ok := current[unit.UnitID]; ok {
			status.ProgressPercent = int(math.Round(rec.Progress * 100))
			status.Completed = rec.Completed
			status.Score = rec.Score
			status.Attempted = rec.Attempted
			status.FinishDate = rec.FinishDate

			if rec.Completed && rec.Progress < 1 {
				// 不変条件違反（completed なのに progress<1）。壊さず記録だけする
				logger.Warn("Inconsistent record: completed without full progress",
					"course_id", rec.CourseID, "unit_id", rec.UnitID, "progress", rec.Progress)
			}
		}
		// レコードなしのユニットは {progress:0, completed:false, score:0} のデフォルト

		progressSum += status.ProgressPercent
		if status.Score > 0 {
			scoreSum += status.Score
			scoredUnits++
		}
		if status.Completed {
			summary.CompletedUnits++
			if status.FinishDate != nil && (finishDate == nil || status.FinishDate.After(*finishDate)) {
				finishDate = status.FinishDate
			}
		}
		if status.ProgressPercent > 0 {
			summary.HasStarted = true
		}
		if summary.NextUnit == nil && !status.Completed {
			u := status
			summary.NextUnit = &u
		}

		summary.Units = append(summary.Units, status)
	}

	summary.TotalUnits = len(course.Units)
	summary.AverageProgress = int(math.Round(float64(progressSum) / float64(summary.TotalUnits)))
	if scoredUnits > 0 {
		// スコア0のユニットは分母に入れない（averageProgress とは意図的に非対称）
		summary.AverageScore = int(math.Round(scoreSum / float64(scoredUnits)))
	}
	summary.IsCompleted = summary.CompletedUnits == summary.TotalUnits
	summary.CourseFinishDate = finishDate
	summary.LastActivity = lastActivity

	return summary
}

func (s *aggregationService) ComputeOverallProgress(ctx context.Context, courses []*model.Course, records []*model.ProgressRecord) *model.OverallProgressSummary {
	logger := middleware.GetLogger(ctx)

	overall := &model.OverallProgressSummary{
		Courses: make([]*model.CourseProgressSummary, 0, len(courses)),
	}
	if len(courses) == 0 {
		logger.Debug("ComputeOverallProgress called with no courses")
		return overall
	}

	// 加算のみで畳み込むため、courses / records の順序に結果は依存しない
	var weightedProgressSum int
	for _, course := range courses {
		if course == nil {
			logger.Warn("Nil course in catalog, skipping")
			continue
		}
		cs := s.ComputeCourseProgress(ctx, course, records)
		overall.Courses = append(overall.Courses, cs)

		overall.TotalCourses++
		overall.TotalUnits += cs.TotalUnits
		overall.CompletedUnits += cs.CompletedUnits
		weightedProgressSum += cs.AverageProgress * cs.TotalUnits
		if cs.IsCompleted {
			overall.CompletedCourses++
		}
		if cs.LastActivity.After(overall.LastActivity) {
			overall.LastActivity = cs.LastActivity
		}
	}

	if overall.TotalUnits > 0 {
		// コース単位の単純平均ではなく、ユニット数で重み付けする（大きいコースほど効く）
		overall.AverageProgress = int(math.Round(float64(weightedProgressSum) / float64(overall.TotalUnits)))
		overall.UnitCompletionRate = int(math.Round(float64(overall.CompletedUnits) / float64(overall.TotalUnits) * 100))
	}
	if overall.TotalCourses > 0 {
		overall.CompletionRate = int(math.Round(float64(overall.CompletedCourses) / float64(overall.TotalCourses) * 100))
	}

	return overall
}

// currentRecordsForCourse は対象コースのレコードをユニットごとに1件へ畳み込みます。
// リモートストアは履歴上の重複行を返しうるため、updated_at の新しい方を採用する
// (last-write-wins)。同時刻は created_at、さらに record_id で決定的に解決し、
// 入力順に依存しないようにする。併せてコースの最終活動時刻も求める。
func currentRecordsForCourse(ctx context.Context, courseID int, records []*model.ProgressRecord) (map[int]*model.ProgressRecord, time.Time) {
	logger := middleware.GetLogger(ctx)

	current := make(map[int]*model.ProgressRecord)
	var lastActivity time.Time

	for _, rec := range records {
		if rec == nil || rec.CourseID != courseID {
			continue
		}
		if err := rec.Validate(); err != nil {
			// 境界で弾かれるべき不正レコード。計算には乗せない
			logger.Warn("Skipping invalid progress record in aggregation",
				"course_id", rec.CourseID, "unit_id", rec.UnitID, "error", err)
			continue
		}

		if rec.UpdatedAt.After(lastActivity) {
			lastActivity = rec.UpdatedAt
		}
		if rec.CreatedAt.After(lastActivity) {
			lastActivity = rec.CreatedAt
		}

		cur, ok := current[rec.UnitID]
		if !ok || newerRecord(rec, cur) {
			current[rec.UnitID] = rec
		}
	}

	return current, lastActivity
}

// newerRecord は a を b より「現在」とみなすべきか判定します（全順序）
func newerRecord(a, b *model.ProgressRecord) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.RecordID.String() > b.RecordID.String()
}
