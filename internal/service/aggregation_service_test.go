// internal/service/aggregation_service_test.go
package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- テストヘルパー関数 ---

func testCtx() context.Context {
	// テスト中はログを抑制
	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return middleware.WithLogger(context.Background(), testLogger)
}

func makeCourse(courseID int, title string, unitCount int) *model.Course {
	units := make([]model.Unit, 0, unitCount)
	for i := 1; i <= unitCount; i++ {
		units = append(units, model.Unit{
			CourseID: courseID,
			UnitID:   i,
			Name:     "Unit",
			Position: i,
		})
	}
	return &model.Course{CourseID: courseID, Title: title, Units: units}
}

func makeRecord(userID uuid.UUID, courseID, unitID int, progress float64, completed bool, score float64, updatedAt time.Time) *model.ProgressRecord {
	return &model.ProgressRecord{
		RecordID:  uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		UnitID:    unitID,
		Progress:  progress,
		Completed: completed,
		Score:     score,
		Attempted: score > 0,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
}

// --- Test ComputeCourseProgress ---
func Test_aggregationService_ComputeCourseProgress(t *testing.T) {
	ctx := testCtx()
	aggService := NewAggregationService()

	userID := uuid.New()
	baseTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	finish1 := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	finish2 := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		course  *model.Course
		records []*model.ProgressRecord
		check   func(t *testing.T, got *model.CourseProgressSummary)
	}{
		{
			name:    "正常系: レコードなしのコースは全ユニットがデフォルト値",
			course:  makeCourse(1, "Intro", 3),
			records: nil,
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 1, got.CourseID)
				assert.Equal(t, 3, got.TotalUnits)
				assert.Equal(t, 0, got.CompletedUnits)
				assert.Equal(t, 0, got.AverageProgress)
				assert.Equal(t, 0, got.AverageScore)
				assert.False(t, got.IsCompleted)
				assert.False(t, got.HasStarted)
				require.NotNil(t, got.NextUnit)
				assert.Equal(t, 1, got.NextUnit.UnitID)
				assert.True(t, got.LastActivity.IsZero())
				require.Len(t, got.Units, 3)
				for _, u := range got.Units {
					assert.Equal(t, 0, u.ProgressPercent)
					assert.False(t, u.Completed)
				}
			},
		},
		{
			name:   "正常系: 3ユニット混在（完了1・途中1・未着手1）",
			course: makeCourse(1, "Intro", 3),
			records: []*model.ProgressRecord{
				func() *model.ProgressRecord {
					r := makeRecord(userID, 1, 1, 1.0, true, 80, baseTime)
					r.FinishDate = &finish1
					return r
				}(),
				makeRecord(userID, 1, 2, 0.5, false, 0, baseTime.Add(time.Hour)),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 1, got.CompletedUnits)
				// (100 + 50 + 0) / 3 = 50
				assert.Equal(t, 50, got.AverageProgress)
				// スコア>0はユニット1のみ
				assert.Equal(t, 80, got.AverageScore)
				assert.False(t, got.IsCompleted)
				assert.True(t, got.HasStarted)
				require.NotNil(t, got.NextUnit)
				assert.Equal(t, 2, got.NextUnit.UnitID)
				assert.Equal(t, baseTime.Add(time.Hour), got.LastActivity)
			},
		},
		{
			name:   "正常系: 全ユニット完了でisCompletedと完了日（最遅）が立つ",
			course: makeCourse(2, "Advanced", 2),
			records: []*model.ProgressRecord{
				func() *model.ProgressRecord {
					r := makeRecord(userID, 2, 1, 1.0, true, 90, baseTime)
					r.FinishDate = &finish1
					return r
				}(),
				func() *model.ProgressRecord {
					r := makeRecord(userID, 2, 2, 1.0, true, 70, baseTime)
					r.FinishDate = &finish2
					return r
				}(),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 100, got.AverageProgress)
				assert.Equal(t, 80, got.AverageScore)
				assert.True(t, got.IsCompleted)
				assert.Nil(t, got.NextUnit)
				require.NotNil(t, got.CourseFinishDate)
				assert.Equal(t, finish2, *got.CourseFinishDate)
			},
		},
		{
			name:   "正常系: 同一ユニットの重複レコードはupdated_atの新しい方が勝つ",
			course: makeCourse(1, "Intro", 1),
			records: []*model.ProgressRecord{
				makeRecord(userID, 1, 1, 0.3, false, 0, baseTime),
				makeRecord(userID, 1, 1, 0.9, false, 0, baseTime.Add(time.Minute)),
				makeRecord(userID, 1, 1, 0.1, false, 0, baseTime.Add(-time.Minute)),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				require.Len(t, got.Units, 1)
				assert.Equal(t, 90, got.Units[0].ProgressPercent)
				assert.Equal(t, 90, got.AverageProgress)
			},
		},
		{
			name:   "正常系: スコア0のユニットは平均スコアの分母に入らない",
			course: makeCourse(1, "Intro", 3),
			records: []*model.ProgressRecord{
				makeRecord(userID, 1, 1, 1.0, true, 60, baseTime),
				makeRecord(userID, 1, 2, 1.0, true, 0, baseTime),
				makeRecord(userID, 1, 3, 1.0, true, 90, baseTime),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				// (60 + 90) / 2 = 75 であって (60+0+90)/3 = 50 ではない
				assert.Equal(t, 75, got.AverageScore)
				assert.Equal(t, 100, got.AverageProgress)
			},
		},
		{
			name:   "正常系: 他コースのレコードは無視される",
			course: makeCourse(1, "Intro", 1),
			records: []*model.ProgressRecord{
				makeRecord(userID, 2, 1, 1.0, true, 100, baseTime),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 0, got.AverageProgress)
				assert.False(t, got.HasStarted)
			},
		},
		{
			name:   "異常系: 範囲外progressのレコードは集計から除外される",
			course: makeCourse(1, "Intro", 2),
			records: []*model.ProgressRecord{
				makeRecord(userID, 1, 1, 1.5, false, 0, baseTime), // 不正
				makeRecord(userID, 1, 2, 0.5, false, 0, baseTime),
			},
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 0, got.Units[0].ProgressPercent)
				assert.Equal(t, 50, got.Units[1].ProgressPercent)
				assert.Equal(t, 25, got.AverageProgress)
			},
		},
		{
			name:    "異常系: ユニット0件のコースはゼロ除算せず未完了のまま",
			course:  makeCourse(9, "Empty", 0),
			records: nil,
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 0, got.TotalUnits)
				assert.Equal(t, 0, got.AverageProgress)
				assert.False(t, got.IsCompleted)
				assert.Empty(t, got.Units)
			},
		},
		{
			name:    "異常系: nilコースはゼロ値サマリ",
			course:  nil,
			records: nil,
			check: func(t *testing.T, got *model.CourseProgressSummary) {
				assert.Equal(t, 0, got.CourseID)
				assert.Empty(t, got.Units)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aggService.ComputeCourseProgress(ctx, tt.course, tt.records)
			require.NotNil(t, got)
			tt.check(t, got)
		})
	}
}

// 同時刻の重複はcreated_at、さらにrecord_idで決定的に解決される
func Test_aggregationService_ComputeCourseProgress_DeterministicTieBreak(t *testing.T) {
	ctx := testCtx()
	aggService := NewAggregationService()

	userID := uuid.New()
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := makeRecord(userID, 1, 1, 0.2, false, 0, ts)
	b := makeRecord(userID, 1, 1, 0.8, false, 0, ts)
	course := makeCourse(1, "Intro", 1)

	got1 := aggService.ComputeCourseProgress(ctx, course, []*model.ProgressRecord{a, b})
	got2 := aggService.ComputeCourseProgress(ctx, course, []*model.ProgressRecord{b, a})

	// どちらが勝つかはrecord_idに依存するが、入力順には依存しない
	assert.Equal(t, got1.Units[0].ProgressPercent, got2.Units[0].ProgressPercent)
}

// --- Test ComputeOverallProgress ---
func Test_aggregationService_ComputeOverallProgress(t *testing.T) {
	ctx := testCtx()
	aggService := NewAggregationService()

	userID := uuid.New()
	baseTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	courseA := makeCourse(1, "A", 4) // 4ユニット全完了
	courseB := makeCourse(2, "B", 1) // 1ユニット未着手

	records := []*model.ProgressRecord{
		makeRecord(userID, 1, 1, 1.0, true, 80, baseTime),
		makeRecord(userID, 1, 2, 1.0, true, 80, baseTime),
		makeRecord(userID, 1, 3, 1.0, true, 80, baseTime),
		makeRecord(userID, 1, 4, 1.0, true, 80, baseTime),
	}

	t.Run("正常系: ユニット数で重み付けした全体平均", func(t *testing.T) {
		got := aggService.ComputeOverallProgress(ctx, []*model.Course{courseA, courseB}, records)

		assert.Equal(t, 2, got.TotalCourses)
		assert.Equal(t, 1, got.CompletedCourses)
		assert.Equal(t, 5, got.TotalUnits)
		assert.Equal(t, 4, got.CompletedUnits)
		// (100*4 + 0*1) / 5 = 80（コース単純平均の50ではない）
		assert.Equal(t, 80, got.AverageProgress)
		assert.Equal(t, 50, got.CompletionRate)
		assert.Equal(t, 80, got.UnitCompletionRate)
		assert.Equal(t, baseTime, got.LastActivity)
		require.Len(t, got.Courses, 2)
	})

	t.Run("正常系: コース・レコードの順序を入れ替えても結果は同じ", func(t *testing.T) {
		want := aggService.ComputeOverallProgress(ctx, []*model.Course{courseA, courseB}, records)

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 10; i++ {
			shuffled := make([]*model.ProgressRecord, len(records))
			copy(shuffled, records)
			rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

			got := aggService.ComputeOverallProgress(ctx, []*model.Course{courseB, courseA}, shuffled)
			assert.Equal(t, want.AverageProgress, got.AverageProgress)
			assert.Equal(t, want.CompletedUnits, got.CompletedUnits)
			assert.Equal(t, want.CompletedCourses, got.CompletedCourses)
			assert.Equal(t, want.LastActivity, got.LastActivity)
		}
	})

	t.Run("正常系: コース0件はゼロ値", func(t *testing.T) {
		got := aggService.ComputeOverallProgress(ctx, nil, records)
		assert.Equal(t, 0, got.TotalCourses)
		assert.Equal(t, 0, got.AverageProgress)
		assert.Equal(t, 0, got.CompletionRate)
		assert.Empty(t, got.Courses)
	})

	t.Run("正常系: nilコースはスキップされ件数に入らない", func(t *testing.T) {
		got := aggService.ComputeOverallProgress(ctx, []*model.Course{courseA, nil}, records)
		assert.Equal(t, 1, got.TotalCourses)
		assert.Equal(t, 100, got.AverageProgress)
	})
}
