// internal/service/sync_service.go
package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"course_progress_engine/internal/cache"
	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
)

const finishDateLayout = "2006-01-02"

// SyncService は権威あるレコード集合からローカルキャッシュを全面的に再構築します。
// 差分パッチは行わない: 毎回パージしてから書き直すことで、コース構造の変更後に
// 孤立キーが残らないことを保証する。同じ入力に対して冪等。
//
// キャッシュ書き込みの失敗は致命傷にしない: ログに残してループを継続し、
// 呼び出し元にはエラーを返さない契約（書けなかったキーは次回の同期で再試行される）。
type SyncService interface {
	SyncCache(ctx context.Context, store cache.Store, courses []*model.Course, records []*model.ProgressRecord)
}

type syncService struct{}

func NewSyncService() SyncService {
	return &syncService{}
}

// SyncCache は store に渡されたビュー（通常はユーザー単位に区切ったもの）だけを
// 書き換えます。対象ユーザーの選別は呼び出し元の責務。
func (s *syncService) SyncCache(ctx context.Context, store cache.Store, courses []*model.Course, records []*model.ProgressRecord) {
	logger := middleware.GetLogger(ctx)

	// --- ステップ1: 名前空間のパージ（予約キーは除く） ---
	keys, err := store.Keys()
	if err != nil {
		logger.Warn("Failed to enumerate cache keys, skipping purge", "error", err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, cache.Namespace) || key == cache.InitialOpenIndexKey {
			continue
		}
		if err := store.RemoveItem(key); err != nil {
			logger.Warn("Failed to remove cache key", "key", key, "error", err)
		}
	}

	// --- ステップ2, 3: コース構造に沿って再構築 ---
	for _, course := range courses {
		if course == nil || len(course.Units) == 0 {
			continue
		}

		current, _ := currentRecordsForCourse(ctx, course.CourseID, records)

		completedUnits := 0
		var latestFinish *time.Time

		for _, unit := range course.Units {
			rec, ok := current[unit.UnitID]
			if !ok {
				continue
			}

			percent := int(math.Floor(rec.Progress * 100))
			s.setItem(ctx, store, cache.UnitKey(course.CourseID, unit.UnitID), strconv.Itoa(percent))

			if rec.Completed {
				s.setItem(ctx, store, cache.QuizKey(course.CourseID, unit.UnitID), "true")
				completedUnits++
				if rec.FinishDate != nil && (latestFinish == nil || rec.FinishDate.After(*latestFinish)) {
					latestFinish = rec.FinishDate
				}
			}
		}

		// 完了ユニット集合が全ユニット集合と一致したときだけコース完了扱い
		if completedUnits == len(course.Units) {
			s.setItem(ctx, store, cache.FinishedKey(course.CourseID), "true")
			if latestFinish != nil {
				s.setItem(ctx, store, cache.FinishDateKey(course.CourseID), latestFinish.Format(finishDateLayout))
			}
		}
	}
}

func (s *syncService) setItem(ctx context.Context, store cache.Store, key cache.Key, value string) {
	if err := store.SetItem(key.Encode(), value); err != nil {
		// 容量超過などの書き込み失敗。他のキーの書き込みは止めない
		middleware.GetLogger(ctx).Warn("Failed to write cache key",
			"key", key.Encode(), "error", err)
	}
}
