// internal/service/orchestrator_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"course_progress_engine/internal/cache"
	"course_progress_engine/internal/config"
	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
	"course_progress_engine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrchestratorService は進捗状態を変更する唯一の窓口です。
// 各更新系操作は「リモート書き込み → 楽観的キャッシュ反映 → 権威データの
// 再読込と全面同期」の順で進む。リモート書き込みが失敗した場合は
// キャッシュに一切触れない（受理されていないデータを映さない）。
//
// 同一 (user, course) への更新系操作はキー単位のロックで直列化する。
// 直列化しないと、先行操作の再読込が後続操作の書き込みと競合して
// 古いデータを蘇らせることがある。
type OrchestratorService interface {
	GetCourseProgress(ctx context.Context, userID uuid.UUID, courseID int) (*model.CourseProgressSummary, error)
	GetOverallProgress(ctx context.Context, userID uuid.UUID) (*model.OverallProgressSummary, error)
	UpdateUnitProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, percent int) error
	CompleteQuiz(ctx context.Context, userID uuid.UUID, courseID, unitID int, score float64) error
	ResetCourseProgress(ctx context.Context, userID uuid.UUID, courseID int) error
	UpdateCertificate(ctx context.Context, userID uuid.UUID, courseID int, activitiesScore float64, downloaded bool) (*model.Certificate, error)
	ClearSession(ctx context.Context, userID uuid.UUID)
}

type orchestratorService struct {
	db         *gorm.DB
	progRepo   repository.ProgressRepository
	courseRepo repository.CourseRepository
	certRepo   repository.CertificateRepository
	aggSvc     AggregationService
	certSvc    CertificateService
	syncSvc    SyncService
	store      cache.Store
	mailer     Mailer
	cfg        *config.Config
	locks      *keyedMutex
}

func NewOrchestratorService(
	db *gorm.DB,
	progRepo repository.ProgressRepository,
	courseRepo repository.CourseRepository,
	certRepo repository.CertificateRepository,
	aggSvc AggregationService,
	certSvc CertificateService,
	syncSvc SyncService,
	store cache.Store,
	mailer Mailer,
	cfg *config.Config,
) OrchestratorService {
	return &orchestratorService{
		db:         db,
		progRepo:   progRepo,
		courseRepo: courseRepo,
		certRepo:   certRepo,
		aggSvc:     aggSvc,
		certSvc:    certSvc,
		syncSvc:    syncSvc,
		store:      store,
		mailer:     mailer,
		cfg:        cfg,
		locks:      newKeyedMutex(),
	}
}

func lockKey(userID uuid.UUID, courseID int) string {
	return userID.String() + "|" + strconv.Itoa(courseID)
}

func (s *orchestratorService) GetCourseProgress(ctx context.Context, userID uuid.UUID, courseID int) (*model.CourseProgressSummary, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID)

	course, err := s.courseRepo.FindCourse(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("NOT_FOUND", "コースが見つかりませんでした。", "course_id", model.ErrNotFound)
		}
		logger.Error("Failed to load course catalog", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "コース情報の取得に失敗しました。", "", model.ErrInternalServer)
	}

	records, err := s.progRepo.GetUserProgress(ctx, s.db, userID)
	if err != nil {
		logger.Error("Failed to load progress records", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", model.ErrInternalServer)
	}

	return s.aggSvc.ComputeCourseProgress(ctx, course, records), nil
}

func (s *orchestratorService) GetOverallProgress(ctx context.Context, userID uuid.UUID) (*model.OverallProgressSummary, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	courses, records, err := s.loadAuthoritative(ctx, userID)
	if err != nil {
		logger.Error("Failed to load authoritative state", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", model.ErrInternalServer)
	}

	overall := s.aggSvc.ComputeOverallProgress(ctx, courses, records)

	// 集計が成功するたびにローカルミラーを作り直す
	s.syncSvc.SyncCache(ctx, s.userStore(userID), courses, records)

	return overall, nil
}

func (s *orchestratorService) UpdateUnitProgress(ctx context.Context, userID uuid.UUID, courseID, unitID, percent int) error {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID, "unit_id", unitID)

	if percent < 0 || percent > 100 {
		return model.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("進捗率 %d は 0〜100 の範囲外です。", percent), "percent", model.ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID, courseID))
	if err != nil {
		return model.NewAppError("CANCELLED", "操作がキャンセルされました。", "", model.ErrInternalServer)
	}
	defer unlock()

	_, unit, err := s.findUnit(ctx, courseID, unitID)
	if err != nil {
		return err
	}

	completed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.progRepo.FindCurrent(ctx, tx, userID, courseID, unitID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}

		now := time.Now()
		if existing == nil {
			completed = percent >= s.cfg.App.CompletionThreshold
			record := &model.ProgressRecord{
				RecordID:  uuid.New(),
				UserID:    userID,
				CourseID:  courseID,
				UnitID:    unit.UnitID,
				Progress:  float64(percent) / 100,
				Completed: completed,
				Attempted: false,
			}
			if completed {
				record.FinishDate = &now
			}
			return s.progRepo.Create(ctx, tx, record)
		}

		// 完了からの後退はリセット操作によってのみ起こる
		completed = existing.Completed || percent >= s.cfg.App.CompletionThreshold
		if !existing.Completed && completed {
			existing.FinishDate = &now
		}
		existing.Progress = float64(percent) / 100
		existing.Completed = completed
		return s.progRepo.Update(ctx, tx, existing)
	})
	if err != nil {
		logger.Error("Failed to write progress to remote store", "error", err)
		// 受理されなかった書き込みはキャッシュに映さない
		return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の保存に失敗しました。", "", model.ErrInternalServer)
	}

	// 楽観的キャッシュ反映（リモート書き込み成功後のみ）
	s.optimisticWrite(ctx, userID, cache.UnitKey(courseID, unit.UnitID), strconv.Itoa(percent))
	if completed {
		s.optimisticWrite(ctx, userID, cache.QuizKey(courseID, unit.UnitID), "true")
	}

	logger.Info("Unit progress updated", "percent", percent, "completed", completed)

	_, _, err = s.reconcile(ctx, userID)
	return err
}

func (s *orchestratorService) CompleteQuiz(ctx context.Context, userID uuid.UUID, courseID, unitID int, score float64) error {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID, "unit_id", unitID)

	if score < 0 {
		return model.NewAppError("VALIDATION_ERROR", "スコアは0以上である必要があります。", "score", model.ErrInvalidInput)
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID, courseID))
	if err != nil {
		return model.NewAppError("CANCELLED", "操作がキャンセルされました。", "", model.ErrInternalServer)
	}
	defer unlock()

	course, unit, err := s.findUnit(ctx, courseID, unitID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.progRepo.FindCurrent(ctx, tx, userID, courseID, unitID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}

		now := time.Now()
		if existing == nil {
			record := &model.ProgressRecord{
				RecordID:   uuid.New(),
				UserID:     userID,
				CourseID:   courseID,
				UnitID:     unit.UnitID,
				Progress:   1,
				Completed:  true,
				Score:      score,
				Attempted:  true,
				FinishDate: &now,
			}
			return s.progRepo.Create(ctx, tx, record)
		}

		existing.Progress = 1
		existing.Completed = true
		existing.Score = score
		existing.Attempted = true
		if existing.FinishDate == nil {
			existing.FinishDate = &now
		}
		return s.progRepo.Update(ctx, tx, existing)
	})
	if err != nil {
		logger.Error("Failed to write quiz completion to remote store", "error", err)
		return model.NewAppError("INTERNAL_SERVER_ERROR", "クイズ結果の保存に失敗しました。", "", model.ErrInternalServer)
	}

	s.optimisticWrite(ctx, userID, cache.UnitKey(courseID, unit.UnitID), "100")
	s.optimisticWrite(ctx, userID, cache.QuizKey(courseID, unit.UnitID), "true")

	logger.Info("Quiz completed", "score", score)

	_, records, err := s.reconcile(ctx, userID)
	if err != nil {
		return err
	}

	// 自動発行が有効なら、コース完了時に証明書を発行する。
	// クイズ自体は成功しているため、発行の失敗はログに留める
	if s.cfg.Certificate.AutoGenerate {
		summary := s.aggSvc.ComputeCourseProgress(ctx, course, records)
		if summary.IsCompleted {
			if _, err := s.issueCertificate(ctx, userID, summary, float64(summary.AverageScore), false); err != nil {
				logger.Warn("Automatic certificate issuance failed", "error", err)
			}
		}
	}

	return nil
}

func (s *orchestratorService) ResetCourseProgress(ctx context.Context, userID uuid.UUID, courseID int) error {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID)

	unlock, err := s.locks.Lock(ctx, lockKey(userID, courseID))
	if err != nil {
		return model.NewAppError("CANCELLED", "操作がキャンセルされました。", "", model.ErrInternalServer)
	}
	defer unlock()

	if _, err := s.courseRepo.FindCourse(ctx, s.db, courseID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.NewAppError("NOT_FOUND", "コースが見つかりませんでした。", "course_id", model.ErrNotFound)
		}
		logger.Error("Failed to load course catalog", "error", err)
		return model.NewAppError("INTERNAL_SERVER_ERROR", "コース情報の取得に失敗しました。", "", model.ErrInternalServer)
	}

	// リセットはコースの全レコードを1トランザクションで削除する
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.progRepo.DeleteByCourse(ctx, tx, userID, courseID)
	})
	if err != nil {
		logger.Error("Failed to delete progress records", "error", err)
		return model.NewAppError("INTERNAL_SERVER_ERROR", "進捗のリセットに失敗しました。", "", model.ErrInternalServer)
	}

	logger.Info("Course progress reset")

	// 再読込後の全面同期がこのコースのキャッシュキーを自然に消す
	_, _, err = s.reconcile(ctx, userID)
	return err
}

func (s *orchestratorService) UpdateCertificate(ctx context.Context, userID uuid.UUID, courseID int, activitiesScore float64, downloaded bool) (*model.Certificate, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID)

	unlock, err := s.locks.Lock(ctx, lockKey(userID, courseID))
	if err != nil {
		return nil, model.NewAppError("CANCELLED", "操作がキャンセルされました。", "", model.ErrInternalServer)
	}
	defer unlock()

	course, err := s.courseRepo.FindCourse(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("NOT_FOUND", "コースが見つかりませんでした。", "course_id", model.ErrNotFound)
		}
		logger.Error("Failed to load course catalog", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "コース情報の取得に失敗しました。", "", model.ErrInternalServer)
	}

	records, err := s.progRepo.GetUserProgress(ctx, s.db, userID)
	if err != nil {
		logger.Error("Failed to load progress records", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の取得に失敗しました。", "", model.ErrInternalServer)
	}

	summary := s.aggSvc.ComputeCourseProgress(ctx, course, records)

	cert, err := s.issueCertificate(ctx, userID, summary, activitiesScore, downloaded)
	if err != nil {
		return nil, err
	}

	_, _, err = s.reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// ClearSession はログアウト時の後始末です。対象ユーザーのビューに限って、
// 派生状態（ローカルキャッシュ）を予約キーも含めて破棄する。
// 進行中の操作はコンテキストのキャンセルで打ち切られる。
func (s *orchestratorService) ClearSession(ctx context.Context, userID uuid.UUID) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	store := s.userStore(userID)
	keys, err := store.Keys()
	if err != nil {
		logger.Warn("Failed to enumerate cache keys on logout", "error", err)
		return
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, cache.Namespace) {
			continue
		}
		if err := store.RemoveItem(key); err != nil {
			logger.Warn("Failed to remove cache key on logout", "key", key, "error", err)
		}
	}
	logger.Info("Session state cleared")
}

// --- 内部ヘルパー ---

func (s *orchestratorService) findUnit(ctx context.Context, courseID, unitID int) (*model.Course, *model.Unit, error) {
	course, err := s.courseRepo.FindCourse(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil, model.NewAppError("NOT_FOUND", "コースが見つかりませんでした。", "course_id", model.ErrNotFound)
		}
		return nil, nil, model.NewAppError("INTERNAL_SERVER_ERROR", "コース情報の取得に失敗しました。", "", model.ErrInternalServer)
	}
	for i := range course.Units {
		if course.Units[i].UnitID == unitID {
			return course, &course.Units[i], nil
		}
	}
	return nil, nil, model.NewAppError("NOT_FOUND", "ユニットが見つかりませんでした。", "unit_id", model.ErrNotFound)
}

func (s *orchestratorService) loadAuthoritative(ctx context.Context, userID uuid.UUID) ([]*model.Course, []*model.ProgressRecord, error) {
	courses, err := s.courseRepo.ListCourses(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.progRepo.GetUserProgress(ctx, s.db, userID)
	if err != nil {
		return nil, nil, err
	}
	return courses, records, nil
}

// reconcile は権威データを読み直してローカルキャッシュを全面同期します。
// ログアウト等でコンテキストが既にキャンセルされている場合、結果は破棄する。
func (s *orchestratorService) reconcile(ctx context.Context, userID uuid.UUID) ([]*model.Course, []*model.ProgressRecord, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID)

	courses, records, err := s.loadAuthoritative(ctx, userID)
	if err != nil {
		logger.Error("Reconciliation reload failed", "error", err)
		return nil, nil, model.NewAppError("INTERNAL_SERVER_ERROR", "進捗の再読込に失敗しました。", "", model.ErrInternalServer)
	}

	if ctx.Err() != nil {
		logger.Info("Context cancelled, discarding reloaded state")
		return nil, nil, model.NewAppError("CANCELLED", "操作がキャンセルされました。", "", model.ErrInternalServer)
	}

	s.syncSvc.SyncCache(ctx, s.userStore(userID), courses, records)
	return courses, records, nil
}

// issueCertificate は既存の証明書を考慮して資格を判定し、行を upsert します。
// monotonic ポリシーのため、判定は保存済みの資格を prev として渡す。
func (s *orchestratorService) issueCertificate(ctx context.Context, userID uuid.UUID, summary *model.CourseProgressSummary, activitiesScore float64, downloaded bool) (*model.Certificate, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", summary.CourseID)

	existing, err := s.certRepo.FindByUserAndCourse(ctx, s.db, userID, summary.CourseID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		logger.Error("Failed to load certificate", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "証明書の取得に失敗しました。", "", model.ErrInternalServer)
	}

	eligibility := s.certSvc.Evaluate(ctx, summary, activitiesScore, existing.Eligibility())

	if !eligibility.Virtual {
		return nil, model.NewAppError("NOT_ELIGIBLE", "証明書の発行条件を満たしていません。", "", model.ErrForbidden)
	}

	var cert *model.Certificate
	newlyIssued := existing == nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing == nil {
			cert = &model.Certificate{
				CertificateID: uuid.New(),
				UserID:        userID,
				CourseID:      summary.CourseID,
				FinalScore:    eligibility.FinalScore,
				Virtual:       eligibility.Virtual,
				Complete:      eligibility.Complete,
				Downloaded:    downloaded,
				IssuedAt:      time.Now(),
			}
			return s.certRepo.Create(ctx, tx, cert)
		}

		existing.FinalScore = eligibility.FinalScore
		existing.Virtual = eligibility.Virtual
		existing.Complete = eligibility.Complete
		existing.Downloaded = existing.Downloaded || downloaded
		cert = existing
		return s.certRepo.Update(ctx, tx, existing)
	})
	if err != nil {
		logger.Error("Failed to persist certificate", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "証明書の保存に失敗しました。", "", model.ErrInternalServer)
	}

	logger.Info("Certificate persisted",
		"final_score", cert.FinalScore, "virtual", cert.Virtual, "complete", cert.Complete)

	if newlyIssued && s.cfg.Mail.NotifyTo != "" {
		subject := fmt.Sprintf("Certificate issued: course %d", summary.CourseID)
		body := fmt.Sprintf("User %s earned a certificate for course %q (final score %d).",
			userID, summary.Title, cert.FinalScore)
		if err := s.mailer.Send(ctx, s.cfg.Mail.NotifyTo, subject, body); err != nil {
			// 通知は補助機能。失敗しても発行は取り消さない
			logger.Warn("Failed to send certificate notification", "error", err)
		}
	}

	return cert, nil
}

// userStore は共有ストアを対象ユーザーのビューに区切ります。
// キャッシュへの読み書きは必ずこのビューを経由する。
func (s *orchestratorService) userStore(userID uuid.UUID) cache.Store {
	return cache.ForUser(s.store, userID)
}

// optimisticWrite は成功したリモート書き込みを即座にキャッシュへ映します。
// 書けなくても直後の全面同期で追いつくため、失敗はログのみ
func (s *orchestratorService) optimisticWrite(ctx context.Context, userID uuid.UUID, key cache.Key, value string) {
	if err := s.userStore(userID).SetItem(key.Encode(), value); err != nil {
		middleware.GetLogger(ctx).Warn("Optimistic cache write failed",
			"key", key.Encode(), "error", err)
	}
}
