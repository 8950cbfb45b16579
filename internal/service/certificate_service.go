// internal/service/certificate_service.go
package service

import (
	"context"
	"math"

	"course_progress_engine/internal/config"
	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
)

// CertificateService はコース集計と外部供給のアクティビティスコアから
// 2段階（virtual / complete）の証明書資格を判定します。
//
// 再受験時の扱いは monotonic ポリシー: 一度付与した資格は後の悪い結果で
// 取り消さない。FinalScore も到達済みの最高値を維持する。
// allow_retry=false の場合、既存の判定があればそれをそのまま返す。
type CertificateService interface {
	Evaluate(ctx context.Context, summary *model.CourseProgressSummary, activitiesScore float64, prev *model.CertificateEligibility) model.CertificateEligibility
}

type certificateService struct {
	cfg *config.Config
}

func NewCertificateService(cfg *config.Config) CertificateService {
	return &certificateService{cfg: cfg}
}

func (s *certificateService) Evaluate(ctx context.Context, summary *model.CourseProgressSummary, activitiesScore float64, prev *model.CertificateEligibility) model.CertificateEligibility {
	logger := middleware.GetLogger(ctx)
	t := s.cfg.Certificate

	if summary == nil {
		logger.Warn("Evaluate called with nil summary")
		if prev != nil {
			return *prev
		}
		return model.CertificateEligibility{}
	}

	if prev != nil && !t.AllowRetry {
		// 再受験を許可しない設定では、最初の判定がそのまま有効
		logger.Debug("Retry not allowed, returning previous evaluation",
			"course_id", summary.CourseID)
		return *prev
	}

	finalScore := int(math.Round(
		float64(summary.AverageProgress)*float64(t.InteractiveWeight)/100 +
			activitiesScore*float64(t.ActivitiesWeight)/100))

	eligibility := model.CertificateEligibility{
		Virtual:    summary.AverageProgress >= t.VirtualThreshold,
		FinalScore: finalScore,
	}

	if prev != nil {
		// 付与済みの資格は取り消さない。スコアも下げない
		eligibility.Virtual = eligibility.Virtual || prev.Virtual
		if prev.FinalScore > eligibility.FinalScore {
			eligibility.FinalScore = prev.FinalScore
		}
	}

	// complete はマージ後の値から判定する。過去に virtual を満たしていれば
	// 今回のスコアで complete に到達できる
	eligibility.Complete = eligibility.Virtual && eligibility.FinalScore >= t.CompleteThreshold
	if prev != nil {
		eligibility.Complete = eligibility.Complete || prev.Complete
	}

	logger.Info("Certificate evaluated",
		"course_id", summary.CourseID,
		"average_progress", summary.AverageProgress,
		"activities_score", activitiesScore,
		"final_score", eligibility.FinalScore,
		"virtual", eligibility.Virtual,
		"complete", eligibility.Complete,
	)

	return eligibility
}
