// internal/model/certificate.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CertificateEligibility は証明書の判定結果です（派生値・都度計算）
type CertificateEligibility struct {
	Virtual    bool `json:"virtual"`
	Complete   bool `json:"complete"`
	FinalScore int  `json:"final_score"`
}

// Certificate は発行済み証明書の永続化行です。
// 一度付与した資格は取り消さない（monotonic）ポリシーの根拠データとなる。
type Certificate struct {
	CertificateID uuid.UUID `gorm:"type:uuid;primaryKey" json:"certificate_id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_user_course_cert,unique" json:"user_id"`
	CourseID      int       `gorm:"not null;index:idx_user_course_cert,unique" json:"course_id"`
	FinalScore    int       `gorm:"not null;default:0" json:"final_score"`
	Virtual       bool      `gorm:"not null;default:false" json:"virtual"`
	Complete      bool      `gorm:"not null;default:false" json:"complete"`
	Downloaded    bool      `gorm:"not null;default:false" json:"downloaded"`
	IssuedAt      time.Time `json:"issued_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// Eligibility は保存済み証明書を判定結果の形に戻します
func (c *Certificate) Eligibility() *CertificateEligibility {
	if c == nil {
		return nil
	}
	return &CertificateEligibility{
		Virtual:    c.Virtual,
		Complete:   c.Complete,
		FinalScore: c.FinalScore,
	}
}
