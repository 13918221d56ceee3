package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/animemaster-api/internal/domain/entity"
	apperrors "github.com/yourusername/animemaster-api/internal/pkg/errors"
)

// verificationCodeRow is the verification_codes table, one row per recipient.
type verificationCodeRow struct {
	Recipient  string    `gorm:"primaryKey;size:100"`
	Code       string    `gorm:"size:6;not null"`
	Purpose    string    `gorm:"size:20;not null"`
	SendTime   time.Time `gorm:"not null"`
	ExpiryTime time.Time `gorm:"not null;index"`
}

func (verificationCodeRow) TableName() string {
	return "verification_codes"
}

func (r *verificationCodeRow) toEntity() *entity.VerificationCode {
	return &entity.VerificationCode{
		Recipient:  r.Recipient,
		Code:       r.Code,
		Purpose:    entity.CodePurpose(r.Purpose),
		SendTime:   r.SendTime,
		ExpiryTime: r.ExpiryTime,
	}
}

// VerificationCodeStore implements repository.VerificationCodeStore on
// PostgreSQL. Conditional writes are single statements, so they are atomic
// per recipient without explicit locking.
type VerificationCodeStore struct {
	db *gorm.DB
}

func NewVerificationCodeStore(db *gorm.DB) *VerificationCodeStore {
	return &VerificationCodeStore{db: db}
}

func (s *VerificationCodeStore) Get(ctx context.Context, recipient string) (*entity.VerificationCode, error) {
	var row verificationCodeRow
	err := s.db.WithContext(ctx).Where("recipient = ?", recipient).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}
	return row.toEntity(), nil
}

// PutIfIdle upserts the row; the update branch only fires when the current
// row has expired or is older than interval at code.SendTime.
func (s *VerificationCodeStore) PutIfIdle(ctx context.Context, code *entity.VerificationCode, interval time.Duration) (bool, error) {
	row := verificationCodeRow{
		Recipient:  code.Recipient,
		Code:       code.Code,
		Purpose:    string(code.Purpose),
		SendTime:   code.SendTime,
		ExpiryTime: code.ExpiryTime,
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "purpose", "send_time", "expiry_time"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "verification_codes.expiry_time < ? OR verification_codes.send_time <= ?",
				Vars: []interface{}{code.SendTime, code.SendTime.Add(-interval)},
			},
		}},
	}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to store verification code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *VerificationCodeStore) DeleteIfMatch(ctx context.Context, recipient, code string, sendTime time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("recipient = ? AND code = ? AND send_time = ?", recipient, code, sendTime).
		Delete(&verificationCodeRow{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete verification code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *VerificationCodeStore) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).Where("expiry_time < ?", now).Delete(&verificationCodeRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune verification codes: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
