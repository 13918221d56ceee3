package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// revokedTokenRow is the revoked_tokens table. Tokens are stored as their
// SHA-256 digest so the table never holds a usable credential.
type revokedTokenRow struct {
	TokenHash string     `gorm:"primaryKey;size:64"`
	RevokedAt time.Time  `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"type:timestamptz"`
}

func (revokedTokenRow) TableName() string {
	return "revoked_tokens"
}

// RevocationStore implements repository.RevocationStore on PostgreSQL.
type RevocationStore struct {
	db *gorm.DB
}

func NewRevocationStore(db *gorm.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

// Add inserts the token; a second insert of the same token keeps the first row.
func (s *RevocationStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	var expiry *time.Time
	if !expiresAt.IsZero() {
		expiry = &expiresAt
	}
	return s.db.WithContext(ctx).Exec(`
		INSERT INTO revoked_tokens (token_hash, revoked_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_hash) DO NOTHING
	`, tokenHash(token), time.Now(), expiry).Error
}

func (s *RevocationStore) Contains(ctx context.Context, token string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&revokedTokenRow{}).
		Where("token_hash = ?", tokenHash(token)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *RevocationStore) Remove(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token_hash = ?", tokenHash(token)).Delete(&revokedTokenRow{}).Error
}

// Prune deletes rows whose token expiry is before now. Rows without a known
// expiry are kept.
func (s *RevocationStore) Prune(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).Where("expires_at IS NOT NULL AND expires_at < ?", now).Delete(&revokedTokenRow{})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
