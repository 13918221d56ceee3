package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a registered account together with its lockout record.
// FailedLoginCount, LockedUntil and LastLoginTime are owned by the lockout
// policy; nothing else should write them.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email            string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password         string     `gorm:"size:100;not null" json:"-"`
	Disabled         bool       `gorm:"not null;default:false" json:"disabled"`
	FailedLoginCount int        `gorm:"not null;default:0" json:"-"`
	LockedUntil      *time.Time `gorm:"type:timestamptz" json:"-"`
	LastLoginTime    *time.Time `gorm:"type:timestamptz" json:"last_login_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the GORM table name.
func (User) TableName() string {
	return "users"
}

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// HashPlain returns the bcrypt hash of a plain-text password.
func HashPlain(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// BeforeSave hashes the password of records that were not hashed by the
// caller. Stored records already carry a bcrypt hash and are left alone.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) == 0 || isBcryptHash(u.Password) {
		return nil
	}
	return u.HashPassword()
}

// HashPassword replaces Password with its bcrypt hash. It always hashes, so
// a plain password that happens to start with "$2a$" is not stored verbatim.
func (u *User) HashPassword() error {
	if len(u.Password) == 0 {
		return nil
	}
	hashed, err := HashPlain(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// isBcryptHash requires the full 60-byte encoding with a parseable cost, so
// a short plain password carrying a "$2a$" prefix is still hashed.
func isBcryptHash(s string) bool {
	if len(s) != 60 || !(strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")) {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
