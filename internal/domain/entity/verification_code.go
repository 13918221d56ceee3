package entity

import (
	"fmt"
	"strings"
	"time"
)

// CodePurpose binds a one-time code to the flow it was issued for.
type CodePurpose string

const (
	PurposeRegister      CodePurpose = "REGISTER"
	PurposeResetPassword CodePurpose = "RESET_PASSWORD"
)

// ParseCodePurpose accepts the purpose in any letter case ("register", "reset_password").
func ParseCodePurpose(s string) (CodePurpose, error) {
	switch p := CodePurpose(strings.ToUpper(strings.TrimSpace(s))); p {
	case PurposeRegister, PurposeResetPassword:
		return p, nil
	default:
		return "", fmt.Errorf("unknown code purpose %q", s)
	}
}

// VerificationCode is the single live one-time code for a recipient address.
type VerificationCode struct {
	Recipient  string      `json:"recipient"`
	Code       string      `json:"code"`
	Purpose    CodePurpose `json:"purpose"`
	SendTime   time.Time   `json:"send_time"`
	ExpiryTime time.Time   `json:"expiry_time"`
}

// IsExpired reports whether the code is past its expiry at now.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiryTime)
}

// InSendInterval reports whether a new code for the same recipient must still be refused.
func (c *VerificationCode) InSendInterval(now time.Time, interval time.Duration) bool {
	return now.Before(c.SendTime.Add(interval))
}
