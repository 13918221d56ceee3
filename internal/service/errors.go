package service

import "errors"

// ErrInvalidPurpose is returned when a code flow is asked for an unknown purpose.
var ErrInvalidPurpose = errors.New("invalid_code_purpose")
