package common

import "errors"

// Error taxonomy shared by every service in the messaging core.
// Services wrap these with context via fmt.Errorf("...: %w", err);
// the HTTP layer maps them to status codes.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
