package errors

import "errors"

var (
	ErrNotFound      = errors.New("booking not found")
	ErrInvalidID     = errors.New("invalid booking ID format")
	ErrClaimConflict = errors.New("slot claimed by another holder")
	ErrLeaseNotFound = errors.New("lease not found")
)
