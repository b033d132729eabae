package model

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrContractNotReady    = errors.New("contract not ready")
	ErrAuthorizationFailed = errors.New("authorization failed")
	ErrOperationFailed     = errors.New("operation failed")
	ErrLimitExceeded       = errors.New("amount exceeds limit")
	ErrUnknownRecipient    = errors.New("unknown shielded recipient")
)
