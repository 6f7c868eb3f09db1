package payment

import "errors"

var (
	ErrNotFound         = errors.New("payment not found")
	ErrDuplicate        = errors.New("payment already recorded")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnknownPackage   = errors.New("unknown package")
	ErrUnknownUser      = errors.New("unknown user in cart id")
	ErrNotPaid          = errors.New("payment not in paid status")
	ErrChargeDeclined   = errors.New("charge declined")
	ErrInternal         = errors.New("internal error")
)
